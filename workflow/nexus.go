package workflow

import (
	commonpb "go.temporal.io/api/common/v1"
	failurepb "go.temporal.io/api/failure/v1"

	"goa.design/wfcore/converter"
	"goa.design/wfcore/statemachine"
)

// NexusOperationOptions names a registered Nexus operation to invoke, the
// domain-stack enrichment over github.com/nexus-rpc/sdk-go's service model
// (see the github.com/nexus-rpc/sdk-go entry in §11 of SPEC_FULL.md).
type NexusOperationOptions struct {
	Service   string
	Operation string
	Input     []*commonpb.Payload
}

// nexusFailure is satisfied by statemachine's unexported Nexus failure
// adapter; Go interface satisfaction does not require the concrete type to
// be exported, only its method set to match.
type nexusFailure interface {
	Failure() *failurepb.Failure
}

// ExecuteNexusOperation schedules a Nexus operation and blocks until it
// resolves, decoding a successful result into valuePtr.
func (c *Context) ExecuteNexusOperation(opts NexusOperationOptions, valuePtr any) error {
	if err := c.assertNotCancelled(); err != nil {
		return err
	}
	result, err := c.state.ScheduleNexusOperation(c.tc, statemachine.NexusOperationOptions(opts))
	if err != nil {
		if nf, ok := err.(nexusFailure); ok {
			return converter.FailureToError(nf.Failure())
		}
		return err
	}
	if valuePtr == nil || len(result) == 0 {
		return nil
	}
	return converter.FromPayload(result[0], valuePtr)
}
