package workflow

import (
	"context"

	commonpb "go.temporal.io/api/common/v1"
	failurepb "go.temporal.io/api/failure/v1"

	"goa.design/wfcore/converter"
)

// signalInput carries a SignalExternalWorkflow call's arguments through the
// outbound interceptor chain as a single value.
type signalInput struct {
	TargetWorkflowID string
	TargetRunID      string
	SignalName       string
	Input            []*commonpb.Payload
}

// TraceName reports the signal name as the tracing interceptor's span name.
func (s signalInput) TraceName() string { return s.SignalName }

// SignalExternalWorkflow emits SignalExternalWorkflowExecution and blocks
// until the server confirms delivery or reports a failure (e.g. the target
// run does not exist).
func (c *Context) SignalExternalWorkflow(targetWorkflowID, targetRunID, signalName string, input []*commonpb.Payload) error {
	if err := c.assertNotCancelled(); err != nil {
		return err
	}

	in := signalInput{TargetWorkflowID: targetWorkflowID, TargetRunID: targetRunID, SignalName: signalName, Input: input}
	out, err := c.chain.SignalWorkflow(c.outboundCtx(), in, func(_ context.Context, input any) (any, error) {
		in := input.(signalInput)
		return c.state.SignalExternal(c.tc, in.TargetWorkflowID, in.TargetRunID, in.SignalName, in.Input)
	})
	if err != nil {
		return err
	}
	if failure, _ := out.(*failurepb.Failure); failure != nil {
		return converter.FailureToError(failure)
	}
	return nil
}

// signalChild delivers a signal to a running child workflow, routed through
// SignalChildWorkflow rather than SignalWorkflow so interceptors can tell the
// two apart.
func (c *Context) signalChild(targetWorkflowID, targetRunID, signalName string, input []*commonpb.Payload) error {
	if err := c.assertNotCancelled(); err != nil {
		return err
	}

	in := signalInput{TargetWorkflowID: targetWorkflowID, TargetRunID: targetRunID, SignalName: signalName, Input: input}
	out, err := c.chain.SignalChildWorkflow(c.outboundCtx(), in, func(_ context.Context, input any) (any, error) {
		in := input.(signalInput)
		return c.state.SignalExternal(c.tc, in.TargetWorkflowID, in.TargetRunID, in.SignalName, in.Input)
	})
	if err != nil {
		return err
	}
	if failure, _ := out.(*failurepb.Failure); failure != nil {
		return converter.FailureToError(failure)
	}
	return nil
}
