// Package converter wraps the Temporal Go SDK's payload and failure
// converters, the injected collaborator boundary named for data encoding in
// the specification (§6). It deliberately reuses go.temporal.io/sdk's own
// converters rather than reimplementing payload/failure wire encoding.
package converter

import (
	commonpb "go.temporal.io/api/common/v1"
	failurepb "go.temporal.io/api/failure/v1"
	"go.temporal.io/sdk/converter"
)

// Default is the composite payload converter used when a workflow type does
// not configure its own: nil, []byte, proto.Message, protojson, then JSON,
// tried in that order — the same order the Temporal Go SDK itself uses and
// the order goadesign-goa-ai's own converter builds on top of.
var Default converter.DataConverter = converter.NewCompositeDataConverter(
	converter.NewNilPayloadConverter(),
	converter.NewByteSlicePayloadConverter(),
	converter.NewProtoPayloadConverter(),
	converter.NewProtoJSONPayloadConverter(),
	converter.NewJSONPayloadConverter(),
)

// ToPayload encodes value with the default converter.
func ToPayload(value any) (*commonpb.Payload, error) {
	return Default.ToPayload(value)
}

// ToPayloads encodes a whole argument list in order.
func ToPayloads(values ...any) ([]*commonpb.Payload, error) {
	out := make([]*commonpb.Payload, len(values))
	for i, v := range values {
		p, err := ToPayload(v)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// FromPayload decodes a single payload into valuePtr.
func FromPayload(p *commonpb.Payload, valuePtr any) error {
	return Default.FromPayload(p, valuePtr)
}

// FromPayloads decodes payloads positionally into valuePtrs, ignoring any
// extra trailing payloads the caller did not provide destinations for (the
// SDK's own convention for variadic activity/workflow signatures).
func FromPayloads(payloads []*commonpb.Payload, valuePtrs ...any) error {
	for i, ptr := range valuePtrs {
		if i >= len(payloads) {
			break
		}
		if err := FromPayload(payloads[i], ptr); err != nil {
			return err
		}
	}
	return nil
}

// failureConverter is the Temporal SDK's own default: it already implements
// the exact ApplicationError/CanceledError/TimeoutError/ChildWorkflowError/
// TerminatedError/ServerError reconstruction the specification's error
// taxonomy (§7) names, so no bespoke failure-converter logic is needed here.
var failureConverter = converter.GetDefaultFailureConverter()

// ErrorToFailure converts a Go error raised by workflow code (or a typed
// failure constructed via go.temporal.io/sdk/temporal) into the wire
// Failure the state machine attaches to FailWorkflowExecution,
// RespondToQuery.failed, and UpdateResponse.rejected commands.
func ErrorToFailure(err error) *failurepb.Failure {
	if err == nil {
		return nil
	}
	return failureConverter.ErrorToFailure(err)
}

// FailureToError reconstructs a typed error (ApplicationError,
// ChildWorkflowError, CanceledError, TerminatedError, TimeoutError, ...)
// from a wire Failure delivered by an activity, child workflow, or Nexus
// operation resolution.
func FailureToError(f *failurepb.Failure) error {
	if f == nil {
		return nil
	}
	return failureConverter.FailureToError(f)
}
