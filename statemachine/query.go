package statemachine

import (
	commonpb "go.temporal.io/api/common/v1"
	failurepb "go.temporal.io/api/failure/v1"

	"goa.design/wfcore/coresdk"
)

// RespondQuery emits RespondToQuery for a completed query invocation. Like
// the other finalizers (WorkflowFinished, WorkflowFailed), it is exempt from
// the frozen-context guard: it reports the outcome of code that already ran
// under the normal guarded calls, it does not itself mutate workflow state.
func (s *State) RespondQuery(queryID string, result []*commonpb.Payload, failure *failurepb.Failure) {
	s.appendCommand(coresdk.Command{
		Kind:         coresdk.CommandRespondToQuery,
		QueryID:      queryID,
		QuerySucceed: failure == nil,
		QueryResult:  result,
		QueryFailure: failure,
	})
}

// RespondUpdateAccepted emits UpdateResponse.accepted once an update's
// validator (if any) has passed.
func (s *State) RespondUpdateAccepted(updateID string) {
	s.appendCommand(coresdk.Command{Kind: coresdk.CommandUpdateResponse, UpdateID: updateID, UpdateResponse: coresdk.UpdateAccepted})
}

// RespondUpdateRejected emits UpdateResponse.rejected, either because the
// validator threw or because run threw a TemporalFailure.
func (s *State) RespondUpdateRejected(updateID string, failure *failurepb.Failure) {
	s.appendCommand(coresdk.Command{Kind: coresdk.CommandUpdateResponse, UpdateID: updateID, UpdateResponse: coresdk.UpdateRejected, UpdateFailure: failure})
}

// RespondUpdateCompleted emits UpdateResponse.completed with the update's
// decoded result.
func (s *State) RespondUpdateCompleted(updateID string, result []*commonpb.Payload) {
	s.appendCommand(coresdk.Command{Kind: coresdk.CommandUpdateResponse, UpdateID: updateID, UpdateResponse: coresdk.UpdateCompleted, UpdateResult: result})
}
