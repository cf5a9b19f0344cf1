package coresdk

import (
	"time"

	commonpb "go.temporal.io/api/common/v1"
	enumspb "go.temporal.io/api/enums/v1"
	failurepb "go.temporal.io/api/failure/v1"
)

// CommandKind discriminates the Command variants named in the specification.
type CommandKind int

const (
	CommandStartTimer CommandKind = iota
	CommandCancelTimer
	CommandScheduleActivity
	CommandScheduleLocalActivity
	CommandRequestCancelActivity
	CommandStartChildWorkflow
	CommandCancelChildWorkflow
	CommandSignalExternalWorkflow
	CommandCancelSignalWorkflow
	CommandRespondToQuery
	CommandUpdateResponse
	CommandSetPatchMarker
	CommandUpsertSearchAttributes
	CommandModifyWorkflowProperties
	CommandCompleteWorkflowExecution
	CommandFailWorkflowExecution
	CommandCancelWorkflowExecution
	CommandContinueAsNewWorkflowExecution
	CommandScheduleNexusOperation
	CommandRequestCancelNexusOperation
)

// UpdateResponseKind discriminates the three shapes an update response can
// take within a single activation.
type UpdateResponseKind int

const (
	UpdateAccepted UpdateResponseKind = iota
	UpdateRejected
	UpdateCompleted
)

// Command is a tagged union over the command variants the state machine may
// append to the outgoing command buffer. Only fields relevant to Kind are
// populated.
type Command struct {
	Kind CommandKind
	Seq  uint32

	// CommandStartTimer
	Duration time.Duration
	Summary  string

	// CommandScheduleActivity / CommandScheduleLocalActivity
	ActivityType string
	Headers      map[string]*commonpb.Payload
	Input        []*commonpb.Payload
	Local        bool

	// CommandStartChildWorkflow
	ChildWorkflowID        string
	ChildType              string
	ChildMemo              *commonpb.Memo
	ChildParentClosePolicy enumspb.ParentClosePolicy

	// CommandSignalExternalWorkflow
	TargetWorkflowID string
	TargetRunID      string
	SignalName       string

	// CommandRespondToQuery
	QueryID      string
	QuerySucceed bool
	QueryResult  []*commonpb.Payload
	QueryFailure *failurepb.Failure

	// CommandUpdateResponse
	UpdateID       string
	UpdateResponse UpdateResponseKind
	UpdateResult   []*commonpb.Payload
	UpdateFailure  *failurepb.Failure

	// CommandSetPatchMarker
	PatchID    string
	Deprecated bool

	// CommandUpsertSearchAttributes
	SearchAttributes *commonpb.SearchAttributes

	// CommandModifyWorkflowProperties
	Memo *commonpb.Memo

	// CommandCompleteWorkflowExecution
	Result []*commonpb.Payload

	// CommandFailWorkflowExecution
	Failure *failurepb.Failure

	// CommandContinueAsNewWorkflowExecution
	ContinueAsNewInput   []*commonpb.Payload
	ContinueAsNewMemo    *commonpb.Memo
	ContinueAsNewHeaders map[string]*commonpb.Payload

	// CommandScheduleNexusOperation
	NexusService   string
	NexusOperation string
}

// Completion is what the Instance Orchestrator hands back to the bridge for
// one activation: either a successful command batch or an activation
// failure.
type Completion struct {
	RunID    string
	Commands []Command
	Failure  *failurepb.Failure // non-nil iff this is a failed completion
}

// Successful builds a successful Completion for runID carrying commands.
func Successful(runID string, commands []Command) Completion {
	return Completion{RunID: runID, Commands: commands}
}

// Failed builds a failed Completion for runID.
func Failed(runID string, failure *failurepb.Failure) Completion {
	return Completion{RunID: runID, Failure: failure}
}
