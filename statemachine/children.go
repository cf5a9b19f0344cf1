package statemachine

import (
	"github.com/google/uuid"
	commonpb "go.temporal.io/api/common/v1"
	enumspb "go.temporal.io/api/enums/v1"
	failurepb "go.temporal.io/api/failure/v1"

	"goa.design/wfcore/coresdk"
	"goa.design/wfcore/executor"
	"goa.design/wfcore/rng"
)

type childStartEntry struct {
	task      *executor.Task
	cancelled bool
	runID     string
	failure   *failurepb.Failure
	err       error
}

type childResultEntry struct {
	task      *executor.Task
	cancelled bool
	resolved  *coresdk.ActivityResolution
	err       error
}

// ChildOptions captures the subset of child-workflow start options the
// state machine needs.
type ChildOptions struct {
	WorkflowID        string // empty means "generate one deterministically"
	WorkflowType      string
	Headers           map[string]*commonpb.Payload
	Input             []*commonpb.Payload
	Memo              map[string]*commonpb.Payload
	ParentClosePolicy enumspb.ParentClosePolicy
}

// StartChild emits StartChildWorkflowExecution and returns the shared
// sequence number used to correlate both the start resolution and the
// eventual result resolution (§4.3, §9), along with the workflow id the
// child was (or will be) started under. If opts.WorkflowID is unset, one is
// generated deterministically from the workflow RNG.
func (s *State) StartChild(opts ChildOptions) (seq uint32, workflowID string, err error) {
	if err := s.assertNotFrozen(); err != nil {
		return 0, "", err
	}
	seq = s.childSeq
	s.childSeq++

	workflowID = opts.WorkflowID
	if workflowID == "" {
		workflowID = s.generateWorkflowID()
	}

	s.childStarts[seq] = &childStartEntry{}
	s.childResults[seq] = &childResultEntry{}

	s.appendCommand(coresdk.Command{
		Kind:                   coresdk.CommandStartChildWorkflow,
		Seq:                    seq,
		ChildWorkflowID:        workflowID,
		ChildType:              opts.WorkflowType,
		Headers:                opts.Headers,
		Input:                  opts.Input,
		ChildMemo:              &commonpb.Memo{Fields: cloneFields(opts.Memo)},
		ChildParentClosePolicy: opts.ParentClosePolicy,
	})
	return seq, workflowID, nil
}

// generateWorkflowID derives a UUID from the workflow's deterministic RNG
// stream, so the same history replays to the same generated id.
func (s *State) generateWorkflowID() string {
	reader := rng.NewUUIDReader(s.rng)
	id, err := uuid.NewRandomFromReader(reader)
	if err != nil {
		// uuid.NewRandomFromReader only fails if Read fails, which our
		// deterministic reader never does.
		panic("statemachine: deterministic uuid generation failed: " + err.Error())
	}
	return id.String()
}

// AwaitChildStart parks the calling task until the child's start resolves
// to either a run id or a WorkflowAlreadyStarted-style failure.
func (s *State) AwaitChildStart(tc *executor.TaskContext, seq uint32) (runID string, failure *failurepb.Failure, err error) {
	entry, ok := s.childStarts[seq]
	if !ok {
		return "", nil, canceled("unknown child start sequence")
	}
	entry.task = tc.Task()
	tc.Suspend()
	return entry.runID, entry.failure, entry.err
}

// AwaitChildResult parks the calling task until the child workflow
// completes, fails, or is cancelled.
func (s *State) AwaitChildResult(tc *executor.TaskContext, seq uint32) (*coresdk.ActivityResolution, error) {
	entry, ok := s.childResults[seq]
	if !ok {
		return nil, canceled("unknown child result sequence")
	}
	entry.task = tc.Task()
	tc.Suspend()
	if entry.err != nil {
		return nil, entry.err
	}
	return entry.resolved, nil
}

// ResolveChildStart applies a ResolveChildStart job.
func (s *State) ResolveChildStart(ex *executor.Executor, seq uint32, runID string, failure *failurepb.Failure) {
	entry, ok := s.childStarts[seq]
	if !ok || entry.cancelled {
		return
	}
	entry.runID, entry.failure = runID, failure
	if entry.task != nil {
		ex.Resume(entry.task)
	}
}

// ResolveChildResult applies a ResolveChildResult job.
func (s *State) ResolveChildResult(ex *executor.Executor, seq uint32, res *coresdk.ActivityResolution) {
	entry, ok := s.childResults[seq]
	if !ok || entry.cancelled {
		return
	}
	entry.resolved = res
	if entry.task != nil {
		ex.Resume(entry.task)
	}
}

// CancelChild cancels a started child workflow: emits CancelChildWorkflow
// and resumes a waiting result-awaiter with a CanceledError.
func (s *State) CancelChild(ex *executor.Executor, seq uint32) error {
	if err := s.assertNotFrozen(); err != nil {
		return err
	}
	result, ok := s.childResults[seq]
	if !ok || result.cancelled {
		return nil
	}
	result.cancelled = true
	result.err = canceled("Workflow execution canceled")
	s.appendCommand(coresdk.Command{Kind: coresdk.CommandCancelChildWorkflow, Seq: seq})
	if result.task != nil {
		ex.Resume(result.task)
	}
	return nil
}

func (s *State) forceCancelChildren(ex *executor.Executor) {
	for seq, entry := range s.childStarts {
		if entry.cancelled || entry.task == nil {
			continue
		}
		entry.cancelled = true
		entry.err = &RemovedFromCacheError{}
		ex.Resume(entry.task)
		delete(s.childStarts, seq)
	}
	for seq, entry := range s.childResults {
		if entry.cancelled || entry.task == nil {
			continue
		}
		entry.cancelled = true
		entry.err = &RemovedFromCacheError{}
		ex.Resume(entry.task)
		delete(s.childResults, seq)
	}
}
