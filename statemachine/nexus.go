package statemachine

import (
	commonpb "go.temporal.io/api/common/v1"
	failurepb "go.temporal.io/api/failure/v1"

	"goa.design/wfcore/coresdk"
	"goa.design/wfcore/executor"
)

// nexusEntry tracks a pending Nexus operation, a sibling of the activity
// pending table for cross-namespace/cross-cluster calls routed through the
// Temporal core-sdk's Nexus machinery rather than the legacy activity path.
// Operation failures reuse the same Failure wire type as every other
// pending table (the registry, in package registry, is what speaks
// github.com/nexus-rpc/sdk-go's *nexus.Service type at the
// service-registration boundary; resolution jobs reach the state machine
// carrying a Failure).
type nexusEntry struct {
	task      *executor.Task
	cancelled bool
	started   bool
	token     string
	result    []*commonpb.Payload
	failure   *failurepb.Failure
	err       error
}

// NexusOperationOptions mirrors ActivityOptions for the Nexus pending
// table: a named operation against a registered service.
type NexusOperationOptions struct {
	Service   string
	Operation string
	Input     []*commonpb.Payload
}

// ScheduleNexusOperation parks the calling task on a new Nexus sequence and
// emits ScheduleNexusOperation. It resumes once the operation's start
// resolves (ResolveNexusOperationStart) and then again once the operation
// itself resolves (ResolveNexusOperation) — mirroring the two-phase
// start/result shape of child workflows, since a Nexus operation may be
// asynchronous on the handler side.
func (s *State) ScheduleNexusOperation(tc *executor.TaskContext, opts NexusOperationOptions) ([]*commonpb.Payload, error) {
	if err := s.assertNotFrozen(); err != nil {
		return nil, err
	}
	seq := s.nexusSeq
	s.nexusSeq++
	entry := &nexusEntry{task: tc.Task()}
	s.nexusOps[seq] = entry

	s.appendCommand(coresdk.Command{
		Kind:           coresdk.CommandScheduleNexusOperation,
		Seq:            seq,
		NexusService:   opts.Service,
		NexusOperation: opts.Operation,
		Input:          opts.Input,
	})

	// Phase 1: wait for the operation to be accepted (start token) or to
	// fail synchronously.
	tc.Suspend()
	if entry.err != nil {
		return nil, entry.err
	}
	if entry.failure != nil {
		return nil, &nexusFailureError{failure: entry.failure}
	}
	if entry.result != nil {
		// The handler resolved synchronously at start time.
		return entry.result, nil
	}

	// Phase 2: the operation is running asynchronously; wait for it to
	// resolve.
	tc.Suspend()
	if entry.err != nil {
		return nil, entry.err
	}
	if entry.failure != nil {
		return nil, &nexusFailureError{failure: entry.failure}
	}
	return entry.result, nil
}

// nexusFailureError adapts a Nexus operation's Failure into an error so
// callers can use the standard Go error-handling idiom; the underlying
// Failure is still available via Unwrap-style access for the failure
// converter to reconstruct a typed NexusOperationError.
type nexusFailureError struct {
	failure *failurepb.Failure
}

func (e *nexusFailureError) Error() string {
	if e.failure == nil {
		return "nexus operation failed"
	}
	return e.failure.GetMessage()
}

// Failure returns the underlying wire Failure.
func (e *nexusFailureError) Failure() *failurepb.Failure { return e.failure }

// ResolveNexusOperationStart applies a ResolveNexusOperationStart job.
func (s *State) ResolveNexusOperationStart(ex *executor.Executor, seq uint32, token string, syncResult []*commonpb.Payload, failure *failurepb.Failure) {
	entry, ok := s.nexusOps[seq]
	if !ok || entry.cancelled {
		return
	}
	entry.started = true
	entry.token = token
	entry.result = syncResult
	entry.failure = failure
	ex.Resume(entry.task)
}

// ResolveNexusOperation applies a ResolveNexusOperation job for an
// asynchronous operation that has since completed.
func (s *State) ResolveNexusOperation(ex *executor.Executor, seq uint32, result []*commonpb.Payload, failure *failurepb.Failure) {
	entry, ok := s.nexusOps[seq]
	if !ok || entry.cancelled {
		return
	}
	entry.result = result
	entry.failure = failure
	delete(s.nexusOps, seq)
	ex.Resume(entry.task)
}

// CancelNexusOperation emits RequestCancelNexusOperation and resumes the
// waiter with a CanceledError.
func (s *State) CancelNexusOperation(ex *executor.Executor, seq uint32) error {
	if err := s.assertNotFrozen(); err != nil {
		return err
	}
	entry, ok := s.nexusOps[seq]
	if !ok || entry.cancelled {
		return nil
	}
	entry.cancelled = true
	entry.err = canceled("Nexus operation cancelled")
	s.appendCommand(coresdk.Command{Kind: coresdk.CommandRequestCancelNexusOperation, Seq: seq})
	ex.Resume(entry.task)
	return nil
}

func (s *State) forceCancelNexus(ex *executor.Executor) {
	for seq, entry := range s.nexusOps {
		if entry.cancelled {
			continue
		}
		entry.cancelled = true
		entry.err = &RemovedFromCacheError{}
		ex.Resume(entry.task)
		delete(s.nexusOps, seq)
	}
}
