package statemachine

import (
	failurepb "go.temporal.io/api/failure/v1"

	commonpb "go.temporal.io/api/common/v1"

	"goa.design/wfcore/coresdk"
	"goa.design/wfcore/executor"
)

type signalEntry struct {
	task      *executor.Task
	cancelled bool
	failure   *failurepb.Failure
	err       error
}

// SignalExternal parks the calling task on a new external-signal sequence
// and emits SignalExternalWorkflowExecution; it resumes when the matching
// ResolveExternalSignal job is applied.
func (s *State) SignalExternal(tc *executor.TaskContext, targetWorkflowID, targetRunID, name string, input []*commonpb.Payload) (*failurepb.Failure, error) {
	if err := s.assertNotFrozen(); err != nil {
		return nil, err
	}
	seq := s.signalSeq
	s.signalSeq++
	entry := &signalEntry{task: tc.Task()}
	s.signals[seq] = entry

	s.appendCommand(coresdk.Command{
		Kind:             coresdk.CommandSignalExternalWorkflow,
		Seq:              seq,
		TargetWorkflowID: targetWorkflowID,
		TargetRunID:      targetRunID,
		SignalName:       name,
		Input:            input,
	})
	tc.Suspend()
	if entry.err != nil {
		return nil, entry.err
	}
	return entry.failure, nil
}

// CancelSignal cancels a pending outbound signal: emits
// CancelSignalWorkflow and resumes the waiter with "Signal was cancelled
// before being sent".
func (s *State) CancelSignal(ex *executor.Executor, seq uint32) error {
	if err := s.assertNotFrozen(); err != nil {
		return err
	}
	entry, ok := s.signals[seq]
	if !ok || entry.cancelled {
		return nil
	}
	entry.cancelled = true
	entry.err = canceled("Signal was cancelled before being sent")
	s.appendCommand(coresdk.Command{Kind: coresdk.CommandCancelSignalWorkflow, Seq: seq})
	ex.Resume(entry.task)
	return nil
}

// ResolveExternalSignal applies a ResolveExternalSignal job.
func (s *State) ResolveExternalSignal(ex *executor.Executor, seq uint32, failure *failurepb.Failure) {
	entry, ok := s.signals[seq]
	if !ok || entry.cancelled {
		return
	}
	entry.failure = failure
	delete(s.signals, seq)
	ex.Resume(entry.task)
}

func (s *State) forceCancelSignals(ex *executor.Executor) {
	for seq, entry := range s.signals {
		if entry.cancelled {
			continue
		}
		entry.cancelled = true
		entry.err = &RemovedFromCacheError{}
		ex.Resume(entry.task)
		delete(s.signals, seq)
	}
}
