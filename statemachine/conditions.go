package statemachine

import (
	"goa.design/wfcore/executor"
)

type conditionEntry struct {
	seq       uint32
	predicate func() bool
	task      *executor.Task
	cancelled bool
	err       error
}

// StartCondition registers predicate in the pending condition table and
// returns its sequence number without suspending the caller. Split from
// AwaitConditionSeq (mirroring StartTimer/AwaitTimer, StartActivity/
// AwaitActivity) so a caller can register a cancellation hook for the window
// between registering and suspending.
func (s *State) StartCondition(predicate func() bool) (uint32, error) {
	if err := s.assertNotFrozen(); err != nil {
		return 0, err
	}
	seq := s.conditionSeq
	s.conditionSeq++
	s.conditions = append(s.conditions, &conditionEntry{seq: seq, predicate: predicate})
	return seq, nil
}

// AwaitConditionSeq parks the calling task on seq (previously returned by
// StartCondition) until the orchestrator's condition sweep (§4.5 step 5)
// finds it true, or until the entry is cancelled.
func (s *State) AwaitConditionSeq(tc *executor.TaskContext, seq uint32) error {
	entry := s.findCondition(seq)
	if entry == nil {
		return canceled("unknown condition sequence")
	}
	entry.task = tc.Task()
	tc.Suspend()
	return entry.err
}

func (s *State) findCondition(seq uint32) *conditionEntry {
	for _, entry := range s.conditions {
		if entry.seq == seq {
			return entry
		}
	}
	return nil
}

// AwaitCondition is the common-case convenience combining StartCondition and
// AwaitConditionSeq for callers with no need to cancel a specific pending
// condition independently (mirroring ScheduleActivity for activities).
// Predicates must be pure: they are evaluated repeatedly and must not
// themselves mutate state-machine state.
func (s *State) AwaitCondition(tc *executor.TaskContext, predicate func() bool) error {
	seq, err := s.StartCondition(predicate)
	if err != nil {
		return err
	}
	return s.AwaitConditionSeq(tc, seq)
}

// SweepConditions evaluates pending predicates in insertion order and
// resumes at most the first one that evaluates true, dropping it from the
// pending list. It reports whether any condition was resumed, so the
// orchestrator knows whether to loop back to draining the executor (§4.5
// steps 5-6).
func (s *State) SweepConditions(ex *executor.Executor) bool {
	for i, entry := range s.conditions {
		if entry.cancelled {
			continue
		}
		if entry.predicate() {
			s.conditions = append(s.conditions[:i], s.conditions[i+1:]...)
			ex.Resume(entry.task)
			return true
		}
	}
	return false
}

// CancelCondition drops a pending condition entry and resumes its waiter
// with "Wait condition cancelled".
func (s *State) CancelCondition(ex *executor.Executor, seq uint32) {
	for i, entry := range s.conditions {
		if entry.seq != seq || entry.cancelled {
			continue
		}
		entry.cancelled = true
		entry.err = canceled("Wait condition cancelled")
		s.conditions = append(s.conditions[:i], s.conditions[i+1:]...)
		if entry.task != nil {
			ex.Resume(entry.task)
		}
		return
	}
}

func (s *State) forceCancelConditions(ex *executor.Executor) {
	for _, entry := range s.conditions {
		if entry.cancelled {
			continue
		}
		entry.cancelled = true
		entry.err = &RemovedFromCacheError{}
		ex.Resume(entry.task)
	}
	s.conditions = nil
}

// ForceCancelAll resumes every outstanding waiter across every pending
// table with a removed-from-cache error, used by the bridge driver on
// eviction (§4.5 step 8, §5).
func (s *State) ForceCancelAll(ex *executor.Executor) {
	s.forceCancelTimers(ex)
	s.forceCancelActivities(ex)
	s.forceCancelChildren(ex)
	s.forceCancelSignals(ex)
	s.forceCancelConditions(ex)
	s.forceCancelNexus(ex)
}
