package statemachine

import (
	"time"

	"goa.design/wfcore/coresdk"
	"goa.design/wfcore/executor"
)

// StartTimer emits StartTimer and returns the sequence number a caller
// later passes to AwaitTimer or CancelTimer. Split from AwaitTimer so a
// caller can register a cancellation hook for the window between
// scheduling and suspending — used by the workflow package's sleep-race
// combinator (Timeout).
func (s *State) StartTimer(d time.Duration, summary string) (uint32, error) {
	if err := s.assertNotFrozen(); err != nil {
		return 0, err
	}
	seq := s.timerSeq
	s.timerSeq++
	s.timers[seq] = &timerEntry{}
	s.appendCommand(coresdk.Command{Kind: coresdk.CommandStartTimer, Seq: seq, Duration: d, Summary: summary})
	return seq, nil
}

// AwaitTimer parks the calling task until the timer at seq fires or is
// cancelled.
func (s *State) AwaitTimer(tc *executor.TaskContext, seq uint32) error {
	entry, ok := s.timers[seq]
	if !ok {
		return canceled("unknown timer sequence")
	}
	entry.task = tc.Task()
	tc.Suspend()
	return entry.err
}

// Sleep parks the calling task on a new timer sequence and emits
// StartTimer. It resumes when the matching FireTimer job is applied, or
// with a CanceledError if the timer is cancelled first.
func (s *State) Sleep(tc *executor.TaskContext, d time.Duration, summary string) error {
	seq, err := s.StartTimer(d, summary)
	if err != nil {
		return err
	}
	return s.AwaitTimer(tc, seq)
}

// CancelTimer cancels a pending timer: emits CancelTimer and arranges for
// the waiter to resume with a CanceledError when the executor next drains.
func (s *State) CancelTimer(ex *executor.Executor, seq uint32) error {
	if err := s.assertNotFrozen(); err != nil {
		return err
	}
	entry, ok := s.timers[seq]
	if !ok || entry.cancelled {
		return nil
	}
	entry.cancelled = true
	entry.err = canceled("Timer cancelled before firing")
	s.appendCommand(coresdk.Command{Kind: coresdk.CommandCancelTimer, Seq: seq})
	if entry.task != nil {
		ex.Resume(entry.task)
	}
	return nil
}

// ResolveFireTimer applies a FireTimer job: resumes the matching waiter
// unless it was already cancelled within the same activation (in which case
// the job is ignored, matching the idempotence invariant in §8).
func (s *State) ResolveFireTimer(ex *executor.Executor, seq uint32) {
	entry, ok := s.timers[seq]
	if !ok || entry.cancelled {
		return
	}
	delete(s.timers, seq)
	if entry.task != nil {
		ex.Resume(entry.task)
	}
}

// forceCancelTimers resumes every outstanding timer waiter with a
// removed-from-cache error, used during cache eviction (§4.5 step 8).
func (s *State) forceCancelTimers(ex *executor.Executor) {
	for seq, entry := range s.timers {
		if entry.cancelled {
			continue
		}
		entry.cancelled = true
		entry.err = &RemovedFromCacheError{}
		if entry.task != nil {
			ex.Resume(entry.task)
		}
		delete(s.timers, seq)
	}
}
