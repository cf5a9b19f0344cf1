package statemachine

import (
	commonpb "go.temporal.io/api/common/v1"

	"goa.design/wfcore/coresdk"
	"goa.design/wfcore/executor"
)

type activityEntry struct {
	task      *executor.Task
	local     bool
	cancelled bool
	attempt   int32
	err       error
	resolved  *coresdk.ActivityResolution
}

// ActivityOptions captures the subset of scheduling options the state
// machine needs; workflow-author ergonomics (timeouts validation, retry
// policy defaults) live in the workflow package.
type ActivityOptions struct {
	ActivityType string
	Local        bool
	Headers      map[string]*commonpb.Payload
	Input        []*commonpb.Payload
}

// StartActivity emits ScheduleActivity or ScheduleLocalActivity and returns
// the sequence number a caller later passes to AwaitActivity or
// CancelActivity. Split from AwaitActivity (mirroring StartChild/
// AwaitChildResult) so a caller can register a cancellation hook for the
// window between scheduling and suspending — used by the workflow package's
// ExecuteActivity.
func (s *State) StartActivity(opts ActivityOptions) (uint32, error) {
	if err := s.assertNotFrozen(); err != nil {
		return 0, err
	}
	seq := s.activitySeq
	s.activitySeq++
	s.activities[seq] = &activityEntry{local: opts.Local}

	kind := coresdk.CommandScheduleActivity
	if opts.Local {
		kind = coresdk.CommandScheduleLocalActivity
	}
	s.appendCommand(coresdk.Command{
		Kind:         kind,
		Seq:          seq,
		ActivityType: opts.ActivityType,
		Headers:      opts.Headers,
		Input:        opts.Input,
		Local:        opts.Local,
	})
	return seq, nil
}

// AwaitActivity parks the calling task until the activity at seq resolves
// to Completed, Failed, or Cancelled; a local activity's Backoff resolution
// is handled internally by re-scheduling rather than waking the caller
// (§4.3).
func (s *State) AwaitActivity(tc *executor.TaskContext, seq uint32, opts ActivityOptions) (*coresdk.ActivityResolution, error) {
	entry, ok := s.activities[seq]
	if !ok {
		return nil, canceled("unknown activity sequence")
	}
	entry.task = tc.Task()

	for {
		tc.Suspend()
		if entry.err != nil {
			return nil, entry.err
		}
		if entry.resolved.Kind == coresdk.ActivityBackoff && entry.local {
			// Re-schedule under the same seq instead of surfacing Backoff to
			// the waiter. The backoff's attempt is recorded on the entry; the
			// re-emitted command carries neither attempt nor original
			// schedule time.
			s.appendCommand(coresdk.Command{
				Kind:         coresdk.CommandScheduleLocalActivity,
				Seq:          seq,
				ActivityType: opts.ActivityType,
				Headers:      opts.Headers,
				Input:        opts.Input,
				Local:        true,
			})
			entry.attempt = entry.resolved.Attempt
			continue
		}
		return entry.resolved, nil
	}
}

// ScheduleActivity is the common-case convenience combining StartActivity
// and AwaitActivity for callers that have no need to observe the sequence
// number in between (§4.3).
func (s *State) ScheduleActivity(tc *executor.TaskContext, opts ActivityOptions) (*coresdk.ActivityResolution, error) {
	seq, err := s.StartActivity(opts)
	if err != nil {
		return nil, err
	}
	return s.AwaitActivity(tc, seq, opts)
}

// CancelActivity cancels a pending activity: emits RequestCancelActivity
// and resumes the waiter with a CanceledError on the next drain.
func (s *State) CancelActivity(ex *executor.Executor, seq uint32) error {
	if err := s.assertNotFrozen(); err != nil {
		return err
	}
	entry, ok := s.activities[seq]
	if !ok || entry.cancelled {
		return nil
	}
	entry.cancelled = true
	entry.err = canceled("Activity cancelled before completing")
	s.appendCommand(coresdk.Command{Kind: coresdk.CommandRequestCancelActivity, Seq: seq, Local: entry.local})
	if entry.task != nil {
		ex.Resume(entry.task)
	}
	return nil
}

// ResolveActivity applies a ResolveActivity job.
func (s *State) ResolveActivity(ex *executor.Executor, seq uint32, res *coresdk.ActivityResolution) {
	entry, ok := s.activities[seq]
	if !ok || entry.cancelled {
		return
	}
	entry.resolved = res
	if res.Kind == coresdk.ActivityBackoff && entry.local {
		ex.Resume(entry.task)
		return
	}
	delete(s.activities, seq)
	ex.Resume(entry.task)
}

func (s *State) forceCancelActivities(ex *executor.Executor) {
	for seq, entry := range s.activities {
		if entry.cancelled {
			continue
		}
		entry.cancelled = true
		entry.err = &RemovedFromCacheError{}
		if entry.task != nil {
			ex.Resume(entry.task)
		}
		delete(s.activities, seq)
	}
}
