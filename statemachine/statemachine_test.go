package statemachine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	commonpb "go.temporal.io/api/common/v1"

	"goa.design/wfcore/coresdk"
	"goa.design/wfcore/executor"
)

func newTestState() (*State, *executor.Executor) {
	s := New()
	s.Initialize(coresdk.Job{}, 42)
	s.BeginActivation(coresdk.Activation{RunID: "run-1", Timestamp: time.Unix(0, 0), IsReplaying: false})
	return s, executor.New()
}

func TestSleep_EmitsStartTimerAndResumesOnFire(t *testing.T) {
	t.Parallel()

	s, ex := newTestState()
	var resumed bool
	ex.Spawn(func(tc *executor.TaskContext) {
		err := s.Sleep(tc, 5*time.Second, "")
		require.NoError(t, err)
		resumed = true
	})
	ex.Drain()

	drained := s.Commands()
	require.Len(t, drained.Commands, 1)
	require.Equal(t, coresdk.CommandStartTimer, drained.Commands[0].Kind)
	require.False(t, resumed)

	s.ResolveFireTimer(ex, 0)
	ex.Drain()
	require.True(t, resumed)
}

func TestCancelTimer_IdempotentAgainstLaterFire(t *testing.T) {
	t.Parallel()

	s, ex := newTestState()
	var err error
	ex.Spawn(func(tc *executor.TaskContext) {
		err = s.Sleep(tc, time.Second, "")
	})
	ex.Drain()
	s.Commands()

	require.NoError(t, s.CancelTimer(ex, 0))
	ex.Drain()
	require.Error(t, err)

	// A later FireTimer for the same seq (server race) must not deliver a
	// second, conflicting resolution.
	s.ResolveFireTimer(ex, 0)
	ex.Drain()
	require.Error(t, err)
}

func TestPatch_MemoizedWithinRun(t *testing.T) {
	t.Parallel()

	s, _ := newTestState()
	first, err := s.Patch("p1", false)
	require.NoError(t, err)
	require.True(t, first)

	second, err := s.Patch("p1", false)
	require.NoError(t, err)
	require.Equal(t, first, second)

	drained := s.Commands()
	require.Len(t, drained.Commands, 1, "SetPatchMarker emitted exactly once")
}

func TestPatch_FalseWhenReplayingWithoutNotify(t *testing.T) {
	t.Parallel()

	s := New()
	s.Initialize(coresdk.Job{}, 1)
	s.BeginActivation(coresdk.Activation{IsReplaying: true})

	v, err := s.Patch("p1", false)
	require.NoError(t, err)
	require.False(t, v)
	require.Empty(t, s.Commands().Commands)
}

func TestSweepConditions_OneAtATimeEarliestInserted(t *testing.T) {
	t.Parallel()

	s, ex := newTestState()
	counter := 0
	var wakeOrder []int

	ex.Spawn(func(tc *executor.TaskContext) {
		require.NoError(t, s.AwaitCondition(tc, func() bool { return counter >= 1 }))
		wakeOrder = append(wakeOrder, 1)
	})
	ex.Spawn(func(tc *executor.TaskContext) {
		require.NoError(t, s.AwaitCondition(tc, func() bool { return counter >= 1 }))
		wakeOrder = append(wakeOrder, 2)
	})
	ex.Drain()

	counter = 1
	resumed := s.SweepConditions(ex)
	require.True(t, resumed)
	ex.Drain()
	require.Equal(t, []int{1}, wakeOrder)

	// Second sweep wakes the remaining waiter.
	resumed = s.SweepConditions(ex)
	require.True(t, resumed)
	ex.Drain()
	require.Equal(t, []int{1, 2}, wakeOrder)
}

func TestHandlerCountInvariant(t *testing.T) {
	t.Parallel()

	s, _ := newTestState()
	require.True(t, s.AllHandlersFinished())

	s.HandlerStarted()
	s.HandlerStarted()
	require.True(t, s.HandlerCountInvariant())
	require.False(t, s.AllHandlersFinished())

	s.HandlerFinished()
	require.True(t, s.HandlerCountInvariant())

	s.HandlerFinished()
	require.True(t, s.AllHandlersFinished())
}

func TestUpsertMemo_SecondCallTakesPrecedenceAndDeletesOnNil(t *testing.T) {
	t.Parallel()

	s, _ := newTestState()
	require.NoError(t, s.UpsertMemo(map[string]*commonpb.Payload{
		"a": {Data: []byte("1")},
		"b": {Data: []byte("2")},
	}))
	require.NoError(t, s.UpsertMemo(map[string]*commonpb.Payload{
		"a": {Data: []byte("override")},
		"b": nil,
	}))

	memo := s.Memo()
	require.Equal(t, "override", string(memo["a"].Data))
	_, stillPresent := memo["b"]
	require.False(t, stillPresent)

	drained := s.Commands()
	require.Len(t, drained.Commands, 2)
}

func TestForceCancelAll_WakesEveryWaiter(t *testing.T) {
	t.Parallel()

	s, ex := newTestState()
	var timerErr, condErr error

	ex.Spawn(func(tc *executor.TaskContext) {
		timerErr = s.Sleep(tc, time.Second, "")
	})
	ex.Spawn(func(tc *executor.TaskContext) {
		condErr = s.AwaitCondition(tc, func() bool { return false })
	})
	ex.Drain()
	s.Commands()

	s.ForceCancelAll(ex)
	ex.Drain()

	require.Error(t, timerErr)
	require.Error(t, condErr)
	_, isRemoved := condErr.(*RemovedFromCacheError)
	require.True(t, isRemoved)
}
