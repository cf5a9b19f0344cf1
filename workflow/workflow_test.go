package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"

	"goa.design/wfcore/coresdk"
	"goa.design/wfcore/executor"
	"goa.design/wfcore/interceptor"
	"goa.design/wfcore/statemachine"
	"goa.design/wfcore/telemetry"
)

func newTestState() (*statemachine.State, *executor.Executor) {
	s := statemachine.New()
	s.Initialize(coresdk.Job{}, 7)
	s.BeginActivation(coresdk.Activation{RunID: "run-1", Timestamp: time.Unix(0, 0)})
	return s, executor.New()
}

func TestSleep_BlocksUntilFireTimer(t *testing.T) {
	t.Parallel()

	s, ex := newTestState()
	var err error
	ex.Spawn(func(tc *executor.TaskContext) {
		ctx := New(s, ex, tc, Info{WorkflowType: "Demo"}, telemetry.NewNoopLogger(), interceptor.New(nil, nil))
		err = ctx.Sleep(5 * time.Second)
	})
	ex.Drain()

	drained := s.Commands()
	require.Len(t, drained.Commands, 1)
	require.Equal(t, coresdk.CommandStartTimer, drained.Commands[0].Kind)

	s.ResolveFireTimer(ex, 0)
	ex.Drain()
	require.NoError(t, err)
}

func TestPatch_EmitsMarkerOnlyOnce(t *testing.T) {
	t.Parallel()

	s, ex := newTestState()
	ctx := New(s, ex, nil, Info{}, telemetry.NewNoopLogger(), interceptor.New(nil, nil))

	first, err := ctx.Patch("p1")
	require.NoError(t, err)
	require.True(t, first)

	second, err := ctx.Patch("p1")
	require.NoError(t, err)
	require.True(t, second)

	drained := s.Commands()
	require.Len(t, drained.Commands, 1)
}

func TestMakeContinueAsNewError_CarriesEncodedArgs(t *testing.T) {
	t.Parallel()

	s, _ := newTestState()
	ctx := New(s, nil, nil, Info{}, telemetry.NewNoopLogger(), interceptor.New(nil, nil))

	err := ctx.MakeContinueAsNewError("DemoWorkflow", "next")
	var canErr *ContinueAsNewError
	require.ErrorAs(t, err, &canErr)
	require.Equal(t, "DemoWorkflow", canErr.WorkflowType)
	require.Len(t, canErr.Input, 1)
}

func TestTimeout_ReturnsBodyValueWhenBodyWinsTheRace(t *testing.T) {
	t.Parallel()

	s, ex := newTestState()
	var result any
	var timeoutErr error

	ex.Spawn(func(tc *executor.TaskContext) {
		ctx := New(s, ex, tc, Info{}, telemetry.NewNoopLogger(), interceptor.New(nil, nil))
		result, timeoutErr = ctx.Timeout(time.Hour, func(bodyCtx *Context) (any, error) {
			return "done", nil
		})
	})
	// Body returns immediately without suspending; the race timer (the
	// Go-spawned sibling run second) starts and suspends. The outer task
	// parks in a condition wait for whichever side finishes first.
	ex.Drain()
	require.True(t, s.SweepConditions(ex))
	ex.Drain()

	require.NoError(t, timeoutErr)
	require.Equal(t, "done", result)

	drained := s.Commands()
	require.Len(t, drained.Commands, 2, "StartTimer for the race timer, then CancelTimer once body won")
}

func TestTimeout_CancelsBodyWhenSleepWinsTheRace(t *testing.T) {
	t.Parallel()

	s, ex := newTestState()
	var timeoutErr error

	ex.Spawn(func(tc *executor.TaskContext) {
		ctx := New(s, ex, tc, Info{}, telemetry.NewNoopLogger(), interceptor.New(nil, nil))
		_, timeoutErr = ctx.Timeout(time.Second, func(bodyCtx *Context) (any, error) {
			return nil, bodyCtx.Sleep(time.Hour)
		})
	})
	// Body (spawned first) starts its own long sleep as seq 0; the race
	// timer (spawned second) starts as seq 1.
	ex.Drain()

	s.ResolveFireTimer(ex, 1)
	ex.Drain()
	require.True(t, s.SweepConditions(ex))
	ex.Drain() // outer cancels body's seq-0 timer and re-parks awaiting it
	require.True(t, s.SweepConditions(ex))
	ex.Drain() // outer observes body finished and returns

	var isCanceled *statemachine.CanceledError
	require.ErrorAs(t, timeoutErr, &isCanceled)

	drained := s.Commands()
	require.Len(t, drained.Commands, 3, "StartTimer for both body and race timer, then CancelTimer for body")
}

func TestCondition_CancelResumesImmediatelyWithCanceledError(t *testing.T) {
	t.Parallel()

	s, ex := newTestState()
	var condErr error
	var ctx *Context
	ex.Spawn(func(tc *executor.TaskContext) {
		ctx = New(s, ex, tc, Info{}, telemetry.NewNoopLogger(), interceptor.New(nil, nil))
		condErr = ctx.Condition(func() bool { return false })
	})
	ex.Drain()
	require.False(t, ctx.Cancelled())

	require.NoError(t, ctx.Cancel())
	ex.Drain()

	var isCanceled *statemachine.CanceledError
	require.ErrorAs(t, condErr, &isCanceled)
}

func TestChildWorkflow_StartThenSignal(t *testing.T) {
	t.Parallel()

	s, ex := newTestState()
	var handle *ChildWorkflowHandle
	var startErr, signalErr error
	ex.Spawn(func(tc *executor.TaskContext) {
		ctx := New(s, ex, tc, Info{}, telemetry.NewNoopLogger(), interceptor.New(nil, nil))
		handle, startErr = ctx.StartChildWorkflow(ChildWorkflowOptions{
			WorkflowType:      "Child",
			ParentClosePolicy: enumspb.PARENT_CLOSE_POLICY_ABANDON,
		})
		if startErr != nil {
			return
		}
		signalErr = handle.Signal("ping", nil)
	})
	ex.Drain()

	drained := s.Commands()
	require.Len(t, drained.Commands, 1)
	require.Equal(t, coresdk.CommandStartChildWorkflow, drained.Commands[0].Kind)
	require.Equal(t, enumspb.PARENT_CLOSE_POLICY_ABANDON, drained.Commands[0].ChildParentClosePolicy)

	s.ResolveChildStart(ex, 0, "child-run-1", nil)
	ex.Drain()
	require.NoError(t, startErr)
	require.Equal(t, "child-run-1", handle.RunID)

	drained = s.Commands()
	require.Len(t, drained.Commands, 1)
	require.Equal(t, coresdk.CommandSignalExternalWorkflow, drained.Commands[0].Kind)
	require.Equal(t, "child-run-1", drained.Commands[0].TargetRunID)
	require.Equal(t, "ping", drained.Commands[0].SignalName)

	s.ResolveExternalSignal(ex, 0, nil)
	ex.Drain()
	require.NoError(t, signalErr)
}
