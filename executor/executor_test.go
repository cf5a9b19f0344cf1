package executor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecutor_RunsTaskToFirstSuspension(t *testing.T) {
	t.Parallel()

	e := New()
	var trace []string

	task := e.Spawn(func(ctx *TaskContext) {
		trace = append(trace, "before-suspend")
		ctx.Suspend()
		trace = append(trace, "after-resume")
	})

	e.Drain()
	require.Equal(t, []string{"before-suspend"}, trace)
	require.False(t, task.Finished())

	e.Resume(task)
	e.Drain()
	require.Equal(t, []string{"before-suspend", "after-resume"}, trace)
	require.True(t, task.Finished())
}

func TestExecutor_SiblingsRunInEnqueueOrder(t *testing.T) {
	t.Parallel()

	e := New()
	var trace []string

	e.Spawn(func(ctx *TaskContext) {
		trace = append(trace, "a")
		ctx.Spawn(func(ctx *TaskContext) {
			trace = append(trace, "child-of-a")
		})
		trace = append(trace, "a-done")
	})
	e.Spawn(func(ctx *TaskContext) {
		trace = append(trace, "b")
	})

	e.Drain()

	require.Equal(t, []string{"a", "a-done", "b", "child-of-a"}, trace)
}

func TestExecutor_QuiescenceWhenAllSuspended(t *testing.T) {
	t.Parallel()

	e := New()
	e.Spawn(func(ctx *TaskContext) {
		ctx.Suspend()
	})
	e.Spawn(func(ctx *TaskContext) {
		ctx.Suspend()
	})

	e.Drain()
	require.False(t, e.Runnable())
}
