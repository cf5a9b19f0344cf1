package workflow

import "goa.design/wfcore/executor"

// Future is the result of a Go-spawned concurrent task: a child of the
// workflow's single cooperative executor that happens to run interleaved
// with its spawner rather than being awaited immediately.
type Future struct {
	child  *Context
	done   bool
	result any
	err    error
}

// Go spawns fn as a sibling task on the same executor, returning
// immediately with a Future for its eventual result. fn receives its own
// Context sharing this run's state machine and interceptor chain but bound
// to the new task's suspend/resume handle, so fn's Sleep/ExecuteActivity/
// Condition calls suspend only the spawned task, never the caller.
func (c *Context) Go(fn func(ctx *Context) (any, error)) *Future {
	fut := &Future{}
	var child *Context
	task := c.ex.Spawn(func(tc *executor.TaskContext) {
		child = &Context{state: c.state, ex: c.ex, tc: tc, info: c.info, logger: c.logger, chain: c.chain}
		fut.child = child
		res, err := fn(child)
		fut.result, fut.err = res, err
		fut.done = true
	})
	_ = task
	return fut
}

// Await blocks the calling task until fut's spawned task finishes,
// returning its result and error. Safe to call after fut has already
// completed. Registers a cancellation hook before suspending, so cancelling
// the awaiting context resumes it immediately rather than only on the next
// executor drain.
func (c *Context) Await(fut *Future) (any, error) {
	if !fut.done {
		seq, err := c.state.StartCondition(func() bool { return fut.done })
		if err != nil {
			return nil, err
		}
		cancel := c.pushCancel(func() error {
			c.state.CancelCondition(c.ex, seq)
			return nil
		})
		defer cancel()
		if err := c.state.AwaitConditionSeq(c.tc, seq); err != nil {
			return nil, err
		}
	}
	return fut.result, fut.err
}

// Cancel propagates cancellation into whatever operation fut's spawned task
// is currently suspended on. A no-op if the task has already finished or
// has nothing currently pending.
func (f *Future) Cancel() error {
	if f.done || f.child == nil {
		return nil
	}
	return f.child.Cancel()
}

// Done reports whether fut's spawned task has finished.
func (f *Future) Done() bool { return f.done }
