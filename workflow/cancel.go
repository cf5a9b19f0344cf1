package workflow

import "goa.design/wfcore/statemachine"

// pushCancel registers fn as the cancellation hook for whatever
// state-machine wait the caller is about to suspend on, and returns a pop
// function the caller must defer immediately. Context.Cancel calls the
// innermost registered hook, so cancelling a context currently blocked
// inside ExecuteActivity issues RequestCancelActivity rather than merely
// flipping a flag nothing checks until the next suspension point.
func (c *Context) pushCancel(fn func() error) (pop func()) {
	c.cancelStack = append(c.cancelStack, fn)
	idx := len(c.cancelStack) - 1
	return func() {
		if idx < len(c.cancelStack) {
			c.cancelStack = c.cancelStack[:idx]
		}
	}
}

// Cancel propagates cancellation into whatever operation c is currently
// suspended on through its registered hook (timer, activity, child workflow,
// condition, Future await), or, if no hook is registered, marks c so that
// the next side-effecting call on it fails immediately with a CanceledError.
// External signals and Nexus operations register no hook: a context
// suspended on one of them is only marked, and the wait continues. This is
// the primitive CancelWorkflow job handling and Timeout's sleep-race losers
// are both built on.
func (c *Context) Cancel() error {
	if len(c.cancelStack) > 0 {
		fn := c.cancelStack[len(c.cancelStack)-1]
		return fn()
	}
	c.cancelled = true
	return nil
}

// Cancelled reports whether Cancel has been called on c with nothing
// currently pending to cancel into.
func (c *Context) Cancelled() bool { return c.cancelled }

// assertNotCancelled fails a side-effecting call immediately once Cancel has
// set c's flag-only cancellation state, so a cancelled context that is not
// currently parked anywhere still cannot schedule new work (§5) instead of
// hanging until a suspension point that never checks the flag.
func (c *Context) assertNotCancelled() error {
	if c.cancelled {
		return &statemachine.CanceledError{Message: "workflow context cancelled"}
	}
	return nil
}
