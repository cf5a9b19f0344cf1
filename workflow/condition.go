package workflow

// Condition blocks the calling task until predicate evaluates true. The
// Instance Orchestrator's condition sweep (§4.5 step 5) evaluates every
// pending predicate in insertion order after each executor drain and wakes
// at most the earliest-inserted one that is currently true, so predicate
// must be a pure read of workflow state with no side effects.
//
// Condition registers a cancellation hook before suspending, so cancelling
// the enclosing context while it is parked here resumes it immediately with
// a CanceledError instead of leaving it stuck until the next executor drain
// finds nothing left to do.
func (c *Context) Condition(predicate func() bool) error {
	if err := c.assertNotCancelled(); err != nil {
		return err
	}
	seq, err := c.state.StartCondition(predicate)
	if err != nil {
		return err
	}
	cancel := c.pushCancel(func() error {
		c.state.CancelCondition(c.ex, seq)
		return nil
	})
	defer cancel()
	return c.state.AwaitConditionSeq(c.tc, seq)
}
