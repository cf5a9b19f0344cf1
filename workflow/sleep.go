package workflow

import (
	"context"
	"time"
)

// sleepInput carries a Sleep call's arguments through the outbound
// interceptor chain as a single value.
type sleepInput struct {
	Duration time.Duration
	Summary  string
}

// Sleep suspends the calling task for d, resuming when the matching
// FireTimer job is applied (or returning a CanceledError if the timer is
// cancelled by an enclosing cancellation scope first).
func (c *Context) Sleep(d time.Duration) error {
	return c.SleepWithSummary(d, "")
}

// SleepWithSummary is Sleep with a human-readable summary attached to the
// emitted StartTimer command, surfaced in the server UI.
func (c *Context) SleepWithSummary(d time.Duration, summary string) error {
	if err := c.assertNotCancelled(); err != nil {
		return err
	}

	_, err := c.chain.HandleSleep(c.outboundCtx(), sleepInput{Duration: d, Summary: summary}, func(_ context.Context, input any) (any, error) {
		in := input.(sleepInput)
		seq, err := c.state.StartTimer(in.Duration, in.Summary)
		if err != nil {
			return nil, err
		}
		cancel := c.pushCancel(func() error { return c.state.CancelTimer(c.ex, seq) })
		defer cancel()
		return nil, c.state.AwaitTimer(c.tc, seq)
	})
	return err
}
