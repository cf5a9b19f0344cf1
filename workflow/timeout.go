package workflow

import "time"

// Timeout runs body concurrently with a sleep(d) race. If body returns
// first, its value and error are returned. If the sleep wins (or Cancel is
// called on c while both are still pending), body is cancelled and awaited
// to completion before Timeout returns; whatever error the cancelled body
// surfaces propagates to the caller. Deterministic because both race
// participants are ordinary executor tasks ordered by enqueue order (§4.4).
func (c *Context) Timeout(d time.Duration, body func(ctx *Context) (any, error)) (any, error) {
	bodyFuture := c.Go(body)
	timerFuture := c.Go(func(ctx *Context) (any, error) {
		return nil, ctx.Sleep(d)
	})

	if err := c.state.AwaitCondition(c.tc, func() bool {
		return bodyFuture.Done() || timerFuture.Done() || c.Cancelled()
	}); err != nil {
		return nil, err
	}

	if bodyFuture.Done() {
		_ = timerFuture.Cancel()
		return bodyFuture.result, bodyFuture.err
	}

	// The timer won the race, or the enclosing context was cancelled while
	// both were still pending: cancel body and wait for it to unwind.
	_ = bodyFuture.Cancel()
	res, err := c.Await(bodyFuture)
	return res, err
}
