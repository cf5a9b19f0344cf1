package workflow

// WithCancellationShield runs op on its own task so that cancellation of
// the enclosing workflow (or any Cancel call on c) cannot reach into op's
// state-machine interactions — only op's own context can cancel what it is
// doing. Used for cleanup activities that must run to completion during
// workflow cancellation (§4.4).
func (c *Context) WithCancellationShield(op func(ctx *Context) (any, error)) (any, error) {
	fut := c.Go(op)
	return c.Await(fut)
}
