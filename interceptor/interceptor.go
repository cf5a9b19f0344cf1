// Package interceptor implements the Interceptor Chain (C7): two symmetric
// middleware stacks, inbound (entry points into workflow code) and outbound
// (calls workflow code makes back into the engine). Each interceptor wraps
// the next with (input, next) -> output; the first registered interceptor
// is outermost.
package interceptor

import "context"

// InboundNext is the continuation an inbound interceptor calls to invoke
// the next layer (eventually the concrete handler).
type InboundNext func(ctx context.Context, input any) (any, error)

// InboundInterceptor wraps one of the five inbound entry points named in
// §4.7. Implementations MUST be side-effect-free w.r.t. workflow
// determinism: they may keep internal counters (even ones guarded by an
// external lock) because those never affect emitted commands, but they must
// not themselves touch the state machine outside of calling next.
type InboundInterceptor interface {
	ExecuteWorkflow(ctx context.Context, input any, next InboundNext) (any, error)
	HandleSignal(ctx context.Context, name string, input any, next InboundNext) (any, error)
	HandleQuery(ctx context.Context, name string, input any, next InboundNext) (any, error)
	HandleUpdate(ctx context.Context, name string, input any, next InboundNext) (any, error)
	ValidateUpdate(ctx context.Context, name string, input any, next InboundNext) (any, error)
}

// OutboundNext is the continuation an outbound interceptor calls to invoke
// the next layer (eventually the state machine).
type OutboundNext func(ctx context.Context, input any) (any, error)

// OutboundInterceptor wraps one of the outbound calls named in §4.7.
type OutboundInterceptor interface {
	StartWorkflow(ctx context.Context, input any, next OutboundNext) (any, error)
	SignalWorkflow(ctx context.Context, input any, next OutboundNext) (any, error)
	QueryWorkflow(ctx context.Context, input any, next OutboundNext) (any, error)
	CountWorkflows(ctx context.Context, input any, next OutboundNext) (any, error)
	StartChildWorkflow(ctx context.Context, input any, next OutboundNext) (any, error)
	SignalChildWorkflow(ctx context.Context, input any, next OutboundNext) (any, error)
	ExecuteActivity(ctx context.Context, input any, next OutboundNext) (any, error)
	ExecuteLocalActivity(ctx context.Context, input any, next OutboundNext) (any, error)
	MakeContinueAsNewError(ctx context.Context, input any, next OutboundNext) (any, error)
	HandleSleep(ctx context.Context, input any, next OutboundNext) (any, error)
}

// NoopInbound and NoopOutbound give interceptor authors a base to embed so
// they only need to override the methods they care about.
type NoopInbound struct{}

func (NoopInbound) ExecuteWorkflow(ctx context.Context, input any, next InboundNext) (any, error) {
	return next(ctx, input)
}
func (NoopInbound) HandleSignal(ctx context.Context, name string, input any, next InboundNext) (any, error) {
	return next(ctx, input)
}
func (NoopInbound) HandleQuery(ctx context.Context, name string, input any, next InboundNext) (any, error) {
	return next(ctx, input)
}
func (NoopInbound) HandleUpdate(ctx context.Context, name string, input any, next InboundNext) (any, error) {
	return next(ctx, input)
}
func (NoopInbound) ValidateUpdate(ctx context.Context, name string, input any, next InboundNext) (any, error) {
	return next(ctx, input)
}

type NoopOutbound struct{}

func (NoopOutbound) StartWorkflow(ctx context.Context, input any, next OutboundNext) (any, error) {
	return next(ctx, input)
}
func (NoopOutbound) SignalWorkflow(ctx context.Context, input any, next OutboundNext) (any, error) {
	return next(ctx, input)
}
func (NoopOutbound) QueryWorkflow(ctx context.Context, input any, next OutboundNext) (any, error) {
	return next(ctx, input)
}
func (NoopOutbound) CountWorkflows(ctx context.Context, input any, next OutboundNext) (any, error) {
	return next(ctx, input)
}
func (NoopOutbound) StartChildWorkflow(ctx context.Context, input any, next OutboundNext) (any, error) {
	return next(ctx, input)
}
func (NoopOutbound) SignalChildWorkflow(ctx context.Context, input any, next OutboundNext) (any, error) {
	return next(ctx, input)
}
func (NoopOutbound) ExecuteActivity(ctx context.Context, input any, next OutboundNext) (any, error) {
	return next(ctx, input)
}
func (NoopOutbound) ExecuteLocalActivity(ctx context.Context, input any, next OutboundNext) (any, error) {
	return next(ctx, input)
}
func (NoopOutbound) MakeContinueAsNewError(ctx context.Context, input any, next OutboundNext) (any, error) {
	return next(ctx, input)
}
func (NoopOutbound) HandleSleep(ctx context.Context, input any, next OutboundNext) (any, error) {
	return next(ctx, input)
}

// Chain composes a list of inbound and outbound interceptors, first
// registered is outermost, terminating in a caller-supplied concrete
// operation.
type Chain struct {
	inbound  []InboundInterceptor
	outbound []OutboundInterceptor
}

// New builds a Chain from the given interceptors, in registration order
// (outermost first).
func New(inbound []InboundInterceptor, outbound []OutboundInterceptor) *Chain {
	return &Chain{inbound: inbound, outbound: outbound}
}

// ExecuteWorkflow runs the inbound chain around concrete, the final layer
// that actually invokes the user's run method.
func (c *Chain) ExecuteWorkflow(ctx context.Context, input any, concrete InboundNext) (any, error) {
	return c.wrapInbound(concrete, func(i InboundInterceptor, next InboundNext) InboundNext {
		return func(ctx context.Context, input any) (any, error) { return i.ExecuteWorkflow(ctx, input, next) }
	})(ctx, input)
}

// HandleSignal runs the inbound chain around concrete for a named signal handler.
func (c *Chain) HandleSignal(ctx context.Context, name string, input any, concrete InboundNext) (any, error) {
	return c.wrapInbound(concrete, func(i InboundInterceptor, next InboundNext) InboundNext {
		return func(ctx context.Context, input any) (any, error) { return i.HandleSignal(ctx, name, input, next) }
	})(ctx, input)
}

// HandleQuery runs the inbound chain around concrete for a named query handler.
func (c *Chain) HandleQuery(ctx context.Context, name string, input any, concrete InboundNext) (any, error) {
	return c.wrapInbound(concrete, func(i InboundInterceptor, next InboundNext) InboundNext {
		return func(ctx context.Context, input any) (any, error) { return i.HandleQuery(ctx, name, input, next) }
	})(ctx, input)
}

// HandleUpdate runs the inbound chain around concrete for a named update's run phase.
func (c *Chain) HandleUpdate(ctx context.Context, name string, input any, concrete InboundNext) (any, error) {
	return c.wrapInbound(concrete, func(i InboundInterceptor, next InboundNext) InboundNext {
		return func(ctx context.Context, input any) (any, error) { return i.HandleUpdate(ctx, name, input, next) }
	})(ctx, input)
}

// ValidateUpdate runs the inbound chain around concrete for a named update's validator phase.
func (c *Chain) ValidateUpdate(ctx context.Context, name string, input any, concrete InboundNext) (any, error) {
	return c.wrapInbound(concrete, func(i InboundInterceptor, next InboundNext) InboundNext {
		return func(ctx context.Context, input any) (any, error) { return i.ValidateUpdate(ctx, name, input, next) }
	})(ctx, input)
}

func (c *Chain) wrapInbound(concrete InboundNext, bind func(InboundInterceptor, InboundNext) InboundNext) InboundNext {
	next := concrete
	for i := len(c.inbound) - 1; i >= 0; i-- {
		next = bind(c.inbound[i], next)
	}
	return next
}

// outboundOp names which OutboundInterceptor method a Chain.Outbound call
// should invoke, since outbound has ten symmetric operations and Go lacks a
// generic "method value by name" primitive.
type outboundOp func(OutboundInterceptor, OutboundNext) OutboundNext

func (c *Chain) runOutbound(ctx context.Context, input any, concrete OutboundNext, op outboundOp) (any, error) {
	next := concrete
	for i := len(c.outbound) - 1; i >= 0; i-- {
		next = op(c.outbound[i], next)
	}
	return next(ctx, input)
}

func (c *Chain) ExecuteActivity(ctx context.Context, input any, concrete OutboundNext) (any, error) {
	return c.runOutbound(ctx, input, concrete, func(o OutboundInterceptor, next OutboundNext) OutboundNext {
		return func(ctx context.Context, input any) (any, error) { return o.ExecuteActivity(ctx, input, next) }
	})
}

func (c *Chain) ExecuteLocalActivity(ctx context.Context, input any, concrete OutboundNext) (any, error) {
	return c.runOutbound(ctx, input, concrete, func(o OutboundInterceptor, next OutboundNext) OutboundNext {
		return func(ctx context.Context, input any) (any, error) { return o.ExecuteLocalActivity(ctx, input, next) }
	})
}

func (c *Chain) StartChildWorkflow(ctx context.Context, input any, concrete OutboundNext) (any, error) {
	return c.runOutbound(ctx, input, concrete, func(o OutboundInterceptor, next OutboundNext) OutboundNext {
		return func(ctx context.Context, input any) (any, error) { return o.StartChildWorkflow(ctx, input, next) }
	})
}

func (c *Chain) SignalChildWorkflow(ctx context.Context, input any, concrete OutboundNext) (any, error) {
	return c.runOutbound(ctx, input, concrete, func(o OutboundInterceptor, next OutboundNext) OutboundNext {
		return func(ctx context.Context, input any) (any, error) { return o.SignalChildWorkflow(ctx, input, next) }
	})
}

func (c *Chain) SignalWorkflow(ctx context.Context, input any, concrete OutboundNext) (any, error) {
	return c.runOutbound(ctx, input, concrete, func(o OutboundInterceptor, next OutboundNext) OutboundNext {
		return func(ctx context.Context, input any) (any, error) { return o.SignalWorkflow(ctx, input, next) }
	})
}

func (c *Chain) QueryWorkflow(ctx context.Context, input any, concrete OutboundNext) (any, error) {
	return c.runOutbound(ctx, input, concrete, func(o OutboundInterceptor, next OutboundNext) OutboundNext {
		return func(ctx context.Context, input any) (any, error) { return o.QueryWorkflow(ctx, input, next) }
	})
}

func (c *Chain) CountWorkflows(ctx context.Context, input any, concrete OutboundNext) (any, error) {
	return c.runOutbound(ctx, input, concrete, func(o OutboundInterceptor, next OutboundNext) OutboundNext {
		return func(ctx context.Context, input any) (any, error) { return o.CountWorkflows(ctx, input, next) }
	})
}

func (c *Chain) StartWorkflow(ctx context.Context, input any, concrete OutboundNext) (any, error) {
	return c.runOutbound(ctx, input, concrete, func(o OutboundInterceptor, next OutboundNext) OutboundNext {
		return func(ctx context.Context, input any) (any, error) { return o.StartWorkflow(ctx, input, next) }
	})
}

func (c *Chain) MakeContinueAsNewError(ctx context.Context, input any, concrete OutboundNext) (any, error) {
	return c.runOutbound(ctx, input, concrete, func(o OutboundInterceptor, next OutboundNext) OutboundNext {
		return func(ctx context.Context, input any) (any, error) { return o.MakeContinueAsNewError(ctx, input, next) }
	})
}

func (c *Chain) HandleSleep(ctx context.Context, input any, concrete OutboundNext) (any, error) {
	return c.runOutbound(ctx, input, concrete, func(o OutboundInterceptor, next OutboundNext) OutboundNext {
		return func(ctx context.Context, input any) (any, error) { return o.HandleSleep(ctx, input, next) }
	})
}
