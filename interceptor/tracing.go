package interceptor

import (
	"context"

	"goa.design/wfcore/telemetry"
)

// TracingInterceptor starts one span per inbound entry point
// (workflow.execute, workflow.signal.<name>, workflow.query.<name>,
// workflow.update.<name>) and one span per outbound call this module has a
// concrete terminal for (workflow.activity.<type>, workflow.child.<type>,
// workflow.sleep). Spans are suppressed entirely while the activation is
// replaying, so the exported trace reflects only genuinely new execution.
type TracingInterceptor struct {
	NoopInbound
	NoopOutbound
	Tracer telemetry.Tracer
}

// NewTracingInterceptor builds a TracingInterceptor backed by tracer.
func NewTracingInterceptor(tracer telemetry.Tracer) *TracingInterceptor {
	return &TracingInterceptor{Tracer: tracer}
}

func (t *TracingInterceptor) span(ctx context.Context, name string, input any, next func(context.Context, any) (any, error)) (any, error) {
	if IsReplaying(ctx) {
		return next(ctx, input)
	}
	spanCtx, span := t.Tracer.Start(ctx, name)
	defer span.End()
	out, err := next(spanCtx, input)
	if err != nil {
		span.RecordError(err)
	}
	return out, err
}

func spanName(prefix string, input any) string {
	if n, ok := input.(Named); ok && n.TraceName() != "" {
		return prefix + "." + n.TraceName()
	}
	return prefix
}

func (t *TracingInterceptor) ExecuteWorkflow(ctx context.Context, input any, next InboundNext) (any, error) {
	return t.span(ctx, "workflow.execute", input, next)
}

func (t *TracingInterceptor) HandleSignal(ctx context.Context, name string, input any, next InboundNext) (any, error) {
	return t.span(ctx, "workflow.signal."+name, input, next)
}

func (t *TracingInterceptor) HandleQuery(ctx context.Context, name string, input any, next InboundNext) (any, error) {
	return t.span(ctx, "workflow.query."+name, input, next)
}

func (t *TracingInterceptor) HandleUpdate(ctx context.Context, name string, input any, next InboundNext) (any, error) {
	return t.span(ctx, "workflow.update."+name, input, next)
}

func (t *TracingInterceptor) ExecuteActivity(ctx context.Context, input any, next OutboundNext) (any, error) {
	return t.span(ctx, spanName("workflow.activity", input), input, next)
}

func (t *TracingInterceptor) ExecuteLocalActivity(ctx context.Context, input any, next OutboundNext) (any, error) {
	return t.span(ctx, spanName("workflow.activity", input), input, next)
}

func (t *TracingInterceptor) StartChildWorkflow(ctx context.Context, input any, next OutboundNext) (any, error) {
	return t.span(ctx, spanName("workflow.child", input), input, next)
}

func (t *TracingInterceptor) HandleSleep(ctx context.Context, input any, next OutboundNext) (any, error) {
	return t.span(ctx, "workflow.sleep", input, next)
}
