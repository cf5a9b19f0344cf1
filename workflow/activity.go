package workflow

import (
	"context"

	commonpb "go.temporal.io/api/common/v1"

	"goa.design/wfcore/converter"
	"goa.design/wfcore/coresdk"
	"goa.design/wfcore/statemachine"
)

// ActivityOptions configures ExecuteActivity. Headers and Input are already
// encoded payloads; callers that want typed-argument ergonomics should wrap
// this with a code-generated or reflection-based helper (§9 design notes),
// not by extending this struct.
type ActivityOptions struct {
	ActivityType string
	Local        bool
	Headers      map[string]*commonpb.Payload
	Input        []*commonpb.Payload
}

// TraceName reports the activity type as the tracing interceptor's span name.
func (o ActivityOptions) TraceName() string { return o.ActivityType }

// ExecuteActivity schedules an activity and blocks until it resolves,
// decoding a successful result into valuePtr (nil to discard the result).
// A Failed or Cancelled resolution is returned as a typed error via the
// failure converter.
func (c *Context) ExecuteActivity(opts ActivityOptions, valuePtr any) error {
	if err := c.assertNotCancelled(); err != nil {
		return err
	}

	exec := c.chain.ExecuteActivity
	if opts.Local {
		exec = c.chain.ExecuteLocalActivity
	}

	out, err := exec(c.outboundCtx(), opts, func(_ context.Context, input any) (any, error) {
		opts := input.(ActivityOptions)
		seq, err := c.state.StartActivity(statemachine.ActivityOptions(opts))
		if err != nil {
			return nil, err
		}
		cancel := c.pushCancel(func() error { return c.state.CancelActivity(c.ex, seq) })
		defer cancel()

		return c.state.AwaitActivity(c.tc, seq, statemachine.ActivityOptions(opts))
	})
	if err != nil {
		return err
	}
	res, _ := out.(*coresdk.ActivityResolution)
	return activityResultToError(res, valuePtr)
}

func activityResultToError(res *coresdk.ActivityResolution, valuePtr any) error {
	switch res.Kind {
	case coresdk.ActivityCompleted:
		if valuePtr == nil || len(res.Result) == 0 {
			return nil
		}
		return converter.FromPayload(res.Result[0], valuePtr)
	case coresdk.ActivityFailed, coresdk.ActivityCancelled:
		return converter.FailureToError(res.Failure)
	default:
		return nil
	}
}
