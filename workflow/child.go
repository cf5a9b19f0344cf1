package workflow

import (
	"context"

	commonpb "go.temporal.io/api/common/v1"
	enumspb "go.temporal.io/api/enums/v1"

	"goa.design/wfcore/converter"
	"goa.design/wfcore/statemachine"
)

// ChildWorkflowOptions configures StartChildWorkflow. WorkflowID is left
// empty to have one generated deterministically from the run's RNG stream.
type ChildWorkflowOptions struct {
	WorkflowID        string
	WorkflowType      string
	Headers           map[string]*commonpb.Payload
	Input             []*commonpb.Payload
	Memo              map[string]*commonpb.Payload
	ParentClosePolicy enumspb.ParentClosePolicy
}

// TraceName reports the child's workflow type as the tracing interceptor's
// span name.
func (o ChildWorkflowOptions) TraceName() string { return o.WorkflowType }

// ChildWorkflowHandle is returned by StartChildWorkflow once the child's
// start has resolved successfully; Result blocks for the child's eventual
// outcome.
type ChildWorkflowHandle struct {
	ctx        *Context
	seq        uint32
	WorkflowID string
	RunID      string
}

// StartChildWorkflow emits StartChildWorkflowExecution and blocks until the
// start itself resolves (the child was admitted, or failed to start e.g.
// WorkflowAlreadyStarted).
func (c *Context) StartChildWorkflow(opts ChildWorkflowOptions) (*ChildWorkflowHandle, error) {
	if err := c.assertNotCancelled(); err != nil {
		return nil, err
	}

	out, err := c.chain.StartChildWorkflow(c.outboundCtx(), opts, func(_ context.Context, input any) (any, error) {
		opts := input.(ChildWorkflowOptions)
		seq, workflowID, err := c.state.StartChild(statemachine.ChildOptions(opts))
		if err != nil {
			return nil, err
		}
		cancel := c.pushCancel(func() error { return c.state.CancelChild(c.ex, seq) })
		runID, failure, err := c.state.AwaitChildStart(c.tc, seq)
		cancel()
		if err != nil {
			return nil, err
		}
		if failure != nil {
			return nil, converter.FailureToError(failure)
		}
		return &ChildWorkflowHandle{ctx: c, seq: seq, WorkflowID: workflowID, RunID: runID}, nil
	})
	if err != nil {
		return nil, err
	}
	handle, _ := out.(*ChildWorkflowHandle)
	return handle, nil
}

// Result blocks until the child workflow completes, fails, or is
// cancelled, decoding a successful result into valuePtr.
func (h *ChildWorkflowHandle) Result(valuePtr any) error {
	cancel := h.ctx.pushCancel(func() error { return h.ctx.state.CancelChild(h.ctx.ex, h.seq) })
	defer cancel()

	res, err := h.ctx.state.AwaitChildResult(h.ctx.tc, h.seq)
	if err != nil {
		return err
	}
	return activityResultToError(res, valuePtr)
}

// Signal delivers a signal to the child workflow this handle refers to,
// routed through the same outbound chain as SignalExternalWorkflow.
func (h *ChildWorkflowHandle) Signal(signalName string, input []*commonpb.Payload) error {
	return h.ctx.signalChild(h.WorkflowID, h.RunID, signalName, input)
}

// ExecuteChildWorkflow starts a child workflow and blocks for its full
// result in one call, the common case when the caller has no need to
// observe the start resolution separately.
func (c *Context) ExecuteChildWorkflow(opts ChildWorkflowOptions, valuePtr any) error {
	handle, err := c.StartChildWorkflow(opts)
	if err != nil {
		return err
	}
	return handle.Result(valuePtr)
}
