// Package workflow implements the Workflow Context API (C4): the façade
// workflow author code calls into. It owns no state itself — every method
// is a thin, ergonomic wrapper over statemachine.State and
// executor.TaskContext, the two primitives that actually carry the
// deterministic replay semantics.
package workflow

import (
	"context"
	"time"

	commonpb "go.temporal.io/api/common/v1"

	"goa.design/wfcore/converter"
	"goa.design/wfcore/executor"
	"goa.design/wfcore/interceptor"
	"goa.design/wfcore/rng"
	"goa.design/wfcore/statemachine"
	"goa.design/wfcore/telemetry"
)

// Info is the read-only workflow identity and attempt metadata exposed via
// Context.Info.
type Info struct {
	WorkflowType string
	WorkflowID   string
	RunID        string
	TaskQueue    string
	Namespace    string
	Attempt      int32
}

// Context is the non-owning handle passed to workflow run methods, signal/
// query/update handlers, and anything they call. It is only valid for the
// lifetime of the Instance that created it (§9 design notes: arena-style,
// non-owning reference).
type Context struct {
	state  *statemachine.State
	ex     *executor.Executor
	tc     *executor.TaskContext
	info   Info
	logger telemetry.Logger
	chain  *interceptor.Chain

	currentDetails string

	cancelStack []func() error
	cancelled   bool

	bound any
}

// New builds a Context bound to one task's suspend/resume handle. The
// Instance Orchestrator constructs one Context per spawned task (the run
// method, each signal handler, each update handler). chain wraps every
// outbound call the Context's methods make; pass interceptor.New(nil, nil)
// for no interceptors.
func New(state *statemachine.State, ex *executor.Executor, tc *executor.TaskContext, info Info, logger telemetry.Logger, chain *interceptor.Chain) *Context {
	return &Context{state: state, ex: ex, tc: tc, info: info, logger: logger, chain: chain}
}

// outboundCtx builds the context.Context passed to the outbound interceptor
// chain, tagged with the state machine's current replay flag so the tracing
// interceptor can suppress spans while replaying.
func (c *Context) outboundCtx() context.Context {
	return interceptor.WithReplaying(context.Background(), c.state.IsReplaying)
}

// Info returns the workflow's identity and attempt metadata. Always
// permitted, including in a frozen context.
func (c *Context) Info() Info { return c.info }

// Now returns the deterministic workflow clock. Always permitted.
func (c *Context) Now() time.Time { return c.state.Now() }

// IsReplaying reports whether the current activation is replaying history.
// Always permitted.
func (c *Context) IsReplaying() bool { return c.state.IsReplaying }

// Logger returns the injected structured logger, the same one used by the
// ambient engine code, so workflow authors' log lines carry identical
// fields and sinks.
func (c *Context) Logger() telemetry.Logger { return c.logger }

// CurrentDetails returns the most recently set human-readable progress
// description surfaced by the built-in metadata query. Always permitted.
func (c *Context) CurrentDetails() string { return c.currentDetails }

// SetCurrentDetails updates the progress description returned by
// CurrentDetails and the built-in __temporal_workflow_metadata query. It
// does not append to the command buffer, so it carries no frozen-context
// restriction.
func (c *Context) SetCurrentDetails(details string) { c.currentDetails = details }

// Bind attaches v to this Context. When the orchestrator creates a Context
// for a signal, query, or update handler, it copies in the value bound on
// the run method's Context at that moment, so handlers can retrieve it via
// Bound. Conventionally called once, at the top of Run, with a pointer to
// the workflow's own per-run state struct. A later Bind is not propagated to
// Contexts that already exist, and Contexts created by Go start unbound.
func (c *Context) Bind(v any) { c.bound = v }

// Bound returns the value bound on this Context (by Bind, or copied in when
// the orchestrator created it), or nil if there is none.
func (c *Context) Bound() any { return c.bound }

// RandomNumberGenerator returns the deterministic PCG128 stream for this
// run. Workflow code must use this instead of math/rand for any decision
// that affects emitted commands.
func (c *Context) RandomNumberGenerator() *rng.Generator { return c.state.RNG() }

// Memo returns a copy of the run's current memo.
func (c *Context) Memo() map[string]*commonpb.Payload { return c.state.Memo() }

// SearchAttributes returns a copy of the run's current search attributes.
func (c *Context) SearchAttributes() map[string]*commonpb.Payload { return c.state.SearchAttributes() }

// UpsertMemo merges delta into the run's memo (nil values delete the key)
// and emits a ModifyWorkflowProperties command. Asserts not frozen.
func (c *Context) UpsertMemo(delta map[string]*commonpb.Payload) error {
	return c.state.UpsertMemo(delta)
}

// UpsertSearchAttributes merges delta into the run's search attributes and
// emits an UpsertSearchAttributes command. Asserts not frozen.
func (c *Context) UpsertSearchAttributes(delta map[string]*commonpb.Payload) error {
	return c.state.UpsertSearchAttributes(delta)
}

// Patch reports whether the code path guarded by id should take the
// post-patch branch. See statemachine.State.Patch for the exact memoized
// semantics. Asserts not frozen.
func (c *Context) Patch(id string) (bool, error) {
	return c.state.Patch(id, false)
}

// DeprecatePatch marks id as no longer needing an explicit branch: it
// behaves like Patch but tags the emitted marker (if any) as deprecated,
// allowing the server to eventually stop requiring the marker once no
// in-flight history predates it.
func (c *Context) DeprecatePatch(id string) (bool, error) {
	return c.state.Patch(id, true)
}

// MakeContinueAsNewError builds a ContinueAsNewError for workflowType with
// args, to be returned from the run method. It does not itself emit a
// command; the orchestrator's top-level error categorization (§7) emits
// ContinueAsNewWorkflowExecution when the run method returns one.
func (c *Context) MakeContinueAsNewError(workflowType string, args ...any) error {
	if err := c.assertNotCancelled(); err != nil {
		return err
	}
	out, err := c.chain.MakeContinueAsNewError(c.outboundCtx(), workflowType, func(_ context.Context, input any) (any, error) {
		wt, _ := input.(string)
		encoded, perr := converter.ToPayloads(args...)
		if perr != nil {
			return nil, perr
		}
		return &ContinueAsNewError{WorkflowType: wt, Input: encoded}, nil
	})
	if err != nil {
		return err
	}
	canErr, _ := out.(*ContinueAsNewError)
	if canErr == nil {
		return nil
	}
	return canErr
}

// ContinueAsNewError signals that the current run should terminate and a
// new run should start in its place with fresh history. It is not a
// TemporalFailure: the orchestrator recognizes it with errors.As and emits
// ContinueAsNewWorkflowExecution instead of failing the run.
type ContinueAsNewError struct {
	WorkflowType string
	Input        []*commonpb.Payload
	Memo         map[string]*commonpb.Payload
	Headers      map[string]*commonpb.Payload
}

func (e *ContinueAsNewError) Error() string {
	return "continue as new: " + e.WorkflowType
}
