// Package instance implements the Workflow Instance Orchestrator (C5): the
// single algorithm, per activation batch, that ties the State Machine, the
// Executor, the Handler Registry, and the Interceptor Chain together into
// one workflow run. Each Instance owns exactly one run_id's worth of state
// and is driven from a single goroutine, matching the "no workflow code may
// migrate to another thread" scheduling model (§5).
package instance

import (
	"context"
	"errors"
	"fmt"

	commonpb "go.temporal.io/api/common/v1"

	"goa.design/wfcore/converter"
	"goa.design/wfcore/coresdk"
	"goa.design/wfcore/executor"
	"goa.design/wfcore/interceptor"
	"goa.design/wfcore/registry"
	"goa.design/wfcore/statemachine"
	"goa.design/wfcore/telemetry"
	"goa.design/wfcore/workflow"
)

// Instance drives one workflow run. It is not safe for concurrent use; the
// Bridge Driver owns exactly one goroutine per Instance.
type Instance struct {
	def    *registry.WorkflowDefinition
	chain  *interceptor.Chain
	logger telemetry.Logger

	state *statemachine.State
	ex    *executor.Executor

	info workflow.Info

	initialized bool
	runCtx      *workflow.Context
	contexts    []*workflow.Context
}

// New constructs an Instance for one run of the workflow type named by def.
// chain wraps every inbound/outbound call the run and its handlers make;
// pass interceptor.New(nil, nil) for no interceptors.
func New(def *registry.WorkflowDefinition, chain *interceptor.Chain, logger telemetry.Logger) *Instance {
	return &Instance{
		def:    def,
		chain:  chain,
		logger: logger,
		state:  statemachine.New(),
		ex:     executor.New(),
	}
}

// ProcessActivation runs the per-activation algorithm (§4.5) and returns the
// Completion the Bridge Driver hands back to the server.
func (inst *Instance) ProcessActivation(a coresdk.Activation) coresdk.Completion {
	jobs := a.Jobs

	if !inst.initialized {
		if len(jobs) == 0 || jobs[0].Kind != coresdk.JobInitializeWorkflow {
			return coresdk.Failed(a.RunID, converter.ErrorToFailure(errors.New("expected InitializeWorkflow")))
		}
		initJob := jobs[0]
		jobs = jobs[1:]

		inst.state.WithFrozen(func() {
			inst.state.Initialize(initJob, initJob.RandomnessSeed)
		})
		inst.state.BeginActivation(a)
		inst.info = workflow.Info{WorkflowType: initJob.WorkflowType, RunID: a.RunID, Attempt: 1}
		inst.initialized = true

		inst.applyJobs(jobs)
		inst.startRun(initJob.Args)
	} else {
		inst.state.BeginActivation(a)
		inst.applyJobs(jobs)
	}

	inst.drainToQuiescence()
	return inst.emitCompletion(a.RunID)
}

// drainToQuiescence implements steps 4-6: drain the executor, then sweep
// conditions one at a time, looping back to drain whenever a sweep resumes
// someone, until the executor has nothing left to do and no pending
// condition is satisfied.
func (inst *Instance) drainToQuiescence() {
	for {
		inst.ex.Drain()
		if !inst.state.SweepConditions(inst.ex) {
			return
		}
	}
}

func (inst *Instance) emitCompletion(runID string) coresdk.Completion {
	res := inst.state.Commands()
	if res.Failure != nil {
		return coresdk.Failed(runID, res.Failure)
	}
	return coresdk.Successful(runID, res.Commands)
}

// applyJobs implements step 2: apply every job in arrival order.
func (inst *Instance) applyJobs(jobs []coresdk.Job) {
	for _, job := range jobs {
		switch job.Kind {
		case coresdk.JobFireTimer:
			inst.state.ResolveFireTimer(inst.ex, job.Seq)
		case coresdk.JobResolveActivity:
			inst.state.ResolveActivity(inst.ex, job.Seq, job.ActivityResult)
		case coresdk.JobResolveChildStart:
			inst.state.ResolveChildStart(inst.ex, job.Seq, job.ChildRunID, job.ChildFailed)
		case coresdk.JobResolveChildResult:
			inst.state.ResolveChildResult(inst.ex, job.Seq, job.ActivityResult)
		case coresdk.JobResolveExternalSignal:
			inst.state.ResolveExternalSignal(inst.ex, job.Seq, job.Failure)
		case coresdk.JobResolveNexusOperationStart:
			inst.state.ResolveNexusOperationStart(inst.ex, job.Seq, job.NexusOperationToken, job.NexusSyncResult, job.Failure)
		case coresdk.JobResolveNexusOperation:
			inst.state.ResolveNexusOperation(inst.ex, job.Seq, job.NexusResult, job.Failure)
		case coresdk.JobNotifyHasPatch:
			inst.state.NotifyHasPatch(job.PatchID)
		case coresdk.JobUpdateRandomSeed:
			inst.state.Reseed(job.RandomnessSeed)
		case coresdk.JobCancelWorkflow:
			inst.cancelAll()
		case coresdk.JobSignalWorkflow:
			inst.dispatchSignal(job)
		case coresdk.JobQueryWorkflow:
			inst.dispatchQuery(job)
		case coresdk.JobDoUpdate:
			inst.dispatchUpdate(job)
		case coresdk.JobRemoveFromCache:
			inst.state.ForceCancelAll(inst.ex)
		}
	}
}

// cancelAll propagates a CancelWorkflow job to the run method and every
// live handler task (§5 cancellation semantics).
func (inst *Instance) cancelAll() {
	for _, ctx := range inst.contexts {
		_ = ctx.Cancel()
	}
}

// startRun implements step 3: spawn the registered workflow type's entry
// point as a top-level task, the interceptor chain entry frozen, the
// workflow body it ultimately invokes not.
func (inst *Instance) startRun(args []*commonpb.Payload) {
	inst.ex.Spawn(func(tc *executor.TaskContext) {
		ctx := workflow.New(inst.state, inst.ex, tc, inst.info, inst.logger, inst.chain)
		inst.runCtx = ctx
		inst.contexts = append(inst.contexts, ctx)

		var result []*commonpb.Payload
		var runErr error
		inst.state.WithFrozen(func() {
			out, err := inst.chain.ExecuteWorkflow(inst.inboundCtx(), args, func(_ context.Context, input any) (any, error) {
				var res []*commonpb.Payload
				var rerr error
				inst.state.WithUnfrozen(func() {
					res, rerr = inst.def.Run(ctx, input.([]*commonpb.Payload))
				})
				return res, rerr
			})
			runErr = err
			if err == nil && out != nil {
				result, _ = out.([]*commonpb.Payload)
			}
		})
		inst.finish(result, runErr)
	})
}

// finish applies the top-level error categorization named in §4.5/§7 to the
// run method's (or a signal handler's) return.
func (inst *Instance) finish(result []*commonpb.Payload, err error) {
	var canErr *workflow.ContinueAsNewError
	var removedErr *statemachine.RemovedFromCacheError
	switch {
	case err == nil:
		inst.state.WorkflowFinished(result)
	case errors.As(err, &removedErr):
		// Eviction force-wake: nothing is reported for this run.
	case errors.As(err, &canErr):
		_ = inst.state.ContinueAsNew(canErr.Input, canErr.Memo, canErr.Headers)
	case converter.IsTemporalFailure(err):
		inst.state.WorkflowFailed(converter.ErrorToFailure(err))
	default:
		inst.state.WorkflowTaskFailed(converter.ErrorToFailure(err))
	}
}

// newHandlerContext builds a Context for a spawned handler task, sharing
// this run's bound value (§9 task-local context) so the handler can reach
// the same per-run state the workflow's Run method bound at startup.
func (inst *Instance) newHandlerContext(tc *executor.TaskContext) *workflow.Context {
	ctx := workflow.New(inst.state, inst.ex, tc, inst.info, inst.logger, inst.chain)
	if inst.runCtx != nil {
		ctx.Bind(inst.runCtx.Bound())
	}
	inst.contexts = append(inst.contexts, ctx)
	return ctx
}

// inboundCtx builds the context.Context passed to the inbound interceptor
// chain, tagged with the state machine's current replay flag so the tracing
// interceptor can suppress spans while replaying.
func (inst *Instance) inboundCtx() context.Context {
	return interceptor.WithReplaying(context.Background(), inst.state.IsReplaying)
}

func (inst *Instance) currentDetails() string {
	if inst.runCtx == nil {
		return ""
	}
	return inst.runCtx.CurrentDetails()
}

// dispatchSignal implements the SignalWorkflow branch of step 2: unknown
// signals are logged and skipped, never fail the activation.
func (inst *Instance) dispatchSignal(job coresdk.Job) {
	def, ok := inst.def.Signal(job.SignalName)
	if !ok {
		inst.logger.Warn(context.Background(), "unknown signal, skipping", "signal.name", job.SignalName)
		return
	}

	decoded := decodeFirst(job.SignalInput)
	if err := def.ValidateInput(decoded); err != nil {
		inst.logger.Warn(context.Background(), "signal input failed validation, skipping", "signal.name", job.SignalName, "error", err)
		return
	}

	inst.state.HandlerStarted()
	inst.ex.Spawn(func(tc *executor.TaskContext) {
		defer inst.state.HandlerFinished()
		ctx := inst.newHandlerContext(tc)
		_, err := inst.chain.HandleSignal(inst.inboundCtx(), job.SignalName, decoded, func(_ context.Context, input any) (any, error) {
			return def.Handler(ctx, input)
		})
		if err != nil {
			inst.finish(nil, err)
		}
	})
}

// dispatchQuery implements the QueryWorkflow branch of step 2: handlers run
// synchronously, frozen, never suspending.
func (inst *Instance) dispatchQuery(job coresdk.Job) {
	if job.QueryType == "__temporal_workflow_metadata" {
		inst.respondQueryValue(job.QueryID, inst.def.BuildMetadata(inst.currentDetails()))
		return
	}

	def, ok := inst.def.Query(job.QueryType)
	if !ok {
		inst.state.WorkflowTaskFailed(converter.ErrorToFailure(
			fmt.Errorf("unknown query type %q, known queries: %v", job.QueryType, inst.def.KnownQueryNames())))
		return
	}

	decoded := decodeFirst(job.QueryInput)
	if err := def.ValidateInput(decoded); err != nil {
		inst.state.RespondQuery(job.QueryID, nil, converter.ErrorToFailure(err))
		return
	}

	var result any
	var err error
	inst.state.WithFrozen(func() {
		ctx := inst.newHandlerContext(nil)
		result, err = inst.chain.HandleQuery(inst.inboundCtx(), job.QueryType, decoded, func(_ context.Context, input any) (any, error) {
			return def.Handler(ctx, input)
		})
	})
	if err != nil {
		inst.state.RespondQuery(job.QueryID, nil, converter.ErrorToFailure(err))
		return
	}
	inst.respondQueryValue(job.QueryID, result)
}

func (inst *Instance) respondQueryValue(queryID string, value any) {
	payload, err := converter.ToPayload(value)
	if err != nil {
		inst.state.RespondQuery(queryID, nil, converter.ErrorToFailure(err))
		return
	}
	inst.state.RespondQuery(queryID, []*commonpb.Payload{payload}, nil)
}

// dispatchUpdate implements the DoUpdate branch of step 2: an optional
// synchronous, frozen validator phase gates UpdateResponse.accepted; the run
// phase runs as its own suspendable task.
func (inst *Instance) dispatchUpdate(job coresdk.Job) {
	def, ok := inst.def.Update(job.UpdateName)
	if !ok {
		inst.state.WorkflowTaskFailed(converter.ErrorToFailure(fmt.Errorf("unknown update %q", job.UpdateName)))
		return
	}

	decoded := decodeFirst(job.UpdateInput)

	if job.RunValidator {
		var verr error
		inst.state.WithFrozen(func() {
			_, verr = inst.chain.ValidateUpdate(inst.inboundCtx(), job.UpdateName, decoded, func(_ context.Context, input any) (any, error) {
				return nil, def.ValidateInput(input)
			})
		})
		if verr != nil {
			inst.state.RespondUpdateRejected(job.UpdateID, converter.ErrorToFailure(verr))
			return
		}
	}
	inst.state.RespondUpdateAccepted(job.UpdateID)

	inst.state.HandlerStarted()
	inst.ex.Spawn(func(tc *executor.TaskContext) {
		defer inst.state.HandlerFinished()
		ctx := inst.newHandlerContext(tc)
		result, err := inst.chain.HandleUpdate(inst.inboundCtx(), job.UpdateName, decoded, func(_ context.Context, input any) (any, error) {
			return def.Handler(ctx, input)
		})
		switch {
		case err == nil:
			payload, perr := converter.ToPayload(result)
			if perr != nil {
				inst.state.RespondUpdateRejected(job.UpdateID, converter.ErrorToFailure(perr))
				return
			}
			inst.state.RespondUpdateCompleted(job.UpdateID, []*commonpb.Payload{payload})
		case errors.As(err, new(*statemachine.RemovedFromCacheError)):
			// Eviction force-wake: nothing is reported for this update.
		case converter.IsTemporalFailure(err):
			inst.state.RespondUpdateRejected(job.UpdateID, converter.ErrorToFailure(err))
		default:
			inst.state.WorkflowTaskFailed(converter.ErrorToFailure(err))
		}
	})
}

func decodeFirst(payloads []*commonpb.Payload) any {
	if len(payloads) == 0 {
		return nil
	}
	var raw any
	if err := converter.FromPayload(payloads[0], &raw); err != nil {
		return nil
	}
	return raw
}
