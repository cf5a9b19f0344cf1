// Package bridge implements the Bridge Driver (C8): the poll/dispatch loop
// that pulls activations from a Bridge, routes each to the Instance
// Orchestrator owning that run_id, and returns the resulting completion. One
// goroutine drives each run_id end to end, matching the "no workflow code
// may migrate to another thread" scheduling model (§5); distinct run_ids are
// driven by distinct goroutines and make progress independently.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"goa.design/wfcore/converter"
	"goa.design/wfcore/coresdk"
	"goa.design/wfcore/instance"
	"goa.design/wfcore/interceptor"
	"goa.design/wfcore/registry"
	"goa.design/wfcore/telemetry"
)

// ErrShutdown is returned by a Bridge's PollWorkflowActivation once
// InitiateShutdown has been called and no further activations will arrive.
var ErrShutdown = errors.New("bridge: shutdown")

// Bridge is the inbound interface from the Temporal core SDK: poll for the
// next activation, complete it, and the two graceful-stop hooks. Signatures
// mirror the real core-sdk bridge so a production implementation is a drop-in
// replacement for the in-process reference one (memory.go).
type Bridge interface {
	PollWorkflowActivation(ctx context.Context) (coresdk.Activation, error)
	CompleteWorkflowActivation(ctx context.Context, completion coresdk.Completion) error
	InitiateShutdown()
	FinalizeShutdown()
}

// WorkerConfig configures a Driver's poll loop. TaskQueue is carried for
// identity, logging, and metric tagging only — the in-process reference
// Bridge has no notion of distinct queues.
type WorkerConfig struct {
	// TaskQueue names the queue this driver polls, surfaced in log fields and
	// as the task_queue metric tag.
	TaskQueue string

	// PollRateLimit bounds how often Run calls PollWorkflowActivation, so a
	// saturated bridge degrades to a steady poll cadence instead of a busy
	// spin. Zero means unlimited (rate.Inf).
	PollRateLimit rate.Limit

	// PollBurst is the limiter's burst size. Zero is treated as 1.
	PollBurst int

	// RunChannelBuffer sizes each per-run_id activation channel. Zero is
	// treated as 16.
	RunChannelBuffer int
}

// Driver owns the poll loop and the set of live per-run_id goroutines.
type Driver struct {
	bridge   Bridge
	registry *registry.Registry
	chain    *interceptor.Chain
	logger   telemetry.Logger
	metrics  telemetry.Metrics
	limiter  *rate.Limiter
	cfg      WorkerConfig

	mu   sync.Mutex
	runs map[string]chan coresdk.Activation
}

// NewDriver constructs a Driver. chain is shared by every Instance the
// driver spawns; pass interceptor.New(nil, nil) for no interceptors. metrics
// receives one IncCounter("workflow_activations_processed", ...) per
// activation driveRun completes; pass telemetry.NewNoopMetrics() to disable.
func NewDriver(b Bridge, reg *registry.Registry, chain *interceptor.Chain, logger telemetry.Logger, metrics telemetry.Metrics, cfg WorkerConfig) *Driver {
	limit := cfg.PollRateLimit
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.PollBurst
	if burst <= 0 {
		burst = 1
	}
	if cfg.RunChannelBuffer <= 0 {
		cfg.RunChannelBuffer = 16
	}
	return &Driver{
		bridge:   b,
		registry: reg,
		chain:    chain,
		logger:   logger,
		metrics:  metrics,
		limiter:  rate.NewLimiter(limit, burst),
		cfg:      cfg,
		runs:     make(map[string]chan coresdk.Activation),
	}
}

// Run polls activations until ctx is cancelled or the bridge signals
// shutdown via ErrShutdown, dispatching each to the goroutine that owns its
// run_id (spawning one on first sight). It returns nil on a graceful
// shutdown and the triggering error otherwise.
func (d *Driver) Run(ctx context.Context) error {
	for {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
		a, err := d.bridge.PollWorkflowActivation(ctx)
		if err != nil {
			if errors.Is(err, ErrShutdown) {
				return nil
			}
			return err
		}
		d.dispatch(ctx, a)
	}
}

func (d *Driver) dispatch(ctx context.Context, a coresdk.Activation) {
	ch := d.runChannel(ctx, a.RunID)
	select {
	case ch <- a:
	case <-ctx.Done():
	}
}

func (d *Driver) runChannel(ctx context.Context, runID string) chan coresdk.Activation {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.runs[runID]; ok {
		return ch
	}
	ch := make(chan coresdk.Activation, d.cfg.RunChannelBuffer)
	d.runs[runID] = ch
	go d.driveRun(ctx, runID, ch)
	return ch
}

// driveRun is the single goroutine that owns one run_id's Instance for its
// entire lifetime: it applies activations strictly in the order they arrive
// on ch and tears itself down once a RemoveFromCache job has been served
// (§4.5 step 8, §4.8).
func (d *Driver) driveRun(ctx context.Context, runID string, ch chan coresdk.Activation) {
	var inst *instance.Instance
	for {
		select {
		case a, ok := <-ch:
			if !ok {
				return
			}
			if inst == nil {
				var failure error
				inst, failure = d.start(a)
				if failure != nil {
					d.complete(ctx, coresdk.Failed(runID, converter.ErrorToFailure(failure)))
					continue
				}
			}
			completion := inst.ProcessActivation(a)
			d.metrics.IncCounter("workflow_activations_processed", 1, "task_queue", d.cfg.TaskQueue)
			d.complete(ctx, completion)
			if evicting(a) {
				d.evict(runID)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// start resolves the workflow type named by the run's first activation and
// constructs its Instance. The first activation MUST start with
// InitializeWorkflow (§4.8); anything else is an activation failure.
func (d *Driver) start(a coresdk.Activation) (*instance.Instance, error) {
	if len(a.Jobs) == 0 || a.Jobs[0].Kind != coresdk.JobInitializeWorkflow {
		return nil, errors.New("expected InitializeWorkflow")
	}
	workflowType := a.Jobs[0].WorkflowType
	def, ok := d.registry.Workflow(workflowType)
	if !ok {
		return nil, fmt.Errorf("bridge: unknown workflow type %q", workflowType)
	}
	return instance.New(def, d.chain, d.logger), nil
}

func (d *Driver) complete(ctx context.Context, completion coresdk.Completion) {
	if err := d.bridge.CompleteWorkflowActivation(ctx, completion); err != nil {
		d.logger.Warn(ctx, "complete workflow activation failed", "run_id", completion.RunID, "task_queue", d.cfg.TaskQueue, "error", err)
	}
}

func (d *Driver) evict(runID string) {
	d.mu.Lock()
	delete(d.runs, runID)
	d.mu.Unlock()
}

func evicting(a coresdk.Activation) bool {
	for _, j := range a.Jobs {
		if j.Kind == coresdk.JobRemoveFromCache {
			return true
		}
	}
	return false
}

// Shutdown tells the bridge to stop yielding new activations; Run returns
// once the in-flight poll observes ErrShutdown. Run-in-progress goroutines
// for already-dispatched run_ids are left to finish on their own.
func (d *Driver) Shutdown() {
	d.bridge.InitiateShutdown()
}
