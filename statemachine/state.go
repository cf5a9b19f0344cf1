// Package statemachine implements the Workflow State Machine (C3): the sole
// mutable core of a workflow Instance. It owns every pending operation
// table, the outgoing command buffer, patch memoization, memo/search
// attributes, the deterministic clock/RNG/replay flag for the activation
// currently being processed, and the frozen-context guard.
//
// The State type is not safe for concurrent use. It is owned exclusively by
// one Instance and must only be mutated from the goroutine driving that
// instance's executor, exactly as the concurrency model in the
// specification requires.
package statemachine

import (
	"sort"
	"time"

	commonpb "go.temporal.io/api/common/v1"
	failurepb "go.temporal.io/api/failure/v1"

	"goa.design/wfcore/coresdk"
	"goa.design/wfcore/executor"
	"goa.design/wfcore/rng"
)

// State is the Workflow State Machine. Construct with New and populate from
// the first InitializeWorkflow job via Initialize.
type State struct {
	RunID             string
	Clock             time.Time
	IsReplaying       bool
	HistoryLength     int64
	HistorySizeBytes  int64

	frozen bool

	rng *rng.Generator

	memo        map[string]*commonpb.Payload
	searchAttrs map[string]*commonpb.Payload

	timerSeq   uint32
	timers     map[uint32]*timerEntry
	activitySeq uint32
	activities  map[uint32]*activityEntry
	childSeq    uint32
	childStarts map[uint32]*childStartEntry
	childResults map[uint32]*childResultEntry
	signalSeq   uint32
	signals     map[uint32]*signalEntry
	conditionSeq uint32
	conditions   []*conditionEntry
	nexusSeq     uint32
	nexusOps     map[uint32]*nexusEntry

	patches  map[string]bool
	notified map[string]bool

	commands          []coresdk.Command
	activationFailure *failurepb.Failure
	finished          bool

	activeHandlers int
	startedHandlers int
	finishedHandlers int
}

type timerEntry struct {
	task      *executor.Task
	cancelled bool
	err       error
}

// New constructs an empty State. Call Initialize with the first activation's
// InitializeWorkflow job before running any workflow code.
func New() *State {
	return &State{
		timers:       make(map[uint32]*timerEntry),
		activities:   make(map[uint32]*activityEntry),
		childStarts:  make(map[uint32]*childStartEntry),
		childResults: make(map[uint32]*childResultEntry),
		signals:      make(map[uint32]*signalEntry),
		nexusOps:     make(map[uint32]*nexusEntry),
		patches:      make(map[string]bool),
		notified:     make(map[string]bool),
		memo:         make(map[string]*commonpb.Payload),
		searchAttrs:  make(map[string]*commonpb.Payload),
	}
}

// Initialize populates the state machine from the first activation's
// InitializeWorkflow job. Must be called before any other mutation, with
// the frozen guard already engaged by the caller (the orchestrator runs
// Initialize, then workflow construction, under frozen=true).
func (s *State) Initialize(job coresdk.Job, seed uint64) {
	s.RunID = ""
	s.rng = rng.New(seed)
	if job.Memo != nil {
		for k, v := range job.Memo.Fields {
			s.memo[k] = v
		}
	}
	if job.SearchAttrs != nil {
		for k, v := range job.SearchAttrs.IndexedFields {
			s.searchAttrs[k] = v
		}
	}
}

// BeginActivation snapshots the per-activation deterministic context:
// replay flag, server clock, and history counters. These values are never
// advanced outside of the activation currently being processed.
func (s *State) BeginActivation(a coresdk.Activation) {
	s.RunID = a.RunID
	s.Clock = a.Timestamp
	s.IsReplaying = a.IsReplaying
	s.HistoryLength = a.HistoryLength
	s.HistorySizeBytes = a.HistorySizeBytes
}

// Frozen reports whether the state machine currently rejects mutation.
func (s *State) Frozen() bool { return s.frozen }

// WithFrozen runs fn with the frozen guard engaged, then restores the prior
// value. Used by the orchestrator around init, query handlers, and update
// validators (§4.3, §4.5).
func (s *State) WithFrozen(fn func()) {
	prev := s.frozen
	s.frozen = true
	defer func() { s.frozen = prev }()
	fn()
}

// WithUnfrozen runs fn with the frozen guard disengaged, then restores the
// prior value. Used by the orchestrator around the innermost call to user
// workflow code inside an otherwise-frozen interceptor chain entry (§4.5
// step 3): the chain's own bookkeeping runs frozen, the workflow body it
// ultimately invokes does not.
func (s *State) WithUnfrozen(fn func()) {
	prev := s.frozen
	s.frozen = false
	defer func() { s.frozen = prev }()
	fn()
}

func (s *State) assertNotFrozen() error {
	if s.frozen {
		return ErrFrozen
	}
	return nil
}

// Now returns the deterministic workflow clock for the activation currently
// being processed.
func (s *State) Now() time.Time { return s.Clock }

// RNG returns the deterministic random number generator. Safe to call from
// a frozen context; reading it has no side effect on emitted commands
// (consuming a value does mutate generator state, but that state is itself
// part of deterministic replay, not the frozen guard's concern).
func (s *State) RNG() *rng.Generator { return s.rng }

// Reseed handles an UpdateRandomSeed job.
func (s *State) Reseed(seed uint64) { s.rng.Reset(seed) }

// Memo returns a copy of the current memo view.
func (s *State) Memo() map[string]*commonpb.Payload {
	out := make(map[string]*commonpb.Payload, len(s.memo))
	for k, v := range s.memo {
		out[k] = v
	}
	return out
}

// SearchAttributes returns a copy of the current search-attribute view.
func (s *State) SearchAttributes() map[string]*commonpb.Payload {
	out := make(map[string]*commonpb.Payload, len(s.searchAttrs))
	for k, v := range s.searchAttrs {
		out[k] = v
	}
	return out
}

// UpsertMemo merges delta into the memo (nil values delete) and emits
// ModifyWorkflowProperties. upsert_memo(m1); upsert_memo(m2) observably
// equals upsert_memo(m1∪m2) with m2 taking precedence, because merging is
// idempotent key-by-key.
func (s *State) UpsertMemo(delta map[string]*commonpb.Payload) error {
	if err := s.assertNotFrozen(); err != nil {
		return err
	}
	for k, v := range delta {
		if v == nil {
			delete(s.memo, k)
			continue
		}
		s.memo[k] = v
	}
	s.appendCommand(coresdk.Command{
		Kind: coresdk.CommandModifyWorkflowProperties,
		Memo: &commonpb.Memo{Fields: cloneFields(delta)},
	})
	return nil
}

// UpsertSearchAttributes merges delta into the current attributes and emits
// UpsertSearchAttributes. Applying the same delta twice yields identical
// attribute views and two equivalent commands.
func (s *State) UpsertSearchAttributes(delta map[string]*commonpb.Payload) error {
	if err := s.assertNotFrozen(); err != nil {
		return err
	}
	for k, v := range delta {
		s.searchAttrs[k] = v
	}
	s.appendCommand(coresdk.Command{
		Kind:             coresdk.CommandUpsertSearchAttributes,
		SearchAttributes: &commonpb.SearchAttributes{IndexedFields: cloneFields(delta)},
	})
	return nil
}

func cloneFields(m map[string]*commonpb.Payload) map[string]*commonpb.Payload {
	out := make(map[string]*commonpb.Payload, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ContinueAsNew emits ContinueAsNewWorkflowExecution with the given input,
// memo, and headers.
func (s *State) ContinueAsNew(input []*commonpb.Payload, memo map[string]*commonpb.Payload, headers map[string]*commonpb.Payload) error {
	if err := s.assertNotFrozen(); err != nil {
		return err
	}
	s.appendCommand(coresdk.Command{
		Kind:                 coresdk.CommandContinueAsNewWorkflowExecution,
		ContinueAsNewInput:   input,
		ContinueAsNewMemo:    &commonpb.Memo{Fields: cloneFields(memo)},
		ContinueAsNewHeaders: headers,
	})
	return nil
}

// WorkflowFinished records a successful completion.
func (s *State) WorkflowFinished(result []*commonpb.Payload) {
	s.appendCommand(coresdk.Command{Kind: coresdk.CommandCompleteWorkflowExecution, Result: result})
	s.finished = true
}

// WorkflowFailed records a business failure (TemporalFailure from run or a
// handler).
func (s *State) WorkflowFailed(failure *failurepb.Failure) {
	s.appendCommand(coresdk.Command{Kind: coresdk.CommandFailWorkflowExecution, Failure: failure})
	s.finished = true
}

// WorkflowTaskFailed records a transient activation failure, overriding
// whatever commands were buffered: per the drain contract, Commands()
// returns FailActivation instead of SendCommands whenever this has been
// called since the last drain.
func (s *State) WorkflowTaskFailed(failure *failurepb.Failure) {
	s.activationFailure = failure
}

// appendCommand appends to the command buffer. Callers must have already
// checked assertNotFrozen; appendCommand itself does not, because a few
// finalizers (WorkflowFinished et al.) are legitimately called without the
// side-effecting-API guard (they represent the *result* of code that already
// ran under the normal frozen checks).
func (s *State) appendCommand(c coresdk.Command) {
	s.commands = append(s.commands, c)
}

// DrainResult is returned by Commands.
type DrainResult struct {
	Commands []coresdk.Command
	Failure  *failurepb.Failure
}

// Commands drains the command buffer. Called exactly once per activation by
// the orchestrator. If WorkflowTaskFailed was recorded since the last call,
// the buffered commands are discarded and the failure is returned instead.
func (s *State) Commands() DrainResult {
	if s.activationFailure != nil {
		f := s.activationFailure
		s.activationFailure = nil
		s.commands = nil
		return DrainResult{Failure: f}
	}
	cmds := s.commands
	s.commands = nil
	return DrainResult{Commands: cmds}
}

// HandlerStarted increments the active-handler count. Call at signal/update
// dispatch.
func (s *State) HandlerStarted() {
	s.activeHandlers++
	s.startedHandlers++
}

// HandlerFinished decrements the active-handler count, regardless of the
// handler's outcome.
func (s *State) HandlerFinished() {
	s.activeHandlers--
	s.finishedHandlers++
}

// AllHandlersFinished reports active_handler_count == 0.
func (s *State) AllHandlersFinished() bool { return s.activeHandlers == 0 }

// HandlerCountInvariant reports whether active_handlers == started - finished,
// the quantified invariant from §8.
func (s *State) HandlerCountInvariant() bool {
	return s.activeHandlers == s.startedHandlers-s.finishedHandlers
}

// sortedKeys returns m's keys in ascending order, for deterministic
// set-valued ordering (§8 invariant 2).
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
