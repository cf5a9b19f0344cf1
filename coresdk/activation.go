// Package coresdk defines the wire-level data model exchanged between the
// bridge and the replay engine: activations carrying jobs in, completions
// carrying commands out. Payload, Failure, Memo, and SearchAttributes reuse
// go.temporal.io/api's protobuf types directly so values round-trip through
// the same wire shapes the real service uses; the envelope types
// (Activation, Job, Command, Completion) are plain Go structs because the
// core-sdk bridge protobuf schema itself is out of scope here.
package coresdk

import (
	"time"

	commonpb "go.temporal.io/api/common/v1"
	failurepb "go.temporal.io/api/failure/v1"
)

// Activation is one batch of jobs advancing a single workflow run.
type Activation struct {
	RunID                   string
	Timestamp               time.Time
	IsReplaying             bool
	HistoryLength           int64
	HistorySizeBytes        int64
	ContinueAsNewSuggested  bool
	Jobs                    []Job
}

// JobKind discriminates the Job variants named in the specification.
type JobKind int

const (
	JobInitializeWorkflow JobKind = iota
	JobFireTimer
	JobResolveActivity
	JobResolveChildStart
	JobResolveChildResult
	JobResolveExternalSignal
	JobSignalWorkflow
	JobQueryWorkflow
	JobDoUpdate
	JobNotifyHasPatch
	JobUpdateRandomSeed
	JobCancelWorkflow
	JobRemoveFromCache
	JobResolveNexusOperationStart
	JobResolveNexusOperation
)

// Job is a tagged union over the job variants the bridge may deliver. Only
// the fields relevant to Kind are populated; callers must switch on Kind.
type Job struct {
	Kind JobKind

	// JobInitializeWorkflow
	WorkflowType    string
	Args            []*commonpb.Payload
	Memo            *commonpb.Memo
	SearchAttrs     *commonpb.SearchAttributes
	RandomnessSeed  uint64
	Headers         map[string]*commonpb.Payload
	RetryPolicy     *RetryPolicy

	// Sequence-addressed resolutions (FireTimer, ResolveActivity, ...)
	Seq uint32

	// ResolveActivity / ResolveChildResult
	ActivityResult *ActivityResolution

	// ResolveChildStart
	ChildRunID  string
	ChildFailed *failurepb.Failure

	// ResolveExternalSignal / ResolveNexusOperationStart
	Failure *failurepb.Failure

	// ResolveNexusOperationStart
	NexusOperationToken string
	NexusSyncResult     []*commonpb.Payload

	// ResolveNexusOperation
	NexusResult []*commonpb.Payload

	// SignalWorkflow
	SignalName  string
	SignalInput []*commonpb.Payload

	// QueryWorkflow
	QueryID    string
	QueryType  string
	QueryInput []*commonpb.Payload

	// DoUpdate
	UpdateID       string
	UpdateName     string
	UpdateInput    []*commonpb.Payload
	RunValidator   bool

	// NotifyHasPatch
	PatchID string
}

// RetryPolicy mirrors the subset of retry configuration the state machine
// needs to know about (e.g. to decide local-activity backoff rescheduling).
type RetryPolicy struct {
	InitialInterval    time.Duration
	BackoffCoefficient float64
	MaximumInterval    time.Duration
	MaximumAttempts    int32
}

// ActivityResolutionKind discriminates how a pending activity/Nexus
// operation resolved.
type ActivityResolutionKind int

const (
	ActivityCompleted ActivityResolutionKind = iota
	ActivityFailed
	ActivityCancelled
	ActivityBackoff
)

// ActivityResolution is the resolved outcome of a scheduled activity, child
// result, or Nexus operation.
type ActivityResolution struct {
	Kind    ActivityResolutionKind
	Result  []*commonpb.Payload
	Failure *failurepb.Failure

	// ActivityBackoff (local activities only)
	Attempt             int32
	OriginalScheduleTime time.Time
}
