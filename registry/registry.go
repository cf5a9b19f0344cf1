// Package registry implements the Handler Registry (C6): the worker-startup
// index of signal, query, and update definitions per workflow type, plus
// registered Nexus services. It is built once, before any activation is
// processed, and is read-only thereafter.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/nexus-rpc/sdk-go/nexus"
	"github.com/santhosh-tekuri/jsonschema/v6"
	commonpb "go.temporal.io/api/common/v1"

	"goa.design/wfcore/telemetry"
	"goa.design/wfcore/workflow"
)

// WorkflowFunc is a registered workflow type's entry point: it receives the
// decoded InitializeWorkflow args and runs to completion (or suspension)
// against ctx, returning the result payloads the orchestrator hands to
// WorkflowFinished.
type WorkflowFunc func(ctx *workflow.Context, input []*commonpb.Payload) ([]*commonpb.Payload, error)

// HandlerFunc invokes a registered signal/query/update handler against the
// decoded input, returning the decoded output (nil for signals) or an
// error. Handlers are registered once at worker startup and reach per-run
// state through ctx.Bound(), the value the workflow's Run method binds via
// ctx.Bind(self) (§9 "task-local context" design note) — the same pattern
// the Temporal Go SDK uses for workflow.SetQueryHandler closures, adapted
// here to a statically-registered handler table instead of dynamic
// per-run registration.
type HandlerFunc func(ctx *workflow.Context, input any) (output any, err error)

// Definition describes one signal, query, or update handler.
type Definition struct {
	Name        string
	Description string
	Handler     HandlerFunc
	// Schema optionally validates decoded-but-not-yet-interceptor-wrapped
	// input before Handler runs. A nil Schema skips validation entirely.
	Schema *jsonschema.Schema
}

// WorkflowDefinition is everything the registry needs to know about one
// registered workflow type.
type WorkflowDefinition struct {
	Name    string
	Run     WorkflowFunc
	Signals []Definition
	Queries []Definition
	Updates []Definition
}

// Registry indexes workflow type definitions by name and validates
// uniqueness at construction, matching the worker-startup contract in §4.6.
type Registry struct {
	workflows     map[string]*WorkflowDefinition
	nexusServices map[string]*nexus.Service
}

// New builds a Registry from defs, rejecting duplicate workflow type names.
// A duplicate is a fatal configuration error reported with the duplicated
// `workflow.type`, matching the boundary behavior in §8.
func New(logger telemetry.Logger, defs []WorkflowDefinition) (*Registry, error) {
	r := &Registry{
		workflows:     make(map[string]*WorkflowDefinition),
		nexusServices: make(map[string]*nexus.Service),
	}
	for i := range defs {
		d := defs[i]
		if _, exists := r.workflows[d.Name]; exists {
			logger.Info(context.Background(), "duplicate workflow type registered", "workflow.type", d.Name)
			return nil, fmt.Errorf("registry: duplicate workflow type %q", d.Name)
		}
		r.workflows[d.Name] = &d
	}
	return r, nil
}

// RegisterNexusService adds a Nexus service available to Instances created
// from this registry. Mirrors the worker-level `RegisterNexusService`
// pattern in the Temporal Go SDK.
func (r *Registry) RegisterNexusService(svc *nexus.Service) error {
	if _, exists := r.nexusServices[svc.Name]; exists {
		return fmt.Errorf("registry: duplicate nexus service %q", svc.Name)
	}
	r.nexusServices[svc.Name] = svc
	return nil
}

// Workflow looks up a registered workflow type by name.
func (r *Registry) Workflow(name string) (*WorkflowDefinition, bool) {
	d, ok := r.workflows[name]
	return d, ok
}

// Signal looks up a signal definition by name within a workflow type.
func (wd *WorkflowDefinition) Signal(name string) (Definition, bool) {
	for _, d := range wd.Signals {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Query looks up a query definition by name within a workflow type.
func (wd *WorkflowDefinition) Query(name string) (Definition, bool) {
	for _, d := range wd.Queries {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Update looks up an update definition by name within a workflow type.
func (wd *WorkflowDefinition) Update(name string) (Definition, bool) {
	for _, d := range wd.Updates {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Metadata is the response shape for the built-in
// __temporal_workflow_metadata query: the definition lists sorted by name.
type Metadata struct {
	Signals        []MetadataEntry
	Queries        []MetadataEntry
	Updates        []MetadataEntry
	CurrentDetails string
}

// MetadataEntry names one handler and its optional human-readable
// description.
type MetadataEntry struct {
	Name        string
	Description string
}

// BuildMetadata returns wd's handler lists sorted by name, as required by
// the built-in metadata query (§4.5 step 2, §6).
func (wd *WorkflowDefinition) BuildMetadata(currentDetails string) Metadata {
	m := Metadata{CurrentDetails: currentDetails}
	for _, d := range wd.Signals {
		m.Signals = append(m.Signals, MetadataEntry{Name: d.Name, Description: d.Description})
	}
	for _, d := range wd.Queries {
		m.Queries = append(m.Queries, MetadataEntry{Name: d.Name, Description: d.Description})
	}
	for _, d := range wd.Updates {
		m.Updates = append(m.Updates, MetadataEntry{Name: d.Name, Description: d.Description})
	}
	sortEntries(m.Signals)
	sortEntries(m.Queries)
	sortEntries(m.Updates)
	return m
}

func sortEntries(entries []MetadataEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
}

// KnownQueryNames returns wd's registered query names sorted, used to build
// the "unknown query type" activation-failure message (§8 boundary
// behaviors).
func (wd *WorkflowDefinition) KnownQueryNames() []string {
	names := make([]string, 0, len(wd.Queries))
	for _, d := range wd.Queries {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

// ValidateInput validates raw (already-JSON-decoded-to-any) input against
// def.Schema, if one is configured. A nil Schema always succeeds.
func (def Definition) ValidateInput(raw any) error {
	if def.Schema == nil {
		return nil
	}
	if err := def.Schema.Validate(raw); err != nil {
		return fmt.Errorf("registry: input for %q failed schema validation: %w", def.Name, err)
	}
	return nil
}
