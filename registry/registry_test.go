package registry

import (
	"testing"

	"github.com/nexus-rpc/sdk-go/nexus"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/require"

	"goa.design/wfcore/telemetry"
	"goa.design/wfcore/workflow"
)

func TestNew_RejectsDuplicateWorkflowNames(t *testing.T) {
	t.Parallel()

	_, err := New(telemetry.NewNoopLogger(), []WorkflowDefinition{
		{Name: "OrderWorkflow"},
		{Name: "OrderWorkflow"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "OrderWorkflow")
}

func TestBuildMetadata_SortedByName(t *testing.T) {
	t.Parallel()

	wd := WorkflowDefinition{
		Name: "OrderWorkflow",
		Queries: []Definition{
			{Name: "zzz"},
			{Name: "aaa"},
			{Name: "mmm"},
		},
	}
	meta := wd.BuildMetadata("")
	require.Equal(t, []string{"aaa", "mmm", "zzz"}, namesOf(meta.Queries))
}

func namesOf(entries []MetadataEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func TestKnownQueryNames_Sorted(t *testing.T) {
	t.Parallel()

	wd := WorkflowDefinition{Queries: []Definition{{Name: "b"}, {Name: "a"}}}
	require.Equal(t, []string{"a", "b"}, wd.KnownQueryNames())
}

func TestDefinition_ValidateInput(t *testing.T) {
	t.Parallel()

	compiler := jsonschema.NewCompiler()
	require.NoError(t, compiler.AddResource("schema.json", map[string]any{
		"type":     "object",
		"required": []any{"name"},
	}))
	schema, err := compiler.Compile("schema.json")
	require.NoError(t, err)

	def := Definition{Name: "Greet", Schema: schema}

	require.NoError(t, def.ValidateInput(map[string]any{"name": "Ada"}))
	require.Error(t, def.ValidateInput(map[string]any{}))
}

func TestRegisterNexusService_RejectsDuplicateNames(t *testing.T) {
	t.Parallel()

	r, err := New(telemetry.NewNoopLogger(), nil)
	require.NoError(t, err)

	require.NoError(t, r.RegisterNexusService(&nexus.Service{Name: "greeting"}))

	err = r.RegisterNexusService(&nexus.Service{Name: "greeting"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "greeting")
}

func TestWorkflowDefinition_SignalLookup(t *testing.T) {
	t.Parallel()

	called := false
	wd := WorkflowDefinition{
		Signals: []Definition{
			{Name: "update-state", Handler: func(ctx *workflow.Context, input any) (any, error) {
				called = true
				return nil, nil
			}},
		},
	}
	def, ok := wd.Signal("update-state")
	require.True(t, ok)
	_, err := def.Handler(nil, nil)
	require.NoError(t, err)
	require.True(t, called)

	_, ok = wd.Signal("missing")
	require.False(t, ok)
}
