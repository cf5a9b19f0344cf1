package instance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	commonpb "go.temporal.io/api/common/v1"
	"google.golang.org/protobuf/proto"

	"goa.design/wfcore/coresdk"
	"goa.design/wfcore/interceptor"
	"goa.design/wfcore/registry"
	"goa.design/wfcore/telemetry"
	"goa.design/wfcore/workflow"
)

// TestProcessActivation_ReplayIsDeterministic exercises §8 invariant 2: two
// independent Instances fed the exact same (state, jobs) sequence emit
// identical command batches, including the protobuf-typed payload fields
// (compared with proto.Equal rather than pointer or reflect.DeepEqual
// identity, since two independently decoded Payloads are distinct pointers
// to value-equal messages).
func TestProcessActivation_ReplayIsDeterministic(t *testing.T) {
	t.Parallel()

	newDef := func() *registry.WorkflowDefinition {
		return &registry.WorkflowDefinition{
			Name: "DeterministicReplay",
			Run: func(ctx *workflow.Context, input []*commonpb.Payload) ([]*commonpb.Payload, error) {
				if err := ctx.Sleep(5 * time.Second); err != nil {
					return nil, err
				}
				return input, nil
			},
		}
	}

	run := func(runID string) []coresdk.Command {
		inst := New(newDef(), interceptor.New(nil, nil), telemetry.NewNoopLogger())
		c1 := inst.ProcessActivation(initActivation(runID, "DeterministicReplay"))
		c2 := inst.ProcessActivation(coresdk.Activation{
			RunID: runID,
			Jobs:  []coresdk.Job{{Kind: coresdk.JobFireTimer, Seq: 0}},
		})
		return append(c1.Commands, c2.Commands...)
	}

	original := run("replay-original")
	replayed := run("replay-again")

	require.Equal(t, len(original), len(replayed))
	for i := range original {
		require.Equal(t, original[i].Kind, replayed[i].Kind, "command %d kind diverged on replay", i)
		require.True(t, payloadsEqual(original[i].Result, replayed[i].Result),
			"command %d result payloads diverged on replay", i)
	}
}

func payloadsEqual(a, b []*commonpb.Payload) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !proto.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
