package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	commonpb "go.temporal.io/api/common/v1"

	"goa.design/wfcore/coresdk"
	"goa.design/wfcore/interceptor"
	"goa.design/wfcore/registry"
	"goa.design/wfcore/telemetry"
	"goa.design/wfcore/workflow"
)

// countingMetrics records every IncCounter call so tests can assert the
// Driver actually emits one per processed activation.
type countingMetrics struct {
	telemetry.NoopMetrics
	counts map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counts: make(map[string]int)}
}

func (m *countingMetrics) IncCounter(name string, value float64, tags ...string) {
	m.counts[name]++
}

func TestDriver_RunEmitsOneActivationMetricPerActivation(t *testing.T) {
	t.Parallel()

	def := registry.WorkflowDefinition{
		Name: "Echo",
		Run: func(ctx *workflow.Context, input []*commonpb.Payload) ([]*commonpb.Payload, error) {
			return input, nil
		},
	}
	reg, err := registry.New(telemetry.NewNoopLogger(), []registry.WorkflowDefinition{def})
	require.NoError(t, err)

	mb := NewMemoryBridge(4)
	metrics := newCountingMetrics()
	driver := NewDriver(mb, reg, interceptor.New(nil, nil), telemetry.NewNoopLogger(), metrics, WorkerConfig{TaskQueue: "test-queue"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- driver.Run(ctx) }()

	mb.PushActivation(coresdk.Activation{
		RunID:     "run-1",
		Timestamp: time.Unix(0, 0),
		Jobs: []coresdk.Job{
			{Kind: coresdk.JobInitializeWorkflow, WorkflowType: "Echo", RandomnessSeed: 1},
		},
	})

	completion := <-mb.Completions()
	require.Nil(t, completion.Failure)

	driver.Shutdown()
	require.NoError(t, <-done)
	cancel()

	require.Equal(t, 1, metrics.counts["workflow_activations_processed"])
}
