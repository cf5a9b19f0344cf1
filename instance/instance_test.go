package instance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	commonpb "go.temporal.io/api/common/v1"

	"goa.design/wfcore/converter"
	"goa.design/wfcore/coresdk"
	"goa.design/wfcore/interceptor"
	"goa.design/wfcore/registry"
	"goa.design/wfcore/telemetry"
	"goa.design/wfcore/workflow"
)

func initActivation(runID, workflowType string) coresdk.Activation {
	return coresdk.Activation{
		RunID:     runID,
		Timestamp: time.Unix(0, 0),
		Jobs: []coresdk.Job{
			{Kind: coresdk.JobInitializeWorkflow, WorkflowType: workflowType, RandomnessSeed: 7},
		},
	}
}

// TestProcessActivation_SleepThenActivityRoundTrip exercises S1: sleep(5s)
// then execute an activity, resolving across three activations.
func TestProcessActivation_SleepThenActivityRoundTrip(t *testing.T) {
	t.Parallel()

	def := &registry.WorkflowDefinition{
		Name: "RoundTrip",
		Run: func(ctx *workflow.Context, input []*commonpb.Payload) ([]*commonpb.Payload, error) {
			if err := ctx.Sleep(5 * time.Second); err != nil {
				return nil, err
			}
			var out string
			err := ctx.ExecuteActivity(workflow.ActivityOptions{ActivityType: "A", Input: input}, &out)
			if err != nil {
				return nil, err
			}
			return nil, nil
		},
	}
	inst := New(def, interceptor.New(nil, nil), telemetry.NewNoopLogger())

	c1 := inst.ProcessActivation(initActivation("run-1", "RoundTrip"))
	require.Nil(t, c1.Failure)
	require.Len(t, c1.Commands, 1)
	require.Equal(t, coresdk.CommandStartTimer, c1.Commands[0].Kind)

	c2 := inst.ProcessActivation(coresdk.Activation{
		RunID:     "run-1",
		Timestamp: time.Unix(5, 0),
		Jobs:      []coresdk.Job{{Kind: coresdk.JobFireTimer, Seq: 0}},
	})
	require.Nil(t, c2.Failure)
	require.Len(t, c2.Commands, 1)
	require.Equal(t, coresdk.CommandScheduleActivity, c2.Commands[0].Kind)
	require.Equal(t, "A", c2.Commands[0].ActivityType)

	c3 := inst.ProcessActivation(coresdk.Activation{
		RunID:     "run-1",
		Timestamp: time.Unix(6, 0),
		Jobs: []coresdk.Job{{
			Kind: coresdk.JobResolveActivity,
			Seq:  0,
			ActivityResult: &coresdk.ActivityResolution{
				Kind: coresdk.ActivityCompleted,
			},
		}},
	})
	require.Nil(t, c3.Failure)
	require.Len(t, c3.Commands, 1)
	require.Equal(t, coresdk.CommandCompleteWorkflowExecution, c3.Commands[0].Kind)
}

// workflowState is the per-run struct bound via ctx.Bind, mirroring S2's
// query/signal interaction against shared run-local state.
type workflowState struct {
	value string
}

func TestProcessActivation_SignalThenQueryObservesUpdatedState(t *testing.T) {
	t.Parallel()

	def := &registry.WorkflowDefinition{
		Name: "StateMachine",
		Run: func(ctx *workflow.Context, input []*commonpb.Payload) ([]*commonpb.Payload, error) {
			ws := &workflowState{value: "initial"}
			ctx.Bind(ws)
			err := ctx.Condition(func() bool { return ws.value == "finished" })
			return nil, err
		},
		Queries: []registry.Definition{
			{Name: "state", Handler: func(ctx *workflow.Context, input any) (any, error) {
				ws := ctx.Bound().(*workflowState)
				return ws.value, nil
			}},
		},
		Signals: []registry.Definition{
			{Name: "update", Handler: func(ctx *workflow.Context, input any) (any, error) {
				ws := ctx.Bound().(*workflowState)
				ws.value = input.(string)
				return nil, nil
			}},
		},
	}
	inst := New(def, interceptor.New(nil, nil), telemetry.NewNoopLogger())

	c1 := inst.ProcessActivation(initActivation("run-2", "StateMachine"))
	require.Nil(t, c1.Failure)

	c2 := inst.ProcessActivation(coresdk.Activation{
		RunID: "run-2",
		Jobs: []coresdk.Job{
			{Kind: coresdk.JobQueryWorkflow, QueryID: "q1", QueryType: "state"},
		},
	})
	require.Nil(t, c2.Failure)
	require.Len(t, c2.Commands, 1)
	require.True(t, c2.Commands[0].QuerySucceed)

	signalPayload := encode(t, "updated")
	c3 := inst.ProcessActivation(coresdk.Activation{
		RunID: "run-2",
		Jobs: []coresdk.Job{
			{Kind: coresdk.JobSignalWorkflow, SignalName: "update", SignalInput: []*commonpb.Payload{signalPayload}},
		},
	})
	require.Nil(t, c3.Failure)

	finishPayload := encode(t, "finished")
	c4 := inst.ProcessActivation(coresdk.Activation{
		RunID: "run-2",
		Jobs: []coresdk.Job{
			{Kind: coresdk.JobSignalWorkflow, SignalName: "update", SignalInput: []*commonpb.Payload{finishPayload}},
		},
	})
	require.Nil(t, c4.Failure)
	var sawComplete bool
	for _, cmd := range c4.Commands {
		if cmd.Kind == coresdk.CommandCompleteWorkflowExecution {
			sawComplete = true
		}
	}
	require.True(t, sawComplete, "condition on value==finished should resume and complete the run")
}

func encode(t *testing.T, v string) *commonpb.Payload {
	t.Helper()
	p, err := converter.ToPayload(v)
	require.NoError(t, err)
	return p
}
