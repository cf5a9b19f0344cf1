package converter

import (
	"errors"

	"go.temporal.io/sdk/temporal"
)

// IsTemporalFailure reports whether err is one of the Temporal Go SDK's
// typed business-failure errors (ApplicationError, CanceledError,
// TimeoutError, TerminatedError, ServerError, ChildWorkflowExecutionError,
// ActivityError) as opposed to an arbitrary Go error. The orchestrator's
// top-level error categorization (§7) uses this to decide between
// FailWorkflowExecution and workflow_task_failed.
func IsTemporalFailure(err error) bool {
	if err == nil {
		return false
	}
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return true
	}
	var canceledErr *temporal.CanceledError
	if errors.As(err, &canceledErr) {
		return true
	}
	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	var terminatedErr *temporal.TerminatedError
	if errors.As(err, &terminatedErr) {
		return true
	}
	var serverErr *temporal.ServerError
	if errors.As(err, &serverErr) {
		return true
	}
	var childErr *temporal.ChildWorkflowExecutionError
	if errors.As(err, &childErr) {
		return true
	}
	var activityErr *temporal.ActivityError
	if errors.As(err, &activityErr) {
		return true
	}
	return false
}
