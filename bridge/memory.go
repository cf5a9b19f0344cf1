package bridge

import (
	"context"
	"sync"

	"goa.design/wfcore/coresdk"
)

// MemoryBridge is a deterministic, channel-backed in-process Bridge suitable
// for unit and scenario tests: PushActivation feeds it the way the real
// core-sdk bridge would deliver server-sent activations, and Completions
// exposes what the driver sent back so a test can assert on it.
type MemoryBridge struct {
	activations chan coresdk.Activation
	completions chan coresdk.Completion

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// NewMemoryBridge constructs a MemoryBridge with the given channel buffer
// size (applied to both the activation and completion channels).
func NewMemoryBridge(buffer int) *MemoryBridge {
	return &MemoryBridge{
		activations: make(chan coresdk.Activation, buffer),
		completions: make(chan coresdk.Completion, buffer),
		shutdown:    make(chan struct{}),
	}
}

// PushActivation enqueues an activation for delivery to the next
// PollWorkflowActivation call. Blocks if the buffer is full.
func (m *MemoryBridge) PushActivation(a coresdk.Activation) {
	m.activations <- a
}

// PollWorkflowActivation blocks until an activation is available, ctx is
// cancelled, or shutdown has been initiated.
func (m *MemoryBridge) PollWorkflowActivation(ctx context.Context) (coresdk.Activation, error) {
	select {
	case a := <-m.activations:
		return a, nil
	case <-m.shutdown:
		return coresdk.Activation{}, ErrShutdown
	case <-ctx.Done():
		return coresdk.Activation{}, ctx.Err()
	}
}

// CompleteWorkflowActivation records completion for retrieval via
// Completions. Blocks if the buffer is full.
func (m *MemoryBridge) CompleteWorkflowActivation(ctx context.Context, completion coresdk.Completion) error {
	select {
	case m.completions <- completion:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Completions returns the channel of completions sent by the driver, in the
// order CompleteWorkflowActivation was called.
func (m *MemoryBridge) Completions() <-chan coresdk.Completion {
	return m.completions
}

// InitiateShutdown causes all blocked and future PollWorkflowActivation
// calls to return ErrShutdown. Safe to call more than once.
func (m *MemoryBridge) InitiateShutdown() {
	m.shutdownOnce.Do(func() { close(m.shutdown) })
}

// FinalizeShutdown is a no-op for MemoryBridge: there is no external
// connection to tear down.
func (m *MemoryBridge) FinalizeShutdown() {}
