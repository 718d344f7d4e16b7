package reactive

// Listener is anything that can be notified when a dependency changes.
// Effects implement it; tests may provide their own.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies changed.
	// For effects this schedules a re-run on the owner's pending queue.
	MarkDirty()

	// ID returns a unique identifier for this listener, used for
	// deduplication when subscribing and when draining batches.
	ID() uint64
}

// Cleanup is returned by effects to release resources. It runs before the
// effect re-runs and when the effect is disposed.
type Cleanup func()

// Dispatcher marshals a function onto the event loop that owns a piece of
// reactive state. Implementations must run dispatched functions one at a
// time; they may run them inline if the caller already serializes access.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatchFunc adapts a plain function to the Dispatcher interface.
type DispatchFunc func(fn func())

func (f DispatchFunc) Dispatch(fn func()) { f(fn) }
