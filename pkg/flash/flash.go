package flash

import (
	"time"

	"github.com/dropkit-go/dropkit/pkg/reactive"
)

// DefaultDismissAfter is how long a message stays visible before it is
// cleared automatically.
const DefaultDismissAfter = 4000 * time.Millisecond

// Flash holds at most one user-facing message with auto-dismiss. Setting a
// message (re)starts the dismissal timer; a newer message replaces the old
// one and restarts the countdown. A stale timer never clears a newer
// message: each Set bumps a generation counter and the timer callback only
// clears when its generation is still current.
//
// All methods except Message must be called on the dispatcher's event loop.
type Flash struct {
	disp  reactive.Dispatcher
	after time.Duration

	msg *reactive.Signal[string]

	// gen and cancel are only touched on the owning loop.
	gen    uint64
	cancel reactive.Cleanup
}

// New creates a Flash that dismisses messages after the given duration,
// delivering the dismissal on disp. A non-positive duration means
// DefaultDismissAfter.
func New(disp reactive.Dispatcher, after time.Duration) *Flash {
	if after <= 0 {
		after = DefaultDismissAfter
	}
	return &Flash{
		disp:  disp,
		after: after,
		msg:   reactive.NewSignal(""),
	}
}

// Set replaces the current message and restarts the dismissal timer.
func (f *Flash) Set(message string) {
	f.msg.Set(message)

	f.gen++
	gen := f.gen

	if f.cancel != nil {
		f.cancel()
	}
	f.cancel = reactive.Timeout(f.after, f.disp, func() {
		// A newer Set invalidated this timer.
		if f.gen != gen {
			return
		}
		f.cancel = nil
		f.msg.Set("")
	})
}

// Clear cancels any pending dismissal and empties the message.
func (f *Flash) Clear() {
	f.gen++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.msg.Set("")
}

// Message returns the current message and whether one is set. Reading
// inside a tracked context subscribes to changes.
func (f *Flash) Message() (string, bool) {
	m := f.msg.Get()
	return m, m != ""
}

// Dispose cancels the timer. Must be called on teardown so an expiring
// timer cannot act on a torn-down state container.
func (f *Flash) Dispose() {
	f.gen++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}
