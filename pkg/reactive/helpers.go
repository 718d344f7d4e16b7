package reactive

import (
	"sync/atomic"
	"time"
)

// Timeout schedules fn to run once on disp's event loop after d. The
// returned Cleanup cancels the timer; after cancellation fn never fires,
// even if the underlying timer already expired.
//
//	cancel := reactive.Timeout(4*time.Second, disp, func() {
//	    message.Set("")
//	})
func Timeout(d time.Duration, disp Dispatcher, fn func()) Cleanup {
	var fired atomic.Bool
	timer := time.AfterFunc(d, func() {
		if fired.CompareAndSwap(false, true) {
			disp.Dispatch(fn)
		}
	})

	return func() {
		fired.Store(true)
		timer.Stop()
	}
}

// Interval schedules fn to run on disp's event loop every d until the
// returned Cleanup is called.
func Interval(d time.Duration, disp Dispatcher, fn func()) Cleanup {
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				disp.Dispatch(fn)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}
