package reactive

import (
	"testing"
	"time"
)

func TestEffectRunsImmediately(t *testing.T) {
	ran := 0
	CreateEffect(func() Cleanup {
		ran++
		return nil
	})

	if ran != 1 {
		t.Errorf("effect should run once on creation, ran %d times", ran)
	}
}

func TestEffectRerunsOnDependencyChange(t *testing.T) {
	owner := NewOwner(nil)
	defer owner.Dispose()

	count := NewSignal(0)
	seen := []int{}

	WithOwner(owner, func() {
		CreateEffect(func() Cleanup {
			seen = append(seen, count.Get())
			return nil
		})
	})

	count.Set(1)
	owner.RunPendingEffects()
	count.Set(2)
	owner.RunPendingEffects()

	if len(seen) != 3 || seen[0] != 0 || seen[1] != 1 || seen[2] != 2 {
		t.Errorf("expected [0 1 2], got %v", seen)
	}
}

func TestEffectCleanupRunsBeforeRerun(t *testing.T) {
	owner := NewOwner(nil)
	defer owner.Dispose()

	count := NewSignal(0)
	var order []string

	WithOwner(owner, func() {
		CreateEffect(func() Cleanup {
			v := count.Get()
			order = append(order, "run")
			return func() {
				order = append(order, "cleanup")
				_ = v
			}
		})
	})

	count.Set(1)
	owner.RunPendingEffects()

	want := []string{"run", "cleanup", "run"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestOwnerDisposeStopsEffects(t *testing.T) {
	owner := NewOwner(nil)
	count := NewSignal(0)
	runs := 0

	WithOwner(owner, func() {
		CreateEffect(func() Cleanup {
			_ = count.Get()
			runs++
			return nil
		})
	})

	owner.Dispose()

	count.Set(1)
	owner.RunPendingEffects()

	if runs != 1 {
		t.Errorf("disposed effect must not re-run, ran %d times", runs)
	}
}

func TestOwnerCleanupOrder(t *testing.T) {
	owner := NewOwner(nil)
	var order []int

	owner.OnCleanup(func() { order = append(order, 1) })
	owner.OnCleanup(func() { order = append(order, 2) })

	owner.Dispose()

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("cleanups should run in reverse order, got %v", order)
	}
}

func TestOnCleanupAfterDisposeRunsImmediately(t *testing.T) {
	owner := NewOwner(nil)
	owner.Dispose()

	ran := false
	owner.OnCleanup(func() { ran = true })
	if !ran {
		t.Error("OnCleanup on a disposed owner should run immediately")
	}
}

func TestChildOwnerDisposedWithParent(t *testing.T) {
	parent := NewOwner(nil)
	child := NewOwner(parent)

	parent.Dispose()

	if !child.IsDisposed() {
		t.Error("child owner should be disposed with parent")
	}
}

func TestBatchCoalescesNotifications(t *testing.T) {
	a := NewSignal(0)
	b := NewSignal(0)
	listener := newTestListener()

	WithListener(listener, func() {
		_ = a.Get()
		_ = b.Get()
	})

	Batch(func() {
		a.Set(1)
		b.Set(1)
		a.Set(2)
	})

	if listener.getDirtyCount() != 1 {
		t.Errorf("batched writes should notify once, got %d", listener.getDirtyCount())
	}
}

func TestTimeoutFiresOnDispatcher(t *testing.T) {
	fired := make(chan struct{})
	disp := DispatchFunc(func(fn func()) { fn() })

	Timeout(5*time.Millisecond, disp, func() {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timeout callback never fired")
	}
}

func TestTimeoutCancel(t *testing.T) {
	fired := make(chan struct{}, 1)
	disp := DispatchFunc(func(fn func()) { fn() })

	cancel := Timeout(10*time.Millisecond, disp, func() {
		fired <- struct{}{}
	})
	cancel()

	select {
	case <-fired:
		t.Fatal("cancelled timeout must not fire")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestIntervalTicksUntilCancelled(t *testing.T) {
	ticks := make(chan struct{}, 16)
	disp := DispatchFunc(func(fn func()) { fn() })

	cancel := Interval(5*time.Millisecond, disp, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})

	<-ticks
	<-ticks
	cancel()
}
