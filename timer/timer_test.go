package timer

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestTimerManager_OneShot(t *testing.T) {
	clock := clockwork.NewFakeClock()
	manager := NewTimerManager(clock)

	fired := 0
	manager.AddTimer(time.Second, 0, func() { fired++ })

	manager.RunDue()
	if fired != 0 {
		t.Fatal("Timer should not fire before its delay elapses")
	}

	clock.Advance(time.Second)
	manager.RunDue()
	if fired != 1 {
		t.Fatalf("Expected timer to fire once, got %d", fired)
	}

	// a one-shot task must not reschedule itself
	clock.Advance(time.Second)
	manager.RunDue()
	if fired != 1 {
		t.Fatalf("One-shot timer fired again, got %d", fired)
	}
}

func TestTimerManager_Interval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	manager := NewTimerManager(clock)

	fired := 0
	manager.AddTimer(time.Second, time.Second, func() { fired++ })

	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		manager.RunDue()
	}

	if fired != 3 {
		t.Fatalf("Expected interval timer to fire 3 times, got %d", fired)
	}
}

func TestTimerManager_RemoveTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	manager := NewTimerManager(clock)

	fired := false
	id := manager.AddTimer(time.Second, 0, func() { fired = true })
	manager.RemoveTimer(id)

	clock.Advance(time.Second)
	manager.RunDue()

	if fired {
		t.Fatal("Removed timer should not fire")
	}
}

func TestTimerManager_DueOrder(t *testing.T) {
	clock := clockwork.NewFakeClock()
	manager := NewTimerManager(clock)

	var order []int
	manager.AddTimer(3*time.Second, 0, func() { order = append(order, 3) })
	manager.AddTimer(time.Second, 0, func() { order = append(order, 1) })
	manager.AddTimer(2*time.Second, 0, func() { order = append(order, 2) })

	clock.Advance(3 * time.Second)
	manager.RunDue()

	if len(order) != 3 {
		t.Fatalf("Expected 3 callbacks, got %d", len(order))
	}
	for i, want := range []int{1, 2, 3} {
		if order[i] != want {
			t.Fatalf("Expected execution order [1 2 3], got %v", order)
		}
	}
}

func TestTimerManager_RemoveOneOfMany(t *testing.T) {
	clock := clockwork.NewFakeClock()
	manager := NewTimerManager(clock)

	firedA, firedB := false, false
	idA := manager.AddTimer(time.Second, 0, func() { firedA = true })
	manager.AddTimer(time.Second, 0, func() { firedB = true })

	manager.RemoveTimer(idA)
	clock.Advance(time.Second)
	manager.RunDue()

	if firedA {
		t.Error("Removed timer should not fire")
	}
	if !firedB {
		t.Error("Remaining timer should still fire")
	}
}
