package scheduler

import (
	"testing"
	"time"
)

func TestEngineEmitsInDueOrder(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC()
	if err := engine.Arm(ScheduleDueEvent{ScheduleID: "later", DueAt: now.Add(80 * time.Millisecond)}); err != nil {
		t.Fatalf("arm later: %v", err)
	}
	if err := engine.Arm(ScheduleDueEvent{ScheduleID: "sooner", DueAt: now.Add(20 * time.Millisecond)}); err != nil {
		t.Fatalf("arm sooner: %v", err)
	}

	first := waitEvent(t, engine.C(), time.Second)
	second := waitEvent(t, engine.C(), time.Second)
	if first.ScheduleID != "sooner" || second.ScheduleID != "later" {
		t.Fatalf("unexpected order: first=%s second=%s", first.ScheduleID, second.ScheduleID)
	}
}

func TestEngineNonBlockingDropsWhenConsumerIsSlow(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC().Add(20 * time.Millisecond)
	for i := 0; i < 25; i++ {
		if err := engine.Arm(ScheduleDueEvent{
			ScheduleID: "sched",
			DueAt:      now,
		}); err != nil {
			t.Fatalf("arm event: %v", err)
		}
	}

	time.Sleep(120 * time.Millisecond)
	if engine.Dropped() == 0 {
		t.Fatalf("expected dropped events > 0, got %d", engine.Dropped())
	}
}

func TestArmValidatesDueTime(t *testing.T) {
	engine := NewEngine(1)
	if err := engine.Arm(ScheduleDueEvent{ScheduleID: "bad"}); err != ErrInvalidDueTime {
		t.Fatalf("expected ErrInvalidDueTime, got %v", err)
	}
}

func waitEvent(t *testing.T, ch <-chan ScheduleDueEvent, timeout time.Duration) ScheduleDueEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
		return ScheduleDueEvent{}
	}
}
