package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

type countingPurger struct {
	calls atomic.Int32
}

func (p *countingPurger) PurgeExpired() int {
	p.calls.Add(1)
	return 0
}

func TestAddPurge_BadSpec(t *testing.T) {
	m := New()
	if err := m.AddPurge("not a cron spec", &countingPurger{}); err == nil {
		t.Fatal("expected error for malformed spec")
	}
}

func TestAddPurge_RunsOnSchedule(t *testing.T) {
	m := New()
	p := &countingPurger{}
	if err := m.AddPurge("@every 10ms", p); err != nil {
		t.Fatalf("AddPurge: %v", err)
	}

	m.Start()
	defer m.Stop()

	deadline := time.After(2 * time.Second)
	for p.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("purge job never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStop_Waits(t *testing.T) {
	m := New()
	if err := m.AddPurge("@hourly", &countingPurger{}); err != nil {
		t.Fatalf("AddPurge: %v", err)
	}
	m.Start()
	m.Stop() // must return promptly with no job mid-flight

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Stop did not return")
	}
}
