package ws

import (
	"testing"
	"time"
)

func TestEventBuffer_SinceAndTrim(t *testing.T) {
	eb := NewEventBuffer(3, time.Hour)
	for i := uint64(1); i <= 5; i++ {
		eb.Append(&Event{Type: EventGraphReloaded, ID: i, Time: time.Now()})
	}

	if got := eb.OldestID(); got != 3 {
		t.Fatalf("OldestID = %d, want 3", got)
	}

	events := eb.Since(3)
	if len(events) != 2 || events[0].ID != 4 || events[1].ID != 5 {
		t.Fatalf("Since(3) = %+v, want ids 4,5", events)
	}

	if events := eb.Since(5); events != nil {
		t.Fatalf("Since(5) = %+v, want nil", events)
	}
}

func TestEventBuffer_EvictsByAge(t *testing.T) {
	eb := NewEventBuffer(10, time.Minute)
	eb.Append(&Event{ID: 1, Time: time.Now().Add(-2 * time.Minute)})
	eb.Append(&Event{ID: 2, Time: time.Now()})

	if got := eb.OldestID(); got != 2 {
		t.Fatalf("OldestID = %d, want 2", got)
	}
}

func TestEventBuffer_Empty(t *testing.T) {
	eb := NewEventBuffer(10, time.Minute)
	if eb.OldestID() != 0 || eb.Since(0) != nil {
		t.Fatal("empty buffer should report nothing")
	}
}
