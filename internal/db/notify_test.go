package db

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

func quietLog() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

func TestChangeListener_DebouncesBursts(t *testing.T) {
	var reloads atomic.Int32
	done := make(chan struct{}, 4)

	l := NewChangeListener(quietLog(), nil, "navgraph_changes", ReloaderFunc(func(context.Context) error {
		reloads.Add(1)
		done <- struct{}{}
		return nil
	}), 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go l.debounce(ctx)

	for range 50 {
		l.handle(&pgconn.Notification{Channel: "navgraph_changes", Payload: `{"table":"parcels","op":"save","parcel_id":"P1"}`})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reload never triggered")
	}

	// Wait past another quiet period to catch a second, unwanted reload.
	time.Sleep(100 * time.Millisecond)

	if got := reloads.Load(); got != 1 {
		t.Errorf("reloads = %d, want 1 for one burst", got)
	}

	l.Notify()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second burst did not reload")
	}
}

func TestChangeListener_IgnoresGarbage(t *testing.T) {
	l := NewChangeListener(quietLog(), nil, "navgraph_changes", ReloaderFunc(func(context.Context) error { return nil }), 0)

	l.handle(&pgconn.Notification{Payload: "not json"})

	select {
	case <-l.changes:
		t.Error("undecodable payload must not schedule a reload")
	default:
	}

	if l.quiet != DefaultQuietPeriod {
		t.Errorf("quiet = %v, want default", l.quiet)
	}
}

func TestNextBackoff(t *testing.T) {
	for _, cur := range []time.Duration{initialBackoff, 10 * time.Second, maxBackoff} {
		next := nextBackoff(cur)
		want := min(cur*backoffMultiplier, maxBackoff)

		if next < want*3/4 || next > want*5/4 {
			t.Errorf("nextBackoff(%v) = %v, want within 25%% of %v", cur, next, want)
		}
	}
}

func TestSchemaVersion(t *testing.T) {
	if v := SchemaVersion(); v != 3 {
		t.Errorf("SchemaVersion = %d, want 3", v)
	}
}
