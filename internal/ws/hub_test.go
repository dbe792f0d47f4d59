package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

func testHub(t *testing.T) *Hub {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	hub := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.done
	})

	return hub
}

func serve(t *testing.T, hub *Hub) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		NewClient(hub, conn).Serve(r.Context())
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn) Event {
	t.Helper()

	_, msg, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var evt Event
	if err := json.Unmarshal(msg, &evt); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}

	return evt
}

func TestHub_ReplayOnSubscribe(t *testing.T) {
	hub := testHub(t)
	url := serve(t, hub)

	hub.GraphReloaded(ReloadedData{Epoch: 1, TotalParcels: 4, TotalConnections: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow() //nolint:errcheck // test teardown

	sub, _ := json.Marshal(SubscribeMsg{Type: "subscribe"})
	if err := conn.Write(ctx, websocket.MessageText, sub); err != nil {
		t.Fatalf("write: %v", err)
	}

	evt := readEvent(ctx, t, conn)
	if evt.Type != EventGraphReloaded || evt.ID != 1 {
		t.Fatalf("event = %+v", evt)
	}

	var data ReloadedData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Epoch != 1 || data.TotalParcels != 4 || data.TotalConnections != 2 {
		t.Fatalf("data = %+v", data)
	}
}

func TestHub_LiveBroadcast(t *testing.T) {
	hub := testHub(t)
	url := serve(t, hub)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow() //nolint:errcheck // test teardown

	for hub.ClientCount() != 1 {
		select {
		case <-ctx.Done():
			t.Fatal("client never registered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	hub.GraphReloaded(ReloadedData{Epoch: 7})

	evt := readEvent(ctx, t, conn)
	if evt.Type != EventGraphReloaded {
		t.Fatalf("type = %q", evt.Type)
	}
}

func TestHub_ReplayTooOld(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	hub := NewHub(log)
	for range defaultBufferMaxLen + 50 {
		hub.BroadcastEvent(EventGraphReloaded, json.RawMessage(`{}`))
	}

	c := &Client{hub: hub, send: make(chan []byte, 2*defaultBufferMaxLen)}

	if hub.ReplayEvents(c, 10) {
		t.Fatal("replay from evicted id should fail")
	}

	if !hub.ReplayEvents(c, 50) {
		t.Fatal("replay from last evicted id should succeed")
	}
	if len(c.send) != defaultBufferMaxLen {
		t.Fatalf("replayed %d events, want %d", len(c.send), defaultBufferMaxLen)
	}
}
