package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/marketfeed/internal/cache/memory"
	"github.com/alanyoungcy/marketfeed/internal/domain"
)

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func TestHubForwardsBusMessages(t *testing.T) {
	bus := memory.NewSignalBus()
	hub := NewHub(bus, nil, slog.New(slog.NewJSONHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.clientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	// Run subscribes asynchronously; publish until the frame arrives.
	report := []byte(`{"runId":"run-1","stored":3}`)
	got := make(chan []byte, 1)
	go func() {
		_, msg, err := conn.ReadMessage()
		if err == nil {
			got <- msg
		}
	}()

	var frame []byte
	for frame == nil && time.Now().Before(deadline) {
		bus.Publish(ctx, domain.ChannelSyncCompleted, report)
		select {
		case frame = <-got:
		case <-time.After(20 * time.Millisecond):
		}
	}
	if frame == nil {
		t.Fatal("no frame received")
	}

	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if env.Type != domain.ChannelSyncCompleted || !strings.Contains(string(env.Payload), "run-1") {
		t.Errorf("frame = %s", frame)
	}
}

func TestIsSubscribed(t *testing.T) {
	c := &client{subs: map[string]bool{"sync.completed": true, "sync.*": true}}
	tests := map[string]bool{
		"sync.completed": true,
		"sync.failed":    true,
		"other":          false,
	}
	for channel, want := range tests {
		if got := c.isSubscribed(channel); got != want {
			t.Errorf("isSubscribed(%q) = %v, want %v", channel, got, want)
		}
	}

	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{"sync.*"}})
	if c.isSubscribed("sync.failed") {
		t.Error("still subscribed after unsubscribe")
	}
}
