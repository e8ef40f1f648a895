package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/paperdesk/sim-engine/internal/engine"
)

func waitForClients(t *testing.T, hub *WSHub, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, got %d", want, hub.ClientCount())
}

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func TestWSHub_BroadcastReachesClient(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn := dialHub(t, srv)
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.BroadcastEvent(engine.Event{Type: engine.EventPortfolioReset})

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var ev engine.Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if ev.Type != engine.EventPortfolioReset {
		t.Errorf("expected %s event, got %s", engine.EventPortfolioReset, ev.Type)
	}
}

func TestWSHub_DisconnectedClientRemoved(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn := dialHub(t, srv)
	waitForClients(t, hub, 1)

	conn.Close()

	// Broadcasting while the read pump unregisters the dead connection
	// exercises removal from both the broadcast path and the unregister
	// path; the client set must end empty either way.
	deadline := time.Now().Add(3 * time.Second)
	for hub.ClientCount() > 0 && time.Now().Before(deadline) {
		hub.BroadcastEvent(engine.Event{Type: engine.EventOrderUpdate})
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("disconnected client still registered")
	}
}
