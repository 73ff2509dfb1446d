package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()

	// Wait for registration to land.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	hub.BroadcastEvent("resolution_progress", map[string]interface{}{
		"card_name": "Lightning Bolt",
		"resolved":  true,
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var event Event
	if err := json.Unmarshal(message, &event); err != nil {
		t.Fatalf("Message not JSON: %v", err)
	}
	if event.Type != "resolution_progress" {
		t.Errorf("Type = %q, want \"resolution_progress\"", event.Type)
	}
}

func TestHub_BroadcastWithNoClients(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	// Must not panic or block.
	hub.BroadcastEvent("resolution_progress", map[string]string{"card_name": "Island"})

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", hub.ClientCount())
	}
}
