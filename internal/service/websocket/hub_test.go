package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"zonewatch/internal/logger"
	"zonewatch/internal/metrics"

	"github.com/gorilla/websocket"
)

func startHub(t *testing.T) (*HubService, *httptest.Server, *metrics.Metrics) {
	t.Helper()
	mt := metrics.New()
	hub := NewHubService(logger.NewDiscard(), mt)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := &Client{Conn: conn, Camera: r.URL.Query().Get("camera")}
		hub.Register(client)
		defer hub.Unregister(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return hub, server, mt
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *HubService, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, hub.GetClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubService_Broadcast(t *testing.T) {
	hub, server, mt := startHub(t)
	conn := dial(t, server, "")
	waitForClients(t, hub, 1)

	if mt.ActiveViewers.Load() != 1 {
		t.Errorf("expected 1 active viewer, got %d", mt.ActiveViewers.Load())
	}

	hub.Broadcast([]byte(`{"type":"detections"}`), "porch")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != `{"type":"detections"}` {
		t.Errorf("unexpected message %s", msg)
	}
}

func TestHubService_CameraFilter(t *testing.T) {
	hub, server, _ := startHub(t)
	garage := dial(t, server, "?camera=garage")
	waitForClients(t, hub, 1)

	hub.Broadcast([]byte("porch"), "porch")
	hub.Broadcast([]byte("garage"), "garage")

	garage.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := garage.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != "garage" {
		t.Errorf("filtered client received %q", msg)
	}
}

func TestHubService_Unregister(t *testing.T) {
	hub, server, mt := startHub(t)
	conn := dial(t, server, "")
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
	if mt.ActiveViewers.Load() != 0 {
		t.Errorf("expected 0 active viewers, got %d", mt.ActiveViewers.Load())
	}
}
