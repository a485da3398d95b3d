package websocket

import (
	"context"
	"sync"
	"time"

	"zonewatch/internal/logger"
	"zonewatch/internal/metrics"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	broadcastQueue = 64
)

// Client is a live view connection. An empty Camera receives every camera.
type Client struct {
	Conn   *websocket.Conn
	Camera string
}

type message struct {
	payload []byte
	camera  string
}

// HubService fans live messages out to connected viewers. Only the Run
// goroutine writes to connections.
type HubService struct {
	clients    map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewHubService(logger *logger.Logger, metrics *metrics.Metrics) *HubService {
	return &HubService{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan message, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
		metrics:    metrics,
	}
}

// Run serves the hub until ctx is canceled, then closes every client.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				h.remove(client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			if h.metrics != nil {
				h.metrics.ActiveViewers.Add(1)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client connected. Total: %d", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			h.remove(client)
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client disconnected. Total: %d", total)

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if client.Camera != "" && client.Camera != msg.camera {
					continue
				}
				client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.Conn.WriteMessage(websocket.TextMessage, msg.payload); err != nil {
					h.logger.Error("Error sending message: %v", err)
					h.remove(client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// remove must be called with the mutex held.
func (h *HubService) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	client.Conn.Close()
	if h.metrics != nil {
		h.metrics.ActiveViewers.Add(-1)
	}
}

func (h *HubService) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Conn.Close()
	}
}

func (h *HubService) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for viewers of camera. When the queue is full
// the message is dropped so the producer never waits on slow viewers.
func (h *HubService) Broadcast(payload []byte, camera string) {
	select {
	case h.broadcast <- message{payload: payload, camera: camera}:
	default:
		h.logger.Warning("⚠️  Live view queue full - dropping message for camera %s", camera)
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
