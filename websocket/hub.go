package websocket

import (
	"sync"
	"time"

	"sonora/types"

	"go.uber.org/zap"
)

// Hub interface defines the methods for managing WebSocket connections
type Hub interface {
	Run()
	BroadcastProgress(jobID, msgType, status, currentFile, message string, progress float64)
	Emit(event string, payload any)
	RegisterClient(client *Client)
	UnregisterClient(client *Client)
}

// hub maintains the set of active clients and broadcasts messages to them
type hub struct {
	// Registered clients mapped by topic (job id, "all" or "events")
	clients map[string]map[*Client]bool

	broadcast  chan types.Message
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) Hub {
	return &hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan types.Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run starts the hub's main event loop
func (h *hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.topic] == nil {
				h.clients[client.topic] = make(map[*Client]bool)
			}
			h.clients[client.topic][client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", zap.String("topic", client.topic))

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.topic]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.topic)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected", zap.String("topic", client.topic))

		case message := <-h.broadcast:
			h.mu.Lock()
			h.deliver(message.Topic, message)
			// "all" clients see every message
			if message.Topic != types.TopicAll {
				h.deliver(types.TopicAll, message)
			}
			h.mu.Unlock()
		}
	}
}

// deliver must be called with h.mu held
func (h *hub) deliver(topic string, message types.Message) {
	clients, ok := h.clients[topic]
	if !ok {
		return
	}
	for client := range clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(clients, client)
		}
	}
	if len(clients) == 0 {
		delete(h.clients, topic)
	}
}

func (h *hub) enqueue(message types.Message) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("websocket broadcast channel full, dropping message", zap.String("topic", message.Topic))
	}
}

// BroadcastProgress sends a progress message to all clients of a specific job
func (h *hub) BroadcastProgress(jobID, msgType, status, currentFile, message string, progress float64) {
	h.enqueue(types.Message{
		Topic: jobID,
		Progress: &types.ProgressMessage{
			JobID:       jobID,
			Type:        msgType,
			Progress:    progress,
			Status:      status,
			CurrentFile: currentFile,
			Message:     message,
			Timestamp:   time.Now(),
		},
	})
}

// Emit sends an application event to "events" subscribers
func (h *hub) Emit(event string, payload any) {
	h.enqueue(types.Message{
		Topic: types.TopicEvents,
		Event: &types.Event{
			Name:      event,
			Payload:   payload,
			Timestamp: time.Now(),
		},
	})
}

// RegisterClient registers a new client with the hub
func (h *hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient unregisters a client from the hub
func (h *hub) UnregisterClient(client *Client) {
	h.unregister <- client
}
