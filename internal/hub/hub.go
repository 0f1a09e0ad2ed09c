package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"socialgraph/backend/internal/observability"
	"socialgraph/backend/internal/relation"
)

// Event represents a real-time event to be sent to clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Client represents a single live session of a user.
// The websocket handler drains it and writes each frame to the socket.
type Client chan []byte

// Hub tracks the live sessions of every connected user.
type Hub struct {
	users   map[uuid.UUID]map[Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *observability.RelationMetrics
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *observability.RelationMetrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		users:   make(map[uuid.UUID]map[Client]bool),
		logger:  logger,
		metrics: metrics,
	}
}

var _ relation.Notifier = (*Hub)(nil)

// Subscribe registers a session for userID.
func (h *Hub) Subscribe(userID uuid.UUID, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[Client]bool)
	}
	h.users[userID][client] = true
	h.metrics.ConnectionOpened()
}

// Unsubscribe removes a session and closes its channel.
func (h *Hub) Unsubscribe(userID uuid.UUID, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.users[userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client)
			h.metrics.ConnectionClosed()
			if len(clients) == 0 {
				delete(h.users, userID)
			}
		}
	}
}

// Online reports whether userID has at least one live session.
func (h *Hub) Online(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// Broadcast sends an event to every session of userID and returns how many
// sessions accepted it.
func (h *Hub) Broadcast(userID uuid.UUID, event Event) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.users[userID]
	if !ok {
		return 0, nil
	}

	messageBytes, err := json.Marshal(event)
	if err != nil {
		return 0, err
	}

	sent := 0
	for client := range clients {
		// A full buffer means a slow reader; drop rather than block the caller.
		select {
		case client <- messageBytes:
			sent++
		default:
			h.logger.Warn("Dropping event for slow client", "user_id", userID, "event_type", event.Type)
		}
	}
	return sent, nil
}

// Notify implements relation.Notifier.
func (h *Hub) Notify(_ context.Context, userID uuid.UUID, eventType string, payload any) error {
	sent, err := h.Broadcast(userID, Event{Type: eventType, Payload: payload})
	if err != nil {
		return err
	}
	if sent == 0 {
		return relation.ErrRecipientOffline
	}
	return nil
}
