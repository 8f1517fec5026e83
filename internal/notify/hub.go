// Package notify pushes schedule changes to browsers watching an event.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type MessageType string

const (
	ScheduleUpdated MessageType = "SCHEDULE_UPDATED"
	MatchesUpdated  MessageType = "MATCHES_UPDATED"
	MatchFinalized  MessageType = "MATCH_FINALIZED"
	// Something the host has to act on
	HostAlert MessageType = "HOST_ALERT"
)

type Message struct {
	Type    MessageType `json:"type"`
	EventID uuid.UUID   `json:"eventId"`
	Payload any         `json:"payload"`
}

type Alert struct {
	Code    string     `json:"code"`
	Message string     `json:"message"`
	MatchID *uuid.UUID `json:"matchId,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub keeps one room of clients per event.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *slog.Logger

	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*Client]bool
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
		rooms:      make(map[uuid.UUID]map[*Client]bool),
	}
}

// Run owns client registration until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			n := len(h.rooms[client.room])
			h.mu.Unlock()
			h.logger.Debug("client joined", "event_id", client.room, "clients", n)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for _, clients := range h.rooms {
				for client := range clients {
					h.remove(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.room]
	if !ok || !clients[client] {
		return
	}
	close(client.send)
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.rooms, client.room)
	}
	h.logger.Debug("client left", "event_id", client.room, "clients", len(clients))
}

// Publish sends msg to every client watching eventID. Slow clients miss messages
// rather than block the caller.
func (h *Hub) Publish(eventID uuid.UUID, msg Message) {
	msg.EventID = eventID
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", "event_id", eventID, "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[eventID] {
		select {
		case client.send <- payload:
		default:
			h.logger.Warn("client send buffer full, dropping message", "event_id", eventID, "type", msg.Type)
		}
	}
}

func (h *Hub) RoomSize(eventID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}

// ServeWS upgrades the request and subscribes the connection to eventID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, eventID uuid.UUID) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Warn("websocket upgrade failed", "event_id", eventID, "error", err)
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), room: eventID}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
