package ws

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Event is the envelope every socket frame carries, both directions.
type Event struct {
	Event   string      `json:"event"`
	TripID  string      `json:"trip_id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// roomMessage targets a room with an event, optionally excluding the sender
// so chat relays do not echo.
type roomMessage struct {
	room   string
	event  Event
	except *Client
}

// Hub maintains the set of active clients and the room membership used for
// trip chat relay and per-user notification push. Each connected user is
// always in their own user room; trip rooms are joined and left explicitly
// by the client.
type Hub struct {
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage
}

// NewHub creates a hub. Call Run in its own goroutine before registering
// clients.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomMessage),
	}
}

// Run processes register/unregister/broadcast requests until the process
// exits. All room map mutation happens on this goroutine or under the mutex.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.joinLocked(userRoom(client.userID), client)
			h.mu.Unlock()
			log.WithField("user_id", client.userID).Debug("Socket connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for room := range h.rooms {
					h.leaveLocked(room, client)
				}
				close(client.send)
			}
			h.mu.Unlock()
			log.WithField("user_id", client.userID).Debug("Socket disconnected")

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.rooms[msg.room] {
				if client == msg.except {
					continue
				}
				select {
				case client.send <- msg.event:
				default:
					// Slow consumer; drop the frame rather than block the hub.
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) joinLocked(room string, client *Client) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
}

func (h *Hub) leaveLocked(room string, client *Client) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// JoinTripRoom subscribes a client to a trip's chat room.
func (h *Hub) JoinTripRoom(tripID string, client *Client) {
	h.mu.Lock()
	h.joinLocked(tripRoom(tripID), client)
	h.mu.Unlock()
}

// LeaveTripRoom unsubscribes a client from a trip's chat room.
func (h *Hub) LeaveTripRoom(tripID string, client *Client) {
	h.mu.Lock()
	h.leaveLocked(tripRoom(tripID), client)
	h.mu.Unlock()
}

// BroadcastToTrip sends an event to everyone in a trip room except the
// originating client (which may be nil).
func (h *Hub) BroadcastToTrip(tripID string, event Event, except *Client) {
	h.broadcast <- roomMessage{room: tripRoom(tripID), event: event, except: except}
}

// SendToUser pushes an event to all of a user's connections. No-op when the
// user is not connected.
func (h *Hub) SendToUser(userID string, event string, payload interface{}) {
	h.broadcast <- roomMessage{room: userRoom(userID), event: Event{Event: event, Payload: payload}}
}

func userRoom(userID string) string { return "user_" + userID }
func tripRoom(tripID string) string { return "trip_" + tripID }
