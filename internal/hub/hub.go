package hub

import (
	"fmt"
	"log/slog"
	"sync"
)

// RoomAllCouriers is the office room observing every courier.
const RoomAllCouriers = "office.couriers.locations"

// PackageRoom derives the room name for a package so that independent
// joins for the same package converge on one room.
func PackageRoom(packageID int64) string {
	return fmt.Sprintf("merchant.package.%d.location", packageID)
}

// Hub owns the room membership tables and the courier registry. All
// mutations are serialized; readers never observe a partial update.
type Hub struct {
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[*Session]struct{}
	rooms    map[string]map[*Session]struct{}
	member   map[*Session]map[string]struct{}
	couriers map[int64]*Session
}

// Stats provides counts for the health endpoint.
type Stats struct {
	Sessions int
	Rooms    int
	Couriers int
}

// New creates an empty hub.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:   logger,
		sessions: make(map[*Session]struct{}),
		rooms:    make(map[string]map[*Session]struct{}),
		member:   make(map[*Session]map[string]struct{}),
		couriers: make(map[int64]*Session),
	}
}

// Add registers a new live session with the hub.
func (h *Hub) Add(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s] = struct{}{}
}

// Remove drops a session from every room and clears its courier
// registry entry, then closes it. Tolerates sessions that were never
// added or never registered as a courier.
func (h *Hub) Remove(s *Session) {
	h.mu.Lock()
	for room := range h.member[s] {
		delete(h.rooms[room], s)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.member, s)
	delete(h.sessions, s)

	for courierID, sess := range h.couriers {
		if sess == s {
			delete(h.couriers, courierID)
		}
	}
	h.mu.Unlock()

	s.Close()
}

// BindCourier records the session as a courier's uplink. A new binding
// for the same courier silently replaces the prior one; the prior
// session is not closed.
func (h *Hub) BindCourier(courierID int64, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.couriers[courierID] = s
}

// Courier returns the current uplink session for a courier.
func (h *Hub) Courier(courierID int64) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.couriers[courierID]
	return s, ok
}

// Join adds the session to a room. Idempotent.
func (h *Hub) Join(s *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Session]struct{})
	}
	h.rooms[room][s] = struct{}{}

	if h.member[s] == nil {
		h.member[s] = make(map[string]struct{})
	}
	h.member[s][room] = struct{}{}
}

// Leave removes the session from a room. No-op when not a member.
func (h *Hub) Leave(s *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.rooms[room], s)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
	delete(h.member[s], room)
}

// Publish delivers a payload to every current member of a room and
// returns the number of sessions it was enqueued to. Members joining
// after the call do not receive the payload.
func (h *Hub) Publish(room string, payload []byte) int {
	h.mu.RLock()
	members := make([]*Session, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		members = append(members, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range members {
		if s.Send(payload) {
			delivered++
		} else {
			h.logger.Debug("dropped payload for slow or closed session",
				"session_id", s.ID(),
				"room", room,
			)
		}
	}
	return delivered
}

// Stats returns current hub counts.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{
		Sessions: len(h.sessions),
		Rooms:    len(h.rooms),
		Couriers: len(h.couriers),
	}
}
