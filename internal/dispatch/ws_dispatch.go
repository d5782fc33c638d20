package dispatch

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/ride-companion/internal/models"
)

// WSSession represents one connected viewer socket.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// WSRegistry holds viewer sockets grouped by role. Each role receives its
// own projection of session events; the registry never feeds input back into
// the session (non-passenger roles are read-only observers).
type WSRegistry struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	sessions map[models.Role]map[*WSSession]struct{}
}

func NewWSRegistry(logger *slog.Logger) *WSRegistry {
	return &WSRegistry{
		logger:   logger,
		sessions: make(map[models.Role]map[*WSSession]struct{}),
	}
}

func (r *WSRegistry) Add(role models.Role, conn *websocket.Conn) *WSSession {
	s := &WSSession{conn: conn}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[role] == nil {
		r.sessions[role] = make(map[*WSSession]struct{})
	}
	r.sessions[role][s] = struct{}{}
	return s
}

func (r *WSRegistry) Remove(role models.Role, s *WSSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions[role], s)
	_ = s.conn.Close()
}

// Broadcast fans a per-role payload out to every socket of that role.
// Failed sockets are dropped; delivery is best-effort.
func (r *WSRegistry) Broadcast(project func(role models.Role) any) {
	r.mu.RLock()
	type target struct {
		role models.Role
		s    *WSSession
	}
	var targets []target
	for role, set := range r.sessions {
		for s := range set {
			targets = append(targets, target{role, s})
		}
	}
	r.mu.RUnlock()

	var dead []target
	for _, t := range targets {
		if err := t.s.Send(project(t.role)); err != nil {
			r.logger.Warn("ws send failed", "role", t.role, "error", err)
			dead = append(dead, t)
		}
	}
	for _, t := range dead {
		r.Remove(t.role, t.s)
	}
}
