// Package session tracks the clients registered with a queue server.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one registered client conversation, from register to
// done/disconnect.
type Session struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Registry is the server's set of live sessions. It has its own lock,
// independent of the queue's; callers must never hold both at once.
type Registry struct {
	mux      sync.RWMutex
	sessions map[string]Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]Session),
	}
}

// Add records a new session and returns it with a fresh id.
func (r *Registry) Add(name, role, remoteAddr string) Session {
	r.mux.Lock()
	defer r.mux.Unlock()

	s := Session{
		ID:          uuid.NewString(),
		Name:        name,
		Role:        role,
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now(),
	}
	r.sessions[s.ID] = s

	return s
}

func (r *Registry) Remove(id string) {
	r.mux.Lock()
	defer r.mux.Unlock()

	delete(r.sessions, id)
}

func (r *Registry) List() []Session {
	r.mux.RLock()
	defer r.mux.RUnlock()

	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Count() int {
	r.mux.RLock()
	defer r.mux.RUnlock()

	return len(r.sessions)
}

func (r *Registry) CountByRole(role string) int {
	r.mux.RLock()
	defer r.mux.RUnlock()

	n := 0
	for _, s := range r.sessions {
		if s.Role == role {
			n++
		}
	}
	return n
}
