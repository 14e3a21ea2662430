// Package session implements the gateway's Session Registry: a process-local,
// in-memory mapping from opaque session id to session metadata, created by
// initialize and consulted by tools/call. Grounded on the teacher's
// sessionLock/lockSession pattern (internal/agent/tool_registry.go), scaled
// down from a refcounted per-session mutex to the registry's own guarded map.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcpgateway/mcpgw/internal/gwerrors"
)

// Session is the registry's record for one initialize()'d client.
type Session struct {
	ID        string
	CreatedAt time.Time
}

// Registry is a guarded map from session id to Session. Operations are
// short: allocate, validate, and destroy never block on I/O (spec.md §5).
type Registry struct {
	mu   sync.RWMutex
	byID map[string]Session

	// Strict requires a known session id on tools/call; when false, an
	// unknown id is auto-created on first use (spec.md §3).
	Strict bool
}

// New builds an empty Registry. strict selects strict vs lenient session
// validation per spec.md §3.
func New(strict bool) *Registry {
	return &Registry{
		byID:   make(map[string]Session),
		Strict: strict,
	}
}

// Allocate creates a new session with a fresh opaque id and returns it.
// Called by the initialize JSON-RPC method.
func (r *Registry) Allocate() Session {
	s := Session{ID: uuid.NewString(), CreatedAt: time.Now()}
	r.mu.Lock()
	r.byID[s.ID] = s
	r.mu.Unlock()
	return s
}

// Validate resolves id to a Session. In strict mode, an empty or unknown id
// is a SessionError. In lenient mode, an empty id is allowed through with
// no session (the caller proceeds without session-scoped state), and an
// unknown non-empty id is auto-created.
func (r *Registry) Validate(id string) (Session, error) {
	if id == "" {
		if r.Strict {
			return Session{}, gwerrors.New(gwerrors.KindSession, "sessionId is required")
		}
		return Session{}, nil
	}

	r.mu.RLock()
	s, ok := r.byID[id]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	if r.Strict {
		return Session{}, gwerrors.New(gwerrors.KindSession, "unknown sessionId: "+id)
	}

	s = Session{ID: id, CreatedAt: time.Now()}
	r.mu.Lock()
	r.byID[id] = s
	r.mu.Unlock()
	return s, nil
}

// Destroy removes a session, e.g. on shutdown of its owning connection.
func (r *Registry) Destroy(id string) {
	r.mu.Lock()
	delete(r.byID, id)
	r.mu.Unlock()
}

// Len reports the number of live sessions, for health/diagnostic reporting.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Clear destroys every session, called on process shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.byID = make(map[string]Session)
	r.mu.Unlock()
}
