package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Registry holds one Controller per user, enforcing that a user has at most
// one live session (and therefore at most one open attempt) at a time.
type Registry struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]*Controller

	collab Collaborators
	opts   Options
	log    zerolog.Logger
}

// NewRegistry creates a Registry that builds controllers with the given
// collaborators and options.
func NewRegistry(collab Collaborators, opts Options, log zerolog.Logger) *Registry {
	return &Registry{
		byUser: make(map[uuid.UUID]*Controller),
		collab: collab,
		opts:   opts,
		log:    log,
	}
}

// Obtain returns the user's controller, creating an idle one if absent.
func (r *Registry) Obtain(userID uuid.UUID) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.byUser[userID]; ok {
		return c
	}
	c := NewController(userID, r.collab, r.opts, r.log)
	r.byUser[userID] = c
	return c
}

// Shutdown stops all timers. Called during graceful shutdown.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byUser {
		c.timer.Stop()
	}
}
