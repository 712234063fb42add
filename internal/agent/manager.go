package agent

import "sync"

// Manager owns the live controllers, one per session id. Controllers are
// created lazily on first connect and kept for the process lifetime; their
// in-memory mirrors are bounded by the history limit and the store reaper
// handles durable expiry.
type Manager struct {
	mu          sync.Mutex
	controllers map[string]*Controller
	build       func(sessionID string) *Controller
}

// NewManager creates a manager that builds controllers with build.
func NewManager(build func(sessionID string) *Controller) *Manager {
	return &Manager{
		controllers: make(map[string]*Controller),
		build:       build,
	}
}

// Get returns the controller for sessionID, creating it if needed. Concurrent
// calls for the same id observe the same controller.
func (m *Manager) Get(sessionID string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.controllers[sessionID]; ok {
		return c
	}
	c := m.build(sessionID)
	m.controllers[sessionID] = c
	return c
}
