// Package nav is the navigation collaborator: the SPA-router analogue the
// state managers push redirect targets to.
package nav

import "sync"

// Router receives navigation targets.
type Router interface {
	Push(path string)
}

// Memory records the most recent navigation target so the HTTP surface can
// turn it into a redirect.
type Memory struct {
	mu      sync.Mutex
	current string
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Push(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = path
}

// Take returns the pending target and clears it.
func (m *Memory) Take() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := m.current
	m.current = ""
	return path
}
