package resolve

import "sync"

// Session holds the last known service and environment for the running
// application instance. It replaces bare module-level state: the engine
// owns one Session and threads it through resolution and configuration
// changes. The zero value is a valid, unset session.
type Session struct {
	mu          sync.RWMutex
	service     string
	environment string
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}

// Touch records the most recent (service, environment) selection. Called
// on every successful save, load, switch, and auto-resolution.
func (s *Session) Touch(service, environment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if service != "" {
		s.service = service
	}
	if environment != "" {
		s.environment = environment
	}
}

// Service returns the last known service name, or "".
func (s *Session) Service() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.service
}

// Environment returns the last known environment, or "".
func (s *Session) Environment() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.environment
}

// Reset clears the session.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.service = ""
	s.environment = ""
}
