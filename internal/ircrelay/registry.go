package ircrelay

import (
	"sync"

	"github.com/google/uuid"
)

// newCorrelationID returns a short id used to tie together log lines for a
// single connection or request across its lifetime.
func newCorrelationID() string {
	return uuid.NewString()[:8]
}

// registry is the daemon's directory of live Sessions, keyed by the
// channel they serve. One Session exists per distinct ChannelKey for as
// long as it has traffic or queued work; getOrCreate adds entries, and the
// reaper and Daemon.Shutdown remove them.
type registry struct {
	mu       sync.Mutex
	sessions map[ChannelKey]*Session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[ChannelKey]*Session)}
}

// getOrCreate returns the Session for key, creating one via newFn if none
// exists yet. newFn runs under the registry lock so two callers racing on
// the same key can never create two Sessions for it.
func (r *registry) getOrCreate(key ChannelKey, newFn func() *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		return s
	}
	s := newFn()
	r.sessions[key] = s
	return s
}

// remove deletes key's Session entry if it still points at s. Guarding on
// identity avoids removing a Session that was already replaced by a
// fresher getOrCreate race.
func (r *registry) remove(key ChannelKey, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[key]; ok && current == s {
		delete(r.sessions, key)
	}
}

// snapshot returns the current set of live Sessions for the shutdown sweep.
func (r *registry) snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// count returns the number of live Sessions, for diagnostics.
func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
