package runtime

import (
	"sync"
	"time"
)

// stopFunc cancels a pending timer. It reports whether the timer was still
// pending when stopped.
type stopFunc func() bool

// TimerRegistry tracks at most one pending phase timer per session. Arming
// a session that already has a timer replaces it, so a phase change always
// supersedes the previous deadline.
type TimerRegistry struct {
	mu      sync.Mutex
	pending map[string]stopFunc

	// afterFunc schedules a callback; tests swap it for a manual trigger.
	afterFunc func(d time.Duration, fire func()) stopFunc

	// observe, when set, sees every Arm call with its fire func. Only
	// manual registries use it.
	observe func(sessionID string, d time.Duration, fire func())
}

// NewTimerRegistry returns a registry backed by real timers.
func NewTimerRegistry() *TimerRegistry {
	return &TimerRegistry{
		pending: make(map[string]stopFunc),
		afterFunc: func(d time.Duration, fire func()) stopFunc {
			timer := time.AfterFunc(d, fire)
			return timer.Stop
		},
	}
}

// NewManualTimerRegistry returns a registry whose timers never fire on
// their own. The observe callback sees every Arm call so tests can capture
// the fire function and trigger expiry deterministically.
func NewManualTimerRegistry(observe func(sessionID string, d time.Duration, fire func())) *TimerRegistry {
	registry := &TimerRegistry{pending: make(map[string]stopFunc)}
	registry.afterFunc = func(d time.Duration, fire func()) stopFunc {
		return func() bool { return true }
	}
	registry.observe = observe
	return registry
}

// Arm schedules fire after d for the session, replacing any pending timer.
func (r *TimerRegistry) Arm(sessionID string, d time.Duration, fire func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stop, ok := r.pending[sessionID]; ok {
		stop()
	}
	if r.observe != nil {
		r.observe(sessionID, d, fire)
	}
	r.pending[sessionID] = r.afterFunc(d, fire)
}

// Clear cancels the pending timer for a session, if any.
func (r *TimerRegistry) Clear(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stop, ok := r.pending[sessionID]; ok {
		stop()
		delete(r.pending, sessionID)
	}
}

// Pending reports whether a session has an armed timer.
func (r *TimerRegistry) Pending(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[sessionID]
	return ok
}
