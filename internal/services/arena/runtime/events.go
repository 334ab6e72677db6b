package runtime

import (
	"context"

	"github.com/louisbranch/arena/internal/services/arena/domain/gamestate"
	"github.com/louisbranch/arena/internal/services/arena/economy"
)

// EventType labels a broadcast event.
type EventType string

const (
	// EventStateUpdate signals the session state changed within a phase.
	EventStateUpdate EventType = "state_update"
	// EventPhaseTransition signals the phase pointer moved.
	EventPhaseTransition EventType = "phase_transition"
	// EventSessionFinished signals the session ended.
	EventSessionFinished EventType = "session_finished"
)

// Event is one broadcast to session subscribers. State carries the full
// blob; transports apply role projection per subscriber before delivery.
type Event struct {
	Type         EventType
	SessionID    string
	State        gamestate.State
	CurrentPhase string

	// Phase transition fields.
	From string
	To   string

	// Session finished fields.
	WinningRole string
	Winners     []string // participant IDs
	Payouts     []economy.Payout
}

// Broadcaster fans events out to session subscribers. Implementations must
// not block; the engine calls Broadcast while holding the session lock.
type Broadcaster interface {
	Broadcast(ctx context.Context, event Event)
}

// NopBroadcaster discards events. Useful for tools that replay sessions
// without live subscribers.
type NopBroadcaster struct{}

// Broadcast implements Broadcaster.
func (NopBroadcaster) Broadcast(context.Context, Event) {}
