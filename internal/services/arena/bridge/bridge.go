// Package bridge connects live sessions to LLM agents: it schedules agent
// turns on phase entry, builds role-scoped prompts, parses replies into
// action submissions, and keeps at most one generation in flight per
// participant.
package bridge

import (
	"context"
	"math/rand"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/arena/internal/platform/id"
	"github.com/louisbranch/arena/internal/services/arena/domain/definition"
	"github.com/louisbranch/arena/internal/services/arena/domain/participant"
	"github.com/louisbranch/arena/internal/services/arena/domain/projection"
	"github.com/louisbranch/arena/internal/services/arena/domain/session"
	"github.com/louisbranch/arena/internal/services/arena/storage"
)

// maxStaggerMillis bounds the random delay before an agent turn starts, so
// agents in the same phase do not reply in lockstep.
const maxStaggerMillis = 1000

// TaskCallbacks receive transport-level task events.
type TaskCallbacks struct {
	OnChunk    func(content string)
	OnComplete func(reply string)
	OnError    func(err error)
}

// AgentTransport delivers generation tasks to remote agents.
type AgentTransport interface {
	// IsReachable reports whether the agent can currently receive tasks.
	IsReachable(ctx context.Context, agentID string) bool
	// SendTask starts a generation task. Tools mirror the prompt's action
	// list as schemas for transports that expose a tool-calling surface.
	// The returned cancel aborts the task; the transport stops invoking
	// callbacks once cancel returns.
	SendTask(ctx context.Context, agentID, taskID, prompt string, tools []*mcp.Tool, callbacks TaskCallbacks) (cancel func(), err error)
}

// NopTransport reports every agent unreachable. Deployments without an
// agent connection layer wire it so agent seats simply idle.
type NopTransport struct{}

// IsReachable implements AgentTransport.
func (NopTransport) IsReachable(context.Context, string) bool { return false }

// SendTask implements AgentTransport.
func (NopTransport) SendTask(context.Context, string, string, string, []*mcp.Tool, TaskCallbacks) (func(), error) {
	return func() {}, nil
}

// ActionSubmitter routes a parsed agent action into the engine pipeline.
type ActionSubmitter interface {
	SubmitAgentAction(ctx context.Context, sessionID, participantID, action string, params map[string]any) error
}

// Bridge implements the engine's TurnScheduler for agent-driven seats.
type Bridge struct {
	stores    storage.Stores
	transport AgentTransport
	submitter ActionSubmitter
	tasks     *taskRegistry

	stagger     func() time.Duration
	schedule    func(d time.Duration, fn func())
	idGenerator func() (string, error)
}

// Option customizes bridge construction.
type Option func(*Bridge)

// WithStagger sets the pre-turn delay source.
func WithStagger(stagger func() time.Duration) Option {
	return func(b *Bridge) { b.stagger = stagger }
}

// WithScheduleFunc sets how delayed turns are scheduled.
func WithScheduleFunc(schedule func(d time.Duration, fn func())) Option {
	return func(b *Bridge) { b.schedule = schedule }
}

// WithIDGenerator sets the task id source.
func WithIDGenerator(generator func() (string, error)) Option {
	return func(b *Bridge) { b.idGenerator = generator }
}

// New constructs a bridge over the given stores, transport, and submitter.
func New(stores storage.Stores, transport AgentTransport, submitter ActionSubmitter, opts ...Option) *Bridge {
	bridge := &Bridge{
		stores:    stores,
		transport: transport,
		submitter: submitter,
		tasks:     newTaskRegistry(),
		stagger: func() time.Duration {
			return time.Duration(rand.Intn(maxStaggerMillis)) * time.Millisecond
		},
		schedule: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
		idGenerator: id.NewID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(bridge)
		}
	}
	return bridge
}

// OnPhaseEntered schedules a staggered turn for every agent-driven seat.
// It returns immediately; turns run after their stagger elapses so the
// engine never blocks on agent traffic.
func (b *Bridge) OnPhaseEntered(ctx context.Context, sessionID, phase string) {
	members, err := b.stores.Participants.ListParticipantsBySession(ctx, sessionID)
	if err != nil {
		return
	}
	for _, member := range members {
		if member.ControlMode == participant.ModeHuman || member.AgentID == "" {
			continue
		}
		participantID := member.ID
		b.schedule(b.stagger(), func() {
			b.runTurn(context.Background(), sessionID, participantID, phase)
		})
	}
}

// CancelTurn aborts a participant's in-flight generation. Control-mode
// takeovers call this so a reply generated for a surrendered seat is
// dropped.
func (b *Bridge) CancelTurn(participantID string) {
	b.tasks.cancel(participantID)
}

// TurnInFlight reports whether a participant has a pending generation.
func (b *Bridge) TurnInFlight(participantID string) bool {
	return b.tasks.inFlight(participantID)
}

// runTurn builds the prompt and dispatches one generation task. The
// session is revalidated first: a turn scheduled before a transition or
// takeover silently expires.
func (b *Bridge) runTurn(ctx context.Context, sessionID, participantID, phase string) {
	sessRecord, err := b.stores.Sessions.GetSession(ctx, sessionID)
	if err != nil || sessRecord.Status != session.StatusActive || sessRecord.CurrentPhase != phase {
		return
	}
	member, err := b.stores.Participants.GetParticipant(ctx, sessionID, participantID)
	if err != nil || member.ControlMode == participant.ModeHuman || member.AgentID == "" {
		return
	}
	defRecord, err := b.stores.Definitions.GetDefinition(ctx, sessRecord.DefinitionID)
	if err != nil {
		return
	}
	def, err := definition.Parse(defRecord.Document)
	if err != nil {
		return
	}

	role, _ := def.Role(member.Role)
	view, err := projection.Project(sessRecord.State, member.Role, def)
	if err != nil {
		return
	}
	actions := participant.FilterAgentActions(def.AvailableActions(phase, member.Role), member.ControlMode)

	prompt, err := BuildPrompt(PromptInput{
		Definition:    def,
		Role:          role,
		Phase:         phase,
		ParticipantID: member.ID,
		View:          view,
		Actions:       actions,
	})
	if err != nil {
		return
	}
	tools, err := Tools(actions)
	if err != nil {
		return
	}

	if !b.transport.IsReachable(ctx, member.AgentID) {
		return
	}

	taskID, err := b.idGenerator()
	if err != nil {
		return
	}
	b.tasks.begin(participantID, taskID)

	cancel, err := b.transport.SendTask(ctx, member.AgentID, taskID, prompt, tools, TaskCallbacks{
		OnComplete: func(reply string) {
			if !b.tasks.finish(participantID, taskID) {
				return
			}
			submission, ok := ParseReply(reply)
			if !ok {
				// Conversational reply; nothing to submit.
				return
			}
			_ = b.submitter.SubmitAgentAction(context.Background(), sessionID, participantID, submission.Action, submission.Params)
		},
		OnError: func(error) {
			b.tasks.finish(participantID, taskID)
		},
	})
	if err != nil {
		b.tasks.finish(participantID, taskID)
		return
	}
	b.tasks.setCancel(participantID, taskID, cancel)
}
