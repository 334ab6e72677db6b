// Package runtime drives live sessions: it owns the action pipeline, the
// phase graph interpreter, phase timers, win evaluation, and settlement.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/arena/internal/platform/id"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/services/arena/domain/condition"
	"github.com/louisbranch/arena/internal/services/arena/domain/definition"
	"github.com/louisbranch/arena/internal/services/arena/domain/gamestate"
	"github.com/louisbranch/arena/internal/services/arena/domain/participant"
	"github.com/louisbranch/arena/internal/services/arena/domain/session"
	"github.com/louisbranch/arena/internal/services/arena/domain/wincon"
	"github.com/louisbranch/arena/internal/services/arena/economy"
	"github.com/louisbranch/arena/internal/services/arena/storage"
)

// TurnScheduler is notified when a session enters a phase so agent turns
// can be kicked off. The bridge implements it; a nil scheduler disables
// agent turns entirely.
type TurnScheduler interface {
	OnPhaseEntered(ctx context.Context, sessionID, phase string)
}

// Engine executes session lifecycles against storage. All state mutation
// for one session happens under that session's lock, so concurrent action
// submissions serialize instead of overwriting each other.
type Engine struct {
	stores      storage.Stores
	broadcaster Broadcaster
	evaluator   condition.Evaluator
	timers      *TimerRegistry
	scheduler   TurnScheduler
	tracer      trace.Tracer
	now         func() time.Time
	idGenerator func() (string, error)

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option customizes engine construction.
type Option func(*Engine)

// WithEvaluator sets the condition evaluation strategy.
func WithEvaluator(evaluator condition.Evaluator) Option {
	return func(e *Engine) { e.evaluator = evaluator }
}

// WithTimers sets the phase timer registry.
func WithTimers(timers *TimerRegistry) Option {
	return func(e *Engine) { e.timers = timers }
}

// WithScheduler sets the agent turn scheduler.
func WithScheduler(scheduler TurnScheduler) Option {
	return func(e *Engine) { e.scheduler = scheduler }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator sets the id source.
func WithIDGenerator(generator func() (string, error)) Option {
	return func(e *Engine) { e.idGenerator = generator }
}

// New constructs an engine over the given stores and broadcaster.
func New(stores storage.Stores, broadcaster Broadcaster, opts ...Option) *Engine {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	engine := &Engine{
		stores:      stores,
		broadcaster: broadcaster,
		evaluator:   condition.LookupEvaluator{},
		timers:      NewTimerRegistry(),
		tracer:      otel.Tracer("arena/runtime"),
		now:         time.Now,
		idGenerator: id.NewID,
		locks:       make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}
	return engine
}

// SetScheduler attaches the agent turn scheduler after construction. The
// scheduler usually needs the action pipeline, which needs the engine, so
// wiring closes the cycle here.
func (e *Engine) SetScheduler(scheduler TurnScheduler) {
	e.scheduler = scheduler
}

func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[sessionID] = lock
	}
	return lock
}

func (e *Engine) loadSession(ctx context.Context, sessionID string) (session.Session, definition.Definition, error) {
	sess, err := e.getSession(ctx, sessionID)
	if err != nil {
		return session.Session{}, definition.Definition{}, err
	}
	def, err := e.loadDefinition(ctx, sess.DefinitionID)
	if err != nil {
		return session.Session{}, definition.Definition{}, err
	}
	return sess, def, nil
}

func (e *Engine) loadDefinition(ctx context.Context, definitionID string) (definition.Definition, error) {
	defRecord, err := e.stores.Definitions.GetDefinition(ctx, definitionID)
	if err != nil {
		return definition.Definition{}, err
	}
	def, err := definition.Parse(defRecord.Document)
	if err != nil {
		return definition.Definition{}, fmt.Errorf("parse stored definition %s: %w", definitionID, err)
	}
	return def, nil
}

func (e *Engine) getSession(ctx context.Context, sessionID string) (session.Session, error) {
	record, err := e.stores.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return session.Session{}, err
	}
	sess := session.Session{
		ID:           record.ID,
		DefinitionID: record.DefinitionID,
		Status:       record.Status,
		CurrentPhase: record.CurrentPhase,
		State:        record.State,
		PrizePool:    record.PrizePool,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
		FinishedAt:   record.FinishedAt,
	}
	return sess, nil
}

func (e *Engine) persistSession(ctx context.Context, sess session.Session) error {
	return e.stores.Sessions.PutSession(ctx, storage.SessionRecord{
		ID:           sess.ID,
		DefinitionID: sess.DefinitionID,
		Status:       sess.Status,
		CurrentPhase: sess.CurrentPhase,
		State:        sess.State,
		PrizePool:    sess.PrizePool,
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.UpdatedAt,
		FinishedAt:   sess.FinishedAt,
	})
}

// StartSession activates a waiting session, enters the first phase, and
// arms its timer.
func (e *Engine) StartSession(ctx context.Context, sessionID string) error {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, def, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	started, err := session.Start(sess, def, e.now)
	if err != nil {
		return err
	}
	if err := e.persistSession(ctx, started); err != nil {
		return err
	}

	e.broadcaster.Broadcast(ctx, Event{
		Type:         EventPhaseTransition,
		SessionID:    started.ID,
		State:        started.State,
		CurrentPhase: started.CurrentPhase,
		To:           started.CurrentPhase,
	})
	e.enterPhase(ctx, started, def)
	return nil
}

// PauseSession suspends an active session and disarms its phase timer.
func (e *Engine) PauseSession(ctx context.Context, sessionID string) error {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, _, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	paused, err := session.Pause(sess, e.now)
	if err != nil {
		return err
	}
	if err := e.persistSession(ctx, paused); err != nil {
		return err
	}
	e.timers.Clear(sessionID)
	return nil
}

// ResumeSession reactivates a paused session. The phase timer restarts
// with the phase's full duration.
func (e *Engine) ResumeSession(ctx context.Context, sessionID string) error {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, def, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	resumed, err := session.Resume(sess, e.now)
	if err != nil {
		return err
	}
	if err := e.persistSession(ctx, resumed); err != nil {
		return err
	}
	e.enterPhase(ctx, resumed, def)
	return nil
}

// RestoreActiveSessions re-arms phase timers for sessions that were active
// when the process last stopped.
func (e *Engine) RestoreActiveSessions(ctx context.Context) error {
	records, err := e.stores.Sessions.ListSessionsByStatus(ctx, session.StatusActive)
	if err != nil {
		return err
	}
	for _, record := range records {
		sess, def, err := e.loadSession(ctx, record.ID)
		if err != nil {
			return fmt.Errorf("restore session %s: %w", record.ID, err)
		}
		e.enterPhase(ctx, sess, def)
	}
	return nil
}

// ActionSubmission is one action attempt routed through the pipeline.
type ActionSubmission struct {
	SessionID     string
	ParticipantID string
	Action        string
	Params        map[string]any
	Actor         participant.ActorKind
}

// ActionResult reports what an accepted action caused.
type ActionResult struct {
	StateChanged    bool
	PhaseTransition bool
	SessionFinished bool
	WinningRole     string
	Winners         []string
}

// ProcessAction validates and applies one action. Validation failures
// return a domain error and leave the session untouched; an accepted
// action is logged in state, journaled, and may trigger a win or a phase
// transition.
func (e *Engine) ProcessAction(ctx context.Context, submission ActionSubmission) (ActionResult, error) {
	ctx, span := e.tracer.Start(ctx, "runtime.process_action", trace.WithAttributes(
		attribute.String("session.id", submission.SessionID),
		attribute.String("action.name", submission.Action),
	))
	defer span.End()

	lock := e.sessionLock(submission.SessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := e.getSession(ctx, submission.SessionID)
	if err != nil {
		return ActionResult{}, err
	}
	if sess.Status != session.StatusActive {
		return ActionResult{}, apperrors.WithMetadata(apperrors.CodeSessionNotActive, "session does not accept actions", map[string]string{"Status": string(sess.Status)})
	}
	def, err := e.loadDefinition(ctx, sess.DefinitionID)
	if err != nil {
		return ActionResult{}, err
	}

	member, err := e.stores.Participants.GetParticipant(ctx, submission.SessionID, submission.ParticipantID)
	if err != nil {
		return ActionResult{}, err
	}

	action, ok := def.Action(submission.Action)
	if !ok {
		return ActionResult{}, apperrors.WithMetadata(apperrors.CodeActionUnknown, "action is not defined", map[string]string{"Action": submission.Action})
	}
	phase, ok := def.Phase(sess.CurrentPhase)
	if !ok {
		return ActionResult{}, apperrors.WithMetadata(apperrors.CodeSessionPhaseUnknown, "session phase is not defined", map[string]string{"Phase": sess.CurrentPhase})
	}
	if err := validatePlacement(phase, action, member.Role); err != nil {
		return ActionResult{}, err
	}
	if err := participant.ValidateAction(action, member.ControlMode, submission.Actor); err != nil {
		return ActionResult{}, err
	}

	// Apply against a clone so a rejected oversize state never leaks into
	// the live session.
	next, err := gamestate.Clone(sess.State)
	if err != nil {
		return ActionResult{}, fmt.Errorf("clone session state: %w", err)
	}
	submittedAt := e.now().UTC()
	gamestate.AppendAction(next, phase.Name, gamestate.ActionEntry{
		ParticipantID: member.ID,
		Action:        action.Name,
		Params:        submission.Params,
		Timestamp:     submittedAt,
	})
	size, err := gamestate.Size(next)
	if err != nil {
		return ActionResult{}, fmt.Errorf("measure session state: %w", err)
	}
	if size > def.MaxStateBytes() {
		return ActionResult{}, apperrors.WithMetadata(apperrors.CodeSessionStateTooLarge, "state exceeds the definition ceiling", map[string]string{
			"Size": fmt.Sprint(size),
			"Max":  fmt.Sprint(def.MaxStateBytes()),
		})
	}

	sess.State = next
	sess.UpdatedAt = submittedAt
	if err := e.persistSession(ctx, sess); err != nil {
		return ActionResult{}, err
	}
	if err := e.journalAction(ctx, sess.ID, member.ID, phase.Name, action.Name, submission.Params, submittedAt); err != nil {
		return ActionResult{}, err
	}

	result := ActionResult{StateChanged: true}

	if winner, won := wincon.Evaluate(def, sess.State, e.evaluator); won {
		finished, err := e.finishSession(ctx, sess, def, winner.Role)
		if err != nil {
			return ActionResult{}, err
		}
		result.SessionFinished = true
		result.WinningRole = winner.Role
		result.Winners = finished
		return result, nil
	}

	if phase.TransitionCondition != "" {
		satisfied, evalErr := e.evaluator.Evaluate(phase.TransitionCondition, sess.State)
		if evalErr == nil && satisfied {
			transitioned, err := e.advancePhase(ctx, sess, def, phase)
			if err != nil {
				return ActionResult{}, err
			}
			result.PhaseTransition = true
			result.SessionFinished = transitioned.SessionFinished
			result.WinningRole = transitioned.WinningRole
			result.Winners = transitioned.Winners
			return result, nil
		}
	}

	e.broadcaster.Broadcast(ctx, Event{
		Type:         EventStateUpdate,
		SessionID:    sess.ID,
		State:        sess.State,
		CurrentPhase: sess.CurrentPhase,
	})
	return result, nil
}

// validatePlacement checks the phase and role gates for an action. A phase
// that declares no allowedActions leaves actions unrestricted; the action's
// own phase and role lists still apply. Role availableActions grants shape
// agent prompts only, never submission validity.
func validatePlacement(phase definition.Phase, action definition.Action, roleName string) error {
	if len(phase.AllowedActions) > 0 && !containsString(phase.AllowedActions, action.Name) {
		return apperrors.WithMetadata(apperrors.CodeActionPhaseDisallowed, "phase does not allow the action", map[string]string{
			"Phase":  phase.Name,
			"Action": action.Name,
		})
	}
	if len(action.Phases) > 0 && !containsString(action.Phases, phase.Name) {
		return apperrors.WithMetadata(apperrors.CodeActionPhaseDisallowed, "action is not playable in the phase", map[string]string{
			"Phase":  phase.Name,
			"Action": action.Name,
		})
	}
	if len(action.Roles) > 0 && !containsString(action.Roles, roleName) {
		return apperrors.WithMetadata(apperrors.CodeActionRoleDisallowed, "role cannot use the action", map[string]string{
			"Role":   roleName,
			"Action": action.Name,
		})
	}
	return nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func (e *Engine) journalAction(ctx context.Context, sessionID, participantID, phase, action string, params map[string]any, at time.Time) error {
	actionID, err := e.idGenerator()
	if err != nil {
		return fmt.Errorf("generate action id: %w", err)
	}
	var paramsJSON []byte
	if len(params) > 0 {
		paramsJSON, err = json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal action params: %w", err)
		}
	}
	return e.stores.Audit.AppendAction(ctx, storage.ActionRecord{
		ID:            actionID,
		SessionID:     sessionID,
		ParticipantID: participantID,
		Phase:         phase,
		Action:        action,
		Params:        paramsJSON,
		CreatedAt:     at,
	})
}

// advancePhase moves the session out of the given phase: into the next
// phase of the graph, or to the finished state when the phase is terminal.
// The ephemeral action log resets on every transition.
func (e *Engine) advancePhase(ctx context.Context, sess session.Session, def definition.Definition, from definition.Phase) (ActionResult, error) {
	e.timers.Clear(sess.ID)

	if from.Next == nil {
		var winningRole string
		if winner, won := wincon.Evaluate(def, sess.State, e.evaluator); won {
			winningRole = winner.Role
		}
		gamestate.ResetActionLog(sess.State)
		e.broadcaster.Broadcast(ctx, Event{
			Type:      EventPhaseTransition,
			SessionID: sess.ID,
			State:     sess.State,
			From:      sess.CurrentPhase,
		})
		winners, err := e.finishSession(ctx, sess, def, winningRole)
		if err != nil {
			return ActionResult{}, err
		}
		return ActionResult{SessionFinished: true, WinningRole: winningRole, Winners: winners}, nil
	}

	gamestate.ResetActionLog(sess.State)
	previous := sess.CurrentPhase
	sess.CurrentPhase = *from.Next
	sess.UpdatedAt = e.now().UTC()
	if err := e.persistSession(ctx, sess); err != nil {
		return ActionResult{}, err
	}

	e.broadcaster.Broadcast(ctx, Event{
		Type:         EventPhaseTransition,
		SessionID:    sess.ID,
		State:        sess.State,
		CurrentPhase: sess.CurrentPhase,
		From:         previous,
		To:           sess.CurrentPhase,
	})
	e.broadcaster.Broadcast(ctx, Event{
		Type:         EventStateUpdate,
		SessionID:    sess.ID,
		State:        sess.State,
		CurrentPhase: sess.CurrentPhase,
	})

	e.enterPhase(ctx, sess, def)
	return ActionResult{PhaseTransition: true}, nil
}

// enterPhase arms the phase timer and notifies the turn scheduler. Callers
// hold the session lock.
func (e *Engine) enterPhase(ctx context.Context, sess session.Session, def definition.Definition) {
	phase, ok := def.Phase(sess.CurrentPhase)
	if !ok {
		return
	}
	if phase.Duration > 0 {
		sessionID := sess.ID
		phaseName := phase.Name
		e.timers.Arm(sessionID, time.Duration(phase.Duration)*time.Second, func() {
			e.handleTimerExpiry(sessionID, phaseName)
		})
	}
	if e.scheduler != nil {
		e.scheduler.OnPhaseEntered(ctx, sess.ID, phase.Name)
	}
}

// handleTimerExpiry advances a session whose phase timer fired. The session
// is reloaded under its lock; a stale timer that raced a transition or a
// pause finds a different phase or status and does nothing.
func (e *Engine) handleTimerExpiry(sessionID, phaseName string) {
	ctx := context.Background()

	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, def, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return
	}
	if sess.Status != session.StatusActive || sess.CurrentPhase != phaseName {
		return
	}
	phase, ok := def.Phase(phaseName)
	if !ok {
		return
	}
	_, _ = e.advancePhase(ctx, sess, def, phase)
}

// finishSession settles the prize pool, persists the finished session, and
// broadcasts the terminal event. It returns the winning participant IDs.
func (e *Engine) finishSession(ctx context.Context, sess session.Session, def definition.Definition, winningRole string) ([]string, error) {
	e.timers.Clear(sess.ID)

	members, err := e.stores.Participants.ListParticipantsBySession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	var winners []string
	stakes := make([]economy.Stake, 0, len(members))
	for _, member := range members {
		if winningRole != "" && member.Role == winningRole {
			winners = append(winners, member.ID)
		}
		stakes = append(stakes, economy.Stake{
			ParticipantID: member.ID,
			UserID:        member.UserID,
			EntryFee:      def.Economy.EntryFee,
		})
	}

	settlement, err := economy.Settle(def, sess.ID, sess.PrizePool, winners, stakes, e.now)
	if err != nil {
		return nil, err
	}
	if len(settlement.Payouts) > 0 {
		payouts := make([]storage.PayoutRecord, 0, len(settlement.Payouts))
		for _, payout := range settlement.Payouts {
			payouts = append(payouts, storage.PayoutRecord{
				ParticipantID: payout.ParticipantID,
				UserID:        payout.UserID,
				Amount:        payout.Amount,
				Reason:        payout.Reason,
			})
		}
		if err := e.stores.Settlements.PutSettlement(ctx, storage.SettlementRecord{
			SessionID: sess.ID,
			Payouts:   payouts,
			CreatedAt: e.now().UTC(),
		}); err != nil && !apperrors.IsCode(err, apperrors.CodeSettlementAlreadyApplied) {
			return nil, err
		}
	}

	finished, err := session.Finish(sess, e.now)
	if err != nil {
		return nil, err
	}
	if err := e.persistSession(ctx, finished); err != nil {
		return nil, err
	}

	e.broadcaster.Broadcast(ctx, Event{
		Type:        EventSessionFinished,
		SessionID:   finished.ID,
		State:       finished.State,
		WinningRole: winningRole,
		Winners:     winners,
		Payouts:     settlement.Payouts,
	})
	return winners, nil
}
