package bridge

import "sync"

// taskRegistry tracks at most one in-flight generation task per
// participant. Starting a new task cancels the previous one, and a
// cancelled task's callbacks are suppressed so a stale reply can never
// submit an action.
type taskRegistry struct {
	mu      sync.Mutex
	pending map[string]*pendingTask
}

type pendingTask struct {
	id     string
	cancel func()
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{pending: make(map[string]*pendingTask)}
}

// begin registers a task for the participant, cancelling any predecessor.
func (r *taskRegistry) begin(participantID, taskID string) {
	r.mu.Lock()
	previous := r.pending[participantID]
	r.pending[participantID] = &pendingTask{id: taskID}
	r.mu.Unlock()

	if previous != nil && previous.cancel != nil {
		previous.cancel()
	}
}

// setCancel attaches the transport cancel func once the task is in flight.
func (r *taskRegistry) setCancel(participantID, taskID string, cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task, ok := r.pending[participantID]; ok && task.id == taskID {
		task.cancel = cancel
	}
}

// finish removes the task if it is still the participant's current one and
// reports whether its callbacks may run. A superseded or cancelled task
// gets false.
func (r *taskRegistry) finish(participantID, taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.pending[participantID]
	if !ok || task.id != taskID {
		return false
	}
	delete(r.pending, participantID)
	return true
}

// cancel aborts the participant's in-flight task, if any.
func (r *taskRegistry) cancel(participantID string) {
	r.mu.Lock()
	task, ok := r.pending[participantID]
	if ok {
		delete(r.pending, participantID)
	}
	r.mu.Unlock()

	if ok && task.cancel != nil {
		task.cancel()
	}
}

// inFlight reports whether the participant has a pending task.
func (r *taskRegistry) inFlight(participantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[participantID]
	return ok
}
