package session

import (
	"sync"
	"time"

	"github.com/resumeblast/internal/model"
)

// State names the controller's phase, in order of progression.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateWaiting    State = "waiting"
	StateConnecting State = "connecting"
	StateSending    State = "sending"
	StateDraining   State = "draining"
	StateDone       State = "done"
)

// Status is a point-in-time snapshot of the running session, shaped for
// the UI's polling endpoint.
type Status struct {
	SessionID string    `json:"session_id,omitempty"`
	State     State     `json:"state"`
	Total     int       `json:"total"`
	Sent      int       `json:"sent"`
	Failed    int       `json:"failed"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
}

// Tracker is the shared progress view between the session goroutine and
// the status endpoint.
type Tracker struct {
	mu      sync.Mutex
	status  Status
	summary *model.Summary
}

func NewTracker() *Tracker {
	return &Tracker{status: Status{State: StateIdle}}
}

// Begin resets the tracker for a new session.
func (t *Tracker) Begin(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = Status{SessionID: id, State: StateIdle, StartedAt: time.Now()}
	t.summary = nil
}

func (t *Tracker) SetState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = s
}

func (t *Tracker) SetTotal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Total = n
}

func (t *Tracker) RecordSent() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Sent++
}

func (t *Tracker) RecordFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Failed++
}

// Fail marks the session done with a session-fatal error.
func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = StateDone
	t.status.Error = err.Error()
}

// Finish marks the session done and stores its summary.
func (t *Tracker) Finish(summary *model.Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = StateDone
	t.summary = summary
}

func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Summary returns the last finished session's summary, or nil.
func (t *Tracker) Summary() *model.Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summary
}

// Running reports whether a session is currently in flight.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status.State != StateIdle && t.status.State != StateDone
}
