package untangle

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the coordinator's state for one interaction.
type SessionState string

const (
	// StateAwaitingInput accepts a brain dump via Submit.
	StateAwaitingInput SessionState = "awaiting_input"

	// StatePlanProposed holds a decomposed plan pending confirmation.
	StatePlanProposed SessionState = "plan_proposed"

	// StateConfirmed is the transient state while approved tasks execute.
	StateConfirmed SessionState = "confirmed"

	// StateRejected is the transient state after the user declines a plan;
	// the session immediately returns to StateAwaitingInput.
	StateRejected SessionState = "rejected"

	// StateExecuted means every task of the confirmed plan was committed.
	StateExecuted SessionState = "executed"
)

// Session is the in-memory, single-user interaction state. It is owned by
// the coordinator, created when an interaction starts, and never persisted.
type Session struct {
	id        string
	state     SessionState
	plan      *TaskPlan
	startedAt time.Time
}

func newSession(now time.Time) *Session {
	return &Session{
		id:        uuid.New().String(),
		state:     StateAwaitingInput,
		startedAt: now,
	}
}

// ID returns the session identifier used to key calendar entries.
func (s *Session) ID() string {
	return s.id
}

// State returns the current session state.
func (s *Session) State() SessionState {
	return s.state
}

// Plan returns the currently proposed plan, or nil.
func (s *Session) Plan() *TaskPlan {
	return s.plan
}
