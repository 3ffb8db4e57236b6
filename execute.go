package untangle

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/k-nishimoto/untangle/store"
)

// ToolName identifies one of the fixed tool vocabulary the executor can
// invoke.
type ToolName string

const (
	// ToolScheduleEvent creates a calendar entry with a concrete start time.
	ToolScheduleEvent ToolName = "schedule_event"

	// ToolSetReminder creates a floating reminder without a start time.
	ToolSetReminder ToolName = "set_reminder"

	// ToolGetUserContext reads the user profile. Only invoked internally to
	// settle ambiguous temporal anchors; never a user-facing action.
	ToolGetUserContext ToolName = "get_user_context"
)

// ToolCall is the deterministic mapping of a task to a tool invocation.
type ToolCall struct {
	Tool ToolName
	Args map[string]any
}

// toolCallFor maps a task to exactly one tool call by kind.
func toolCallFor(task Task) ToolCall {
	args := map[string]any{
		"task_description": task.Description,
		"duration_minutes": task.DurationMin,
	}
	if task.Priority != "" {
		args["priority"] = task.Priority
	}

	switch task.Kind {
	case KindScheduled:
		if task.StartAt != nil {
			args["start_time"] = task.StartAt.Format(time.RFC3339)
		}
		return ToolCall{Tool: ToolScheduleEvent, Args: args}
	default:
		return ToolCall{Tool: ToolSetReminder, Args: args}
	}
}

// Executor commits approved tasks to the persistent store. It performs
// exactly one store write per task on success and none on any failure that
// precedes the write.
type Executor struct {
	db     store.Store
	clock  func() time.Time
	logger *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorClock overrides the wall clock. Used by tests.
func WithExecutorClock(clock func() time.Time) ExecutorOption {
	return func(e *Executor) {
		e.clock = clock
	}
}

// WithExecutorLogger sets the executor logger.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates an Executor backed by db.
func NewExecutor(db store.Store, options ...ExecutorOption) *Executor {
	e := &Executor{
		db:     db,
		clock:  time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Execute commits one task as a calendar entry. It is idempotent per
// (sessionID, taskIndex): a duplicate attempt writes nothing and returns the
// previously committed entry together with ErrAlreadyExecuted.
func (e *Executor) Execute(ctx context.Context, sessionID string, taskIndex int, task Task) (*CalendarEntry, error) {
	call := toolCallFor(task)

	startAt := task.StartAt
	if task.Kind == KindScheduled && startAt == nil {
		// Ambiguous anchor: settle it against the profile chronotype via the
		// internal get_user_context tool.
		resolved, err := e.resolveWithContext(ctx, task)
		if err != nil {
			return nil, err
		}
		startAt = &resolved
	}

	raw, err := rawCalendar(ctx, e.db)
	if err != nil {
		return nil, err
	}

	if existing, ok := entryFor(raw, sessionID, taskIndex); ok {
		return existing, goerr.Wrap(ErrAlreadyExecuted, "duplicate execution attempt",
			goerr.V("session_id", sessionID), goerr.V("task_index", taskIndex))
	}

	entry := CalendarEntry{
		EntryID:         uuid.New().String(),
		Title:           task.Description,
		DurationMinutes: task.DurationMin,
		Priority:        task.Priority,
		SourceTaskIndex: taskIndex,
		SessionID:       sessionID,
		CreatedAt:       e.clock().Format(time.RFC3339),
	}
	if task.Kind == KindScheduled && startAt != nil {
		s := startAt.Format(time.RFC3339)
		entry.StartTime = &s
	}

	updated, err := appendEntry(raw, entry)
	if err != nil {
		return nil, err
	}

	if err := e.db.Put(ctx, store.KeyCalendar, updated); err != nil {
		return nil, goerr.Wrap(ErrPersistence, err.Error(),
			goerr.V("session_id", sessionID), goerr.V("task_index", taskIndex))
	}

	e.logger.Info("calendar entry committed",
		"tool", string(call.Tool),
		"entry_id", entry.EntryID,
		"task_index", taskIndex,
	)

	return &entry, nil
}

// resolveWithContext is the get_user_context path: it derives a start time
// for a scheduled task whose anchor could not be resolved at decomposition
// time, using the profile's active hours.
func (e *Executor) resolveWithContext(ctx context.Context, task Task) (time.Time, error) {
	profile, err := LoadProfile(ctx, e.db)
	if err != nil {
		return time.Time{}, err
	}

	now := e.clock()
	hour := profile.ActiveStartHour()
	start := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !start.After(now) {
		start = start.AddDate(0, 0, 1)
	}

	e.logger.Debug("resolved ambiguous anchor from profile",
		"task", task.Description,
		"anchor_phrase", task.AnchorPhrase,
		"start_at", start,
	)

	return start, nil
}
