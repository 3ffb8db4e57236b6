// Package untangle turns an unstructured brain dump into a confirmed,
// scheduled set of atomic actions. A coordinator mediates between a planning
// agent that decomposes free text into a task plan, a human confirmation
// gate, and an execution agent that commits approved tasks to the calendar
// store. Nothing reaches persisted state without explicit approval.
package untangle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/k-nishimoto/untangle/store"
)

// DefaultRetryLimit is the number of repair retries after the first
// decomposition attempt.
const DefaultRetryLimit = 2

// DefaultGenerateTimeout bounds a single generation call. A call exceeding
// the budget fails like any other generation failure and is eligible for the
// same retry treatment.
const DefaultGenerateTimeout = 60 * time.Second

// Coordinator owns the session state machine and serializes the
// decompose -> confirm -> execute flow. One coordinator drives one session
// at a time; Reset starts the next interaction.
type Coordinator struct {
	llm        LLMClient
	db         store.Store
	decomposer *Decomposer
	executor   *Executor
	session    *Session

	retryLimit int
	timeout    time.Duration
	logger     *slog.Logger
	clock      func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRetryLimit sets the decomposition retry budget. Retries are spent on
// schema violations, under-decomposition, and generation failures alike.
func WithRetryLimit(limit int) Option {
	return func(c *Coordinator) {
		c.retryLimit = limit
	}
}

// WithGenerateTimeout sets the per-call generation budget.
func WithGenerateTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = timeout
	}
}

// WithLogger sets the logger. Default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithClock overrides the wall clock. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// New creates a Coordinator over the given generation client and store, and
// opens the first session.
func New(llmClient LLMClient, db store.Store, options ...Option) *Coordinator {
	c := &Coordinator{
		llm:        llmClient,
		db:         db,
		retryLimit: DefaultRetryLimit,
		timeout:    DefaultGenerateTimeout,
		logger:     slog.New(slog.DiscardHandler),
		clock:      time.Now,
	}
	for _, opt := range options {
		opt(c)
	}

	c.decomposer = NewDecomposer(llmClient,
		WithDecomposerRetryLimit(c.retryLimit),
		WithDecomposerTimeout(c.timeout),
		WithDecomposerLogger(c.logger),
	)
	c.executor = NewExecutor(db,
		WithExecutorClock(c.clock),
		WithExecutorLogger(c.logger),
	)
	c.session = newSession(c.clock())

	c.logger.Info("coordinator created",
		"session_id", c.session.ID(),
		"retry_limit", c.retryLimit,
		"generate_timeout", c.timeout,
	)

	return c
}

// State returns the current session state.
func (c *Coordinator) State() SessionState {
	return c.session.State()
}

// SessionID returns the current session identifier.
func (c *Coordinator) SessionID() string {
	return c.session.ID()
}

// Plan returns the currently proposed plan, or nil.
func (c *Coordinator) Plan() *TaskPlan {
	return c.session.Plan()
}

// Reset discards the current session and opens a new one.
func (c *Coordinator) Reset() {
	c.session = newSession(c.clock())
}

// Submit decomposes a brain dump into a proposed task plan and transitions
// the session to StatePlanProposed. On failure the session stays in
// StateAwaitingInput and no state was touched; the user gets an explanation,
// never a half-formed plan.
func (c *Coordinator) Submit(ctx context.Context, dump BrainDump) (*TaskPlan, error) {
	if c.session.State() != StateAwaitingInput {
		return nil, goerr.Wrap(ErrInvalidTransition, "submit requires awaiting_input",
			goerr.V("state", c.session.State()))
	}

	ctx = ctxWithLogger(ctx, c.logger.With("session_id", c.session.ID()))

	profile, err := LoadProfile(ctx, c.db)
	if err != nil {
		return nil, err
	}

	plan, err := c.decomposer.Decompose(ctx, dump, profile)
	if err != nil {
		c.logger.Warn("decomposition failed", "error", err)
		return nil, err
	}

	c.session.plan = plan
	c.session.state = StatePlanProposed

	c.logger.Info("plan proposed",
		"session_id", c.session.ID(),
		"task_count", len(plan.Tasks),
	)

	return plan, nil
}

// ExecutionReport states exactly which tasks were and were not committed.
type ExecutionReport struct {
	SessionID string

	// Entries are the committed calendar entries, in task order.
	Entries []CalendarEntry

	// Committed holds the indexes of tasks that were written.
	Committed []int

	// FailedIndex is the index of the task whose write failed, if any.
	FailedIndex *int

	// NotAttempted holds the indexes of tasks skipped after a failure.
	NotAttempted []int
}

// Confirm resolves the confirmation gate. It is only valid from
// StatePlanProposed. Approving executes every task of the plan in emitted
// order and transitions to StateExecuted; rejecting discards the plan and
// returns the session to StateAwaitingInput. This gate is the sole path by
// which a task reaches persisted state.
//
// A persistence failure mid-plan returns the session to StatePlanProposed so
// Confirm can be retried: tasks committed before the failure are acknowledged
// idempotently on the retry instead of being written twice.
func (c *Coordinator) Confirm(ctx context.Context, approved bool) (*ExecutionReport, error) {
	if c.session.State() != StatePlanProposed {
		return nil, goerr.Wrap(ErrInvalidTransition, "confirm requires plan_proposed",
			goerr.V("state", c.session.State()))
	}

	if !approved {
		c.session.state = StateRejected
		c.session.plan = nil
		c.session.state = StateAwaitingInput
		c.logger.Info("plan rejected", "session_id", c.session.ID())
		return nil, nil
	}

	c.session.state = StateConfirmed
	plan := c.session.Plan()

	report := &ExecutionReport{SessionID: c.session.ID()}
	for i, task := range plan.Tasks {
		entry, err := c.executor.Execute(ctx, c.session.ID(), i, task)
		if err != nil {
			if errors.Is(err, ErrAlreadyExecuted) {
				// Idempotency guard: acknowledge the existing entry without
				// duplicating it.
				if entry != nil {
					report.Entries = append(report.Entries, *entry)
				}
				report.Committed = append(report.Committed, i)
				continue
			}
			idx := i
			report.FailedIndex = &idx
			for j := i + 1; j < len(plan.Tasks); j++ {
				report.NotAttempted = append(report.NotAttempted, j)
			}
			c.session.state = StatePlanProposed
			return report, goerr.Wrap(err, "plan execution aborted",
				goerr.V("committed", report.Committed),
				goerr.V("failed_index", idx),
				goerr.V("not_attempted", report.NotAttempted))
		}
		report.Entries = append(report.Entries, *entry)
		report.Committed = append(report.Committed, i)
	}

	c.session.state = StateExecuted

	c.logger.Info("plan executed",
		"session_id", c.session.ID(),
		"committed", len(report.Committed),
	)

	return report, nil
}
