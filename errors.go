package untangle

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrGeneration indicates the LLM service was unreachable, timed out, or
	// returned an unusable response. It is retryable within the decomposition
	// retry budget.
	ErrGeneration = goerr.New("generation failed")

	// ErrSchemaViolation indicates the LLM returned a structured result that
	// does not conform to the requested response schema. Same retry treatment
	// as ErrGeneration.
	ErrSchemaViolation = goerr.New("response violates schema")

	// ErrDecomposition is returned by the coordinator after the decomposition
	// retry budget is exhausted without a valid task plan.
	ErrDecomposition = goerr.New("failed to decompose brain dump")

	// ErrInvalidTransition indicates a session operation was called from a
	// state that does not allow it. Always surfaced; it is a caller bug.
	ErrInvalidTransition = goerr.New("invalid session state transition")

	// ErrAlreadyExecuted is the idempotency guard: the task for this
	// (session, index) pair has already produced a calendar entry.
	ErrAlreadyExecuted = goerr.New("task already executed")

	// ErrPersistence indicates the store could not commit a calendar entry.
	// Tasks committed before the failure remain committed.
	ErrPersistence = goerr.New("persistence write failed")

	// ErrInvalidParameter indicates an invalid schema descriptor.
	ErrInvalidParameter = goerr.New("invalid parameter")
)
