package untangle

import (
	"context"
	"log/slog"
)

// GenerateRequest is a single structured-generation request: a system
// instruction, a user prompt, and the schema the response must conform to.
type GenerateRequest struct {
	// SystemPrompt is the system instruction for the request.
	SystemPrompt string

	// Prompt is the user input.
	Prompt string

	// Schema is the required response schema. Providers that support schema
	// enforcement pass it through to the API; GenerateStructured validates
	// the response against it regardless.
	Schema *Parameter
}

// LogValue renders the request for structured logging without dumping the
// full schema tree.
func (r *GenerateRequest) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("system_prompt_len", len(r.SystemPrompt)),
		slog.Int("prompt_len", len(r.Prompt)),
		slog.Bool("has_schema", r.Schema != nil),
	)
}

// Response is the raw result of one generation call.
type Response struct {
	// Text is the model output. For JSON-mode providers this is the JSON
	// document; for text providers it may still carry code fences, which
	// GenerateStructured strips.
	Text string

	// InputToken and OutputToken report token usage when available.
	InputToken  int
	OutputToken int
}

// LLMClient is a client for a structured-generation service. The planning
// agent and the judge are the same capability invoked with different
// instructions and schemas, so both go through this one interface.
type LLMClient interface {
	Generate(ctx context.Context, req *GenerateRequest) (*Response, error)
}
