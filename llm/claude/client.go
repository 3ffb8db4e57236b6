// Package claude is the Anthropic backend for structured generation. Claude
// has no server-side response schema, so the schema is embedded into the
// system prompt and the caller validates the returned JSON.
package claude

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/k-nishimoto/untangle"
)

const (
	DefaultMaxTokens = 4096
)

var (
	// claudePromptScope gates prompt logging.
	claudePromptScope = ctxlog.NewScope("claude_prompt", ctxlog.EnabledBy("UNTANGLE_LOGGING_CLAUDE_PROMPT"))

	// claudeResponseScope gates response logging.
	claudeResponseScope = ctxlog.NewScope("claude_response", ctxlog.EnabledBy("UNTANGLE_LOGGING_CLAUDE_RESPONSE"))
)

// apiClient is the interface for Claude API calls, unexported so tests can
// substitute it.
type apiClient interface {
	CreateMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

type realAPIClient struct {
	client *anthropic.Client
}

func (r *realAPIClient) CreateMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return r.client.Messages.New(ctx, params)
}

// Client is a client for the Claude API.
type Client struct {
	apiClient apiClient

	// defaultModel is the model used for generation. Override with
	// WithModel.
	defaultModel string

	// maxTokens caps the generated output length.
	maxTokens int64

	// temperature, when set, overrides the service default.
	temperature *float64
}

// Option is a configuration option for the Claude client.
type Option func(*Client)

// WithModel sets the model to use for generation.
func WithModel(model string) Option {
	return func(c *Client) {
		c.defaultModel = model
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int64) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) Option {
	return func(c *Client) {
		c.temperature = &temp
	}
}

// New creates a new client for the Claude API.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("apiKey is required")
	}

	client := &Client{
		defaultModel: anthropic.ModelClaude3_5SonnetLatest,
		maxTokens:    DefaultMaxTokens,
	}
	for _, option := range options {
		option(client)
	}

	newClient := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	client.apiClient = &realAPIClient{client: &newClient}

	return client, nil
}

// Generate performs one structured-generation call. The schema travels in
// the system prompt as a hard instruction; the model's reply is expected to
// be a single JSON document.
func (c *Client) Generate(ctx context.Context, req *untangle.GenerateRequest) (*untangle.Response, error) {
	system, err := buildSystemBlocks(req)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:     c.defaultModel,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if c.temperature != nil {
		params.Temperature = anthropic.Float(*c.temperature)
	}

	promptLogger := ctxlog.From(ctx, claudePromptScope)
	if promptLogger.Enabled(ctx, slog.LevelInfo) {
		promptLogger.Info("Claude prompt",
			"system_prompt", req.SystemPrompt,
			"prompt", req.Prompt,
		)
	}

	resp, err := c.apiClient.CreateMessage(ctx, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create message", goerr.V("model", c.defaultModel))
	}

	var texts []string
	for _, content := range resp.Content {
		textBlock := content.AsResponseTextBlock()
		if textBlock.Type == "text" {
			texts = append(texts, textBlock.Text)
		}
	}
	if len(texts) == 0 {
		return nil, goerr.New("no text content in response")
	}

	out := &untangle.Response{
		Text:        strings.Join(texts, ""),
		InputToken:  int(resp.Usage.InputTokens),
		OutputToken: int(resp.Usage.OutputTokens),
	}

	responseLogger := ctxlog.From(ctx, claudeResponseScope)
	if responseLogger.Enabled(ctx, slog.LevelInfo) {
		responseLogger.Info("Claude response",
			"text", out.Text,
			"input_token", out.InputToken,
			"output_token", out.OutputToken,
		)
	}

	return out, nil
}

// buildSystemBlocks assembles the system prompt blocks, appending the JSON
// schema instruction when a schema is requested.
func buildSystemBlocks(req *untangle.GenerateRequest) ([]anthropic.TextBlockParam, error) {
	var blocks []anthropic.TextBlockParam
	if req.SystemPrompt != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: req.SystemPrompt})
	}

	if req.Schema != nil {
		if err := req.Schema.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid response schema")
		}
		schemaJSON, err := json.MarshalIndent(req.Schema.ToJSONSchema(), "", "  ")
		if err != nil {
			return nil, goerr.Wrap(err, "failed to marshal schema")
		}

		var sb strings.Builder
		sb.WriteString("Respond with a single JSON object and nothing else. ")
		sb.WriteString("The object must conform to this JSON Schema:\n\n")
		sb.Write(schemaJSON)
		blocks = append(blocks, anthropic.TextBlockParam{Text: sb.String()})
	}

	return blocks, nil
}
