// Package openai is the OpenAI backend for structured generation. It uses
// the structured-outputs response format so the model is held to the
// response schema server-side.
package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sashabaranov/go-openai"

	"github.com/k-nishimoto/untangle"
)

const DefaultModel = "gpt-4o-mini"

var (
	// openaiPromptScope gates prompt logging.
	openaiPromptScope = ctxlog.NewScope("openai_prompt", ctxlog.EnabledBy("UNTANGLE_LOGGING_OPENAI_PROMPT"))

	// openaiResponseScope gates response logging.
	openaiResponseScope = ctxlog.NewScope("openai_response", ctxlog.EnabledBy("UNTANGLE_LOGGING_OPENAI_RESPONSE"))
)

// apiClient is the interface for OpenAI API calls, unexported so tests can
// substitute it.
type apiClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client is a client for the OpenAI API.
type Client struct {
	apiClient apiClient

	// defaultModel is the model used for chat completions. Override with
	// WithModel.
	defaultModel string

	// baseURL overrides the API endpoint, for proxies and compatible
	// servers.
	baseURL string

	// temperature, when set, overrides the service default.
	temperature *float32
}

// Option is a configuration option for the OpenAI client.
type Option func(*Client)

// WithModel sets the model to use for chat completions.
func WithModel(model string) Option {
	return func(c *Client) {
		c.defaultModel = model
	}
}

// WithBaseURL sets a custom API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.temperature = &temp
	}
}

// New creates a new client for the OpenAI API.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("apiKey is required")
	}

	client := &Client{
		defaultModel: DefaultModel,
	}
	for _, option := range options {
		option(client)
	}

	config := openai.DefaultConfig(apiKey)
	if client.baseURL != "" {
		config.BaseURL = client.baseURL
	}

	client.apiClient = openai.NewClientWithConfig(config)
	return client, nil
}

// Generate performs one structured-generation call.
func (c *Client) Generate(ctx context.Context, req *untangle.GenerateRequest) (*untangle.Response, error) {
	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:    c.defaultModel,
		Messages: messages,
	}
	if c.temperature != nil {
		chatReq.Temperature = *c.temperature
	}

	if req.Schema != nil {
		format, err := responseFormat(req.Schema)
		if err != nil {
			return nil, err
		}
		chatReq.ResponseFormat = format
	} else {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	promptLogger := ctxlog.From(ctx, openaiPromptScope)
	if promptLogger.Enabled(ctx, slog.LevelInfo) {
		promptLogger.Info("OpenAI prompt",
			"system_prompt", req.SystemPrompt,
			"prompt", req.Prompt,
		)
	}

	resp, err := c.apiClient.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create chat completion", goerr.V("model", c.defaultModel))
	}
	if len(resp.Choices) == 0 {
		return nil, goerr.New("no choices in response")
	}

	out := &untangle.Response{
		Text:        resp.Choices[0].Message.Content,
		InputToken:  resp.Usage.PromptTokens,
		OutputToken: resp.Usage.CompletionTokens,
	}

	responseLogger := ctxlog.From(ctx, openaiResponseScope)
	if responseLogger.Enabled(ctx, slog.LevelInfo) {
		responseLogger.Info("OpenAI response",
			"text", out.Text,
			"input_token", out.InputToken,
			"output_token", out.OutputToken,
		)
	}

	return out, nil
}

// responseFormat converts a Parameter tree to the structured-outputs response
// format.
func responseFormat(param *untangle.Parameter) (*openai.ChatCompletionResponseFormat, error) {
	if err := param.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid response schema")
	}

	schemaJSON, err := json.Marshal(strictJSONSchema(param))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal schema")
	}

	name := param.Title
	if name == "" {
		name = "response"
	}

	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:        name,
			Description: param.Description,
			Schema:      json.RawMessage(schemaJSON),
			Strict:      true,
		},
	}, nil
}

// strictJSONSchema converts a Parameter tree to a JSON Schema document for
// strict mode. OpenAI's strict mode rejects any object schema whose required
// list does not cover every property, so every property is marked required
// here. This is a limitation of OpenAI's strict mode, not a general JSON
// Schema requirement; the response is still validated against the caller's
// own required list afterwards.
func strictJSONSchema(param *untangle.Parameter) map[string]any {
	doc := map[string]any{
		"type": string(param.Type),
	}

	if param.Description != "" {
		doc["description"] = param.Description
	}

	if param.Type == untangle.TypeObject {
		props := make(map[string]any, len(param.Properties))
		required := make([]string, 0, len(param.Properties))
		for name, prop := range param.Properties {
			props[name] = strictJSONSchema(prop)
			required = append(required, name)
		}
		sort.Strings(required)
		doc["properties"] = props
		doc["additionalProperties"] = false
		doc["required"] = required
	}

	if param.Type == untangle.TypeArray && param.Items != nil {
		doc["items"] = strictJSONSchema(param.Items)
	}

	if len(param.Enum) > 0 {
		doc["enum"] = param.Enum
	}

	if param.Minimum != nil {
		doc["minimum"] = *param.Minimum
	}
	if param.Maximum != nil {
		doc["maximum"] = *param.Maximum
	}

	return doc
}
