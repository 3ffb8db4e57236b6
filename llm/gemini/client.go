// Package gemini is the Gemini backend for structured generation, using the
// Vertex AI backend of google.golang.org/genai. It is the default provider.
package gemini

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"

	"github.com/k-nishimoto/untangle"
)

const DefaultModel = "gemini-2.5-flash"

var (
	// geminiPromptScope gates prompt logging.
	geminiPromptScope = ctxlog.NewScope("gemini_prompt", ctxlog.EnabledBy("UNTANGLE_LOGGING_GEMINI_PROMPT"))

	// geminiResponseScope gates response logging.
	geminiResponseScope = ctxlog.NewScope("gemini_response", ctxlog.EnabledBy("UNTANGLE_LOGGING_GEMINI_RESPONSE"))
)

// apiClient is the interface for Gemini API calls, unexported so tests can
// substitute it.
type apiClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type realAPIClient struct {
	client *genai.Client
}

func (r *realAPIClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return r.client.Models.GenerateContent(ctx, model, contents, config)
}

// Client is a client for the Gemini API.
type Client struct {
	projectID string
	location  string

	apiClient apiClient

	// defaultModel is the model used for generation. Override with
	// WithModel.
	defaultModel string

	// temperature, when set, overrides the service default. Decomposition
	// wants low temperature (0.2).
	temperature *float32
}

// Option is a configuration option for the Gemini client.
type Option func(*Client)

// WithModel sets the model to use for generation.
func WithModel(model string) Option {
	return func(c *Client) {
		c.defaultModel = model
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.temperature = &temp
	}
}

// New creates a new client for the Gemini API on Vertex AI.
func New(ctx context.Context, projectID, location string, options ...Option) (*Client, error) {
	if projectID == "" {
		return nil, goerr.New("projectID is required")
	}
	if location == "" {
		return nil, goerr.New("location is required")
	}

	client := &Client{
		projectID:    projectID,
		location:     location,
		defaultModel: DefaultModel,
	}
	for _, option := range options {
		option(client)
	}

	config := &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	}
	newClient, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client")
	}

	client.apiClient = &realAPIClient{client: newClient}
	return client, nil
}

// Generate performs one structured-generation call. The response schema is
// passed through to the API and the MIME type pinned to JSON, so the model
// output arrives as a bare JSON document.
func (c *Client) Generate(ctx context.Context, req *untangle.GenerateRequest) (*untangle.Response, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if c.temperature != nil {
		config.Temperature = c.temperature
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Role:  "system",
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	if req.Schema != nil {
		config.ResponseSchema = convertSchema(req.Schema)
	}

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: req.Prompt}}},
	}

	promptLogger := ctxlog.From(ctx, geminiPromptScope)
	if promptLogger.Enabled(ctx, slog.LevelInfo) {
		promptLogger.Info("Gemini prompt",
			"system_prompt", req.SystemPrompt,
			"prompt", req.Prompt,
		)
	}

	resp, err := c.apiClient.GenerateContent(ctx, c.defaultModel, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.V("model", c.defaultModel))
	}

	out, err := processResponse(resp)
	if err != nil {
		return nil, err
	}

	responseLogger := ctxlog.From(ctx, geminiResponseScope)
	if responseLogger.Enabled(ctx, slog.LevelInfo) {
		responseLogger.Info("Gemini response",
			"text", out.Text,
			"input_token", out.InputToken,
			"output_token", out.OutputToken,
		)
	}

	return out, nil
}

func processResponse(resp *genai.GenerateContentResponse) (*untangle.Response, error) {
	if len(resp.Candidates) == 0 {
		return nil, goerr.New("no candidates in response")
	}

	out := &untangle.Response{}
	if resp.UsageMetadata != nil {
		out.InputToken = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputToken = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	var texts []string
	for _, candidate := range resp.Candidates {
		if candidate.FinishReason != "" && strings.Contains(string(candidate.FinishReason), "PROHIBITED_CONTENT") {
			return nil, goerr.New("prohibited content", goerr.V("finish_reason", candidate.FinishReason))
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				texts = append(texts, part.Text)
			}
		}
	}

	out.Text = strings.Join(texts, "")
	return out, nil
}

// convertSchema converts an untangle.Parameter tree to the Gemini SDK
// schema type.
func convertSchema(param *untangle.Parameter) *genai.Schema {
	schema := &genai.Schema{
		Type:        geminiType(param.Type),
		Description: param.Description,
		Title:       param.Title,
	}

	if len(param.Enum) > 0 {
		schema.Enum = param.Enum
	}

	if param.Properties != nil {
		schema.Properties = make(map[string]*genai.Schema)
		for name, prop := range param.Properties {
			schema.Properties[name] = convertSchema(prop)
		}
		// Gemini requires an empty slice, not nil.
		required := param.Required
		if required == nil {
			required = []string{}
		}
		schema.Required = required
	}

	if param.Items != nil {
		schema.Items = convertSchema(param.Items)
	}

	if param.Type == untangle.TypeNumber || param.Type == untangle.TypeInteger {
		if param.Minimum != nil {
			minVal := *param.Minimum
			schema.Minimum = &minVal
		}
		if param.Maximum != nil {
			maxVal := *param.Maximum
			schema.Maximum = &maxVal
		}
	}

	return schema
}

func geminiType(t untangle.ParameterType) genai.Type {
	switch t {
	case untangle.TypeString:
		return genai.TypeString
	case untangle.TypeNumber:
		return genai.TypeNumber
	case untangle.TypeInteger:
		return genai.TypeInteger
	case untangle.TypeBoolean:
		return genai.TypeBoolean
	case untangle.TypeArray:
		return genai.TypeArray
	case untangle.TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
