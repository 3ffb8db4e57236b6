package openai_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/m-mizutani/gt"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/k-nishimoto/untangle"
	"github.com/k-nishimoto/untangle/llm/openai"
)

type fakeAPIClient struct {
	resp   goopenai.ChatCompletionResponse
	err    error
	gotReq goopenai.ChatCompletionRequest
}

var _ openai.APIClient = (*fakeAPIClient)(nil)

func (f *fakeAPIClient) CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	f.gotReq = req
	return f.resp, f.err
}

func TestGenerateBuildsStructuredRequest(t *testing.T) {
	fake := &fakeAPIClient{
		resp: goopenai.ChatCompletionResponse{
			Choices: []goopenai.ChatCompletionChoice{
				{Message: goopenai.ChatCompletionMessage{Content: `{"ok": true}`}},
			},
			Usage: goopenai.Usage{PromptTokens: 12, CompletionTokens: 34},
		},
	}
	client := openai.NewClientWithAPIClient(fake, openai.DefaultModel)

	schema := &untangle.Parameter{
		Title: "check",
		Type:  untangle.TypeObject,
		Properties: map[string]*untangle.Parameter{
			"ok": {Type: untangle.TypeBoolean},
		},
		Required: []string{"ok"},
	}

	resp, err := client.Generate(context.Background(), &untangle.GenerateRequest{
		SystemPrompt: "be terse",
		Prompt:       "are you ok",
		Schema:       schema,
	})
	gt.NoError(t, err)
	gt.Equal(t, `{"ok": true}`, resp.Text)
	gt.Equal(t, 12, resp.InputToken)
	gt.Equal(t, 34, resp.OutputToken)

	gt.Array(t, fake.gotReq.Messages).Length(2)
	gt.Equal(t, goopenai.ChatMessageRoleSystem, fake.gotReq.Messages[0].Role)
	gt.Equal(t, goopenai.ChatMessageRoleUser, fake.gotReq.Messages[1].Role)

	format := fake.gotReq.ResponseFormat
	gt.NotNil(t, format)
	gt.Equal(t, goopenai.ChatCompletionResponseFormatTypeJSONSchema, format.Type)
	gt.Equal(t, "check", format.JSONSchema.Name)
	gt.True(t, format.JSONSchema.Strict)
}

func TestGenerateRejectsEmptyChoices(t *testing.T) {
	fake := &fakeAPIClient{resp: goopenai.ChatCompletionResponse{}}
	client := openai.NewClientWithAPIClient(fake, openai.DefaultModel)

	_, err := client.Generate(context.Background(), &untangle.GenerateRequest{Prompt: "hi"})
	gt.Error(t, err)
}

func TestResponseFormatClosesObjects(t *testing.T) {
	param := &untangle.Parameter{
		Title: "plan",
		Type:  untangle.TypeObject,
		Properties: map[string]*untangle.Parameter{
			"reasoning": {Type: untangle.TypeString},
		},
		Required: []string{"reasoning"},
	}

	format, err := openai.ResponseFormat(param)
	gt.NoError(t, err)

	raw, err := json.Marshal(format.JSONSchema.Schema)
	gt.NoError(t, err)

	var doc map[string]any
	gt.NoError(t, json.Unmarshal(raw, &doc))
	gt.Equal(t, false, doc["additionalProperties"])
	gt.Equal(t, []any{"reasoning"}, gt.Cast[[]any](t, doc["required"]))
}

func TestStrictSchemaRequiresAllProperties(t *testing.T) {
	// Strict mode rejects object schemas whose required list does not cover
	// every property, even when the caller only requires a subset.
	param := &untangle.Parameter{
		Title: "plan",
		Type:  untangle.TypeObject,
		Properties: map[string]*untangle.Parameter{
			"reasoning": {Type: untangle.TypeString},
			"tasks": {
				Type: untangle.TypeArray,
				Items: &untangle.Parameter{
					Type: untangle.TypeObject,
					Properties: map[string]*untangle.Parameter{
						"description":      {Type: untangle.TypeString},
						"kind":             {Type: untangle.TypeString},
						"duration_minutes": {Type: untangle.TypeInteger},
						"priority":         {Type: untangle.TypeString},
					},
					Required: []string{"description", "kind"},
				},
			},
			"encouragement": {Type: untangle.TypeString},
		},
		Required: []string{"reasoning", "tasks"},
	}

	doc := openai.StrictJSONSchema(param)
	gt.Equal(t, []string{"encouragement", "reasoning", "tasks"}, gt.Cast[[]string](t, doc["required"]))

	tasks := gt.Cast[map[string]any](t, doc["properties"].(map[string]any)["tasks"])
	items := gt.Cast[map[string]any](t, tasks["items"])
	gt.Equal(t, []string{"description", "duration_minutes", "kind", "priority"}, gt.Cast[[]string](t, items["required"]))
	gt.Equal(t, false, items["additionalProperties"])
}

func TestResponseFormatRejectsInvalidSchema(t *testing.T) {
	_, err := openai.ResponseFormat(&untangle.Parameter{Type: untangle.TypeArray})
	gt.Error(t, err)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := openai.New(context.Background(), "")
	gt.Error(t, err)
}
