package claude_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/m-mizutani/gt"

	"github.com/k-nishimoto/untangle"
	"github.com/k-nishimoto/untangle/llm/claude"
)

type fakeAPIClient struct {
	resp      *anthropic.Message
	err       error
	gotParams anthropic.MessageNewParams
}

var _ claude.APIClient = (*fakeAPIClient)(nil)

func (f *fakeAPIClient) CreateMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	f.gotParams = params
	return f.resp, f.err
}

func checkSchema() *untangle.Parameter {
	return &untangle.Parameter{
		Title: "check",
		Type:  untangle.TypeObject,
		Properties: map[string]*untangle.Parameter{
			"ok": {Type: untangle.TypeBoolean},
		},
		Required: []string{"ok"},
	}
}

func TestBuildSystemBlocks(t *testing.T) {
	t.Run("system prompt plus schema instruction", func(t *testing.T) {
		blocks, err := claude.BuildSystemBlocks(&untangle.GenerateRequest{
			SystemPrompt: "be terse",
			Prompt:       "are you ok",
			Schema:       checkSchema(),
		})
		gt.NoError(t, err)
		gt.Array(t, blocks).Length(2)
		gt.Equal(t, "be terse", blocks[0].Text)
		gt.S(t, blocks[1].Text).
			Contains("single JSON object").
			Contains("additionalProperties")
	})

	t.Run("no schema keeps the system prompt alone", func(t *testing.T) {
		blocks, err := claude.BuildSystemBlocks(&untangle.GenerateRequest{
			SystemPrompt: "be terse",
			Prompt:       "hi",
		})
		gt.NoError(t, err)
		gt.Array(t, blocks).Length(1)
	})

	t.Run("invalid schema rejected", func(t *testing.T) {
		_, err := claude.BuildSystemBlocks(&untangle.GenerateRequest{
			Prompt: "hi",
			Schema: &untangle.Parameter{Type: untangle.TypeArray},
		})
		gt.Error(t, err)
	})
}

func TestGenerateSendsPromptAndSchema(t *testing.T) {
	// The union's As* accessors read the raw JSON captured during
	// unmarshaling, so the block must be built via json.Unmarshal rather
	// than a struct literal.
	var block anthropic.ContentBlockUnion
	gt.NoError(t, json.Unmarshal([]byte(`{"type": "text", "text": "{\"ok\": true}"}`), &block))

	fake := &fakeAPIClient{
		resp: &anthropic.Message{
			Content: []anthropic.ContentBlockUnion{block},
			Usage:   anthropic.Usage{InputTokens: 12, OutputTokens: 34},
		},
	}
	client := claude.NewClientWithAPIClient(fake, anthropic.ModelClaude3_5SonnetLatest, claude.DefaultMaxTokens)

	resp, err := client.Generate(context.Background(), &untangle.GenerateRequest{
		SystemPrompt: "be terse",
		Prompt:       "are you ok",
		Schema:       checkSchema(),
	})
	gt.NoError(t, err)
	gt.Equal(t, `{"ok": true}`, resp.Text)
	gt.Equal(t, 12, resp.InputToken)
	gt.Equal(t, 34, resp.OutputToken)

	gt.Equal(t, int64(claude.DefaultMaxTokens), fake.gotParams.MaxTokens)
	gt.Array(t, fake.gotParams.System).Length(2)
	gt.Array(t, fake.gotParams.Messages).Length(1)
}

func TestGenerateRejectsEmptyContent(t *testing.T) {
	fake := &fakeAPIClient{resp: &anthropic.Message{}}
	client := claude.NewClientWithAPIClient(fake, anthropic.ModelClaude3_5SonnetLatest, claude.DefaultMaxTokens)

	_, err := client.Generate(context.Background(), &untangle.GenerateRequest{Prompt: "hi"})
	gt.Error(t, err)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := claude.New(context.Background(), "")
	gt.Error(t, err)
}
