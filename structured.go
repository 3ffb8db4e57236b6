package untangle

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// codeBlockRegex matches a fenced code block, optionally tagged as json.
var codeBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// GenerateStructured invokes the client and enforces the request schema on
// the response. The decoded document is returned only when it conforms;
// non-conforming or undecodable responses are rejected, never coerced.
func GenerateStructured(ctx context.Context, client LLMClient, req *GenerateRequest) (map[string]any, error) {
	if req.Schema == nil {
		return nil, goerr.Wrap(ErrInvalidParameter, "structured generation requires a schema")
	}

	schema, err := req.Schema.Compile()
	if err != nil {
		return nil, err
	}

	resp, err := client.Generate(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(ErrGeneration, err.Error())
	}

	raw := extractJSON(resp.Text)

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, goerr.Wrap(ErrSchemaViolation, "response is not valid JSON",
			goerr.V("response", truncate(resp.Text, 512)))
	}

	if err := schema.Validate(doc); err != nil {
		return nil, goerr.Wrap(ErrSchemaViolation, err.Error(),
			goerr.V("response", truncate(raw, 512)))
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, goerr.Wrap(ErrSchemaViolation, "response is not a JSON object")
	}

	LoggerFromContext(ctx).Debug("structured generation succeeded",
		"input_token", resp.InputToken,
		"output_token", resp.OutputToken,
	)

	return obj, nil
}

// extractJSON cleans model output to the bare JSON document. Some models
// wrap JSON in markdown code fences even when a JSON content type was
// requested, and others prepend prose before the opening brace.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if matches := codeBlockRegex.FindStringSubmatch(text); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return text
	}

	// Scan for the matching closing brace, skipping braces inside string
	// literals and escape sequences.
	depth := 0
	inString := false
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	return text[start:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
