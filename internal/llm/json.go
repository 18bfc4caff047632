package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ExtractJSON trims model text down to the outermost JSON object or array,
// dropping markdown fences and surrounding prose.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end <= start {
		return text[start:]
	}
	return text[start : end+1]
}

// DecodeJSON parses model output into T. Parse failures are *ParseError and
// schema mismatches are *ValidationError.
func DecodeJSON[T any](text string, schema *Schema) (T, error) {
	var out T
	raw := ExtractJSON(text)
	if raw == "" {
		return out, &ParseError{Raw: text, Err: errors.New("empty response")}
	}

	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return out, &ParseError{Raw: text, Err: err}
	}
	if err := schema.Validate(generic); err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, &ParseError{Raw: text, Err: err}
	}
	return out, nil
}

// CompleteJSON issues a structured request and decodes the reply.
func CompleteJSON[T any](ctx context.Context, client Client, req Request, schema *Schema) (T, error) {
	req.ResponseSchema = schema
	resp, err := client.Complete(ctx, req)
	if err != nil {
		var zero T
		return zero, err
	}
	return DecodeJSON[T](resp.Text, schema)
}

// CompleteText issues a free text request and returns the trimmed reply.
func CompleteText(ctx context.Context, client Client, req Request) (string, error) {
	req.ResponseSchema = nil
	resp, err := client.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", errors.New("llm: model returned an empty response")
	}
	return text, nil
}
