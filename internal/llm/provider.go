package llm

import (
	"context"
	"encoding/json"
)

// Provider sends one request to a model vendor. Implementations are the
// vendor adapters and the decorators that wrap them.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

// Request is a single-turn or multi-turn prompt.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, asks the vendor for structured output and the
	// answer is validated against it.
	Schema *Schema

	// JSON asks for a JSON answer of any shape. Vendors whose JSON mode
	// forces an object root ignore it.
	JSON bool

	// MaxTokens caps the answer; zero leaves the vendor default.
	MaxTokens int

	// Temperature of zero leaves the vendor default.
	Temperature float64
}

func (r Request) wantsJSON() bool {
	return r.JSON || r.Schema != nil
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Schema is a named JSON Schema document. The name keys the compiled
// schema cache and is sent to vendors that want one.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is a finished answer. Content is the raw text of the answer;
// for JSON requests that is the JSON document itself.
type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string

	// StopReason is one of StopEnd, StopMaxTokens or StopBlocked.
	StopReason string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Normalized stop reasons.
const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
	StopBlocked   = "blocked"
)

// finish turns a vendor answer into a Response. A truncated JSON answer
// and a blocked one are errors; schema requests are validated here so every
// adapter applies the same rules.
func finish(req Request, content json.RawMessage, stop, detail string, usage Usage, model string) (*Response, error) {
	switch {
	case stop == StopBlocked:
		return nil, &ErrBlocked{Reason: detail}
	case stop == StopMaxTokens && req.wantsJSON():
		return nil, &ErrMaxTokensExceeded{Content: content, Limit: req.MaxTokens}
	}
	if err := validateResponse(req.Schema, content); err != nil {
		return nil, err
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return &Response{Content: content, Usage: usage, Model: model, StopReason: stop}, nil
}
