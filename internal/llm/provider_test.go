package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_Script(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`[1]`), Usage: Usage{InputTokens: 10, OutputTokens: 5}},
		MockResponse{Content: json.RawMessage(`[2]`)},
	).WithModel("gemini-2.5-flash")

	first, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "first"}}})
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(first.Content))
	assert.Equal(t, 15, first.Usage.TotalTokens)
	assert.Equal(t, "gemini-2.5-flash", first.Model)

	second, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "second"}}})
	require.NoError(t, err)
	assert.Equal(t, `[2]`, string(second.Content))

	require.Equal(t, 2, mock.CallCount())
	assert.Equal(t, "second", mock.Calls[1].Messages[0].Content)

	_, err = mock.Generate(context.Background(), Request{})
	var unavailable *ErrProviderUnavailable
	assert.ErrorAs(t, err, &unavailable)
}

func TestMockProvider_ScriptedTruncation(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`[{"zh":`), Stop: StopMaxTokens},
		MockResponse{Content: json.RawMessage(`partial prose`), Stop: StopMaxTokens},
	)

	_, err := mock.Generate(context.Background(), jsonRequest(100))
	var truncated *ErrMaxTokensExceeded
	require.ErrorAs(t, err, &truncated)
	assert.Equal(t, 100, truncated.Limit)

	resp, err := mock.Generate(context.Background(), Request{})
	require.NoError(t, err, "plain text may stop at the limit")
	assert.Equal(t, StopMaxTokens, resp.StopReason)
}

func TestFinish_ValidatesSchema(t *testing.T) {
	req := Request{Schema: hintSchema()}

	_, err := finish(req, json.RawMessage(`{"category":"semantic","text":"x"}`), StopEnd, "", Usage{}, "m")
	var invalid *ErrInvalidResponse
	require.ErrorAs(t, err, &invalid)
	assert.JSONEq(t, `{"category":"semantic","text":"x"}`, string(invalid.Content))

	resp, err := finish(req, json.RawMessage(`{"category":"lexical","text":"x"}`), StopEnd, "", Usage{TotalTokens: 9}, "m")
	require.NoError(t, err)
	assert.Equal(t, 9, resp.Usage.TotalTokens)
}

func TestCallLabels(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", PurposeFrom(ctx))
	assert.Empty(t, DateFrom(ctx))

	ctx = WithDate(WithPurpose(ctx, "daily-questions"), "2026-10-16")
	assert.Equal(t, "daily-questions", PurposeFrom(ctx))
	assert.Equal(t, "2026-10-16", DateFrom(ctx))

	ctx = WithPurpose(ctx, "preview")
	assert.Equal(t, "2026-10-16", DateFrom(ctx), "setting one label keeps the other")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"gemini without key", Config{Provider: "gemini"}, true},
		{"gemini with key", Config{Provider: "gemini", Gemini: GeminiConfig{APIKey: "k"}}, false},
		{"openai without key", Config{Provider: "openai"}, true},
		{"openai with key", Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "sk-test"}}, false},
		{"anthropic without key", Config{Provider: "anthropic"}, true},
		{"anthropic with key", Config{Provider: "anthropic", Anthropic: AnthropicConfig{APIKey: "sk-test"}}, false},
		{"mock needs no key", Config{Provider: "mock"}, false},
		{"unknown provider", Config{Provider: "unknown"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_WithModel(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "gemini-2.5-flash", cfg.WithModel("").Gemini.Model)
	assert.Equal(t, "gemini-2.5-pro", cfg.WithModel("gemini-2.5-pro").Gemini.Model)

	cfg.Provider = "openai"
	over := cfg.WithModel("gpt-4.1")
	assert.Equal(t, "gpt-4.1", over.OpenAI.Model)
	assert.Equal(t, "gemini-2.5-flash", over.Gemini.Model)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: "mock"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "mock", p.ModelID())

	_, err = NewProvider(context.Background(), Config{Provider: "gemini"}, zerolog.Nop())
	assert.ErrorContains(t, err, "GEMINI_API_KEY")

	cfg := Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "sk", Model: "gpt-mini"}, Retry: fastRetry(2)}
	p, err = NewProvider(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &RetryProvider{}, p)
	assert.Equal(t, "gpt-4o-mini", p.ModelID())
}

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), buf.String())
	return line
}

func TestLoggingProvider_Success(t *testing.T) {
	var buf bytes.Buffer
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`[]`),
		Usage:   Usage{InputTokens: 1_000_000},
	}).WithModel("gemini-2.5-flash")

	ctx := WithDate(WithPurpose(context.Background(), "daily-questions"), "2026-10-16")
	_, err := WithLogging(mock, zerolog.New(&buf)).Generate(ctx, Request{System: "sys"})
	require.NoError(t, err)

	line := decodeLogLine(t, &buf)
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "llm", line["component"])
	assert.Equal(t, "daily-questions", line["purpose"])
	assert.Equal(t, "2026-10-16", line["date"])
	assert.InDelta(t, 0.3, line["cost_usd"], 1e-9)
	assert.Equal(t, true, line["success"])
}

func TestLoggingProvider_Failure(t *testing.T) {
	var buf bytes.Buffer
	_, err := WithLogging(NewMockProvider(), zerolog.New(&buf)).Generate(context.Background(), Request{})
	require.Error(t, err)

	line := decodeLogLine(t, &buf)
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "unknown", line["purpose"])
	assert.NotContains(t, line, "date")
	assert.Equal(t, false, line["success"])
}

func TestLookupCost(t *testing.T) {
	c := LookupCost("claude-haiku-4-5")
	require.NotNil(t, c)
	assert.InDelta(t, 6.0, c.Cost(1_000_000, 1_000_000), 1e-9)
	assert.Equal(t, c, LookupCost("claude-haiku"), "aliases resolve")
	assert.Nil(t, LookupCost("no-such-model"))
}
