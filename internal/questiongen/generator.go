package questiongen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dailyq/dailyq/internal/llm"
	"github.com/dailyq/dailyq/internal/pool"
)

// Purpose labels generation calls in the LLM request log.
const Purpose = "daily-questions"

var expectedFields = []string{"id", "zh", "referenceEn", "hints", "reviewNote", "tags", "difficulty"}

// Config controls the generation call.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the settings used when the caller has none.
func DefaultConfig() Config {
	return Config{MaxTokens: 8192, Temperature: 0.1}
}

// Generator turns one Request into one model call.
type Generator struct {
	provider llm.Provider
	config   Config
}

// New creates a Generator backed by provider.
func New(provider llm.Provider, cfg Config) *Generator {
	return &Generator{provider: provider, config: cfg}
}

type payload struct {
	Date             string       `json:"date"`
	Count            int          `json:"count"`
	TargetDifficulty int          `json:"targetDifficulty"`
	Topics           []string     `json:"topics"`
	TopicDetails     []pool.Brief `json:"topicDetails"`
	Structures       []pool.Brief `json:"structures"`
	StructureNames   []string     `json:"structureNames"`
	ContentBriefs    []pool.Brief `json:"contentBriefs"`
	StructureHints   []string     `json:"structureHints,omitempty"`
	ExpectedFields   []string     `json:"expectedFields"`
	ValidTags        []string     `json:"validTags"`
	HintCategories   []string     `json:"hintCategories"`
	TagSuggestions   []string     `json:"tagSuggestions"`
}

// Generate makes exactly one model call. A transport failure or an answer
// that is not a non-empty JSON array is a *GenerationError; elements that
// fail the candidate schema are reported in Result.Rejected.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	ctx = llm.WithDate(llm.WithPurpose(ctx, Purpose), req.Date)

	body, err := buildPayload(req)
	if err != nil {
		return nil, &GenerationError{Reason: "encode payload", Err: err}
	}

	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      req.SystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: body}},
		JSON:        true,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return nil, &GenerationError{Reason: "model call", Err: err}
	}

	text := stripCodeFence(string(resp.Content))
	if text == "" {
		return nil, &GenerationError{Reason: "empty response"}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(text), &elems); err != nil {
		return nil, &GenerationError{Reason: "response root is not a JSON array", Err: err}
	}
	if len(elems) == 0 {
		return nil, &GenerationError{Reason: "response array is empty"}
	}

	res := &Result{Usage: resp.Usage, Model: resp.Model}
	if res.Model == "" {
		res.Model = g.provider.ModelID()
	}
	for i, el := range elems {
		idx := i + 1
		if err := llm.ValidateJSON(CandidateSchema, el); err != nil {
			res.Rejected = append(res.Rejected, fmt.Sprintf("candidate %d failed validation: %s", idx, oneLine(err.Error())))
			continue
		}
		var c Candidate
		if err := json.Unmarshal(el, &c); err != nil {
			res.Rejected = append(res.Rejected, fmt.Sprintf("candidate %d failed validation: %s", idx, oneLine(err.Error())))
			continue
		}
		c.Index = idx
		res.Candidates = append(res.Candidates, c)
	}
	return res, nil
}

func buildPayload(req Request) (string, error) {
	p := payload{
		Date:             req.Date,
		Count:            req.Count,
		TargetDifficulty: req.Difficulty,
		Topics:           orEmpty(pool.Names(req.Topics)),
		TopicDetails:     orEmpty(req.Topics),
		Structures:       orEmpty(req.Structures),
		StructureNames:   orEmpty(pool.Names(req.Structures)),
		ContentBriefs:    orEmpty(req.Content),
		ExpectedFields:   expectedFields,
		ValidTags:        orEmpty(req.ValidTags),
		HintCategories:   orEmpty(req.HintCategories),
		TagSuggestions:   orEmpty(pool.TagUnion(req.Topics, req.Structures)),
	}
	for _, s := range req.Structures {
		if h := strings.TrimSpace(s.Hint); h != "" {
			p.StructureHints = append(p.StructureHints, h)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
