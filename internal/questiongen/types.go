// Package questiongen asks the model for a batch of daily questions and
// filters the answer down to records that can be stored.
package questiongen

import (
	"encoding/json"
	"fmt"

	"github.com/dailyq/dailyq/internal/llm"
	"github.com/dailyq/dailyq/internal/pool"
	"github.com/dailyq/dailyq/internal/store"
)

// Candidate is one decoded element of the model's answer, before the
// filter has looked at it.
type Candidate struct {
	// Index is the 1-based position in the model's array.
	Index int `json:"-"`

	ID          string       `json:"id"`
	ZH          string       `json:"zh"`
	ReferenceEn string       `json:"referenceEn"`
	Hints       []store.Hint `json:"hints"`
	ReviewNote  string       `json:"reviewNote"`
	Tags        []string     `json:"tags"`
	Difficulty  int          `json:"difficulty"`
}

// Request carries one generation call.
type Request struct {
	Date           string
	Count          int
	Difficulty     int
	SystemPrompt   string
	Topics         []pool.Brief
	Structures     []pool.Brief
	Content        []pool.Brief
	ValidTags      []string
	HintCategories []string
}

// Result is what came back from the model. Rejected holds the elements
// that failed structural validation.
type Result struct {
	Candidates []Candidate
	Rejected   []string
	Usage      llm.Usage
	Model      string
}

// GenerationError means the model call produced nothing usable. Nothing
// from such a run may be persisted.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Reason, e.Err)
	}
	return "generation failed: " + e.Reason
}

func (e *GenerationError) Unwrap() error { return e.Err }

// normalized is the persisted raw payload of an accepted question.
type normalized struct {
	ID          string       `json:"id"`
	ZH          string       `json:"zh"`
	ReferenceEn string       `json:"referenceEn"`
	Hints       []store.Hint `json:"hints"`
	ReviewNote  *string      `json:"reviewNote"`
	Tags        []string     `json:"tags"`
	Difficulty  int          `json:"difficulty"`
}

func (n normalized) marshal() json.RawMessage {
	b, err := json.Marshal(n)
	if err != nil {
		// Only strings, ints and slices of them; cannot fail.
		panic(err)
	}
	return b
}
