package questiongen

import (
	"github.com/dailyq/dailyq/internal/llm"
	"github.com/dailyq/dailyq/internal/vocab"
)

// CandidateSchema is the structural contract of one element of the
// model's answer. Content rules (tag vocabulary, hint count, target
// difficulty) are left to the Filter so they produce readable reasons.
var CandidateSchema = &llm.Schema{
	Name:        "daily-question",
	Description: "One Chinese sentence to translate, with reference translation, hints and tags",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{
				"type": "string",
			},
			"zh": map[string]any{
				"type":        "string",
				"description": "The Chinese source sentence",
			},
			"referenceEn": map[string]any{
				"type":        "string",
				"description": "A natural English reference translation",
			},
			"hints": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"category": map[string]any{
							"type": "string",
							"enum": toAny(vocab.HintCategories()),
						},
						"text": map[string]any{"type": "string"},
					},
					"required": []any{"category", "text"},
				},
			},
			"reviewNote": map[string]any{
				"type": []any{"string", "null"},
			},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"difficulty": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"maximum": 5,
			},
		},
		"required": []any{"zh", "referenceEn", "hints", "tags", "difficulty"},
	},
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
