// Package vocab holds the fixed tag vocabulary and hint categories that
// generated questions are checked against.
package vocab

import (
	"slices"
	"strings"
)

// Oracle answers whether a tag belongs to the accepted vocabulary.
type Oracle interface {
	IsValidTag(tag string) bool
}

// Vocabulary is an immutable set of accepted tags.
type Vocabulary struct {
	tags map[string]struct{}
}

// New builds a vocabulary from the given tags. Tags are trimmed; empty
// entries are ignored.
func New(tags ...string) *Vocabulary {
	v := &Vocabulary{tags: make(map[string]struct{}, len(tags))}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			v.tags[t] = struct{}{}
		}
	}
	return v
}

// Default returns the built-in vocabulary.
func Default() *Vocabulary {
	return New(defaultTags...)
}

// IsValidTag reports whether tag is in the vocabulary. Matching is exact.
func (v *Vocabulary) IsValidTag(tag string) bool {
	_, ok := v.tags[tag]
	return ok
}

// Tags returns the vocabulary sorted alphabetically.
func (v *Vocabulary) Tags() []string {
	out := make([]string, 0, len(v.tags))
	for t := range v.tags {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of tags.
func (v *Vocabulary) Len() int { return len(v.tags) }

// Hint categories.
const (
	HintMorphological = "morphological"
	HintSyntactic     = "syntactic"
	HintLexical       = "lexical"
	HintPhonological  = "phonological"
	HintPragmatic     = "pragmatic"
)

// HintCategories returns the allowed hint categories, sorted.
func HintCategories() []string {
	return []string{HintLexical, HintMorphological, HintPhonological, HintPragmatic, HintSyntactic}
}

// IsHintCategory reports whether c is an allowed hint category.
func IsHintCategory(c string) bool {
	return slices.Contains(HintCategories(), c)
}

var defaultTags = []string{
	// grammar structures
	"subjunctive", "conditional", "cleft", "inversion", "emphasis",
	"comparative", "superlative", "passive", "modal", "infinitive",
	"gerund", "participle", "relative-clause", "noun-clause",
	"adverb-clause", "as-clause", "complex-sentence", "grammar",

	// fixed patterns
	"as-adjective-as", "as-soon-as", "as-long-as", "as-far-as",
	"the-more-the-more", "would-rather", "had-better", "used-to",
	"be-used-to", "too-to", "so-that", "such-that", "not-only-but-also",
	"either-or", "neither-nor",

	// communicative functions
	"advice", "warning", "request", "permission", "prohibition",
	"suggestion", "offer", "invitation", "complaint", "apology",
	"opinion", "preference", "regret", "possibility", "necessity",
	"ability", "purpose", "result", "cause",

	// themes
	"family", "education", "career", "health", "money", "relationship",
	"travel", "food", "sports", "entertainment", "technology",
	"environment", "culture", "business", "academic", "personal",
	"social", "daily-life",

	// tenses
	"present-simple", "present-continuous", "present-perfect",
	"past-simple", "past-continuous", "past-perfect",
	"future-simple", "future-perfect",
}
