// Package pool loads topic, structure and content briefs and samples a
// bounded subset of them for one generation run.
package pool

import (
	"fmt"
	"slices"
)

// Kind names which pool a brief came from.
type Kind string

const (
	KindTopic     Kind = "topic"
	KindStructure Kind = "structure"
	KindContent   Kind = "content"
)

// Brief is one pool entry. Only Name is required; the rest feeds prompt
// text. A zero MinDifficulty or MaxDifficulty leaves that side open.
type Brief struct {
	Name          string   `json:"name" yaml:"name"`
	Tags          []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
	Pattern       string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Focus         string   `json:"focus,omitempty" yaml:"focus,omitempty"`
	Hint          string   `json:"hint,omitempty" yaml:"hint,omitempty"`
	MinDifficulty int      `json:"minDifficulty,omitempty" yaml:"minDifficulty,omitempty"`
	MaxDifficulty int      `json:"maxDifficulty,omitempty" yaml:"maxDifficulty,omitempty"`
}

// HasRange reports whether the brief declares any difficulty bound.
func (b Brief) HasRange() bool {
	return b.MinDifficulty > 0 || b.MaxDifficulty > 0
}

// Matches reports whether difficulty falls inside the brief's range.
// Briefs without a range match every difficulty.
func (b Brief) Matches(difficulty int) bool {
	if !b.HasRange() {
		return true
	}
	lo, hi := b.MinDifficulty, b.MaxDifficulty
	if lo <= 0 {
		lo = 1
	}
	if hi <= 0 {
		hi = 5
	}
	return difficulty >= lo && difficulty <= hi
}

// Names returns the names of briefs in order.
func Names(briefs []Brief) []string {
	out := make([]string, len(briefs))
	for i, b := range briefs {
		out[i] = b.Name
	}
	return out
}

// TagUnion returns the sorted, de-duplicated tags across all groups.
func TagUnion(groups ...[]Brief) []string {
	var tags []string
	for _, g := range groups {
		for _, b := range g {
			tags = append(tags, b.Tags...)
		}
	}
	slices.Sort(tags)
	return slices.Compact(tags)
}

// PoolEmptyError is returned when sampling from an empty pool with no
// manual override.
type PoolEmptyError struct {
	Kind Kind
}

func (e *PoolEmptyError) Error() string {
	return fmt.Sprintf("%s pool is empty and no manual override was given", e.Kind)
}
