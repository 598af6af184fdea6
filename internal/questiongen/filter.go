package questiongen

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dailyq/dailyq/internal/store"
	"github.com/dailyq/dailyq/internal/vocab"
)

const (
	minHints = 2
	minTags  = 2
)

// Filter applies the content rules to candidates and turns the survivors
// into store records.
type Filter struct {
	oracle     vocab.Oracle
	hashSuffix bool

	now    func() time.Time
	suffix func() string
}

// NewFilter returns a filter checking tags against oracle. With
// hashSuffix, ids end in the first 8 hex digits of the prompt hash.
func NewFilter(oracle vocab.Oracle, hashSuffix bool) *Filter {
	return &Filter{
		oracle:     oracle,
		hashSuffix: hashSuffix,
		now:        time.Now,
		suffix:     randomSuffix,
	}
}

// FilterInput is one batch to filter.
type FilterInput struct {
	Date       string
	Difficulty int
	Model      string
	PromptHash string
	Candidates []Candidate

	// ExistingIDs are ids already stored for Date. Generated ids avoid them.
	ExistingIDs map[string]struct{}
}

// Apply checks every candidate independently, in order. It never fails:
// each rejected candidate yields one reason string.
func (f *Filter) Apply(in FilterInput) (accepted []store.QuestionRecord, rejected []string) {
	taken := make(map[string]struct{}, len(in.ExistingIDs)+len(in.Candidates))
	for id := range in.ExistingIDs {
		taken[id] = struct{}{}
	}
	base := f.now().UTC().Truncate(time.Microsecond)

	for _, c := range in.Candidates {
		c = trimmed(c)
		if reason := f.check(c, in.Difficulty); reason != "" {
			rejected = append(rejected, fmt.Sprintf("candidate %d%s: %s", c.Index, labelOf(c), reason))
			continue
		}

		seq := len(accepted) + 1
		id := f.assignID(in.Date, in.Difficulty, seq, in.PromptHash, taken)
		taken[id] = struct{}{}

		var note *string
		if c.ReviewNote != "" {
			note = &c.ReviewNote
		}
		raw := normalized{
			ID:          id,
			ZH:          c.ZH,
			ReferenceEn: c.ReferenceEn,
			Hints:       c.Hints,
			ReviewNote:  note,
			Tags:        c.Tags,
			Difficulty:  c.Difficulty,
		}.marshal()

		accepted = append(accepted, store.QuestionRecord{
			ID:           id,
			QuestionDate: in.Date,
			ZH:           c.ZH,
			ReferenceEn:  c.ReferenceEn,
			Difficulty:   c.Difficulty,
			Tags:         c.Tags,
			Hints:        c.Hints,
			ReviewNote:   c.ReviewNote,
			Raw:          raw,
			Model:        in.Model,
			PromptHash:   in.PromptHash,
			CreatedAt:    base.Add(time.Duration(seq-1) * time.Microsecond),
		})
	}
	return accepted, rejected
}

// check returns the first failed rule, or "".
func (f *Filter) check(c Candidate, target int) string {
	switch {
	case c.Difficulty != target:
		return fmt.Sprintf("difficulty %d does not match target %d", c.Difficulty, target)
	case c.ZH == "":
		return "zh is empty"
	case c.ReferenceEn == "":
		return "referenceEn is empty"
	case len(c.Hints) < minHints:
		return fmt.Sprintf("needs at least %d hints, got %d", minHints, len(c.Hints))
	case len(c.Tags) < minTags:
		return fmt.Sprintf("needs at least %d tags, got %d", minTags, len(c.Tags))
	}
	var invalid []string
	for _, t := range c.Tags {
		if !f.oracle.IsValidTag(t) {
			invalid = append(invalid, t)
		}
	}
	if len(invalid) > 0 {
		return "invalid tags: " + strings.Join(invalid, ", ")
	}
	return ""
}

func (f *Filter) assignID(date string, difficulty, seq int, promptHash string, taken map[string]struct{}) string {
	base := fmt.Sprintf("daily-%s-d%d-%03d", date, difficulty, seq)
	id := base
	if f.hashSuffix && promptHash != "" {
		id = base + "-" + prefix(promptHash, 8)
	}
	for {
		if _, ok := taken[id]; !ok {
			return id
		}
		id = base + "-" + f.suffix()
	}
}

func trimmed(c Candidate) Candidate {
	c.ZH = strings.TrimSpace(c.ZH)
	c.ReferenceEn = strings.TrimSpace(c.ReferenceEn)
	c.ReviewNote = strings.TrimSpace(c.ReviewNote)
	tags := make([]string, len(c.Tags))
	for i, t := range c.Tags {
		tags[i] = strings.TrimSpace(t)
	}
	c.Tags = tags
	return c
}

func labelOf(c Candidate) string {
	if c.ID == "" {
		return ""
	}
	return " (" + c.ID + ")"
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
