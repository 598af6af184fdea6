package questiongen

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyq/dailyq/internal/store"
	"github.com/dailyq/dailyq/internal/vocab"
)

const testHash = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func goodCandidate(idx int, zh string) Candidate {
	return Candidate{
		Index:       idx,
		ID:          "llm-" + zh,
		ZH:          zh,
		ReferenceEn: "reference",
		Hints: []store.Hint{
			{Category: "lexical", Text: "a"},
			{Category: "pragmatic", Text: "b"},
		},
		Tags:       []string{"travel", "past-simple"},
		Difficulty: 2,
	}
}

func fixedFilter(hashSuffix bool) *Filter {
	f := NewFilter(vocab.Default(), hashSuffix)
	f.now = func() time.Time { return time.Date(2025, 1, 1, 6, 0, 0, 123456789, time.UTC) }
	n := 0
	f.suffix = func() string {
		n++
		return strings.Repeat(string(rune('a'+n-1)), 8)
	}
	return f
}

func TestFilter_AcceptsAndBuildsRecords(t *testing.T) {
	f := fixedFilter(true)
	c := goodCandidate(1, "  我去過日本。 ")
	c.Tags = []string{" travel ", "past-simple"}
	c.ReviewNote = " mind the tense "

	accepted, rejected := f.Apply(FilterInput{
		Date:       "2025-01-01",
		Difficulty: 2,
		Model:      "gemini-2.5-flash",
		PromptHash: testHash,
		Candidates: []Candidate{c},
	})
	require.Empty(t, rejected)
	require.Len(t, accepted, 1)

	r := accepted[0]
	assert.Equal(t, "daily-2025-01-01-d2-001-01234567", r.ID)
	assert.Equal(t, "2025-01-01", r.QuestionDate)
	assert.Equal(t, "我去過日本。", r.ZH)
	assert.Equal(t, []string{"travel", "past-simple"}, r.Tags)
	assert.Equal(t, "mind the tense", r.ReviewNote)
	assert.Equal(t, "gemini-2.5-flash", r.Model)
	assert.Equal(t, testHash, r.PromptHash)
	assert.Equal(t, time.Date(2025, 1, 1, 6, 0, 0, 123456000, time.UTC), r.CreatedAt)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(r.Raw, &raw))
	assert.Equal(t, r.ID, raw["id"])
	assert.Equal(t, "我去過日本。", raw["zh"])
	assert.Equal(t, "mind the tense", raw["reviewNote"])
	assert.NotContains(t, raw, "suggestion")
}

func TestFilter_RawReviewNoteNullWhenEmpty(t *testing.T) {
	accepted, _ := fixedFilter(true).Apply(FilterInput{
		Date: "2025-01-01", Difficulty: 2, PromptHash: testHash,
		Candidates: []Candidate{goodCandidate(1, "你好")},
	})
	require.Len(t, accepted, 1)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(accepted[0].Raw, &raw))
	assert.Contains(t, raw, "reviewNote")
	assert.Nil(t, raw["reviewNote"])
}

func TestFilter_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Candidate)
		reason string
	}{
		{"wrong difficulty", func(c *Candidate) { c.Difficulty = 3 }, "difficulty 3 does not match target 2"},
		{"blank zh", func(c *Candidate) { c.ZH = "   " }, "zh is empty"},
		{"blank reference", func(c *Candidate) { c.ReferenceEn = "" }, "referenceEn is empty"},
		{"one hint", func(c *Candidate) { c.Hints = c.Hints[:1] }, "at least 2 hints"},
		{"one tag", func(c *Candidate) { c.Tags = []string{"travel"} }, "at least 2 tags"},
		{"unknown tag", func(c *Candidate) { c.Tags = []string{"travel", "astrology"} }, "invalid tags: astrology"},
		// Difficulty is checked before everything else.
		{"first rule wins", func(c *Candidate) { c.Difficulty = 5; c.ZH = "" }, "difficulty 5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := goodCandidate(4, "你好")
			tt.mutate(&c)
			accepted, rejected := fixedFilter(true).Apply(FilterInput{
				Date: "2025-01-01", Difficulty: 2, PromptHash: testHash,
				Candidates: []Candidate{c},
			})
			assert.Empty(t, accepted)
			require.Len(t, rejected, 1)
			assert.Contains(t, rejected[0], "candidate 4 (llm-")
			assert.Contains(t, rejected[0], tt.reason)
		})
	}
}

func TestFilter_SequenceCountsAcceptedOnly(t *testing.T) {
	bad := goodCandidate(2, "壞")
	bad.Tags = nil

	accepted, rejected := fixedFilter(false).Apply(FilterInput{
		Date: "2025-01-01", Difficulty: 2, PromptHash: testHash,
		Candidates: []Candidate{goodCandidate(1, "一"), bad, goodCandidate(3, "三")},
	})
	require.Len(t, rejected, 1)
	require.Len(t, accepted, 2)
	assert.Equal(t, "daily-2025-01-01-d2-001", accepted[0].ID)
	assert.Equal(t, "daily-2025-01-01-d2-002", accepted[1].ID)
	assert.Equal(t, "三", accepted[1].ZH)
	assert.True(t, accepted[1].CreatedAt.After(accepted[0].CreatedAt))
	assert.Equal(t, time.Microsecond, accepted[1].CreatedAt.Sub(accepted[0].CreatedAt))
}

func TestFilter_IDCollisionFallsBack(t *testing.T) {
	f := fixedFilter(true)
	existing := map[string]struct{}{
		"daily-2025-01-01-d2-001-01234567": {},
	}
	accepted, _ := f.Apply(FilterInput{
		Date: "2025-01-01", Difficulty: 2, PromptHash: testHash,
		Candidates:  []Candidate{goodCandidate(1, "一"), goodCandidate(2, "二")},
		ExistingIDs: existing,
	})
	require.Len(t, accepted, 2)
	assert.Equal(t, "daily-2025-01-01-d2-001-aaaaaaaa", accepted[0].ID)
	assert.Equal(t, "daily-2025-01-01-d2-002-01234567", accepted[1].ID)
}

func TestFilter_NoHashSuffixCollision(t *testing.T) {
	f := fixedFilter(false)
	existing := map[string]struct{}{
		"daily-2025-01-01-d2-001":          {},
		"daily-2025-01-01-d2-001-aaaaaaaa": {},
	}
	accepted, _ := f.Apply(FilterInput{
		Date: "2025-01-01", Difficulty: 2,
		Candidates:  []Candidate{goodCandidate(1, "一")},
		ExistingIDs: existing,
	})
	require.Len(t, accepted, 1)
	assert.Equal(t, "daily-2025-01-01-d2-001-bbbbbbbb", accepted[0].ID)
}

func TestFilter_EmptyInput(t *testing.T) {
	accepted, rejected := NewFilter(vocab.Default(), true).Apply(FilterInput{Date: "2025-01-01", Difficulty: 2})
	assert.Empty(t, accepted)
	assert.Empty(t, rejected)
}

func TestRandomSuffix(t *testing.T) {
	s := randomSuffix()
	assert.Len(t, s, 8)
	assert.Regexp(t, `^[0-9a-f]{8}$`, s)
}
