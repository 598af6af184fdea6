// Package prompt renders the system prompt for a generation run.
package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dailyq/dailyq/internal/pool"
)

// Input is everything a prompt is rendered from.
type Input struct {
	Date           string
	Count          int
	Difficulty     int
	Topics         []pool.Brief
	Structures     []pool.Brief
	Content        []pool.Brief
	ValidTags      []string
	HintCategories []string
}

// Rendered is a composed prompt and the hex sha256 of its text.
type Rendered struct {
	Text string
	Hash string
}

// Composer fills templates from a Templates store.
type Composer struct {
	templates *Templates
}

// NewComposer returns a composer reading from templates.
func NewComposer(templates *Templates) *Composer {
	return &Composer{templates: templates}
}

// Compose renders the template for in.Difficulty.
func (c *Composer) Compose(in Input) (Rendered, error) {
	if in.Difficulty < 1 || in.Difficulty > 5 {
		return Rendered{}, fmt.Errorf("difficulty must be between 1 and 5, got %d", in.Difficulty)
	}

	tmpl, err := c.templates.TemplateFor(in.Difficulty)
	if err != nil {
		return Rendered{}, err
	}
	guides, err := c.templates.Guides()
	if err != nil {
		return Rendered{}, err
	}

	guide, ok := guides[in.Difficulty]
	if !ok || strings.TrimSpace(guide.Guide) == "" {
		guide.Guide = fmt.Sprintf("No specific guidance for difficulty %d; keep sentences natural and clearly at this level.", in.Difficulty)
	}
	if strings.TrimSpace(guide.Example) == "" {
		guide.Example = "(no example for this difficulty)"
	}

	values := map[string]string{
		"COUNT":              strconv.Itoa(in.Count),
		"DATE":               in.Date,
		"TOPICS":             Bullets(in.Topics, "topics"),
		"STRUCTURES":         Bullets(in.Structures, "structures"),
		"CONTENT_BRIEFS":     Bullets(in.Content, "content formats"),
		"VALID_TAGS":         strings.Join(in.ValidTags, ", "),
		"HINT_CATEGORIES":    strings.Join(in.HintCategories, ", "),
		"TARGET_DIFFICULTY":  strconv.Itoa(in.Difficulty),
		"DIFFICULTY_GUIDE":   strings.TrimSpace(guide.Guide),
		"DIFFICULTY_EXAMPLE": strings.TrimSpace(guide.Example),
	}

	text := Substitute(tmpl, values)
	sum := sha256.Sum256([]byte(text))
	return Rendered{Text: text, Hash: hex.EncodeToString(sum[:])}, nil
}

var placeholder = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// Substitute replaces ${NAME} and $NAME with values[NAME]. Names missing
// from values are left as written, and $$ becomes a literal $.
func Substitute(text string, values map[string]string) string {
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		if m == "$$" {
			return "$"
		}
		name := strings.Trim(m, "${}")
		if v, ok := values[name]; ok {
			return v
		}
		return m
	})
}

// Bullets renders one "- name / tags: a, b / description" line per brief.
// Pattern, focus and hint follow the description when present.
func Bullets(briefs []pool.Brief, what string) string {
	if len(briefs) == 0 {
		return fmt.Sprintf("- (no %s given; choose freely)", what)
	}
	lines := make([]string, len(briefs))
	for i, b := range briefs {
		parts := []string{b.Name}
		if len(b.Tags) > 0 {
			parts = append(parts, "tags: "+strings.Join(b.Tags, ", "))
		}
		for _, s := range []string{b.Description, b.Pattern, b.Focus, b.Hint} {
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
		lines[i] = "- " + strings.Join(parts, " / ")
	}
	return strings.Join(lines, "\n")
}
