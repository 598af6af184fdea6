package dailyrun

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dailyq/dailyq/internal/llm"
)

// Summary reports one generation run.
type Summary struct {
	Date       string
	Difficulty int
	Requested  int

	Topics     []string
	Structures []string
	Content    []string

	Model      string
	PromptHash string
	Usage      llm.Usage

	Generated  int
	Accepted   int
	Inserted   int
	Duplicates int
	Rejections []string

	DryRun bool
	// Preview is the raw payload of the first accepted record.
	Preview json.RawMessage
}

// Render writes the human-readable report.
func (s *Summary) Render(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Date:        %s (difficulty %d)\n", s.Date, s.Difficulty)
	fmt.Fprintf(&b, "Topics:      %s\n", joinOrDash(s.Topics))
	fmt.Fprintf(&b, "Structures:  %s\n", joinOrDash(s.Structures))
	fmt.Fprintf(&b, "Content:     %s\n", joinOrDash(s.Content))
	fmt.Fprintf(&b, "Model:       %s\n", s.Model)
	fmt.Fprintf(&b, "Tokens:      %d in / %d out\n", s.Usage.InputTokens, s.Usage.OutputTokens)
	if c := llm.LookupCost(s.Model); c != nil {
		fmt.Fprintf(&b, "Est. cost:   $%.4f\n", c.Cost(s.Usage.InputTokens, s.Usage.OutputTokens))
	}
	fmt.Fprintf(&b, "Generated:   %d of %d requested\n", s.Generated, s.Requested)
	fmt.Fprintf(&b, "Accepted:    %d\n", s.Accepted)
	fmt.Fprintf(&b, "Rejected:    %d\n", len(s.Rejections))
	for _, r := range s.Rejections {
		fmt.Fprintf(&b, "  - %s\n", r)
	}

	if s.DryRun {
		b.WriteString("Dry run: nothing was written.\n")
		if len(s.Preview) > 0 {
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, s.Preview, "  ", "  "); err == nil {
				fmt.Fprintf(&b, "Preview:\n  %s\n", pretty.String())
			}
		}
	} else {
		fmt.Fprintf(&b, "Inserted:    %d\n", s.Inserted)
		fmt.Fprintf(&b, "Duplicates:  %d\n", s.Duplicates)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func joinOrDash(ss []string) string {
	if len(ss) == 0 {
		return "-"
	}
	return strings.Join(ss, ", ")
}
