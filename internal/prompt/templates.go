package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates
var embedded embed.FS

const (
	genericTemplate = "generate_questions.txt"
	guidesFile      = "difficulty_guides.yaml"
)

// TemplateNotFoundError is returned when neither a difficulty-specific nor
// the generic template exists.
type TemplateNotFoundError struct {
	Difficulty int
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("no prompt template for difficulty %d and no %s fallback", e.Difficulty, genericTemplate)
}

// Templates looks up prompt templates and difficulty guides in a file
// system. Files sit at its root.
type Templates struct {
	fsys fs.FS
}

// NewTemplates wraps fsys.
func NewTemplates(fsys fs.FS) *Templates {
	return &Templates{fsys: fsys}
}

// DefaultTemplates returns the templates compiled into the binary.
func DefaultTemplates() *Templates {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err) // embed layout is fixed at build time
	}
	return NewTemplates(sub)
}

// Open returns the templates in dir, or the built-in set when dir is empty.
func Open(dir string) *Templates {
	if dir == "" {
		return DefaultTemplates()
	}
	return NewTemplates(os.DirFS(dir))
}

// TemplateFor returns generate_questions_d{N}.txt, falling back to
// generate_questions.txt. Empty files count as missing.
func (t *Templates) TemplateFor(difficulty int) (string, error) {
	for _, name := range []string{fmt.Sprintf("generate_questions_d%d.txt", difficulty), genericTemplate} {
		text, err := t.read(name)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	return "", &TemplateNotFoundError{Difficulty: difficulty}
}

// Guide is the guidance paragraph and worked example for one tier.
type Guide struct {
	Guide   string `yaml:"guide"`
	Example string `yaml:"example"`
}

// Guides loads difficulty_guides.yaml. A missing file yields no guides.
func (t *Templates) Guides() (map[int]Guide, error) {
	text, err := t.read(guidesFile)
	if err != nil {
		return nil, err
	}
	guides := map[int]Guide{}
	if strings.TrimSpace(text) == "" {
		return guides, nil
	}
	if err := yaml.Unmarshal([]byte(text), &guides); err != nil {
		return nil, fmt.Errorf("parse %s: %w", guidesFile, err)
	}
	return guides, nil
}

// read returns "" without error when the file does not exist.
func (t *Templates) read(name string) (string, error) {
	data, err := fs.ReadFile(t.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read prompt %s: %w", name, err)
	}
	return string(data), nil
}
