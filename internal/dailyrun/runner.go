// Package dailyrun runs one generation batch end to end: sample briefs,
// render the prompt, call the model, filter and store the result.
package dailyrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dailyq/dailyq/internal/llm"
	"github.com/dailyq/dailyq/internal/pool"
	"github.com/dailyq/dailyq/internal/prompt"
	"github.com/dailyq/dailyq/internal/questiongen"
	"github.com/dailyq/dailyq/internal/store"
	"github.com/dailyq/dailyq/internal/vocab"
)

const (
	DefaultCount            = 8
	DefaultTopicSample      = 4
	DefaultStructureSample  = 2
	DefaultContentSample    = 2
	DefaultTargetDifficulty = 2
)

// ProviderFunc builds the model client for a run. An empty model selects
// the configured default.
type ProviderFunc func(ctx context.Context, model string) (llm.Provider, error)

// Params are the per-run knobs. Zero values fall back to defaults.
type Params struct {
	Date          string
	Count         int
	ModelOverride string

	TopicPoolPath     string
	StructurePoolPath string
	ContentPoolPath   string

	ManualTopics     []string
	ManualStructures []string
	ManualContent    []string

	TopicSampleSize     int
	StructureSampleSize int
	ContentSampleSize   int

	TargetDifficulty int
	DryRun           bool
}

// Defaults come from configuration and apply when Params leave a field zero.
type Defaults struct {
	Count             int
	TopicPoolPath     string
	StructurePoolPath string
	ContentPoolPath   string
	HashSuffix        bool
}

// Options wires a Runner.
type Options struct {
	Provider   ProviderFunc
	Composer   *prompt.Composer
	Sampler    *pool.Sampler
	Vocabulary *vocab.Vocabulary

	// Store may be nil for dry runs.
	Store store.QuestionStore

	Generation questiongen.Config
	Defaults   Defaults

	// Timeout bounds the model call. Zero means no extra bound.
	Timeout time.Duration

	Logger zerolog.Logger
}

// Runner executes generation runs. Steps run strictly in sequence.
type Runner struct {
	opts Options
	log  zerolog.Logger
	now  func() time.Time
}

// New returns a Runner. Composer, Sampler and Vocabulary default to the
// built-in templates, an unseeded sampler and the default vocabulary.
func New(opts Options) *Runner {
	if opts.Composer == nil {
		opts.Composer = prompt.NewComposer(prompt.DefaultTemplates())
	}
	if opts.Sampler == nil {
		opts.Sampler = pool.NewSampler(0)
	}
	if opts.Vocabulary == nil {
		opts.Vocabulary = vocab.Default()
	}
	if opts.Generation == (questiongen.Config{}) {
		opts.Generation = questiongen.DefaultConfig()
	}
	return &Runner{
		opts: opts,
		log:  opts.Logger.With().Str("component", "dailyrun").Logger(),
		now:  time.Now,
	}
}

// Run generates, filters and (unless DryRun) stores one batch.
func (r *Runner) Run(ctx context.Context, p Params) (*Summary, error) {
	p, err := r.resolve(p)
	if err != nil {
		return nil, err
	}
	if !p.DryRun && r.opts.Store == nil {
		return nil, errors.New("run: a store is required unless dry run")
	}
	if r.opts.Provider == nil {
		return nil, errors.New("run: no model provider configured")
	}

	topics, err := r.sample(pool.KindTopic, p.TopicPoolPath, r.opts.Defaults.TopicPoolPath, p.TopicSampleSize, p.TargetDifficulty, p.ManualTopics)
	if err != nil {
		return nil, err
	}
	structures, err := r.sample(pool.KindStructure, p.StructurePoolPath, r.opts.Defaults.StructurePoolPath, p.StructureSampleSize, p.TargetDifficulty, p.ManualStructures)
	if err != nil {
		return nil, err
	}
	content, err := r.sample(pool.KindContent, p.ContentPoolPath, r.opts.Defaults.ContentPoolPath, p.ContentSampleSize, p.TargetDifficulty, p.ManualContent)
	if err != nil {
		return nil, err
	}

	validTags := r.opts.Vocabulary.Tags()
	hintCategories := vocab.HintCategories()

	rendered, err := r.opts.Composer.Compose(prompt.Input{
		Date:           p.Date,
		Count:          p.Count,
		Difficulty:     p.TargetDifficulty,
		Topics:         topics,
		Structures:     structures,
		Content:        content,
		ValidTags:      validTags,
		HintCategories: hintCategories,
	})
	if err != nil {
		return nil, fmt.Errorf("compose prompt: %w", err)
	}

	provider, err := r.opts.Provider(ctx, p.ModelOverride)
	if err != nil {
		return nil, fmt.Errorf("model provider: %w", err)
	}

	log := r.log.With().Str("date", p.Date).Int("difficulty", p.TargetDifficulty).Logger()
	log.Info().
		Int("count", p.Count).
		Strs("topics", pool.Names(topics)).
		Strs("structures", pool.Names(structures)).
		Strs("content", pool.Names(content)).
		Str("model", provider.ModelID()).
		Bool("dry_run", p.DryRun).
		Msg("generating questions")

	genCtx := ctx
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}
	result, err := questiongen.New(provider, r.opts.Generation).Generate(genCtx, questiongen.Request{
		Date:           p.Date,
		Count:          p.Count,
		Difficulty:     p.TargetDifficulty,
		SystemPrompt:   rendered.Text,
		Topics:         topics,
		Structures:     structures,
		Content:        content,
		ValidTags:      validTags,
		HintCategories: hintCategories,
	})
	if err != nil {
		return nil, err
	}

	var existing map[string]struct{}
	if r.opts.Store != nil {
		existing, err = r.opts.Store.ExistingIDs(ctx, p.Date)
		if err != nil {
			return nil, err
		}
	}

	filter := questiongen.NewFilter(r.opts.Vocabulary, r.opts.Defaults.HashSuffix)
	accepted, rejected := filter.Apply(questiongen.FilterInput{
		Date:        p.Date,
		Difficulty:  p.TargetDifficulty,
		Model:       result.Model,
		PromptHash:  rendered.Hash,
		Candidates:  result.Candidates,
		ExistingIDs: existing,
	})

	sum := &Summary{
		Date:       p.Date,
		Difficulty: p.TargetDifficulty,
		Requested:  p.Count,
		Topics:     pool.Names(topics),
		Structures: pool.Names(structures),
		Content:    pool.Names(content),
		Model:      result.Model,
		PromptHash: rendered.Hash,
		Usage:      result.Usage,
		Generated:  len(result.Candidates) + len(result.Rejected),
		Accepted:   len(accepted),
		Rejections: append(append([]string{}, result.Rejected...), rejected...),
		DryRun:     p.DryRun,
	}
	if len(accepted) > 0 {
		sum.Preview = accepted[0].Raw
	}

	if !p.DryRun && len(accepted) > 0 {
		saved, err := r.opts.Store.SaveMany(ctx, accepted)
		if err != nil {
			return nil, err
		}
		sum.Inserted = saved.Inserted
		sum.Duplicates = saved.Duplicates
	}

	log.Info().
		Int("generated", sum.Generated).
		Int("accepted", sum.Accepted).
		Int("rejected", len(sum.Rejections)).
		Int("inserted", sum.Inserted).
		Int("duplicates", sum.Duplicates).
		Msg("generation finished")
	return sum, nil
}

func (r *Runner) resolve(p Params) (Params, error) {
	if p.Date == "" {
		p.Date = r.now().Format(store.DateLayout)
	}
	if _, err := store.ParseDate(p.Date); err != nil {
		return p, err
	}

	if p.TargetDifficulty == 0 {
		p.TargetDifficulty = DefaultTargetDifficulty
	}
	if p.TargetDifficulty < 1 || p.TargetDifficulty > 5 {
		return p, fmt.Errorf("target difficulty must be between 1 and 5, got %d", p.TargetDifficulty)
	}

	if p.Count <= 0 {
		p.Count = r.opts.Defaults.Count
	}
	if p.Count <= 0 {
		p.Count = DefaultCount
	}
	p.TopicSampleSize = positiveOr(p.TopicSampleSize, DefaultTopicSample)
	p.StructureSampleSize = positiveOr(p.StructureSampleSize, DefaultStructureSample)
	p.ContentSampleSize = positiveOr(p.ContentSampleSize, DefaultContentSample)
	return p, nil
}

// sample loads a pool only when no manual override is given.
func (r *Runner) sample(kind pool.Kind, path, fallback string, n, difficulty int, manual []string) ([]pool.Brief, error) {
	if len(manual) > 0 {
		return r.opts.Sampler.Sample(kind, nil, n, difficulty, manual)
	}
	if path == "" {
		path = fallback
	}
	briefs, err := pool.Load(path, kind)
	if err != nil {
		return nil, err
	}
	return r.opts.Sampler.Sample(kind, briefs, n, difficulty, nil)
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
