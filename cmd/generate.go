package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dailyq/dailyq/internal/dailyrun"
	"github.com/dailyq/dailyq/internal/llm"
	"github.com/dailyq/dailyq/internal/logging"
	"github.com/dailyq/dailyq/internal/pool"
	"github.com/dailyq/dailyq/internal/prompt"
	"github.com/dailyq/dailyq/internal/questiongen"
	"github.com/dailyq/dailyq/internal/vocab"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate and store the daily question batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()

		rt, err := loadDeps(cmd)
		if err != nil {
			return err
		}
		ctx := logging.IntoContext(cmd.Context(), rt.log)

		p := dailyrun.Params{}
		p.Date, _ = f.GetString("date")
		p.Count, _ = f.GetInt("count")
		p.ModelOverride, _ = f.GetString("model")
		p.TopicPoolPath, _ = f.GetString("topic-pool")
		p.StructurePoolPath, _ = f.GetString("structure-pool")
		p.ContentPoolPath, _ = f.GetString("content-pool")
		p.TopicSampleSize, _ = f.GetInt("topic-count")
		p.StructureSampleSize, _ = f.GetInt("structure-count")
		p.ContentSampleSize, _ = f.GetInt("content-count")
		p.TargetDifficulty, _ = f.GetInt("difficulty")
		p.DryRun, _ = f.GetBool("dry-run")
		topics, _ := f.GetString("topics")
		structures, _ := f.GetString("structures")
		content, _ := f.GetString("content")
		p.ManualTopics = pool.SplitManual(topics)
		p.ManualStructures = pool.SplitManual(structures)
		p.ManualContent = pool.SplitManual(content)
		seed, _ := f.GetUint64("seed")

		gen := rt.cfg.Generator
		opts := dailyrun.Options{
			Provider: func(ctx context.Context, model string) (llm.Provider, error) {
				return llm.NewProvider(ctx, rt.cfg.LLM.WithModel(model), rt.log)
			},
			Composer:   prompt.NewComposer(prompt.Open(gen.PromptDir)),
			Sampler:    pool.NewSampler(seed),
			Vocabulary: vocab.Default(),
			Generation: questiongen.Config{
				MaxTokens:   rt.cfg.LLM.MaxOutputTokens,
				Temperature: rt.cfg.LLM.Temperature,
			},
			Defaults: dailyrun.Defaults{
				Count:             gen.DefaultCount,
				TopicPoolPath:     gen.TopicPoolPath,
				StructurePoolPath: gen.StructurePoolPath,
				ContentPoolPath:   gen.ContentPoolPath,
				HashSuffix:        gen.IDHashSuffix,
			},
			Timeout: rt.cfg.LLM.Timeout,
			Logger:  rt.log,
		}

		// A dry run never touches the database.
		if !p.DryRun {
			st, err := rt.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			opts.Store = st
		}

		sum, err := dailyrun.New(opts).Run(ctx, p)
		if err != nil {
			return err
		}
		return sum.Render(cmd.OutOrStdout())
	},
}

func init() {
	f := generateCmd.Flags()
	f.String("date", today(), "Question date (YYYY-MM-DD)")
	f.Int("count", 0, "Number of questions to request (default GENERATOR_DEFAULT_COUNT)")
	f.String("model", "", "Override the configured model")
	f.String("topics", "", "Comma-separated topics; skips topic sampling")
	f.String("structures", "", "Comma-separated structures; skips structure sampling")
	f.String("content", "", "Comma-separated content briefs; skips content sampling")
	f.String("topic-pool", "", "Topic pool file (.json or .yaml)")
	f.String("structure-pool", "", "Structure pool file (.json or .yaml)")
	f.String("content-pool", "", "Content pool file (.json or .yaml)")
	f.Int("topic-count", dailyrun.DefaultTopicSample, "Topics to sample")
	f.Int("structure-count", dailyrun.DefaultStructureSample, "Structures to sample")
	f.Int("content-count", dailyrun.DefaultContentSample, "Content briefs to sample")
	f.Int("difficulty", dailyrun.DefaultTargetDifficulty, "Target difficulty (1-5)")
	f.Uint64("seed", 0, "Sampling seed; 0 samples randomly")
	f.Bool("dry-run", false, "Generate and validate without writing to the database")
}
