package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dailyq/dailyq/internal/config"
	"github.com/dailyq/dailyq/internal/delivery"
	"github.com/dailyq/dailyq/internal/logging"
	"github.com/dailyq/dailyq/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "dailyq",
	Short: "Daily translation questions",
	Long: "dailyq generates a daily batch of Chinese-to-English translation questions " +
		"with a language model and hands them out to devices, each question at most once per device.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides QUESTION_DB_PATH)")
	rootCmd.PersistentFlags().String("db-url", "", "Postgres connection URL (overrides QUESTION_DB_URL, wins over --db)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(reserveCmd)
	rootCmd.AddCommand(remainingCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

// deps is the per-invocation dependency set: config first, then the
// logger built from it.
type deps struct {
	cfg *config.App
	log zerolog.Logger
}

func loadDeps(cmd *cobra.Command) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Store.Path = p
	}
	if u, _ := cmd.Flags().GetString("db-url"); u != "" {
		cfg.Store.URL = u
	}
	return &deps{
		cfg: cfg,
		log: logging.New(cfg.Name, cfg.Env, cfg.LogLevel),
	}, nil
}

func (rt *deps) openStore(ctx context.Context) (*store.SQLStore, error) {
	return store.Open(ctx, store.Options{
		Path:   rt.cfg.Store.Path,
		URL:    rt.cfg.Store.URL,
		Mode:   store.DeliveryMode(rt.cfg.Delivery.Mode),
		Logger: rt.log,
	})
}

// coordinator opens the store and picks the lock: redis when REDIS_ADDR
// is set, otherwise in-process. The returned func releases everything.
func (rt *deps) coordinator(ctx context.Context) (*delivery.Coordinator, func(), error) {
	st, err := rt.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if rt.cfg.Redis.Addr == "" {
		return delivery.NewCoordinator(st, delivery.NewLocalLocker(), rt.log), func() { st.Close() }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rt.cfg.Redis.Addr,
		Password: rt.cfg.Redis.Password,
		DB:       rt.cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		st.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", rt.cfg.Redis.Addr, err)
	}

	locker := delivery.NewRedisLocker(client, rt.cfg.Delivery.LockTTL, rt.log)
	closeAll := func() {
		client.Close()
		st.Close()
	}
	return delivery.NewCoordinator(st, locker, rt.log), closeAll, nil
}

func today() string {
	return time.Now().Format(store.DateLayout)
}
