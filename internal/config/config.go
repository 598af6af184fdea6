package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/dailyq/dailyq/internal/llm"
)

// App holds core runtime configuration shared by every command.
type App struct {
	Name     string `env:"APP_NAME" envDefault:"dailyq"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Store     Store
	Delivery  Delivery
	Redis     Redis
	Generator Generator
	LLM       llm.Config
}

// Store selects and locates the question database. URL wins over Path.
type Store struct {
	Path string `env:"QUESTION_DB_PATH" envDefault:"data/questions.sqlite"`
	URL  string `env:"QUESTION_DB_URL"`
}

// Delivery governs how reservations are handed out.
type Delivery struct {
	Mode    string        `env:"DELIVERY_MODE" envDefault:"per-device"`
	LockTTL time.Duration `env:"DELIVERY_LOCK_TTL" envDefault:"10s"`
}

// Redis enables the cross-process delivery lock when Addr is set.
type Redis struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Generator groups generation run defaults.
type Generator struct {
	DefaultCount      int    `env:"GENERATOR_DEFAULT_COUNT" envDefault:"8"`
	TopicPoolPath     string `env:"TOPIC_POOL_PATH"`
	StructurePoolPath string `env:"STRUCTURE_POOL_PATH"`
	ContentPoolPath   string `env:"CONTENT_POOL_PATH"`
	PromptDir         string `env:"PROMPT_DIR"`
	IDHashSuffix      bool   `env:"GENERATOR_ID_HASH_SUFFIX" envDefault:"true"`
}

// Load parses environment variables into App config.
func Load() (*App, error) {
	return LoadWith(env.Options{})
}

// LoadWith parses with explicit options. Tests pass Environment to avoid
// touching the process environment.
func LoadWith(opts env.Options) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv merges the given env files (".env" when none) into the
// process environment unless APP_ENV names production. Variables already
// set win, and a missing file is not an error.
func LoadDotEnv(files ...string) error {
	var current App
	if err := env.Parse(&current); err == nil && current.IsProduction() {
		return nil
	}
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (a *App) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

func (a *App) validate() error {
	switch a.Delivery.Mode {
	case "per-device", "exclusive":
	default:
		return fmt.Errorf("parse config: DELIVERY_MODE must be per-device or exclusive, got %q", a.Delivery.Mode)
	}
	if a.Generator.DefaultCount < 1 {
		a.Generator.DefaultCount = 8
	}
	return nil
}
