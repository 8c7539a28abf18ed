package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read from CVWIZARD_* environment variables, after loading .env if present.
type Config struct {
	Addr     string     `env:"ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	BackendURL     string        `env:"BACKEND_URL" envDefault:"http://localhost:3000/api"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"30s"`

	Parser         string        `env:"PARSER" envDefault:"remote"`
	ParseFallback  string        `env:"PARSE_FALLBACK" envDefault:"mock"`
	ParseTimeout   time.Duration `env:"PARSE_TIMEOUT" envDefault:"60s"`
	ParseRate      float64       `env:"PARSE_RATE" envDefault:"2"`
	OpenAIKey      string        `env:"OPENAI_KEY"`
	Model          string        `env:"MODEL" envDefault:"gpt-4.1-mini"`
	LLMConcurrency int           `env:"LLM_CONCURRENCY" envDefault:"5"`
	LLMCache       string        `env:"LLM_CACHE" envDefault:"./llm-cache.gob"`

	MaxUploadBytes   int64         `env:"MAX_UPLOAD_BYTES" envDefault:"15728640"`
	ApplyDelay       time.Duration `env:"APPLY_DELAY" envDefault:"3s"`
	ApplyConcurrency int           `env:"APPLY_CONCURRENCY" envDefault:"4"`
	ProgressInterval time.Duration `env:"PROGRESS_INTERVAL" envDefault:"200ms"`
	ProgressStep     int           `env:"PROGRESS_STEP" envDefault:"10"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"30m"`

	Storage    string `env:"STORAGE" envDefault:"file"`
	StorageDSN string `env:"STORAGE_DSN" envDefault:"./cv-storage"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

const envPrefix = "CVWIZARD_"

// LoadConfig loads .env (if it exists) into the environment and parses the config from it.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, errors.Join(errors.New("failed to read .env file"), err)
	}
	return ParseConfig(env.Options{Prefix: envPrefix})
}

// ParseConfig parses the config using opts, so tests can supply an environment directly.
func ParseConfig(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	switch cfg.Parser {
	case "remote", "mock":
	case "llm":
		if cfg.OpenAIKey == "" {
			return errors.New("CVWIZARD_OPENAI_KEY is required when CVWIZARD_PARSER=llm")
		}
	default:
		return fmt.Errorf("unknown parser %q, expected remote, llm or mock", cfg.Parser)
	}
	switch cfg.ParseFallback {
	case "mock", "error":
	default:
		return fmt.Errorf("unknown parse fallback %q, expected mock or error", cfg.ParseFallback)
	}
	return nil
}
