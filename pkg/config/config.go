package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the Nimbus service.
// Configuration can come from a YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values. Secrets
// (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Natural-language pipeline configuration
	NLP NLPConfig `yaml:"nlp"`

	// Optional OpenAI-backed variable extraction
	OpenAI OpenAIConfig `yaml:"openai"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"nimbus"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"nimbus"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// NLPConfig holds the tunables of the question-answering pipeline. The two
// thresholds were calibrated empirically against the verified question
// corpus; they are configuration so recalibration never needs a rebuild.
type NLPConfig struct {
	// FuzzyThreshold is the minimum summed similarity score (0-100 per tag
	// column) a record must exceed to count as an entity match.
	FuzzyThreshold int `yaml:"fuzzy_threshold" env:"NLP_FUZZY_THRESHOLD" env-default:"80"`

	// ClassifierThreshold is the maximum L2 distance to the nearest known
	// question format before the input is treated as out of domain.
	ClassifierThreshold float64 `yaml:"classifier_threshold" env:"NLP_CLASSIFIER_THRESHOLD" env-default:"150"`

	// ModelsDir is where trained classifier units are stored.
	ModelsDir string `yaml:"models_dir" env:"NLP_MODELS_DIR" env-default:"models"`

	// CorpusPath is the YAML corpus used to seed training when the
	// database holds no verified templates yet.
	CorpusPath string `yaml:"corpus_path" env:"NLP_CORPUS_PATH" env-default:"q_a_pairs.yaml"`

	// LookupTimeout bounds each database round-trip and classification so
	// unresponsive storage cannot hang the whole answer pipeline.
	LookupTimeout time.Duration `yaml:"lookup_timeout" env:"NLP_LOOKUP_TIMEOUT" env-default:"5s"`

	// RetrainSchedule is an optional cron expression for periodic
	// retraining from the template store. Empty disables the scheduler.
	RetrainSchedule string `yaml:"retrain_schedule" env:"NLP_RETRAIN_SCHEDULE" env-default:""`
}

// OpenAIConfig configures the optional LLM-backed variable extractor.
// When APIKey is empty the lexicon extractor is used instead.
type OpenAIConfig struct {
	APIKey string `yaml:"-" env:"OPENAI_API_KEY"` // Secret - not in YAML
	Model  string `yaml:"model" env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
}

// Enabled reports whether the OpenAI extractor is configured.
func (c *OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Load reads configuration from config.yaml with environment variable
// overrides. When no config.yaml exists, configuration comes from the
// environment alone. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.NLP.FuzzyThreshold < 0 {
		return fmt.Errorf("nlp.fuzzy_threshold must be non-negative, got %d", c.NLP.FuzzyThreshold)
	}
	if c.NLP.ClassifierThreshold <= 0 {
		return fmt.Errorf("nlp.classifier_threshold must be positive, got %v", c.NLP.ClassifierThreshold)
	}
	if c.NLP.LookupTimeout <= 0 {
		return fmt.Errorf("nlp.lookup_timeout must be positive, got %v", c.NLP.LookupTimeout)
	}
	return nil
}
