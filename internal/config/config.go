// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, N8N_RAG_ prefix)
//  2. Config file (~/.n8n-rag/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: embedder provider, model and vector dimension
//   - Sources: GitHub docs/source repositories, templates API endpoint
//   - Ingestion: worker counts, page counts, rate limits
//   - Storage: PostgreSQL connection (see storage.go)
//
// Security: sensitive values (passwords, tokens) are never logged and are
// masked in MarshalJSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the embedding provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbedderDimension indicates an unusable vector dimension.
	ErrInvalidEmbedderDimension = errors.New("invalid embedder dimension")

	// ErrInvalidRepo indicates a malformed owner/name repository reference.
	ErrInvalidRepo = errors.New("invalid repository")

	// ErrInvalidTemplatesURL indicates the templates API base URL is invalid.
	ErrInvalidTemplatesURL = errors.New("invalid templates API URL")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// Embedding provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

const (
	// DefaultEmbedderModel is the default OpenAI embedding model.
	DefaultEmbedderModel = "text-embedding-3-small"

	// DefaultEmbedderDimension matches the vector(1536) columns created by
	// the migrations. Changing it requires a schema migration.
	DefaultEmbedderDimension = 1536

	// DefaultDocsRepo is the repository holding node markdown documentation.
	DefaultDocsRepo = "n8n-io/n8n-docs"

	// DefaultSourceRepo is the repository holding node TypeScript sources.
	DefaultSourceRepo = "n8n-io/n8n"

	// DefaultTemplatesBaseURL is the public workflow template search API.
	DefaultTemplatesBaseURL = "https://api.n8n.io/api/templates"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON;
// when adding passwords/tokens, update MarshalJSON too.
type Config struct {
	// Embedding provider and model
	Provider          string `mapstructure:"provider" json:"provider"`
	EmbedderModel     string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedderDimension int    `mapstructure:"embedder_dimension" json:"embedder_dimension"`

	// Upstream sources
	GitHubToken      string `mapstructure:"github_token" json:"github_token"`
	DocsRepo         string `mapstructure:"docs_repo" json:"docs_repo"`
	SourceRepo       string `mapstructure:"source_repo" json:"source_repo"`
	TemplatesBaseURL string `mapstructure:"templates_base_url" json:"templates_base_url"`
	TemplateCategory string `mapstructure:"template_category" json:"template_category"`

	// Ingestion tuning
	DocWorkers      int `mapstructure:"doc_workers" json:"doc_workers"`
	TemplateWorkers int `mapstructure:"template_workers" json:"template_workers"`
	TemplatePages   int `mapstructure:"template_pages" json:"template_pages"`
	TemplateRows    int `mapstructure:"template_rows" json:"template_rows"`

	// PostgreSQL connection (see storage.go for DSN helpers)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_dbname" json:"postgres_dbname"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode" json:"postgres_sslmode"`
}

// MarshalJSON masks sensitive fields so the config can be logged safely.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(c)
	if masked.GitHubToken != "" {
		masked.GitHubToken = "***"
	}
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "***"
	}
	return json.Marshal(masked)
}

// Load reads configuration from file, environment and defaults.
// A missing config file is not an error; defaults and env apply.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".n8n-rag"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("N8N_RAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// DATABASE_URL, if present, overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("embedder_dimension", DefaultEmbedderDimension)

	// Registered so AutomaticEnv picks up N8N_RAG_GITHUB_TOKEN; Unmarshal
	// only sees keys viper knows about.
	v.SetDefault("github_token", "")

	v.SetDefault("docs_repo", DefaultDocsRepo)
	v.SetDefault("source_repo", DefaultSourceRepo)
	v.SetDefault("templates_base_url", DefaultTemplatesBaseURL)
	v.SetDefault("template_category", "AI")

	v.SetDefault("doc_workers", 5)
	v.SetDefault("template_workers", 3)
	v.SetDefault("template_pages", 3)
	v.SetDefault("template_rows", 20)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "postgres")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_dbname", "n8n_rag")
	v.SetDefault("postgres_sslmode", "disable")
}

// Validate checks the configuration for values that would make the
// ingestion or retrieval paths unusable. Called by Load; exported for
// callers that build a Config by hand.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)",
			ErrInvalidProvider, c.Provider, ProviderGemini, ProviderOpenAI)
	}

	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: empty model name", ErrInvalidEmbedderModel)
	}
	if c.EmbedderDimension <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidEmbedderDimension, c.EmbedderDimension)
	}

	for _, repo := range []string{c.DocsRepo, c.SourceRepo} {
		if !validRepoRef(repo) {
			return fmt.Errorf("%w: %q (expected owner/name)", ErrInvalidRepo, repo)
		}
	}
	if !strings.HasPrefix(c.TemplatesBaseURL, "http://") &&
		!strings.HasPrefix(c.TemplatesBaseURL, "https://") {
		return fmt.Errorf("%w: %q", ErrInvalidTemplatesURL, c.TemplatesBaseURL)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: empty host", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: empty database name", ErrInvalidPostgresDBName)
	}
	switch c.PostgresSSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}

// validRepoRef reports whether s looks like "owner/name".
func validRepoRef(s string) bool {
	parts := strings.Split(s, "/")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}
