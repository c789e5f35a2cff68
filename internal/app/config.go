package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendFile     = "file"
	BackendGCS      = "gcs"
)

// Config holds the complete application configuration, loadable from
// environment variables (REPAIRDESK_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (REPAIRDESK_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Storage      StorageConfig
	Artifacts    ArtifactsConfig
	Documents    DocumentsConfig
	Orders       OrdersConfig
	RateLimit    RateLimitConfig
	Graceful     GracefulConfig
}

// StorageConfig selects where records live.
type StorageConfig struct {
	Backend     string `default:"postgres" usage:"Record storage backend: postgres or file"`
	DatabaseURL string `usage:"PostgreSQL connection URL (REPAIRDESK_STORAGE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	DataDir     string `default:"./data" usage:"Directory of the file backend" flag:"data-dir"`
}

// ArtifactsConfig selects where generated documents live.
type ArtifactsConfig struct {
	Backend  string `default:"" usage:"Document storage backend: postgres, file or gcs (defaults to the storage backend)"`
	Dir      string `default:"./data/artifacts" usage:"Directory of the file document store"`
	Bucket   string `usage:"Cloud Storage bucket of the gcs document store"`
	Prefix   string `default:"" usage:"Object name prefix in the bucket"`
	Endpoint string `default:"" usage:"Cloud Storage endpoint override, e.g. an emulator"`
}

// DocumentsConfig controls PDF content.
type DocumentsConfig struct {
	Locale      string `default:"pt-BR" usage:"Locale for amounts and dates in documents"`
	ShopName    string `default:"Assistência Técnica" usage:"Shop name printed in the document header"`
	ShopTagline string `default:"" usage:"Second header line"`
}

// OrdersConfig controls order creation.
type OrdersConfig struct {
	ConflictRetries int           `default:"5" usage:"Order number allocation attempts per create"`
	RequestTimeout  time.Duration `default:"15s" usage:"Deadline applied to every API request"`
}

// RateLimitConfig controls the per-key sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML files,
// then validates it.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "REPAIRDESK",
		Files:     []string{"config.yaml", "/etc/repairdesk/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks backend selection and the settings each backend needs.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("database URL is required: set REPAIRDESK_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	case BackendFile:
		if c.Storage.DataDir == "" {
			return errors.New("data dir is required for the file backend")
		}
	default:
		return errors.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.ArtifactBackend() {
	case BackendPostgres:
		if c.Storage.Backend != BackendPostgres {
			return errors.New("postgres document store requires the postgres storage backend")
		}
	case BackendFile:
		if c.Artifacts.Dir == "" {
			return errors.New("artifacts dir is required for the file document store")
		}
	case BackendGCS:
		if c.Artifacts.Bucket == "" {
			return errors.New("artifacts bucket is required for the gcs document store")
		}
	default:
		return errors.Errorf("unknown artifacts backend %q", c.Artifacts.Backend)
	}

	if c.Orders.ConflictRetries < 1 {
		return errors.New("orders conflict retries must be at least 1")
	}
	if c.RateLimit.Max < 1 {
		return errors.New("rate limit max must be at least 1")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}

// ArtifactBackend returns the document store backend, defaulting to the
// storage backend.
func (c *Config) ArtifactBackend() string {
	if c.Artifacts.Backend != "" {
		return c.Artifacts.Backend
	}
	return c.Storage.Backend
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Storage.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
