// Package config loads application configuration. Values are layered with
// koanf: struct defaults first, then an optional YAML file, then environment
// variables. Keys are the lower-cased environment variable names, so
// POSTGRES_HOST and `postgres_host:` in the YAML file set the same field.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "CONFIG_PATH"

// defaultPaths are searched in order when CONFIG_PATH is unset.
var defaultPaths = []string{"config.yaml", "config.yml", "/etc/trailhub/config.yaml"}

// Config holds all application configuration values.
type Config struct {
	// Server settings
	Host        string   `koanf:"app_host"`
	Port        string   `koanf:"app_port"`
	Env         string   `koanf:"app_env"` // "development", "production", "testing"
	CORSOrigins []string `koanf:"cors_allowed_origins"`
	// Read the client address from proxy headers. Only behind a proxy that rewrites them.
	TrustProxy bool `koanf:"trust_proxy_headers"`

	// PostgreSQL connection
	DBHost     string `koanf:"postgres_host"`
	DBPort     string `koanf:"postgres_port"`
	DBUser     string `koanf:"postgres_user"`
	DBPassword string `koanf:"postgres_password"`
	DBName     string `koanf:"postgres_db"`

	// Valkey (sessions, catalog cache, notification pub/sub)
	ValkeyHost     string `koanf:"valkey_host"`
	ValkeyPort     string `koanf:"valkey_port"`
	ValkeyPassword string `koanf:"valkey_password"`

	// S3-compatible object storage for trail photos
	S3Endpoint    string `koanf:"s3_endpoint"`
	S3Region      string `koanf:"s3_region"`
	S3AccessKey   string `koanf:"s3_access_key"`
	S3SecretKey   string `koanf:"s3_secret_key"`
	S3Bucket      string `koanf:"s3_bucket"`
	S3PublicURL   string `koanf:"s3_public_url"`
	MaxUploadSize int64  `koanf:"max_upload_size"`

	// External catalog sources
	NPSAPIKey      string        `koanf:"nps_api_key"`
	NPSBaseURL     string        `koanf:"nps_base_url"`
	RIDBAPIKey     string        `koanf:"ridb_api_key"`
	RIDBBaseURL    string        `koanf:"ridb_base_url"`
	SourceTimeout  time.Duration `koanf:"source_timeout"`
	SourceRPS      float64       `koanf:"source_requests_per_second"`
	SyncPause      time.Duration `koanf:"sync_pause"`
	SyncRadiusMile int           `koanf:"sync_trail_radius_miles"`

	CatalogCacheTTL time.Duration `koanf:"catalog_cache_ttl"`
	LoginRateLimit  int           `koanf:"login_rate_limit"`
}

func defaults() *Config {
	return &Config{
		Host:        "0.0.0.0",
		Port:        "8080",
		Env:         "development",
		CORSOrigins: []string{"http://localhost:3000"},

		DBHost:     "localhost",
		DBPort:     "5432",
		DBUser:     "trailhub",
		DBPassword: "changeme",
		DBName:     "trailhub",

		ValkeyHost: "localhost",
		ValkeyPort: "6379",

		S3Region:      "us-east-1",
		S3Bucket:      "trailhub-photos",
		MaxUploadSize: 10 << 20,

		NPSBaseURL:     "https://developer.nps.gov/api/v1/",
		RIDBBaseURL:    "https://ridb.recreation.gov/api/v1/",
		SourceTimeout:  10 * time.Second,
		SourceRPS:      2,
		SyncPause:      2 * time.Second,
		SyncRadiusMile: 15,

		CatalogCacheTTL: 10 * time.Minute,
		LoginRateLimit:  10,
	}
}

// Load builds the configuration from defaults, the optional config file and
// the environment. Returns an error if critical values are missing in
// production mode.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Empty variables fall through to the lower layers.
	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		return strings.ToLower(key), value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that are unsafe or unusable.
func (c *Config) Validate() error {
	if c.Env == "production" && c.DBPassword == "changeme" {
		return fmt.Errorf("POSTGRES_PASSWORD must be set in production")
	}
	if c.SourceTimeout <= 0 {
		return fmt.Errorf("SOURCE_TIMEOUT must be positive")
	}
	if c.SyncRadiusMile <= 0 {
		return fmt.Errorf("SYNC_TRAIL_RADIUS_MILES must be positive")
	}
	return nil
}

// ValidateSync checks the settings the catalog sync command needs.
func (c *Config) ValidateSync() error {
	var missing []string
	if c.NPSAPIKey == "" {
		missing = append(missing, "NPS_API_KEY")
	}
	if c.RIDBAPIKey == "" {
		missing = append(missing, "RIDB_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing catalog source credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// HasStorage reports whether S3 credentials are configured.
func (c *Config) HasStorage() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != ""
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	for _, p := range defaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
