package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port         int    `envconfig:"PORT" default:"8080"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL  string `envconfig:"DATABASE_URL" required:"true"`
	RunMigration bool   `envconfig:"RUN_MIGRATIONS" default:"true"`

	DatabaseMaxConns       int32         `envconfig:"DATABASE_MAX_CONNS" default:"0"`
	DatabaseConnectTimeout time.Duration `envconfig:"DATABASE_CONNECT_TIMEOUT" default:"5s"`

	Version      string `envconfig:"VERSION" default:"dev"`
	BcryptCost   int    `envconfig:"BCRYPT_COST" default:"12"`
	GlobalAPIKey string `envconfig:"GLOBAL_API_KEY" default:""`

	// IdentityBackend selects the external account source: "keycloak", "static" or "none".
	IdentityBackend string `envconfig:"IDENTITY_BACKEND" default:"none"`

	KeycloakURL               string  `envconfig:"KEYCLOAK_URL" default:""`
	KeycloakRealm             string  `envconfig:"KEYCLOAK_REALM" default:""`
	KeycloakClientID          string  `envconfig:"KEYCLOAK_CLIENT_ID" default:""`
	KeycloakClientSecret      string  `envconfig:"KEYCLOAK_CLIENT_SECRET" default:""`
	KeycloakPageSize          int     `envconfig:"KEYCLOAK_PAGE_SIZE" default:"100"`
	KeycloakRequestsPerSecond float64 `envconfig:"KEYCLOAK_REQUESTS_PER_SECOND" default:"5"`

	StaticRosterPath string `envconfig:"STATIC_ROSTER_PATH" default:""`

	SyncInterval    time.Duration `envconfig:"SYNC_INTERVAL" default:"1h"`
	SyncCacheRoster bool          `envconfig:"SYNC_CACHE_ROSTER" default:"false"`
	ExpireInterval  time.Duration `envconfig:"EXPIRE_INTERVAL" default:"24h"`
	AccessGraceDays int           `envconfig:"ACCESS_GRACE_DAYS" default:"90"`

	RemsEnabled     bool          `envconfig:"REMS_ENABLED" default:"false"`
	RemsURL         string        `envconfig:"REMS_URL" default:""`
	RemsAPIKey      string        `envconfig:"REMS_API_KEY" default:""`
	RemsUser        string        `envconfig:"REMS_USER" default:""`
	RemsMaxAttempts int           `envconfig:"REMS_MAX_ATTEMPTS" default:"3"`
	RemsRetryDelay  time.Duration `envconfig:"REMS_RETRY_DELAY" default:"0s"`

	ExportSchemaBaseURL string `envconfig:"EXPORT_SCHEMA_BASE_URL" default:"https://schemas.daisy.example.org/v1"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
