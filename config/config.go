package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"cityconnect-be/models"
)

const (
	Development = "development"
	Production  = "production"

	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config is read once at process start from the environment.
type Config struct {
	// Backend project settings.
	ProjectID         string `env:"PROJECT_ID,default=cityconnect"`
	APIKey            string `env:"API_KEY"`
	AuthDomain        string `env:"AUTH_DOMAIN"`
	StorageBucket     string `env:"STORAGE_BUCKET,default=uploads"`
	MessagingSenderID string `env:"MESSAGING_SENDER_ID,default=cityconnect"`
	AppID             string `env:"APP_ID,default=cityconnect-be"`
	MeasurementID     string `env:"MEASUREMENT_ID"`
	UseEmulator       bool   `env:"USE_EMULATOR,default=false"`
	Mode              string `env:"GO_ENV,default=development"`

	Port          string        `env:"PORT,default=8080"`
	PublicBaseURL string        `env:"PUBLIC_BASE_URL,default=http://localhost:8080"`
	CORSOrigins   string        `env:"CORS_ORIGINS,default=http://localhost:3000"`
	JWTSecret     string        `env:"JWT_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL,default=72h"`

	Driver        string `env:"BACKEND_DRIVER,default=mongo"`
	MongoURI      string `env:"MONGODB_URI"`
	RedisAddress  string `env:"REDIS_ADDRESS"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	EmulatorMongoURI     string `env:"EMULATOR_MONGODB_URI,default=mongodb://localhost:27017"`
	EmulatorRedisAddress string `env:"EMULATOR_REDIS_ADDRESS,default=localhost:6379"`

	IssueDailyLimit   int    `env:"ISSUE_DAILY_LIMIT,default=20"`
	IssueStatusPolicy string `env:"ISSUE_STATUS_POLICY,default=any"`

	// BootstrapAdmins may sign up as staff or admin; comma separated.
	BootstrapAdmins string `env:"BOOTSTRAP_ADMIN_EMAILS"`
}

// Load reads .env if present, then decodes and validates the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config: decoding environment: %w", err)
	}
	cfg.applyEmulator()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEmulator redirects the backend endpoints to local emulators. Only
// honoured in development.
func (c *Config) applyEmulator() {
	if !c.UseEmulator || c.IsProduction() {
		return
	}
	c.MongoURI = c.EmulatorMongoURI
	c.RedisAddress = c.EmulatorRedisAddress
}

func (c *Config) Validate() error {
	if c.Mode != Development && c.Mode != Production {
		return fmt.Errorf("config: GO_ENV must be %q or %q, got %q", Development, Production, c.Mode)
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET environment variable is not set")
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	switch c.Driver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("config: please define the MONGODB_URI environment variable")
		}
	default:
		return fmt.Errorf("config: unknown BACKEND_DRIVER %q", c.Driver)
	}
	if !models.TransitionPolicy(c.IssueStatusPolicy).Valid() {
		return fmt.Errorf("config: unknown ISSUE_STATUS_POLICY %q", c.IssueStatusPolicy)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Mode == Production
}

// AnalyticsEnabled gates metrics collection and the /metrics endpoint.
func (c *Config) AnalyticsEnabled() bool {
	return c.IsProduction()
}

// StatusPolicy is the configured issue status transition policy.
func (c *Config) StatusPolicy() models.TransitionPolicy {
	return models.TransitionPolicy(c.IssueStatusPolicy)
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSOrigins)
}

// BootstrapAdminEmails splits BOOTSTRAP_ADMIN_EMAILS on commas.
func (c *Config) BootstrapAdminEmails() []string {
	return splitList(c.BootstrapAdmins)
}

// CookieDomain is empty in production to allow cross-origin cookies.
func (c *Config) CookieDomain() string {
	if c.IsProduction() {
		return ""
	}
	return c.AuthDomain
}
