// Package config loads application configuration from environment
// variables.  A .env file in the working directory is read first when
// present; real environment variables take precedence over it.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store and lock backends.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
	LockLocal   = "local"
	LockRedis   = "redis"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable named in its envconfig tag.
type Config struct {
	Env  string `envconfig:"APP_ENV" default:"dev"`   // application environment (dev/test/prod)
	Port string `envconfig:"APP_PORT" default:"8080"` // HTTP port to listen on

	StoreBackend string `envconfig:"STORE_BACKEND" default:"mysql"` // mysql or memory
	DBUser       string `envconfig:"DB_USER" default:"root"`
	DBPass       string `envconfig:"DB_PASS"` // empty allowed
	DBHost       string `envconfig:"DB_HOST" default:"localhost"`
	DBPort       string `envconfig:"DB_PORT" default:"3306"`
	DBName       string `envconfig:"DB_NAME" default:"facility_placement"`
	DBMigrate    bool   `envconfig:"DB_MIGRATE" default:"true"` // apply the embedded schema at startup
	SeedFile     string `envconfig:"SEED_FILE"`                 // JSON catalog; built-in seed when empty

	JWTSecret  string `envconfig:"JWT_SECRET" required:"true"` // HS256 signing secret
	APIKeyHash string `envconfig:"API_KEY_HASH"`               // bcrypt hash of the accepted X-API-Key
	APIKeyRole string `envconfig:"API_KEY_ROLE" default:"OPERATOR"`

	LockBackend      string        `envconfig:"LOCK_BACKEND" default:"local"` // local or redis
	LockTTL          time.Duration `envconfig:"LOCK_TTL" default:"15s"`
	LockWait         time.Duration `envconfig:"LOCK_WAIT" default:"5s"`
	CommandTimeout   time.Duration `envconfig:"COMMAND_TIMEOUT" default:"10s"`
	MaxCommitRetries int           `envconfig:"MAX_COMMIT_RETRIES" default:"3"`

	RabbitMQURL         string `envconfig:"RABBITMQ_URL"` // facts are only logged when empty
	FactExchange        string `envconfig:"FACT_EXCHANGE" default:"placement.facts"`
	FactQueue           string `envconfig:"FACT_QUEUE" default:"placement.facts.log"`
	FactConsumerEnabled bool   `envconfig:"FACT_CONSUMER_ENABLED" default:"true"`
	FactLogDir          string `envconfig:"FACT_LOG_DIR" default:"logs"`
}

// Load reads .env (if any) and the environment into a Config and checks
// the enumerated settings.
func Load() (Config, error) {
	_ = godotenv.Load(".env")
	return FromEnv()
}

// FromEnv is Load without the .env file.
func FromEnv() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	c.StoreBackend = strings.ToLower(c.StoreBackend)
	c.LockBackend = strings.ToLower(c.LockBackend)
	c.APIKeyRole = strings.ToUpper(c.APIKeyRole)
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET must not be empty")
	}
	switch c.StoreBackend {
	case StoreMySQL, StoreMemory:
	default:
		return fmt.Errorf("config: STORE_BACKEND must be %q or %q, got %q", StoreMySQL, StoreMemory, c.StoreBackend)
	}
	switch c.LockBackend {
	case LockLocal, LockRedis:
	default:
		return fmt.Errorf("config: LOCK_BACKEND must be %q or %q, got %q", LockLocal, LockRedis, c.LockBackend)
	}
	if c.MaxCommitRetries < 1 {
		return fmt.Errorf("config: MAX_COMMIT_RETRIES must be at least 1, got %d", c.MaxCommitRetries)
	}
	// The Redis lease is never renewed, so it must outlive every command.
	if c.LockBackend == LockRedis && c.CommandTimeout <= 0 {
		return fmt.Errorf("config: COMMAND_TIMEOUT must be positive with LOCK_BACKEND=%s", LockRedis)
	}
	if c.LockTTL <= c.CommandTimeout {
		return fmt.Errorf("config: LOCK_TTL (%s) must exceed COMMAND_TIMEOUT (%s)", c.LockTTL, c.CommandTimeout)
	}
	return nil
}
