package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Store StoreConfig
	Redis RedisConfig
	Mongo MongoConfig
}

// StoreConfig points at the hosted backend platform: the REST data interface
// and the identity provider share the same project URL. ServiceKey is the
// privileged credential the data-access client uses; AnonKey accompanies
// end-user tokens on identity lookups. When JWTSecret is set, access tokens
// are verified locally instead of through the provider's user-info endpoint.
type StoreConfig struct {
	URL        string        `env:"SUPABASE_URL"`
	ServiceKey string        `env:"SUPABASE_SERVICE_KEY"`
	AnonKey    string        `env:"SUPABASE_ANON_KEY"`
	JWTSecret  string        `env:"AUTH_JWT_SECRET"`
	Timeout    time.Duration `env:"STORE_TIMEOUT, default=10s"`
}

// RedisConfig configures the per-company mutation lock. An empty Addr
// disables locking.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB,  default=0"`
}

// MongoConfig configures the reconciliation journal. An empty URI disables
// the journal.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=deskbuddy"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
