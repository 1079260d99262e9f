// Package config loads the YAML configuration shared by all binaries.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root of the configuration file.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	Auth                    `yaml:"auth"`
	Stripe                  `yaml:"stripe"`
	RabbitMQ                `yaml:"rabbitmq"`
	Purger                  `yaml:"purger"`
	CORS                    `yaml:"cors"`
	RateLimit               `yaml:"rate_limit"`
}

// HTTPServer configures the API listener.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection configures the collection cache.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env-default:"5m"`
}

// Auth configures bearer token verification. A PEM public key switches
// verification to RS256; otherwise JWTSecretKey is used with HS256.
type Auth struct {
	JWTSecretKey  string `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	PublicKeyPath string `yaml:"public_key_path" env:"JWT_PUBLIC_KEY_PATH"`
	Issuer        string `yaml:"issuer" env:"AUTH0_ISSUER"`
	Audience      string `yaml:"audience" env:"AUTH0_AUDIENCE"`
}

// Stripe configures billing.
type Stripe struct {
	SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	PriceID       string `yaml:"price_id" env:"STRIPE_PRICE_ID"`
	FrontendURL   string `yaml:"frontend_url" env:"FRONTEND_URL" env-default:"http://localhost:5173"`
}

// RabbitMQ configures book.finished events. An empty URL disables the broker
// and goal history is recorded inline.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
	Exchange   string        `yaml:"exchange" env-default:"books"`
	Queue      string        `yaml:"queue" env-default:"goal-history"`
}

// Purger configures the hard delete of old soft-deleted books.
type Purger struct {
	PurgeInterval time.Duration `yaml:"interval" env-default:"24h"`
	Retention     time.Duration `yaml:"retention" env-default:"720h"`
}

// CORS lists origins allowed to call the API from a browser.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env-default:"http://localhost:5173"`
}

// RateLimit configures the per-client token bucket.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"5"`
	Burst int     `yaml:"burst" env-default:"10"`
}

// Load reads the configuration at path and applies environment overrides.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads the file named by CONFIG_PATH and exits on failure.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// String renders the configuration with secrets masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"  CacheTTL: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Auth:\n"+
			"  Issuer: %s\n"+
			"  Audience: %s\n"+
			"  JWTSecretKey: %s\n"+
			"Stripe:\n"+
			"  SecretKey: %s\n"+
			"  FrontendURL: %s\n"+
			"RabbitMQ:\n"+
			"  Enabled: %t\n"+
			"  Queue: %s\n"+
			"Purger:\n"+
			"  Interval: %s\n"+
			"  Retention: %s\n",
		c.Env,
		c.MigrationsPath,
		c.AddressRedis,
		c.DB,
		c.CacheTTL,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.Issuer,
		c.Audience,
		mask(c.JWTSecretKey),
		mask(c.SecretKey),
		c.FrontendURL,
		c.RabbitMQ.URL != "",
		c.Queue,
		c.PurgeInterval,
		c.Retention,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}
