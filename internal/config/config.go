// Package config loads server settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           string        `env:"PORT,default=4000"`
	APIURL         string        `env:"API_URL,default=http://localhost:4000"`
	JWTSecret      string        `env:"JWT_SECRET"`
	JWTTTL         time.Duration `env:"JWT_TTL,default=24h"`
	DBDriver       string        `env:"DB_DRIVER,default=sqlite3"`
	DatabaseURL    string        `env:"DATABASE_URL,default=rehearsal.db"`
	CORSOrigins    string        `env:"CORS_ORIGINS,default=*"`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS,default=5"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST,default=10"`
	LogLevel       string        `env:"LOG_LEVEL,default=info"`
	LogFormat      string        `env:"LOG_FORMAT,default=text"`
}

// Load reads envFiles (missing files are skipped) into the process
// environment and decodes it into a validated Config. Variables already set
// in the environment win over file values.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported (use sqlite3 or postgres)", c.DBDriver)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
