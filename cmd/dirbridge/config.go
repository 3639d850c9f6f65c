package main

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/dirbridge/pkg/httpserver"
	"github.com/dmitrymomot/dirbridge/pkg/redis"
)

const (
	backendMemory = "memory"
	backendRedis  = "redis"
)

// appConfig is read from DIRBRIDGE_-prefixed environment variables and an
// optional .env file.
type appConfig struct {
	Env       string `env:"ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL"` // Overrides the environment default when set.
	LogFormat string `env:"LOG_FORMAT"`

	TenantsFile     string        `env:"TENANTS_FILE" envDefault:"tenants.yaml"`
	StateBackend    string        `env:"STATE_BACKEND" envDefault:"memory"` // memory or redis
	TokenKey        string        `env:"TOKEN_ENCRYPTION_KEY"`              // base64, 32 bytes; tokens are stored in clear when empty
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`
	UserAgent       string        `env:"USER_AGENT" envDefault:"dirbridge"`

	AuditBufferSize   int           `env:"AUDIT_BUFFER_SIZE" envDefault:"1000"`
	AuditBatchSize    int           `env:"AUDIT_BATCH_SIZE" envDefault:"100"`
	AuditBatchTimeout time.Duration `env:"AUDIT_BATCH_TIMEOUT" envDefault:"1s"`

	Redis redis.Config
	Admin httpserver.Config
}

func (c appConfig) validate() error {
	switch c.StateBackend {
	case backendMemory, backendRedis:
	default:
		return fmt.Errorf("unknown state backend %q, want %q or %q", c.StateBackend, backendMemory, backendRedis)
	}
	if c.TenantsFile == "" {
		return fmt.Errorf("tenants file is required")
	}
	return nil
}
