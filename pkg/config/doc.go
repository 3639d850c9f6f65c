// Package config loads process configuration from environment variables.
//
// It wraps github.com/joho/godotenv (optional .env files) and
// github.com/caarlos0/env/v11 (struct tag parsing). Component packages own
// their Config structs with `env` tags; the daemon composes them into one
// struct and calls Load once at startup.
//
// Tenant-level settings (rate limits, retry policy, OAuth clients) are not
// environment driven; see package tenant.
package config
