package httpserver

import "time"

type Config struct {
	Addr             string        `env:"ADMIN_ADDR" envDefault:"127.0.0.1:9090"`  // Admin listener address; keep it off public interfaces.
	ReadTimeout      time.Duration `env:"ADMIN_READ_TIMEOUT" envDefault:"10s"`     // Also bounds request headers.
	WriteTimeout     time.Duration `env:"ADMIN_WRITE_TIMEOUT" envDefault:"30s"`    // Must cover the slowest auth code exchange.
	IdleTimeout      time.Duration `env:"ADMIN_IDLE_TIMEOUT" envDefault:"120s"`    // Keep-alive idle limit.
	ShutdownTimeout  time.Duration `env:"ADMIN_SHUTDOWN_TIMEOUT" envDefault:"10s"` // Grace period for in-flight admin calls.
	ReadinessTimeout time.Duration `env:"ADMIN_READINESS_TIMEOUT" envDefault:"2s"` // Budget for all readiness checks together.
}

// NewFromConfig creates a new Server from the provided Config.
// Only non-zero values from the config are applied.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	configOpts := make([]Option, 0, 5+len(opts))

	if cfg.Addr != "" {
		configOpts = append(configOpts, WithAddr(cfg.Addr))
	}
	if cfg.ReadTimeout > 0 {
		configOpts = append(configOpts, WithReadTimeout(cfg.ReadTimeout))
	}
	if cfg.WriteTimeout > 0 {
		configOpts = append(configOpts, WithWriteTimeout(cfg.WriteTimeout))
	}
	if cfg.IdleTimeout > 0 {
		configOpts = append(configOpts, WithIdleTimeout(cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout > 0 {
		configOpts = append(configOpts, WithShutdownTimeout(cfg.ShutdownTimeout))
	}

	return New(append(configOpts, opts...)...)
}
