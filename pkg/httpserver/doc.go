// Package httpserver runs the dirbridge admin listener: an http.Server with
// bounded timeouts, graceful shutdown tied to a context, structured logging
// via slog, and JSON liveness and readiness handlers.
//
// Run binds the listener before serving, so a bad address fails fast with
// ErrStart and Addr reports the real port when the address ends in ":0".
// Signal handling is left to the caller:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	srv := httpserver.NewFromConfig(cfg.Admin, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("admin server stopped", logger.Error(err))
//	}
//
// ReadinessHandler takes named checks, typically the Redis ping when the
// shared state backend is in use.
package httpserver
