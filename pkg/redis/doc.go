// Package redis connects the daemon to Redis, the shared backend for rate
// limit counters and cached tokens when several dirbridge processes serve the
// same tenants.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	store := statestore.NewRedisStore(client, statestore.WithKeyPrefix(cfg.KeyPrefix))
//
// Healthcheck adapts the client into a readiness probe for the admin server.
package redis
