// Package redis creates go-redis clients with connection verification.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Connect accepts redis:// and rediss:// URLs and only returns a client
// that answered a ping. Healthcheck wraps a ping for readiness probes.
package redis
