// Package ratelimiter provides a per-key cooldown gate with pluggable storage backends.
//
// A cooldown allows one attempt per key per window. The first attempt opens
// the window and is allowed; every attempt inside the window is throttled and
// learns when the window ends. The window is armed at check time, so the
// attempt consumes it no matter how the guarded action turns out.
//
// # Core Types
//
// Cooldown is the gate:
//   - CheckAndArm(ctx, key): allow and arm, or report the remaining wait
//   - Reset(ctx, key): administrative override
//
// Store persists windows. Two implementations ship with the package:
//   - MemoryStore: mutex-guarded map with an optional cleanup loop
//   - RedisStore: window end kept in Redis, shared between processes
//
// # Usage
//
//	store := ratelimiter.NewMemoryStore()
//	go store.Start(ctx)
//	defer store.Stop()
//
//	gate, err := ratelimiter.NewCooldown(store, 10*time.Second)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gate.CheckAndArm(ctx, "user:123")
//	if err != nil {
//		return err
//	}
//	if !result.Allowed() {
//		log.Printf("throttled, retry after %v", result.RetryAfter)
//	}
//
// # Lifecycle
//
// MemoryStore.Run returns a function suitable for errgroup:
//
//	g.Go(store.Run(ctx))
//
// Elapsed windows are harmless; cleanup only bounds memory use.
package ratelimiter
