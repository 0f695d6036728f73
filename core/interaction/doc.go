// Package interaction holds the state of multi-step user interactions that
// are waiting for input.
//
// A Session is created when a flow needs the user to choose something and
// is destroyed exactly once: by the resumption that wins the claim, or by
// the sweeper once the deadline has passed. Removal from the Store is the
// only record that a session has been resolved, so every terminal step goes
// through an atomic claim:
//
//	s, err := manager.Claim(ctx, id)
//	switch {
//	case errors.Is(err, interaction.ErrNotFound):
//		return nil // someone else finished it
//	case errors.Is(err, interaction.ErrExpired):
//		// claimed, but too late
//	}
//
// Among concurrent claims of one id exactly one receives the session. No
// caller-side locking is involved.
//
// # Stores
//
// MemoryStore keeps sessions in a mutex-guarded map. RedisStore keeps them
// in Redis as CBOR with a deadline index, using Lua scripts for the
// check-and-delete, so sessions outlive a process restart.
//
// # Expiry
//
// Sweeper scans the deadline index at a fixed interval and calls an
// ExpireFunc for each due id. The function claims the session with
// Manager.Evict, which only succeeds once the deadline has passed:
//
//	sweeper := interaction.NewSweeper(store, func(ctx context.Context, id string) error {
//		s, err := manager.Evict(ctx, id)
//		if errors.Is(err, interaction.ErrNotFound) {
//			return nil
//		}
//		...
//	}, interaction.WithSweepInterval(time.Second))
//
//	g.Go(sweeper.Run(ctx))
package interaction
