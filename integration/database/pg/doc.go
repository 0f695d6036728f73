// Package pg connects to PostgreSQL through a pgx pool and applies goose
// migrations.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations.Postgres(), log); err != nil {
//		return err
//	}
//
// Connect retries RetryAttempts times, waiting RetryInterval times the
// attempt number between tries, and only returns a pool that answered a
// ping.
//
// IsDuplicateKeyError, IsForeignKeyViolationError and IsNotFoundError
// classify driver errors so stores can map them to their own sentinels.
// InTx runs a function inside a transaction carried by its context. Stores
// call Conn to pick up that transaction, or the pool when there is none.
package pg
