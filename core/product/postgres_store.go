package product

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/keyverify/integration/database/pg"
)

// PostgresStore stores products in PostgreSQL. Methods join a transaction
// carried by the context (see pg.WithTx).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) q(ctx context.Context) pg.Querier {
	return pg.Conn(ctx, s.pool)
}

func (s *PostgresStore) InsertIfAbsent(ctx context.Context, r Record) error {
	if err := r.validate(); err != nil {
		return err
	}

	tag, err := s.q(ctx).Exec(ctx, `
		INSERT INTO products (guild_id, product_name, product_secret, role_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guild_id, product_name) DO NOTHING`,
		r.Scope, r.Name, r.EncryptedSecret, r.RoleRef, r.CreatedAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (s *PostgresStore) ListByScope(ctx context.Context, scope string) ([]Record, error) {
	rows, err := s.q(ctx).Query(ctx, `
		SELECT guild_id, product_name, product_secret, role_id, created_at
		FROM products
		WHERE guild_id = $1
		ORDER BY product_name`, scope)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var r Record
		err := row.Scan(&r.Scope, &r.Name, &r.EncryptedSecret, &r.RoleRef, &r.CreatedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) DeleteByName(ctx context.Context, scope, name string) error {
	tag, err := s.q(ctx).Exec(ctx,
		`DELETE FROM products WHERE guild_id = $1 AND product_name = $2`, scope, name)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Healthcheck pings the pool.
func (s *PostgresStore) Healthcheck(ctx context.Context) error {
	return pg.Healthcheck(s.pool)(ctx)
}
