package product

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrymomot/keyverify/integration/database/sqlite"
)

// SQLiteStore stores products in SQLite through database/sql.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over db.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) InsertIfAbsent(ctx context.Context, r Record) error {
	if err := r.validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (guild_id, product_name, product_secret, role_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.Scope, r.Name, r.EncryptedSecret, r.RoleRef, r.CreatedAt.UTC(),
	)
	if sqlite.IsUniqueConstraintError(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListByScope(ctx context.Context, scope string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, product_name, product_secret, role_id, created_at
		FROM products
		WHERE guild_id = ?
		ORDER BY product_name`, scope)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var created time.Time
		if err := rows.Scan(&r.Scope, &r.Name, &r.EncryptedSecret, &r.RoleRef, &created); err != nil {
			return nil, fmt.Errorf("scan products: %w", err)
		}
		r.CreatedAt = created
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return records, nil
}

func (s *SQLiteStore) DeleteByName(ctx context.Context, scope, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM products WHERE guild_id = ? AND product_name = ?`, scope, name)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Healthcheck pings the database.
func (s *SQLiteStore) Healthcheck(ctx context.Context) error {
	return sqlite.Healthcheck(s.db)(ctx)
}
