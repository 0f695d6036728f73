package product_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/keyverify/core/product"
	"github.com/dmitrymomot/keyverify/db/migrations"
	"github.com/dmitrymomot/keyverify/integration/database/pg"
	"github.com/dmitrymomot/keyverify/integration/database/sqlite"
)

// runStoreContract exercises the behaviour every Store must share.
func runStoreContract(t *testing.T, store product.Store) {
	t.Helper()

	ctx := context.Background()
	scope := "G-" + uuid.NewString()
	rec := product.Record{
		Scope:           scope,
		Name:            "P",
		EncryptedSecret: "ciphertext",
		RoleRef:         "r1",
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, store.InsertIfAbsent(ctx, rec))
	assert.ErrorIs(t, store.InsertIfAbsent(ctx, rec), product.ErrConflict)
	assert.ErrorIs(t, store.InsertIfAbsent(ctx, product.Record{Scope: scope}), product.ErrInvalidRecord)

	second := rec
	second.Name = "A"
	require.NoError(t, store.InsertIfAbsent(ctx, second))

	records, err := store.ListByScope(ctx, scope)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0].Name)
	assert.Equal(t, "P", records[1].Name)
	assert.Equal(t, "ciphertext", records[1].EncryptedSecret)
	assert.Equal(t, "r1", records[1].RoleRef)

	other, err := store.ListByScope(ctx, scope+"-other")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, store.DeleteByName(ctx, scope, "P"))
	assert.ErrorIs(t, store.DeleteByName(ctx, scope, "P"), product.ErrNotFound)
}

func TestMemoryStore_Contract(t *testing.T) {
	t.Parallel()
	runStoreContract(t, product.NewMemoryStore())
}

func TestSQLiteStore_Contract(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(ctx, db, migrations.SQLite(), nil))

	store := product.NewSQLiteStore(db)
	runStoreContract(t, store)
	assert.NoError(t, store.Healthcheck(ctx))
}

func TestPostgresStore_Contract(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" || !strings.HasPrefix(url, "postgres") {
		t.Skip("DATABASE_URL does not point to PostgreSQL")
	}

	ctx := context.Background()
	pool, err := pg.Connect(ctx, pg.Config{ConnectionString: url, RetryAttempts: 1})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pg.Migrate(ctx, pool, migrations.Postgres(), nil))

	store := product.NewPostgresStore(pool)
	runStoreContract(t, store)
	assert.NoError(t, store.Healthcheck(ctx))

	scope := "tx-" + uuid.NewString()
	rollback := errors.New("rollback")
	err = pg.InTx(ctx, pool, func(ctx context.Context) error {
		require.NoError(t, store.InsertIfAbsent(ctx, product.Record{Scope: scope, Name: "P", EncryptedSecret: "x", CreatedAt: time.Now()}))
		records, err := store.ListByScope(ctx, scope)
		require.NoError(t, err)
		assert.Len(t, records, 1, "visible inside the transaction")
		return rollback
	})
	assert.ErrorIs(t, err, rollback)

	records, err := store.ListByScope(ctx, scope)
	require.NoError(t, err)
	assert.Empty(t, records)
}
