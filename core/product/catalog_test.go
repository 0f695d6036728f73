package product_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/keyverify/core/product"
	"github.com/dmitrymomot/keyverify/pkg/secrets"
)

func newCodec(t *testing.T) *secrets.Codec {
	t.Helper()
	appKey, err := secrets.GenerateKey()
	require.NoError(t, err)
	workspaceKey, err := secrets.GenerateKey()
	require.NoError(t, err)
	codec, err := secrets.NewCodec(appKey, workspaceKey)
	require.NoError(t, err)
	return codec
}

func TestCatalog_RegisterConflict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := product.NewMemoryStore()
	catalog := product.NewCatalog(store, newCodec(t))

	require.NoError(t, catalog.Register(ctx, "G1", "P", "secret-1", "role-1"))
	assert.ErrorIs(t, catalog.Register(ctx, "G1", "P", "secret-2", "role-2"), product.ErrConflict)

	records, err := store.ListByScope(ctx, "G1")
	require.NoError(t, err)
	require.Len(t, records, 1, "no duplicate record persisted")
	assert.NotEqual(t, "secret-1", records[0].EncryptedSecret)

	// Same name in another scope is fine.
	require.NoError(t, catalog.Register(ctx, "G2", "P", "secret-3", ""))
}

func TestCatalog_ListLookupRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	catalog := product.NewCatalog(product.NewMemoryStore(), newCodec(t))

	require.NoError(t, catalog.Register(ctx, "G1", "Widget", "secretX", "r1"))
	require.NoError(t, catalog.Register(ctx, "G1", "Gadget", "secretY", ""))

	products, err := catalog.List(ctx, "G1")
	require.NoError(t, err)
	assert.Equal(t, []product.Product{
		{Name: "Gadget", Secret: "secretY"},
		{Name: "Widget", Secret: "secretX", RoleRef: "r1"},
	}, products)

	names, err := catalog.Names(ctx, "G1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Gadget", "Widget"}, names)

	p, err := catalog.Lookup(ctx, "G1", "Widget")
	require.NoError(t, err)
	assert.Equal(t, "secretX", p.Secret)

	_, err = catalog.Lookup(ctx, "G1", "Nope")
	assert.ErrorIs(t, err, product.ErrNotFound)

	require.NoError(t, catalog.Remove(ctx, "G1", "Widget"))
	assert.ErrorIs(t, catalog.Remove(ctx, "G1", "Widget"), product.ErrNotFound)
}

func TestCatalog_KeyLossIsSurfaced(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := product.NewMemoryStore()
	require.NoError(t, product.NewCatalog(store, newCodec(t)).Register(ctx, "G1", "Widget", "secretX", ""))

	_, err := product.NewCatalog(store, newCodec(t)).List(ctx, "G1")
	assert.ErrorIs(t, err, product.ErrSecretUnreadable)
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	name, err := product.NormalizeName("  Widget ")
	require.NoError(t, err)
	assert.Equal(t, "Widget", name)

	_, err = product.NormalizeName("   ")
	assert.ErrorIs(t, err, product.ErrInvalidRecord)

	long := make([]rune, product.MaxNameLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = product.NormalizeName(string(long))
	assert.ErrorIs(t, err, product.ErrInvalidRecord)
}

func TestNormalizeSecret(t *testing.T) {
	t.Parallel()

	secret, err := product.NormalizeSecret(" sec\n")
	require.NoError(t, err)
	assert.Equal(t, "sec", secret)

	_, err = product.NormalizeSecret(" \t ")
	assert.ErrorIs(t, err, product.ErrInvalidRecord)

	_, err = product.NormalizeSecret(strings.Repeat("é", product.MaxSecretLength+1))
	assert.ErrorIs(t, err, product.ErrInvalidRecord)

	_, err = product.NormalizeSecret(strings.Repeat("é", product.MaxSecretLength))
	assert.NoError(t, err)
}

func TestCatalog_EmptySecret(t *testing.T) {
	t.Parallel()

	catalog := product.NewCatalog(product.NewMemoryStore(), newCodec(t))
	assert.ErrorIs(t, catalog.Register(context.Background(), "G1", "P", "", ""), product.ErrInvalidRecord)
}

func TestCatalog_SealUnseal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	catalog := product.NewCatalog(product.NewMemoryStore(), newCodec(t))

	sealed, err := catalog.Seal("secretX")
	require.NoError(t, err)
	assert.NotEqual(t, "secretX", sealed)

	plain, err := catalog.Unseal(sealed)
	require.NoError(t, err)
	assert.Equal(t, "secretX", plain)

	_, err = catalog.Unseal("garbage")
	assert.ErrorIs(t, err, product.ErrSecretUnreadable)

	require.NoError(t, catalog.RegisterSealed(ctx, "G1", "Widget", sealed, ""))
	p, err := catalog.Lookup(ctx, "G1", "Widget")
	require.NoError(t, err)
	assert.Equal(t, "secretX", p.Secret)
}
