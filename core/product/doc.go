// Package product stores the products a guild sells: a name, an encrypted
// license secret and the role granted to verified buyers.
//
// Store implementations (MemoryStore, PostgresStore, SQLiteStore) enforce
// uniqueness of (scope, name) themselves and report a duplicate as
// ErrConflict. Catalog sits on top and handles encryption:
//
//	catalog := product.NewCatalog(store, codec)
//	err := catalog.Register(ctx, guildID, "Widget", secret, roleID)
//	if errors.Is(err, product.ErrConflict) {
//		// already registered
//	}
package product
