package product

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Codec encrypts secrets before they reach the store.
type Codec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Catalog is the product API used by flows: secrets go in as plaintext and
// come out decrypted.
type Catalog struct {
	store Store
	codec Codec
	now   func() time.Time
}

// NewCatalog creates a catalog over store using codec for secrets.
func NewCatalog(store Store, codec Codec) *Catalog {
	return &Catalog{store: store, codec: codec, now: time.Now}
}

// Register encrypts secret and stores the product. Returns ErrConflict when
// the name is already registered in scope.
func (c *Catalog) Register(ctx context.Context, scope, name, secret, roleRef string) error {
	sealed, err := c.Seal(secret)
	if err != nil {
		return err
	}
	return c.RegisterSealed(ctx, scope, name, sealed, roleRef)
}

// RegisterSealed stores a product whose secret was encrypted with Seal.
func (c *Catalog) RegisterSealed(ctx context.Context, scope, name, sealedSecret, roleRef string) error {
	return c.store.InsertIfAbsent(ctx, Record{
		Scope:           scope,
		Name:            name,
		EncryptedSecret: sealedSecret,
		RoleRef:         roleRef,
		CreatedAt:       c.now().UTC(),
	})
}

// Seal encrypts a value so it can sit in session state or the store
// without exposing the plaintext.
func (c *Catalog) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrInvalidRecord
	}
	sealed, err := c.codec.Encrypt(plaintext)
	if err != nil {
		return "", fmt.Errorf("encrypt secret: %w", err)
	}
	return sealed, nil
}

// Unseal reverses Seal.
func (c *Catalog) Unseal(sealed string) (string, error) {
	plaintext, err := c.codec.Decrypt(sealed)
	if err != nil {
		return "", errors.Join(ErrSecretUnreadable, err)
	}
	return plaintext, nil
}

// List returns every product in scope with decrypted secrets. A secret that
// fails to decrypt fails the whole call.
func (c *Catalog) List(ctx context.Context, scope string) ([]Product, error) {
	records, err := c.store.ListByScope(ctx, scope)
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(records))
	for _, r := range records {
		p, err := c.decrypt(r)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// Names returns product names in scope without decrypting secrets.
func (c *Catalog) Names(ctx context.Context, scope string) ([]string, error) {
	records, err := c.store.ListByScope(ctx, scope)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	return names, nil
}

// Lookup returns one decrypted product or ErrNotFound.
func (c *Catalog) Lookup(ctx context.Context, scope, name string) (Product, error) {
	records, err := c.store.ListByScope(ctx, scope)
	if err != nil {
		return Product{}, err
	}
	for _, r := range records {
		if r.Name == name {
			return c.decrypt(r)
		}
	}
	return Product{}, ErrNotFound
}

// Remove deletes a product or returns ErrNotFound.
func (c *Catalog) Remove(ctx context.Context, scope, name string) error {
	return c.store.DeleteByName(ctx, scope, name)
}

func (c *Catalog) decrypt(r Record) (Product, error) {
	secret, err := c.codec.Decrypt(r.EncryptedSecret)
	if err != nil {
		return Product{}, errors.Join(ErrSecretUnreadable, fmt.Errorf("product %q: %w", r.Name, err))
	}
	return Product{Name: r.Name, Secret: secret, RoleRef: r.RoleRef}, nil
}
