package product

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrConflict is returned when a product with the same name already exists in the scope.
	ErrConflict = errors.New("product already exists")
	// ErrNotFound is returned when no product matches.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidRecord is returned for records missing a scope, name or secret.
	ErrInvalidRecord = errors.New("invalid product record")
	// ErrSecretUnreadable is returned when a stored secret cannot be decrypted.
	// It means key loss or corruption and is never retried.
	ErrSecretUnreadable = errors.New("product secret cannot be decrypted")
)

// Input limits for product names and secrets, in runes.
const (
	MaxNameLength   = 100
	MaxSecretLength = 100
)

// Record is a stored product. EncryptedSecret is opaque to the store.
type Record struct {
	Scope           string
	Name            string
	EncryptedSecret string
	RoleRef         string
	CreatedAt       time.Time
}

func (r Record) validate() error {
	if r.Scope == "" || r.Name == "" || r.EncryptedSecret == "" {
		return ErrInvalidRecord
	}
	return nil
}

// Product is a record with its secret decrypted.
type Product struct {
	Name    string
	Secret  string
	RoleRef string
}

// Store persists product records. Uniqueness on (Scope, Name) is enforced by
// the store itself.
type Store interface {
	// InsertIfAbsent stores r or returns ErrConflict when the name is taken.
	InsertIfAbsent(ctx context.Context, r Record) error

	// ListByScope returns the scope's records ordered by name.
	ListByScope(ctx context.Context, scope string) ([]Record, error)

	// DeleteByName removes one record or returns ErrNotFound.
	DeleteByName(ctx context.Context, scope, name string) error
}

// NormalizeName trims a user-supplied product name and checks its length.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > MaxNameLength {
		return "", ErrInvalidRecord
	}
	return name, nil
}

// NormalizeSecret trims a user-supplied product secret and checks its length.
func NormalizeSecret(secret string) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" || len([]rune(secret)) > MaxSecretLength {
		return "", ErrInvalidRecord
	}
	return secret, nil
}
