package flow

import "context"

// RoleProvisioner manages roles on the chat platform.
type RoleProvisioner interface {
	// CreateRole creates a role named name in scope and returns its reference.
	// Returns ErrPermissionDenied when the bot may not create roles.
	CreateRole(ctx context.Context, scope, name string) (roleRef string, err error)

	// FindRole looks a role up by name. Returns ErrRoleNotFound when absent.
	FindRole(ctx context.Context, scope, name string) (roleRef string, err error)

	// GrantRole gives roleRef to userID. Returns ErrPermissionDenied when the
	// bot may not assign it.
	GrantRole(ctx context.Context, scope, userID, roleRef string) error
}

// License is the license authority's view of a key.
type License struct {
	Enabled bool
	Uses    int
}

// LicenseAuthority checks license keys against the store that sold them.
type LicenseAuthority interface {
	// Verify returns ErrInvalidLicense when the key does not belong to the
	// product identified by productSecret.
	Verify(ctx context.Context, productSecret, licenseKey string) (License, error)
}

// Presenter renders outcomes for users. surface identifies where: the prompt
// a session was shown on, or the interaction that resumed it. Returning
// ErrSurfaceUnavailable tells the engine nobody can see the result.
type Presenter interface {
	Present(ctx context.Context, surface string, out Outcome) error
}
