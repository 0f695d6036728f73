package flow

import "errors"

var (
	// ErrNotOwner is logged when someone other than the guild owner starts
	// an owner-only flow.
	ErrNotOwner = errors.New("actor is not the scope owner")
	// ErrSurfaceUnavailable is returned by a Presenter when the prompt the
	// outcome belongs to no longer exists or cannot be reached.
	ErrSurfaceUnavailable = errors.New("presentation surface unavailable")
	// ErrPermissionDenied is returned by a RoleProvisioner lacking the
	// platform permission for the operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrRoleNotFound is returned by RoleProvisioner.FindRole.
	ErrRoleNotFound = errors.New("role not found")
	// ErrInvalidLicense is returned by a LicenseAuthority for unknown keys
	// or a wrong product secret.
	ErrInvalidLicense = errors.New("invalid license key or product secret")
	// ErrNotConfigured is returned when a collaborator was not supplied.
	ErrNotConfigured = errors.New("flow collaborator not configured")
	// ErrStepPanicked wraps a panic recovered from a flow step.
	ErrStepPanicked = errors.New("flow step panicked")
)
