// Package apperr defines the sentinel errors shared across the application.
package apperr

import "errors"

var (
	// ErrNotFound is returned when a contact, schedule, or profile record
	// does not exist in the local store.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating a record whose id is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation is returned when a record fails validation before it
	// reaches the store or the sync engine.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated is returned when a sync operation is requested
	// with no signed-in identity.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrPermissionDenied is returned when the cloud store rejects an
	// operation due to access rules.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrSerialization is returned when a record cannot be encoded for the
	// cloud store or decoded back into its local form.
	ErrSerialization = errors.New("serialization failed")
)
