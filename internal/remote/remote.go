// Package remote defines the multi-tenant cloud document store the sync
// engine mirrors into, with an in-memory implementation and an HTTP client
// for the hosted service.
//
// The store is organized as users/{uid} documents each owning contacts and
// schedules subcollections, plus a world-readable public_profiles/{uid}
// collection. Writes to subcollections go through batches committed
// atomically, with a hard per-batch operation ceiling.
package remote

import "context"

// BatchLimit is the hard ceiling of mutations per atomic batch commit.
const BatchLimit = 500

// Collection names under users/{uid}.
const (
	CollectionContacts  = "contacts"
	CollectionSchedules = "schedules"
)

// Store is the cloud document store the sync engine talks to.
type Store interface {
	// GetUser returns the users/{uid} top-level document, or nil when the
	// user has no document yet.
	GetUser(ctx context.Context, uid string) (map[string]any, error)

	// MergeUser merge-writes fields into the users/{uid} document: fields
	// absent from the payload are left untouched.
	MergeUser(ctx context.Context, uid string, fields map[string]any) error

	// ListIDs returns the document IDs currently present in a subcollection.
	ListIDs(ctx context.Context, uid, collection string) ([]string, error)

	// ListDocs returns every document in a subcollection keyed by ID.
	ListDocs(ctx context.Context, uid, collection string) (map[string]map[string]any, error)

	// NewBatch opens a write batch for the user's subcollections.
	NewBatch(uid string) Batch

	// SetPublicProfile writes the world-readable public_profiles/{uid}
	// document, replacing any previous content.
	SetPublicProfile(ctx context.Context, uid string, doc map[string]any) error

	// GetPublicProfile reads a public_profiles document, or nil when absent.
	GetPublicProfile(ctx context.Context, uid string) (map[string]any, error)
}

// Batch stages subcollection mutations for one atomic commit. Committing a
// batch holding more than BatchLimit operations is an error; callers chunk
// accordingly.
type Batch interface {
	// Set stages an upsert of a document.
	Set(collection, id string, doc map[string]any)

	// Delete stages a document deletion.
	Delete(collection, id string)

	// Len reports the number of staged operations.
	Len() int

	// Commit applies all staged operations atomically. The batch must not
	// be reused afterwards.
	Commit(ctx context.Context) error
}
