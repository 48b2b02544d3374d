// Package sync implements the bidirectional mirror between the local store
// and the cloud document store.
//
// Push makes the cloud's view of the signed-in user's data exactly match
// the local store, including deleting cloud documents with no local
// counterpart. Pull is the inverse mirror used for device restore, with one
// deliberate asymmetry: an empty cloud collection never wipes local data,
// so a transient empty read cannot destroy records that were never pushed.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/david8015838-create/nexus-mind/internal/apperr"
	"github.com/david8015838-create/nexus-mind/internal/codec"
	"github.com/david8015838-create/nexus-mind/internal/identity"
	"github.com/david8015838-create/nexus-mind/internal/models"
	"github.com/david8015838-create/nexus-mind/internal/remote"
	"github.com/david8015838-create/nexus-mind/internal/store"
)

// LocalStore is the slice of the local store the engine depends on.
// Consumers hold the concrete *store.Store; the interface keeps the engine
// testable against fakes.
type LocalStore interface {
	AllContacts() ([]models.Contact, error)
	AllSchedules() ([]models.Schedule, error)
	ReplaceContacts([]models.Contact) error
	ReplaceSchedules([]models.Schedule) error
	GetProfile() (*models.UserProfile, error)
	PutProfile(models.UserProfile) error
}

// Verify *store.Store satisfies LocalStore at compile time.
var _ LocalStore = (*store.Store)(nil)

// StatusFunc receives sync lifecycle events: "push.started",
// "push.completed", "push.failed", and the "pull.*" equivalents. err is
// non-nil only for the failed events.
type StatusFunc func(event string, err error)

// Engine orchestrates push and pull mirror operations for the identity
// supplied by its provider.
type Engine struct {
	local  LocalStore
	cloud  remote.Store
	ident  identity.Provider
	logger *slog.Logger

	// OnStatus, if set, is invoked on sync lifecycle transitions. Set it
	// before the engine is shared between goroutines.
	OnStatus StatusFunc

	syncing atomic.Bool
}

// New creates a sync engine. If logger is nil, slog.Default() is used.
func New(local LocalStore, cloud remote.Store, ident identity.Provider, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{local: local, cloud: cloud, ident: ident, logger: logger}
}

// IsSyncing reports whether a push or pull is currently running. The flag
// is advisory: it serves UI feedback, not mutual exclusion.
func (e *Engine) IsSyncing() bool {
	return e.syncing.Load()
}

func (e *Engine) status(event string, err error) {
	if e.OnStatus != nil {
		e.OnStatus(event, err)
	}
}

// record pairs a document ID with its local value for mirroring.
type record struct {
	id    string
	value any
}

// Push mirrors the local store into the cloud for the signed-in user.
// With no identity it returns apperr.ErrUnauthenticated and performs no
// remote operations.
func (e *Engine) Push(ctx context.Context) error {
	user := e.ident.CurrentUser()
	if user == nil {
		return fmt.Errorf("sync: push: %w", apperr.ErrUnauthenticated)
	}

	e.syncing.Store(true)
	defer e.syncing.Store(false)
	e.status("push.started", nil)

	if err := e.push(ctx, user); err != nil {
		e.status("push.failed", err)
		return err
	}
	e.status("push.completed", nil)
	return nil
}

func (e *Engine) push(ctx context.Context, user *identity.User) error {
	if err := e.pushUserDoc(ctx, user); err != nil {
		return err
	}

	contacts, err := e.local.AllContacts()
	if err != nil {
		return fmt.Errorf("sync: read local contacts: %w", err)
	}
	contactRecords := make([]record, len(contacts))
	for i, c := range contacts {
		contactRecords[i] = record{id: c.ID, value: c}
	}
	if err := e.mirror(ctx, user.UID, remote.CollectionContacts, contactRecords); err != nil {
		return err
	}

	schedules, err := e.local.AllSchedules()
	if err != nil {
		return fmt.Errorf("sync: read local schedules: %w", err)
	}
	scheduleRecords := make([]record, len(schedules))
	for i, s := range schedules {
		scheduleRecords[i] = record{id: s.ID, value: s}
	}
	return e.mirror(ctx, user.UID, remote.CollectionSchedules, scheduleRecords)
}

// pushUserDoc merge-writes the profile singleton, the sync timestamp, and
// the account email into the user's top-level document.
func (e *Engine) pushUserDoc(ctx context.Context, user *identity.User) error {
	var profileDoc map[string]any
	profile, err := e.local.GetProfile()
	switch {
	case err == nil:
		profileDoc, err = codec.EncodeRecord(*profile)
		if err != nil {
			return fmt.Errorf("sync: encode profile: %w", err)
		}
		// The singleton key is a local storage detail; the cloud document
		// re-attaches it on pull.
		delete(profileDoc, "id")
	case isNotFound(err):
		profileDoc = map[string]any{}
	default:
		return fmt.Errorf("sync: read profile: %w", err)
	}

	fields := map[string]any{
		"profile":    profileDoc,
		"lastSynced": codec.Encode(time.Now()),
		"email":      user.Email,
	}
	if err := e.cloud.MergeUser(ctx, user.UID, fields); err != nil {
		return fmt.Errorf("sync: push user document: %w", err)
	}
	return nil
}

// mirror makes one cloud subcollection match the given local records:
// cloud documents absent locally are deleted, everything local is upserted
// through the codec, and all mutations go out in batches flushed at the
// cloud's per-batch ceiling.
//
// Records with an empty id cannot be addressed remotely and are skipped, as
// are records the codec rejects; both are logged and counted, never fatal.
func (e *Engine) mirror(ctx context.Context, uid, collection string, records []record) error {
	existing, err := e.cloud.ListIDs(ctx, uid, collection)
	if err != nil {
		return fmt.Errorf("sync: list %s ids: %w", collection, err)
	}

	localIDs := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.id != "" {
			localIDs[r.id] = struct{}{}
		}
	}

	batch := e.cloud.NewBatch(uid)
	commits := 0
	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("sync: commit %s batch: %w", collection, err)
		}
		commits++
		batch = e.cloud.NewBatch(uid)
		return nil
	}

	deletes := 0
	for _, id := range existing {
		if _, ok := localIDs[id]; ok {
			continue
		}
		batch.Delete(collection, id)
		deletes++
		if batch.Len() == remote.BatchLimit {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	upserts, skipped := 0, 0
	for _, r := range records {
		if r.id == "" {
			skipped++
			e.logger.Warn("sync: record without id skipped", slog.String("collection", collection))
			continue
		}
		doc, err := codec.EncodeRecord(r.value)
		if err != nil {
			skipped++
			e.logger.Warn("sync: record skipped",
				slog.String("collection", collection),
				slog.String("id", r.id),
				slog.String("error", err.Error()))
			continue
		}
		batch.Set(collection, r.id, doc)
		upserts++
		if batch.Len() == remote.BatchLimit {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := flush(); err != nil {
		return err
	}

	e.logger.Info("sync: mirrored collection",
		slog.String("collection", collection),
		slog.Int("upserts", upserts),
		slog.Int("deletes", deletes),
		slog.Int("skipped", skipped),
		slog.Int("commits", commits))
	return nil
}

// Pull mirrors the cloud into the local store for the signed-in user.
// Collections that are empty on the cloud side leave local data untouched.
func (e *Engine) Pull(ctx context.Context) error {
	user := e.ident.CurrentUser()
	if user == nil {
		return fmt.Errorf("sync: pull: %w", apperr.ErrUnauthenticated)
	}

	e.syncing.Store(true)
	defer e.syncing.Store(false)
	e.status("pull.started", nil)

	if err := e.pull(ctx, user); err != nil {
		e.status("pull.failed", err)
		return err
	}
	e.status("pull.completed", nil)
	return nil
}

func (e *Engine) pull(ctx context.Context, user *identity.User) error {
	userDoc, err := e.cloud.GetUser(ctx, user.UID)
	if err != nil {
		return fmt.Errorf("sync: fetch user document: %w", err)
	}
	if profileDoc, ok := userDoc["profile"].(map[string]any); ok && len(profileDoc) > 0 {
		var profile models.UserProfile
		if err := codec.DecodeInto(profileDoc, &profile); err != nil {
			e.logger.Warn("sync: cloud profile skipped", slog.String("error", err.Error()))
		} else {
			profile.ID = models.ProfileID
			if err := e.local.PutProfile(profile); err != nil {
				return fmt.Errorf("sync: restore profile: %w", err)
			}
		}
	}

	contacts, err := pullCollection[models.Contact](ctx, e, user.UID, remote.CollectionContacts)
	if err != nil {
		return err
	}
	if len(contacts) > 0 {
		if err := e.local.ReplaceContacts(contacts); err != nil {
			return fmt.Errorf("sync: replace contacts: %w", err)
		}
	}

	schedules, err := pullCollection[models.Schedule](ctx, e, user.UID, remote.CollectionSchedules)
	if err != nil {
		return err
	}
	if len(schedules) > 0 {
		if err := e.local.ReplaceSchedules(schedules); err != nil {
			return fmt.Errorf("sync: replace schedules: %w", err)
		}
	}
	return nil
}

// pullCollection fetches and decodes one cloud subcollection. Documents the
// codec rejects are logged and skipped; the rest proceed.
func pullCollection[T any](ctx context.Context, e *Engine, uid, collection string) ([]T, error) {
	docs, err := e.cloud.ListDocs(ctx, uid, collection)
	if err != nil {
		return nil, fmt.Errorf("sync: fetch %s: %w", collection, err)
	}

	out := make([]T, 0, len(docs))
	skipped := 0
	for id, doc := range docs {
		var item T
		if err := codec.DecodeInto(doc, &item); err != nil {
			skipped++
			e.logger.Warn("sync: cloud document skipped",
				slog.String("collection", collection),
				slog.String("id", id),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, item)
	}
	if skipped > 0 {
		e.logger.Warn("sync: documents skipped during pull",
			slog.String("collection", collection),
			slog.Int("skipped", skipped))
	}
	return out, nil
}

// PublishProfile writes the narrowed public projection of the profile to
// the world-readable collection. It is the only write outside the user's
// own subtree.
func (e *Engine) PublishProfile(ctx context.Context) error {
	user := e.ident.CurrentUser()
	if user == nil {
		return fmt.Errorf("sync: publish profile: %w", apperr.ErrUnauthenticated)
	}
	profile, err := e.local.GetProfile()
	if err != nil {
		return fmt.Errorf("sync: read profile: %w", err)
	}
	doc, err := codec.EncodeRecord(profile.PublicProjection(user.UID, time.Now()))
	if err != nil {
		return fmt.Errorf("sync: encode public profile: %w", err)
	}
	if err := e.cloud.SetPublicProfile(ctx, user.UID, doc); err != nil {
		return fmt.Errorf("sync: publish profile: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}
