package sync

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/david8015838-create/nexus-mind/internal/apperr"
	"github.com/david8015838-create/nexus-mind/internal/codec"
	"github.com/david8015838-create/nexus-mind/internal/identity"
	"github.com/david8015838-create/nexus-mind/internal/models"
	"github.com/david8015838-create/nexus-mind/internal/remote"
	"github.com/david8015838-create/nexus-mind/internal/store"
	"github.com/david8015838-create/nexus-mind/internal/testutil"
)

func newEngine(t *testing.T) (*Engine, *store.Store, *remote.Memory, *identity.Static) {
	t.Helper()
	local := testutil.TestStore(t)
	cloud := remote.NewMemory()
	ident := testutil.TestIdentity()
	return New(local, cloud, ident, testutil.SilentLogger()), local, cloud, ident
}

func contact(id, name string) models.Contact {
	return models.Contact{ID: id, Name: name, LastUpdated: time.Now().UTC()}
}

func seedRemoteContacts(t *testing.T, cloud *remote.Memory, uid string, ids ...string) {
	t.Helper()
	b := cloud.NewBatch(uid)
	for _, id := range ids {
		b.Set(remote.CollectionContacts, id, map[string]any{"id": id, "name": "cloud " + id})
	}
	if err := b.Commit(context.Background()); err != nil {
		t.Fatalf("seed remote: %v", err)
	}
}

func remoteContactIDs(t *testing.T, cloud *remote.Memory, uid string) map[string]struct{} {
	t.Helper()
	ids, err := cloud.ListIDs(context.Background(), uid, remote.CollectionContacts)
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func TestPushMirrorsLocalToCloud(t *testing.T) {
	engine, local, cloud, _ := newEngine(t)
	ctx := context.Background()

	c := contact("c-1", "Sarah Lin")
	c.Tags = []string{"taipei", "design"}
	if err := local.PutContact(c); err != nil {
		t.Fatal(err)
	}
	sched := models.Schedule{ID: "s-1", Title: "kickoff", Date: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), ContactIDs: []string{"c-1"}}
	if err := local.PutSchedule(sched); err != nil {
		t.Fatal(err)
	}

	if err := engine.Push(ctx); err != nil {
		t.Fatalf("Push: %v", err)
	}

	docs, err := cloud.ListDocs(ctx, "test-uid", remote.CollectionContacts)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := codec.EncodeRecord(c)
	if !reflect.DeepEqual(docs["c-1"], want) {
		t.Errorf("cloud document != Encode(local record)\n got=%v\nwant=%v", docs["c-1"], want)
	}

	scheds, _ := cloud.ListDocs(ctx, "test-uid", remote.CollectionSchedules)
	if len(scheds) != 1 {
		t.Errorf("schedules on cloud = %d, want 1", len(scheds))
	}

	userDoc, _ := cloud.GetUser(ctx, "test-uid")
	if userDoc == nil {
		t.Fatal("user document missing after push")
	}
	if userDoc["email"] != "test@example.com" {
		t.Errorf("email = %v", userDoc["email"])
	}
	if _, ok := userDoc["lastSynced"].(string); !ok {
		t.Errorf("lastSynced = %v, want ISO string", userDoc["lastSynced"])
	}
}

func TestPushDeletionReconciliation(t *testing.T) {
	engine, local, cloud, _ := newEngine(t)
	seedRemoteContacts(t, cloud, "test-uid", "A", "B", "C")

	for _, id := range []string{"B", "C", "D"} {
		if err := local.PutContact(contact(id, "local "+id)); err != nil {
			t.Fatal(err)
		}
	}

	if err := engine.Push(context.Background()); err != nil {
		t.Fatalf("Push: %v", err)
	}

	got := remoteContactIDs(t, cloud, "test-uid")
	want := map[string]struct{}{"B": {}, "C": {}, "D": {}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("remote ids = %v, want %v", got, want)
	}
}

func TestPushEmptyLocalClearsRemote(t *testing.T) {
	engine, _, cloud, _ := newEngine(t)
	seedRemoteContacts(t, cloud, "test-uid", "A", "B")

	if err := engine.Push(context.Background()); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if got := remoteContactIDs(t, cloud, "test-uid"); len(got) != 0 {
		t.Errorf("remote ids = %v, want empty (mirror of empty local)", got)
	}
}

func TestPushBatchChunking(t *testing.T) {
	engine, local, cloud, _ := newEngine(t)

	contacts := make([]models.Contact, 1200)
	for i := range contacts {
		contacts[i] = contact(fmt.Sprintf("c-%04d", i), fmt.Sprintf("person %d", i))
	}
	if err := local.ReplaceContacts(contacts); err != nil {
		t.Fatal(err)
	}

	if err := engine.Push(context.Background()); err != nil {
		t.Fatalf("Push: %v", err)
	}

	// 1200 upserts chunk into 500 + 500 + 200; the empty schedules
	// collection contributes no commit.
	if got := cloud.CommitCount(); got != 3 {
		t.Errorf("batch commits = %d, want 3", got)
	}
	if got := remoteContactIDs(t, cloud, "test-uid"); len(got) != 1200 {
		t.Errorf("remote contacts = %d, want 1200", len(got))
	}
}

func TestPushIdempotent(t *testing.T) {
	engine, local, cloud, _ := newEngine(t)
	for _, id := range []string{"a", "b"} {
		if err := local.PutContact(contact(id, id)); err != nil {
			t.Fatal(err)
		}
	}

	if err := engine.Push(context.Background()); err != nil {
		t.Fatal(err)
	}
	after1, _ := cloud.ListDocs(context.Background(), "test-uid", remote.CollectionContacts)

	if err := engine.Push(context.Background()); err != nil {
		t.Fatal(err)
	}
	after2, _ := cloud.ListDocs(context.Background(), "test-uid", remote.CollectionContacts)

	if !reflect.DeepEqual(after1, after2) {
		t.Errorf("second push changed remote state:\nfirst=%v\nsecond=%v", after1, after2)
	}
}

func TestPushSkipsRecordsWithoutID(t *testing.T) {
	engine, local, cloud, _ := newEngine(t)
	if err := local.PutContact(models.Contact{ID: "", Name: "no id", LastUpdated: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := local.PutContact(contact("ok", "has id")); err != nil {
		t.Fatal(err)
	}

	if err := engine.Push(context.Background()); err != nil {
		t.Fatalf("Push: %v", err)
	}
	got := remoteContactIDs(t, cloud, "test-uid")
	if _, ok := got["ok"]; !ok || len(got) != 1 {
		t.Errorf("remote ids = %v, want only the addressable record", got)
	}
}

func TestPushUnauthenticated(t *testing.T) {
	engine, local, cloud, ident := newEngine(t)
	if err := local.PutContact(contact("c-1", "x")); err != nil {
		t.Fatal(err)
	}
	if err := ident.Logout(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := engine.Push(context.Background())
	if !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
	if cloud.CommitCount() != 0 {
		t.Error("unauthenticated push must perform zero remote operations")
	}
	if doc, _ := cloud.GetUser(context.Background(), "test-uid"); doc != nil {
		t.Error("unauthenticated push must not touch the user document")
	}
}

func TestSyncingFlagSetDuringPushAndCleared(t *testing.T) {
	engine, _, _, _ := newEngine(t)

	var duringStart bool
	engine.OnStatus = func(event string, _ error) {
		if event == "push.started" {
			duringStart = engine.IsSyncing()
		}
	}
	if err := engine.Push(context.Background()); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if !duringStart {
		t.Error("syncing flag not set while push runs")
	}
	if engine.IsSyncing() {
		t.Error("syncing flag not cleared after push")
	}
}

func TestSyncingFlagClearedOnFailure(t *testing.T) {
	local := testutil.TestStore(t)
	cloud := &failingStore{Memory: remote.NewMemory(), listErr: apperr.ErrPermissionDenied}
	engine := New(local, cloud, testutil.TestIdentity(), testutil.SilentLogger())

	if err := engine.Push(context.Background()); err == nil {
		t.Fatal("expected push to fail")
	}
	if engine.IsSyncing() {
		t.Error("syncing flag must clear on the failure path")
	}
}

func TestPushPermissionDenied(t *testing.T) {
	local := testutil.TestStore(t)
	cloud := &failingStore{Memory: remote.NewMemory(), listErr: apperr.ErrPermissionDenied}
	engine := New(local, cloud, testutil.TestIdentity(), testutil.SilentLogger())

	err := engine.Push(context.Background())
	if !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Errorf("err = %v, want wrapped ErrPermissionDenied", err)
	}
}

func TestPullRestoresFromCloud(t *testing.T) {
	engine, local, _, _ := newEngine(t)
	ctx := context.Background()

	birthday := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	c := models.Contact{
		ID:       "c-1",
		Name:     "Test User",
		Birthday: &birthday,
		Memories: []models.Memory{
			{Content: "met at conference", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		},
		LastUpdated: time.Now().UTC(),
	}
	if err := local.PutContact(c); err != nil {
		t.Fatal(err)
	}
	if err := engine.Push(ctx); err != nil {
		t.Fatalf("Push: %v", err)
	}

	// Wipe the device.
	if err := local.ReplaceContacts(nil); err != nil {
		t.Fatal(err)
	}
	if n, _ := local.CountContacts(); n != 0 {
		t.Fatal("local wipe failed")
	}

	if err := engine.Pull(ctx); err != nil {
		t.Fatalf("Pull: %v", err)
	}

	restored, err := local.GetContact("c-1")
	if err != nil {
		t.Fatalf("restored contact missing: %v", err)
	}
	if restored.Name != "Test User" {
		t.Errorf("name = %q", restored.Name)
	}
	if restored.Birthday == nil || !restored.Birthday.Equal(birthday) {
		t.Errorf("birthday = %v, want %v", restored.Birthday, birthday)
	}
	if len(restored.Memories) != 1 {
		t.Fatalf("memories = %d, want 1", len(restored.Memories))
	}
	if restored.Memories[0].Content != "met at conference" {
		t.Errorf("memory content = %q", restored.Memories[0].Content)
	}
	if !restored.Memories[0].Date.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("memory date = %v", restored.Memories[0].Date)
	}
}

func TestPullReplacesLocalContents(t *testing.T) {
	engine, local, cloud, _ := newEngine(t)
	ctx := context.Background()

	if err := local.PutContact(contact("stale", "stale")); err != nil {
		t.Fatal(err)
	}

	b := cloud.NewBatch("test-uid")
	b.Set(remote.CollectionContacts, "fresh", map[string]any{
		"id": "fresh", "name": "fresh", "lastUpdated": "2024-07-01T00:00:00.000Z",
	})
	if err := b.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	if err := engine.Pull(ctx); err != nil {
		t.Fatalf("Pull: %v", err)
	}

	if _, err := local.GetContact("stale"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("previous local contents must be discarded")
	}
	got, err := local.GetContact("fresh")
	if err != nil {
		t.Fatalf("pulled contact missing: %v", err)
	}
	if !got.LastUpdated.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("lastUpdated = %v, want decoded date", got.LastUpdated)
	}
}

func TestPullEmptyRemoteLeavesLocalUntouched(t *testing.T) {
	engine, local, _, _ := newEngine(t)

	if err := local.PutContact(contact("keep", "keep me")); err != nil {
		t.Fatal(err)
	}
	if err := engine.Pull(context.Background()); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if _, err := local.GetContact("keep"); err != nil {
		t.Error("empty cloud collection must never wipe local data")
	}
}

func TestPullSkipsMalformedDocuments(t *testing.T) {
	engine, local, cloud, _ := newEngine(t)
	ctx := context.Background()

	b := cloud.NewBatch("test-uid")
	b.Set(remote.CollectionContacts, "bad", map[string]any{"id": "bad", "name": "x", "lastUpdated": 12345})
	b.Set(remote.CollectionContacts, "good", map[string]any{"id": "good", "name": "y", "lastUpdated": "2024-07-01T00:00:00.000Z"})
	if err := b.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	if err := engine.Pull(ctx); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if _, err := local.GetContact("good"); err != nil {
		t.Error("well-formed documents must survive a partial decode failure")
	}
	if _, err := local.GetContact("bad"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("malformed document must be skipped, not stored")
	}
}

func TestPullRestoresProfileSingleton(t *testing.T) {
	engine, local, cloud, _ := newEngine(t)
	ctx := context.Background()

	if err := cloud.MergeUser(ctx, "test-uid", map[string]any{
		"profile": map[string]any{"name": "Cloud Name", "themeColor": "#112233"},
	}); err != nil {
		t.Fatal(err)
	}

	if err := engine.Pull(ctx); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	p, err := local.GetProfile()
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.ID != models.ProfileID {
		t.Errorf("profile id = %q, singleton key must be re-attached", p.ID)
	}
	if p.Name != "Cloud Name" || p.ThemeColor != "#112233" {
		t.Errorf("profile = %+v", p)
	}
}

func TestPullUnauthenticated(t *testing.T) {
	engine, _, _, ident := newEngine(t)
	_ = ident.Logout(context.Background())
	if err := engine.Pull(context.Background()); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestPublishProfile(t *testing.T) {
	engine, local, cloud, _ := newEngine(t)
	ctx := context.Background()

	if _, err := local.SeedProfile(); err != nil {
		t.Fatal(err)
	}
	p, _ := local.GetProfile()
	p.Name = "Public Me"
	p.Bio = "hello"
	if err := local.PutProfile(*p); err != nil {
		t.Fatal(err)
	}

	if err := engine.PublishProfile(ctx); err != nil {
		t.Fatalf("PublishProfile: %v", err)
	}
	doc, err := cloud.GetPublicProfile(ctx, "test-uid")
	if err != nil || doc == nil {
		t.Fatalf("public profile missing: %v", err)
	}
	if doc["name"] != "Public Me" || doc["uid"] != "test-uid" {
		t.Errorf("public doc = %v", doc)
	}
	if _, ok := doc["updatedAt"].(string); !ok {
		t.Errorf("updatedAt = %v, want ISO string", doc["updatedAt"])
	}
	if _, leaked := doc["themeColor"]; leaked {
		t.Error("public projection must stay narrow")
	}
}

func TestTryPushSignedOutIsNoOp(t *testing.T) {
	engine, _, cloud, ident := newEngine(t)
	_ = ident.Logout(context.Background())

	engine.TryPush(context.Background())
	if cloud.CommitCount() != 0 {
		t.Error("background push while signed out must not touch the cloud")
	}
}

func TestTriggerCoalescesNotifications(t *testing.T) {
	engine, local, cloud, _ := newEngine(t)
	if err := local.PutContact(contact("c-1", "x")); err != nil {
		t.Fatal(err)
	}

	trigger := NewTrigger(engine)
	// Burst of notifications before the worker runs: they must coalesce
	// into a single pending push.
	for i := 0; i < 10; i++ {
		trigger.Notify()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		trigger.Run(ctx)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for {
		if len(remoteContactIDs(t, cloud, "test-uid")) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("push never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if got := cloud.CommitCount(); got > 2 {
		t.Errorf("commits = %d, notifications did not coalesce", got)
	}
}

// failingStore wraps the in-memory store and fails ListIDs with a fixed
// error, exercising the abort-and-propagate path.
type failingStore struct {
	*remote.Memory
	listErr error
}

func (f *failingStore) ListIDs(context.Context, string, string) ([]string, error) {
	return nil, f.listErr
}
