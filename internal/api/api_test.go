package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/david8015838-create/nexus-mind/internal/contactservice"
	"github.com/david8015838-create/nexus-mind/internal/identity"
	"github.com/david8015838-create/nexus-mind/internal/models"
	"github.com/david8015838-create/nexus-mind/internal/remote"
	"github.com/david8015838-create/nexus-mind/internal/sync"
	"github.com/david8015838-create/nexus-mind/internal/testutil"
)

func newTestAPI(t *testing.T, ident identity.Provider) http.Handler {
	t.Helper()
	st := testutil.TestStore(t)
	svc := contactservice.NewService(st, nil, nil)
	engine := sync.New(st, remote.NewMemory(), ident, testutil.SilentLogger())
	return NewRouter(svc, engine, false, "", nil)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeContact(t *testing.T, w *httptest.ResponseRecorder) models.Contact {
	t.Helper()
	var c models.Contact
	if err := json.Unmarshal(w.Body.Bytes(), &c); err != nil {
		t.Fatalf("decode contact: %v (%s)", err, w.Body.String())
	}
	return c
}

func TestContactCRUD(t *testing.T) {
	h := newTestAPI(t, testutil.TestIdentity())

	w := doJSON(t, h, http.MethodPost, "/contacts", map[string]any{"name": "Alice", "tags": []string{"friends"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d: %s", w.Code, w.Body.String())
	}
	created := decodeContact(t, w)
	if created.ID == "" || created.Name != "Alice" {
		t.Fatalf("unexpected created contact %+v", created)
	}

	w = doJSON(t, h, http.MethodGet, "/contacts", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d", w.Code)
	}
	var list ContactListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Contacts[0].ID != created.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	w = doJSON(t, h, http.MethodPut, "/contacts/"+created.ID, map[string]any{"name": "Alice B."})
	if w.Code != http.StatusOK {
		t.Fatalf("update: status %d: %s", w.Code, w.Body.String())
	}
	if got := decodeContact(t, w); got.Name != "Alice B." {
		t.Fatalf("update not applied: %+v", got)
	}

	w = doJSON(t, h, http.MethodDelete, "/contacts/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", w.Code)
	}

	w = doJSON(t, h, http.MethodGet, "/contacts/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status %d", w.Code)
	}
}

func TestCreateContactRejectsMissingName(t *testing.T) {
	h := newTestAPI(t, testutil.TestIdentity())

	w := doJSON(t, h, http.MethodPost, "/contacts", map[string]any{"importance": 10})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
}

func TestMemoryEndpoints(t *testing.T) {
	h := newTestAPI(t, testutil.TestIdentity())

	created := decodeContact(t, doJSON(t, h, http.MethodPost, "/contacts", map[string]any{"name": "Alice"}))

	w := doJSON(t, h, http.MethodPost, "/contacts/"+created.ID+"/memories", map[string]any{"content": "met at a conference"})
	if w.Code != http.StatusOK {
		t.Fatalf("add memory: status %d: %s", w.Code, w.Body.String())
	}
	if got := decodeContact(t, w); len(got.Memories) != 1 {
		t.Fatalf("memory not appended: %+v", got)
	}

	w = doJSON(t, h, http.MethodDelete, "/contacts/"+created.ID+"/memories/5", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete bad index: status %d", w.Code)
	}
	w = doJSON(t, h, http.MethodDelete, "/contacts/"+created.ID+"/memories/0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete memory: status %d", w.Code)
	}
}

func TestScheduleEndpointsWithParticipants(t *testing.T) {
	h := newTestAPI(t, testutil.TestIdentity())

	created := decodeContact(t, doJSON(t, h, http.MethodPost, "/contacts", map[string]any{"name": "Alice"}))

	w := doJSON(t, h, http.MethodPost, "/schedules", map[string]any{
		"title":      "Coffee",
		"type":       models.ScheduleMeeting,
		"date":       time.Now().Add(time.Hour).Format(time.RFC3339),
		"contactIds": []string{created.ID, "gone"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create schedule: status %d: %s", w.Code, w.Body.String())
	}
	var sc models.Schedule
	if err := json.Unmarshal(w.Body.Bytes(), &sc); err != nil {
		t.Fatal(err)
	}

	w = doJSON(t, h, http.MethodGet, "/schedules/"+sc.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get schedule: status %d", w.Code)
	}
	var detail ScheduleDetail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatal(err)
	}
	want := []string{"Alice", contactservice.UnknownParticipant}
	if len(detail.Participants) != 2 || detail.Participants[0] != want[0] || detail.Participants[1] != want[1] {
		t.Fatalf("participants %v, want %v", detail.Participants, want)
	}

	w = doJSON(t, h, http.MethodGet, "/schedules/upcoming?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("upcoming: status %d", w.Code)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	h := newTestAPI(t, testutil.TestIdentity())

	if w := doJSON(t, h, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}

	doJSON(t, h, http.MethodPost, "/contacts", map[string]any{"name": "Grace Hopper"})
	w := doJSON(t, h, http.MethodGet, "/search?q=Grace", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search: status %d", w.Code)
	}
	var res SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Results) != 1 || res.Results[0].Name != "Grace Hopper" {
		t.Fatalf("unexpected results %+v", res.Results)
	}
}

func TestProfileEndpoints(t *testing.T) {
	h := newTestAPI(t, testutil.TestIdentity())

	w := doJSON(t, h, http.MethodGet, "/profile", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get profile: status %d", w.Code)
	}
	var p models.UserProfile
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.ID != models.ProfileID {
		t.Fatalf("profile not seeded: %+v", p)
	}

	p.Name = "Dana"
	w = doJSON(t, h, http.MethodPut, "/profile", p)
	if w.Code != http.StatusOK {
		t.Fatalf("put profile: status %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, "/profile", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Name != "Dana" {
		t.Fatalf("profile not updated: %+v", p)
	}
}

func TestSyncEndpoints(t *testing.T) {
	h := newTestAPI(t, testutil.TestIdentity())

	doJSON(t, h, http.MethodPost, "/contacts", map[string]any{"name": "Alice"})

	if w := doJSON(t, h, http.MethodPost, "/sync/push", nil); w.Code != http.StatusNoContent {
		t.Fatalf("push: status %d: %s", w.Code, w.Body.String())
	}

	if w := doJSON(t, h, http.MethodPost, "/sync/pull", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("pull without confirm: status %d", w.Code)
	}
	if w := doJSON(t, h, http.MethodPost, "/sync/pull?confirm=true", nil); w.Code != http.StatusNoContent {
		t.Fatalf("pull: status %d: %s", w.Code, w.Body.String())
	}

	w := doJSON(t, h, http.MethodGet, "/sync/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: status %d", w.Code)
	}
	var status SyncStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Syncing {
		t.Fatal("no sync should be in flight")
	}
}

func TestSyncRequiresSignIn(t *testing.T) {
	h := newTestAPI(t, identity.NewStatic(identity.User{}, false))

	if w := doJSON(t, h, http.MethodPost, "/sync/push", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("push signed out: status %d", w.Code)
	}
	if w := doJSON(t, h, http.MethodPost, "/profile/publish", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("publish signed out: status %d", w.Code)
	}
}

func TestExportICSEndpoint(t *testing.T) {
	h := newTestAPI(t, testutil.TestIdentity())

	doJSON(t, h, http.MethodPost, "/schedules", map[string]any{
		"title": "Planning call",
		"date":  time.Now().Add(time.Hour).Format(time.RFC3339),
	})

	w := doJSON(t, h, http.MethodGet, "/export/ics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("content type %q", ct)
	}
	if !strings.Contains(w.Body.String(), "Planning call") {
		t.Fatalf("export missing schedule: %q", w.Body.String())
	}
}

func TestAuthMiddlewareEnforcesToken(t *testing.T) {
	st := testutil.TestStore(t)
	svc := contactservice.NewService(st, nil, nil)
	engine := sync.New(st, remote.NewMemory(), testutil.TestIdentity(), testutil.SilentLogger())
	h := NewRouter(svc, engine, true, "s3cret", nil)

	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/contacts", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/contacts", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token: status %d", w.Code)
	}
}
