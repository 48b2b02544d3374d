package remote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/david8015838-create/nexus-mind/internal/apperr"
)

// HTTP is a Store backed by the cloud server's REST API.
type HTTP struct {
	client *resty.Client
}

// NewHTTP creates a client for the cloud server at baseURL. Every remote
// call is bounded by the given timeout.
func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &HTTP{client: c}
}

// SetToken installs the bearer token used on authenticated routes.
func (h *HTTP) SetToken(token string) {
	h.client.SetAuthToken(token)
}

// Login exchanges credentials for a token and the account identity.
func (h *HTTP) Login(ctx context.Context, email, password string) (token, uid, displayName string, err error) {
	var out struct {
		Token       string `json:"token"`
		UID         string `json:"uid"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	}
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		Post("/v1/auth/login")
	if err := checkResp(resp, err, "login"); err != nil {
		return "", "", "", err
	}
	return out.Token, out.UID, out.DisplayName, nil
}

// GetUser implements Store.
func (h *HTTP) GetUser(ctx context.Context, uid string) (map[string]any, error) {
	var out map[string]any
	resp, err := h.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v1/users/" + uid)
	if resp != nil && resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err := checkResp(resp, err, "get user document"); err != nil {
		return nil, err
	}
	return out, nil
}

// MergeUser implements Store.
func (h *HTTP) MergeUser(ctx context.Context, uid string, fields map[string]any) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(fields).
		Patch("/v1/users/" + uid)
	return checkResp(resp, err, "merge user document")
}

// ListIDs implements Store.
func (h *HTTP) ListIDs(ctx context.Context, uid, collection string) ([]string, error) {
	var out struct {
		IDs []string `json:"ids"`
	}
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParam("ids", "1").
		SetResult(&out).
		Get("/v1/users/" + uid + "/" + collection)
	if err := checkResp(resp, err, "list "+collection+" ids"); err != nil {
		return nil, err
	}
	return out.IDs, nil
}

// ListDocs implements Store.
func (h *HTTP) ListDocs(ctx context.Context, uid, collection string) (map[string]map[string]any, error) {
	var out struct {
		Documents map[string]map[string]any `json:"documents"`
	}
	resp, err := h.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v1/users/" + uid + "/" + collection)
	if err := checkResp(resp, err, "list "+collection); err != nil {
		return nil, err
	}
	if out.Documents == nil {
		return map[string]map[string]any{}, nil
	}
	return out.Documents, nil
}

// NewBatch implements Store.
func (h *HTTP) NewBatch(uid string) Batch {
	return &httpBatch{client: h, uid: uid}
}

// SetPublicProfile implements Store.
func (h *HTTP) SetPublicProfile(ctx context.Context, uid string, doc map[string]any) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(doc).
		Put("/v1/public_profiles/" + uid)
	return checkResp(resp, err, "publish profile")
}

// GetPublicProfile implements Store.
func (h *HTTP) GetPublicProfile(ctx context.Context, uid string) (map[string]any, error) {
	var out map[string]any
	resp, err := h.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v1/public_profiles/" + uid)
	if resp != nil && resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err := checkResp(resp, err, "get public profile"); err != nil {
		return nil, err
	}
	return out, nil
}

// BatchOpDTO is one staged mutation on the wire.
type BatchOpDTO struct {
	Op         string         `json:"op"` // "set" or "delete"
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Doc        map[string]any `json:"doc,omitempty"`
}

type httpBatch struct {
	client *HTTP
	uid    string
	ops    []BatchOpDTO
	done   bool
}

func (b *httpBatch) Set(collection, id string, doc map[string]any) {
	b.ops = append(b.ops, BatchOpDTO{Op: "set", Collection: collection, ID: id, Doc: doc})
}

func (b *httpBatch) Delete(collection, id string) {
	b.ops = append(b.ops, BatchOpDTO{Op: "delete", Collection: collection, ID: id})
}

func (b *httpBatch) Len() int { return len(b.ops) }

func (b *httpBatch) Commit(ctx context.Context) error {
	if b.done {
		return fmt.Errorf("remote: batch already committed")
	}
	if len(b.ops) > BatchLimit {
		return fmt.Errorf("remote: batch of %d operations exceeds limit of %d", len(b.ops), BatchLimit)
	}
	b.done = true

	resp, err := b.client.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"ops": b.ops}).
		Post("/v1/users/" + b.uid + "/batch")
	return checkResp(resp, err, "commit batch")
}

// checkResp maps transport and HTTP-status failures onto the application
// error taxonomy. Raw bodies stay out of the returned error; callers log
// them separately if needed.
func checkResp(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("remote: %s: %w", op, err)
	}
	switch {
	case resp.IsSuccess():
		return nil
	case resp.StatusCode() == http.StatusUnauthorized:
		return fmt.Errorf("remote: %s: %w", op, apperr.ErrUnauthenticated)
	case resp.StatusCode() == http.StatusForbidden:
		return fmt.Errorf("remote: %s: %w", op, apperr.ErrPermissionDenied)
	default:
		return fmt.Errorf("remote: %s: unexpected status %d", op, resp.StatusCode())
	}
}
