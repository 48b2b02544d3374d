// Package cloud implements the hosted mirror service: a small multi-tenant
// document store behind a REST API with JWT auth. Accounts are provisioned
// from configuration; there is no self-service signup.
package cloud

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/david8015838-create/nexus-mind/internal/remote"
)

// Account is a provisioned cloud account.
type Account struct {
	UID         string `yaml:"uid" json:"uid"`
	Email       string `yaml:"email" json:"email"`
	Password    string `yaml:"password" json:"-"`
	DisplayName string `yaml:"display_name" json:"displayName"`
}

// Server is the cloud mirror service.
type Server struct {
	store    remote.Store
	accounts map[string]Account // keyed by email
	secret   []byte
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewServer creates a server over a fresh in-memory store.
func NewServer(accounts []Account, secret string, logger *slog.Logger) *Server {
	byEmail := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		byEmail[a.Email] = a
	}
	return &Server{
		store:    remote.NewMemory(),
		accounts: byEmail,
		secret:   []byte(secret),
		tokenTTL: 24 * time.Hour,
		logger:   logger,
	}
}

// Router mounts all cloud routes. Login and public profile reads are open;
// everything else requires a Bearer token for the uid in the path.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/v1/auth/login", s.handleLogin)
	r.Get("/v1/public_profiles/{uid}", s.handleGetPublicProfile)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Use(requireOwner)
		r.Get("/v1/users/{uid}", s.handleGetUser)
		r.Patch("/v1/users/{uid}", s.handleMergeUser)
		r.Get("/v1/users/{uid}/{collection}", s.handleListCollection)
		r.Post("/v1/users/{uid}/batch", s.handleBatch)
		r.Put("/v1/public_profiles/{uid}", s.handleSetPublicProfile)
	})

	return r
}

// requireOwner rejects requests whose path uid differs from the token uid.
// Every authenticated route is scoped to the caller's own space.
func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "uid") != callerUID(r) {
			writeJSON(w, http.StatusForbidden, errorBody("forbidden"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	acct, ok := s.accounts[req.Email]
	if !ok || acct.Password != req.Password {
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid credentials"))
		return
	}
	token, err := s.issueToken(acct.UID, time.Now())
	if err != nil {
		s.logger.Error("token issue failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":       token,
		"uid":         acct.UID,
		"email":       acct.Email,
		"displayName": acct.DisplayName,
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	doc, err := s.store.GetUser(r.Context(), uid)
	if err != nil {
		s.logger.Error("get user failed", "uid", uid, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if doc == nil {
		writeJSON(w, http.StatusNotFound, errorBody("no user document"))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleMergeUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := s.store.MergeUser(r.Context(), uid, fields); err != nil {
		s.logger.Error("merge user failed", "uid", uid, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validCollection(name string) bool {
	return name == remote.CollectionContacts || name == remote.CollectionSchedules
}

func (s *Server) handleListCollection(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	collection := chi.URLParam(r, "collection")
	if !validCollection(collection) {
		writeJSON(w, http.StatusNotFound, errorBody("unknown collection"))
		return
	}

	if r.URL.Query().Get("ids") != "" {
		ids, err := s.store.ListIDs(r.Context(), uid, collection)
		if err != nil {
			s.logger.Error("list ids failed", "uid", uid, "collection", collection, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ids": ids})
		return
	}

	docs, err := s.store.ListDocs(r.Context(), uid, collection)
	if err != nil {
		s.logger.Error("list docs failed", "uid", uid, "collection", collection, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	var req struct {
		Ops []remote.BatchOpDTO `json:"ops"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Ops) > remote.BatchLimit {
		writeJSON(w, http.StatusBadRequest, errorBody("batch exceeds operation limit"))
		return
	}

	batch := s.store.NewBatch(uid)
	for _, op := range req.Ops {
		if !validCollection(op.Collection) || op.ID == "" {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid batch operation"))
			return
		}
		switch op.Op {
		case "set":
			batch.Set(op.Collection, op.ID, op.Doc)
		case "delete":
			batch.Delete(op.Collection, op.ID)
		default:
			writeJSON(w, http.StatusBadRequest, errorBody("invalid batch operation"))
			return
		}
	}
	if err := batch.Commit(r.Context()); err != nil {
		s.logger.Error("batch commit failed", "uid", uid, "ops", len(req.Ops), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	s.logger.Info("batch committed", "uid", uid, "ops", len(req.Ops))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetPublicProfile(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := s.store.SetPublicProfile(r.Context(), uid, doc); err != nil {
		s.logger.Error("set public profile failed", "uid", uid, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPublicProfile(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	doc, err := s.store.GetPublicProfile(r.Context(), uid)
	if err != nil {
		s.logger.Error("get public profile failed", "uid", uid, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if doc == nil {
		writeJSON(w, http.StatusNotFound, errorBody("no public profile"))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
