package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/david8015838-create/nexus-mind/internal/contactservice"
	"github.com/david8015838-create/nexus-mind/internal/sync"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *contactservice.Service, engine *sync.Engine, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, engine)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Contacts CRUD.
	r.Get("/contacts", h.ListContacts)
	r.Post("/contacts", h.CreateContact)
	r.Get("/contacts/{id}", h.GetContact)
	r.Put("/contacts/{id}", h.UpdateContact)
	r.Delete("/contacts/{id}", h.DeleteContact)
	r.Post("/contacts/{id}/memories", h.AddMemory)
	r.Delete("/contacts/{id}/memories/{index}", h.DeleteMemory)
	r.Post("/contacts/{id}/events", h.AddEvent)

	// Search.
	r.Get("/search", h.Search)

	// Schedules CRUD.
	r.Get("/schedules", h.ListSchedules)
	r.Post("/schedules", h.CreateSchedule)
	r.Get("/schedules/upcoming", h.UpcomingSchedules)
	r.Get("/schedules/{id}", h.GetSchedule)
	r.Put("/schedules/{id}", h.UpdateSchedule)
	r.Delete("/schedules/{id}", h.DeleteSchedule)

	// Profile.
	r.Get("/profile", h.GetProfile)
	r.Put("/profile", h.UpdateProfile)
	r.Post("/profile/publish", h.PublishProfile)

	// Cloud sync.
	r.Post("/sync/push", h.SyncPush)
	r.Post("/sync/pull", h.SyncPull)
	r.Get("/sync/status", h.SyncStatus)

	// Calendar export.
	r.Get("/export/ics", h.ExportICS)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
