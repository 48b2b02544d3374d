package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/david8015838-create/nexus-mind/internal/contactservice"
	"github.com/david8015838-create/nexus-mind/internal/importer"
	"github.com/david8015838-create/nexus-mind/internal/models"
	"github.com/david8015838-create/nexus-mind/internal/sync"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *contactservice.Service
	engine *sync.Engine
}

// NewHandler creates a new Handler.
func NewHandler(svc *contactservice.Service, engine *sync.Engine) *Handler {
	return &Handler{svc: svc, engine: engine}
}

// ListContacts handles GET /api/contacts.
//
//	@Summary		List all contacts, most recently updated first
//	@Tags			contacts
//	@Produce		json
//	@Success		200	{object}	ContactListResponse
//	@Security		BearerAuth
//	@Router			/contacts [get]
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.svc.ListContacts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ContactListResponse{Contacts: contacts, Total: len(contacts)})
}

// GetContact handles GET /api/contacts/{id}.
//
//	@Summary		Get a single contact
//	@Tags			contacts
//	@Produce		json
//	@Success		200	{object}	models.Contact
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contacts/{id} [get]
func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetContact(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateContact handles POST /api/contacts.
//
//	@Summary		Create a contact
//	@Tags			contacts
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	models.Contact
//	@Failure		400	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contacts [post]
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var c models.Contact
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	created, err := h.svc.CreateContact(r.Context(), c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateContact handles PUT /api/contacts/{id}.
//
//	@Summary		Replace a contact
//	@Tags			contacts
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	models.Contact
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contacts/{id} [put]
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var c models.Contact
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	c.ID = chi.URLParam(r, "id")
	updated, err := h.svc.UpdateContact(r.Context(), c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteContact handles DELETE /api/contacts/{id}.
//
//	@Summary		Delete a contact
//	@Tags			contacts
//	@Success		204	"Contact deleted"
//	@Security		BearerAuth
//	@Router			/contacts/{id} [delete]
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteContact(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMemory handles POST /api/contacts/{id}/memories.
//
//	@Summary		Append a memory to a contact
//	@Tags			contacts
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	models.Contact
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contacts/{id}/memories [post]
func (h *Handler) AddMemory(w http.ResponseWriter, r *http.Request) {
	var m AddMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	c, err := h.svc.AddMemory(r.Context(), chi.URLParam(r, "id"), m)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteMemory handles DELETE /api/contacts/{id}/memories/{index}.
//
//	@Summary		Delete one memory by position
//	@Tags			contacts
//	@Produce		json
//	@Success		200	{object}	models.Contact
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contacts/{id}/memories/{index} [delete]
func (h *Handler) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("index must be a number"))
		return
	}
	c, err := h.svc.DeleteMemory(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// AddEvent handles POST /api/contacts/{id}/events.
//
//	@Summary		Append a calendar event to a contact
//	@Tags			contacts
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	models.Contact
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contacts/{id}/events [post]
func (h *Handler) AddEvent(w http.ResponseWriter, r *http.Request) {
	var ev AddEventRequest
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	c, err := h.svc.AddEvent(r.Context(), chi.URLParam(r, "id"), ev)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across contacts
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.SearchContacts(r.Context(), q, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []models.Contact{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// ListSchedules handles GET /api/schedules.
//
//	@Summary		List all schedules ordered by date
//	@Tags			schedules
//	@Produce		json
//	@Success		200	{object}	ScheduleListResponse
//	@Security		BearerAuth
//	@Router			/schedules [get]
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.svc.ListSchedules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleListResponse{Schedules: schedules, Total: len(schedules)})
}

// UpcomingSchedules handles GET /api/schedules/upcoming.
//
//	@Summary		Next schedules from now
//	@Tags			schedules
//	@Produce		json
//	@Param			limit	query		int	false	"Max results"
//	@Success		200		{object}	ScheduleListResponse
//	@Security		BearerAuth
//	@Router			/schedules/upcoming [get]
func (h *Handler) UpcomingSchedules(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	schedules, err := h.svc.UpcomingSchedules(r.Context(), time.Now(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleListResponse{Schedules: schedules, Total: len(schedules)})
}

// GetSchedule handles GET /api/schedules/{id}.
//
//	@Summary		Get a schedule with resolved participant names
//	@Tags			schedules
//	@Produce		json
//	@Success		200	{object}	ScheduleDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/schedules/{id} [get]
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	sc, err := h.svc.GetSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	names, err := h.svc.ParticipantNames(r.Context(), *sc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleDetail{Schedule: *sc, Participants: names})
}

// CreateSchedule handles POST /api/schedules.
//
//	@Summary		Create a schedule
//	@Tags			schedules
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	models.Schedule
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/schedules [post]
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var sc models.Schedule
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	created, err := h.svc.CreateSchedule(r.Context(), sc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateSchedule handles PUT /api/schedules/{id}.
//
//	@Summary		Replace a schedule
//	@Tags			schedules
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	models.Schedule
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/schedules/{id} [put]
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var sc models.Schedule
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	sc.ID = chi.URLParam(r, "id")
	updated, err := h.svc.UpdateSchedule(r.Context(), sc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteSchedule handles DELETE /api/schedules/{id}.
//
//	@Summary		Delete a schedule
//	@Tags			schedules
//	@Success		204	"Schedule deleted"
//	@Security		BearerAuth
//	@Router			/schedules/{id} [delete]
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSchedule(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProfile handles GET /api/profile.
//
//	@Summary		Get the settings profile, seeding defaults on first call
//	@Tags			profile
//	@Produce		json
//	@Success		200	{object}	models.UserProfile
//	@Security		BearerAuth
//	@Router			/profile [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Profile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProfile handles PUT /api/profile.
//
//	@Summary		Replace the settings profile
//	@Tags			profile
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	models.UserProfile
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var p models.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	updated, err := h.svc.UpdateProfile(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// PublishProfile handles POST /api/profile/publish.
//
//	@Summary		Publish the shareable profile projection to the cloud
//	@Tags			profile
//	@Success		204	"Profile published"
//	@Failure		401	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/profile/publish [post]
func (h *Handler) PublishProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.PublishProfile(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncPush handles POST /api/sync/push.
//
//	@Summary		Mirror local data to the cloud
//	@Tags			sync
//	@Success		204	"Push completed"
//	@Failure		401	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sync/push [post]
func (h *Handler) SyncPush(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Push(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncPull handles POST /api/sync/pull.
//
// Pull replaces local collections with the cloud copy, so the request must
// carry confirm=true to take effect.
//
//	@Summary		Restore local data from the cloud
//	@Tags			sync
//	@Param			confirm	query	bool	true	"Must be true"
//	@Success		204		"Pull completed"
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sync/pull [post]
func (h *Handler) SyncPull(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		writeJSON(w, http.StatusBadRequest, errorBody("pull replaces local data; pass confirm=true"))
		return
	}
	if err := h.engine.Pull(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncStatus handles GET /api/sync/status.
//
//	@Summary		Report whether a sync cycle is running
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	SyncStatusResponse
//	@Security		BearerAuth
//	@Router			/sync/status [get]
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SyncStatusResponse{Syncing: h.engine.IsSyncing()})
}

// ExportICS handles GET /api/export/ics.
//
//	@Summary		Export schedules and birthdays as an iCalendar feed
//	@Tags			export
//	@Produce		text/calendar
//	@Security		BearerAuth
//	@Router			/export/ics [get]
func (h *Handler) ExportICS(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.svc.ListSchedules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	contacts, err := h.svc.ListContacts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	if err := importer.ExportICS(w, schedules, contacts, time.Now()); err != nil {
		writeError(w, err)
	}
}
