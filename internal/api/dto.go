package api

import (
	"github.com/david8015838-create/nexus-mind/internal/models"
)

// ContactListResponse wraps contact listings.
type ContactListResponse struct {
	Contacts []models.Contact `json:"contacts" validate:"required"`
	Total    int              `json:"total" example:"42" validate:"required"`
}

// ScheduleListResponse wraps schedule listings.
type ScheduleListResponse struct {
	Schedules []models.Schedule `json:"schedules" validate:"required"`
	Total     int               `json:"total" example:"7" validate:"required"`
}

// ScheduleDetail is a schedule plus the resolved participant names.
type ScheduleDetail struct {
	models.Schedule
	Participants []string `json:"participants"`
}

// SearchResponse wraps full-text search results.
type SearchResponse struct {
	Results []models.Contact `json:"results" validate:"required"`
}

// AddMemoryRequest is the request body for appending a memory.
type AddMemoryRequest = models.Memory

// AddEventRequest is the request body for appending a contact event.
type AddEventRequest = models.Event

// SyncStatusResponse reports whether a sync cycle is in flight.
type SyncStatusResponse struct {
	Syncing bool `json:"syncing"`
}
