// Package contactservice coordinates local CRUD for contacts, schedules,
// and the profile singleton. Every successful mutation fires a best-effort
// sync notification and a change event; the mutation itself never fails on
// account of either.
package contactservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/david8015838-create/nexus-mind/internal/apperr"
	"github.com/david8015838-create/nexus-mind/internal/models"
	"github.com/david8015838-create/nexus-mind/internal/store"
)

// UnknownParticipant is the display sentinel for a schedule participant
// whose contact no longer exists. Schedule references are weak: deleting a
// contact never cascades into schedules.
const UnknownParticipant = "unknown participant"

// Notifier receives a poke after every successful local mutation. The sync
// trigger implements it.
type Notifier interface {
	Notify()
}

// EventFunc receives change events ("contact.created", "schedule.deleted",
// "profile.updated", ...) for real-time listeners.
type EventFunc func(kind, id string)

// Service is the application service over the local store.
type Service struct {
	store    *store.Store
	notifier Notifier
	onEvent  EventFunc
	now      func() time.Time
}

// NewService creates a service. notifier and onEvent may be nil.
func NewService(st *store.Store, notifier Notifier, onEvent EventFunc) *Service {
	return &Service{store: st, notifier: notifier, onEvent: onEvent, now: time.Now}
}

func (s *Service) fire(kind, id string) {
	if s.onEvent != nil {
		s.onEvent(kind, id)
	}
	if s.notifier != nil {
		s.notifier.Notify()
	}
}

// touch advances LastUpdated, keeping it strictly after the previous value
// even when the wall clock has not moved between two rapid edits.
func (s *Service) touch(prev time.Time) time.Time {
	now := s.now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Millisecond)
	}
	return now
}

// CreateContact validates and stores a new contact. A missing id is
// assigned; a taken id is rejected.
func (s *Service) CreateContact(_ context.Context, c models.Contact) (*models.Contact, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetContact(c.ID); err == nil {
		return nil, fmt.Errorf("contact %s: %w", c.ID, apperr.ErrAlreadyExists)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	c.LastUpdated = s.touch(time.Time{})
	if err := s.store.PutContact(c); err != nil {
		return nil, err
	}
	s.fire("contact.created", c.ID)
	return &c, nil
}

// UpdateContact validates and replaces an existing contact. The id is
// immutable; updates address the record they replace.
func (s *Service) UpdateContact(_ context.Context, c models.Contact) (*models.Contact, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	prev, err := s.store.GetContact(c.ID)
	if err != nil {
		return nil, err
	}
	c.LastUpdated = s.touch(prev.LastUpdated)
	if err := s.store.PutContact(c); err != nil {
		return nil, err
	}
	s.fire("contact.updated", c.ID)
	return &c, nil
}

// DeleteContact removes a contact. Schedules referencing it are left alone.
func (s *Service) DeleteContact(_ context.Context, id string) error {
	if err := s.store.DeleteContact(id); err != nil {
		return err
	}
	s.fire("contact.deleted", id)
	return nil
}

// GetContact returns a contact or apperr.ErrNotFound.
func (s *Service) GetContact(_ context.Context, id string) (*models.Contact, error) {
	return s.store.GetContact(id)
}

// ListContacts returns the feed: every contact, most recently updated first.
func (s *Service) ListContacts(_ context.Context) ([]models.Contact, error) {
	return s.store.AllContacts()
}

// SearchContacts runs full-text search over the contact collection.
func (s *Service) SearchContacts(_ context.Context, query string, limit int) ([]models.Contact, error) {
	return s.store.SearchContacts(query, limit)
}

// AddMemory appends a dated memory to a contact.
func (s *Service) AddMemory(ctx context.Context, contactID string, m models.Memory) (*models.Contact, error) {
	if m.Content == "" {
		return nil, fmt.Errorf("%w: memory content is required", apperr.ErrValidation)
	}
	if m.Date.IsZero() {
		m.Date = s.now().UTC()
	}
	c, err := s.store.GetContact(contactID)
	if err != nil {
		return nil, err
	}
	c.Memories = append(c.Memories, m)
	return s.UpdateContact(ctx, *c)
}

// DeleteMemory removes one memory by position.
func (s *Service) DeleteMemory(ctx context.Context, contactID string, index int) (*models.Contact, error) {
	c, err := s.store.GetContact(contactID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(c.Memories) {
		return nil, fmt.Errorf("memory %d: %w", index, apperr.ErrNotFound)
	}
	c.Memories = append(c.Memories[:index], c.Memories[index+1:]...)
	return s.UpdateContact(ctx, *c)
}

// AddEvent appends a calendar entry to a contact.
func (s *Service) AddEvent(ctx context.Context, contactID string, ev models.Event) (*models.Contact, error) {
	if ev.Title == "" || ev.Date.IsZero() {
		return nil, fmt.Errorf("%w: event title and date are required", apperr.ErrValidation)
	}
	c, err := s.store.GetContact(contactID)
	if err != nil {
		return nil, err
	}
	c.Events = append(c.Events, ev)
	return s.UpdateContact(ctx, *c)
}

// CreateSchedule validates and stores a new schedule.
func (s *Service) CreateSchedule(_ context.Context, sc models.Schedule) (*models.Schedule, error) {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetSchedule(sc.ID); err == nil {
		return nil, fmt.Errorf("schedule %s: %w", sc.ID, apperr.ErrAlreadyExists)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if err := s.store.PutSchedule(sc); err != nil {
		return nil, err
	}
	s.fire("schedule.created", sc.ID)
	return &sc, nil
}

// UpdateSchedule validates and replaces an existing schedule.
func (s *Service) UpdateSchedule(_ context.Context, sc models.Schedule) (*models.Schedule, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetSchedule(sc.ID); err != nil {
		return nil, err
	}
	if err := s.store.PutSchedule(sc); err != nil {
		return nil, err
	}
	s.fire("schedule.updated", sc.ID)
	return &sc, nil
}

// GetSchedule returns a schedule or apperr.ErrNotFound.
func (s *Service) GetSchedule(_ context.Context, id string) (*models.Schedule, error) {
	return s.store.GetSchedule(id)
}

// DeleteSchedule removes a schedule.
func (s *Service) DeleteSchedule(_ context.Context, id string) error {
	if err := s.store.DeleteSchedule(id); err != nil {
		return err
	}
	s.fire("schedule.deleted", id)
	return nil
}

// ListSchedules returns every schedule ordered by date.
func (s *Service) ListSchedules(_ context.Context) ([]models.Schedule, error) {
	return s.store.AllSchedules()
}

// UpcomingSchedules returns the next reminders from the given moment.
func (s *Service) UpcomingSchedules(_ context.Context, from time.Time, limit int) ([]models.Schedule, error) {
	return s.store.UpcomingSchedules(from, limit)
}

// ParticipantNames resolves a schedule's contact references for display.
// Dangling references degrade to the UnknownParticipant sentinel.
func (s *Service) ParticipantNames(_ context.Context, sc models.Schedule) ([]string, error) {
	names := make([]string, 0, len(sc.ContactIDs))
	for _, id := range sc.ContactIDs {
		c, err := s.store.GetContact(id)
		if errors.Is(err, apperr.ErrNotFound) {
			names = append(names, UnknownParticipant)
			continue
		}
		if err != nil {
			return nil, err
		}
		names = append(names, c.Name)
	}
	return names, nil
}

// Profile returns the settings singleton, seeding defaults when absent.
func (s *Service) Profile(_ context.Context) (models.UserProfile, error) {
	return s.store.SeedProfile()
}

// UpdateProfile replaces the settings singleton. The singleton is never
// deleted; its id is forced to the fixed key.
func (s *Service) UpdateProfile(_ context.Context, p models.UserProfile) (*models.UserProfile, error) {
	p.ID = models.ProfileID
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.PutProfile(p); err != nil {
		return nil, err
	}
	s.fire("profile.updated", p.ID)
	return &p, nil
}
