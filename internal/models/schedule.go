package models

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/david8015838-create/nexus-mind/internal/apperr"
)

// Schedule types. The set is advisory; unknown values are preserved as-is.
const (
	ScheduleMeeting  = "meeting"
	ScheduleEvent    = "event"
	ScheduleTask     = "task"
	ScheduleBirthday = "birthday"
)

// Schedule is a dated reminder, optionally linking multiple contacts.
//
// ContactIDs are weak references: a schedule referencing a deleted contact
// is not cascade-deleted, its display only degrades.
type Schedule struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Date       time.Time `json:"date"`
	ContactIDs []string  `json:"contactIds,omitempty"`
	Type       string    `json:"type,omitempty"`
}

// Validate checks the fields required for a valid schedule record.
func (s Schedule) Validate() error {
	err := validation.ValidateStruct(&s,
		validation.Field(&s.Title, validation.Required),
		validation.Field(&s.Date, validation.Required, validation.By(nonZeroTime)),
	)
	if err != nil {
		return fmt.Errorf("%w: schedule: %v", apperr.ErrValidation, err)
	}
	return nil
}

func nonZeroTime(value interface{}) error {
	t, ok := value.(time.Time)
	if !ok || t.IsZero() {
		return fmt.Errorf("must be a non-zero date")
	}
	return nil
}
