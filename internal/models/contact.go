// Package models defines the contact, schedule, and profile record types.
package models

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/david8015838-create/nexus-mind/internal/apperr"
)

// Memory is a dated note about a person. Memories are append-only from the
// user's perspective but individually deletable.
type Memory struct {
	Content  string    `json:"content"`
	Date     time.Time `json:"date"`
	Location string    `json:"location,omitempty"`
}

// Event is an explicit calendar-like entry tied to a contact.
type Event struct {
	Date  time.Time `json:"date"`
	Title string    `json:"title"`
	Type  string    `json:"type"`
}

// Link is a labelled URL attached to a contact or profile.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Position is the last known layout position in the relationship graph.
// Purely cosmetic; persisted only for layout stability.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Contact is a person record.
//
// ID is immutable and unique across the local collection. LastUpdated is
// refreshed on every mutation and must advance in wall-clock terms; the
// service layer enforces this.
type Contact struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Tags      []string   `json:"tags,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Email     string     `json:"email,omitempty"`
	Company   string     `json:"company,omitempty"`
	Title     string     `json:"title,omitempty"`
	Address   string     `json:"address,omitempty"`
	Website   string     `json:"website,omitempty"`
	Bio       string     `json:"bio,omitempty"`
	Birthday  *time.Time `json:"birthday,omitempty"`
	CardImage string     `json:"cardImage,omitempty"`
	Memories  []Memory   `json:"memories,omitempty"`
	Events    []Event    `json:"events,omitempty"`
	Gallery   []string   `json:"gallery,omitempty"`
	Links     []Link     `json:"links,omitempty"`
	// Importance is an integer 0-100 used for prioritization.
	Importance int        `json:"importance"`
	Position   *Position  `json:"position,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Validate checks the fields required for a valid contact record.
func (c Contact) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Importance, validation.Min(0), validation.Max(100)),
	)
	if err != nil {
		return fmt.Errorf("%w: contact: %v", apperr.ErrValidation, err)
	}
	return nil
}

// PrimaryTag returns the first tag, conventionally treated as the primary
// category in some display paths. It carries no structural meaning.
func (c Contact) PrimaryTag() string {
	if len(c.Tags) == 0 {
		return ""
	}
	return c.Tags[0]
}
