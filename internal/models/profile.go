package models

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/david8015838-create/nexus-mind/internal/apperr"
)

// ProfileID is the fixed key of the settings singleton.
const ProfileID = "userProfile"

// UserProfile is the singleton settings record. It is created once at first
// launch with defaults if absent, and only ever updated thereafter.
type UserProfile struct {
	ID         string   `json:"id"`
	Name       string   `json:"name,omitempty"`
	Bio        string   `json:"bio,omitempty"`
	Avatar     string   `json:"avatar,omitempty"`
	ThemeColor string   `json:"themeColor,omitempty"`
	Links      []Link   `json:"links,omitempty"`
	// Categories is the list of suggested tag values. Advisory only, never
	// enforced as a foreign key on contact tags.
	Categories []string `json:"categories,omitempty"`
}

// Validate checks profile fields before an update.
func (p UserProfile) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required, validation.In(ProfileID)),
	)
	if err != nil {
		return fmt.Errorf("%w: profile: %v", apperr.ErrValidation, err)
	}
	return nil
}

// DefaultProfile returns the profile seeded at first launch.
func DefaultProfile() UserProfile {
	return UserProfile{
		ID:         ProfileID,
		Name:       "My Name",
		Bio:        "A few words about me",
		ThemeColor: "#2b6cee",
		Links:      []Link{},
		Categories: []string{"friends", "colleagues", "family", "network", "important"},
	}
}

// PublicProfile is the deliberately narrowed projection of UserProfile
// written to the world-readable cloud collection. It is never round-tripped
// back into the local store.
type PublicProfile struct {
	Name      string    `json:"name,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Links     []Link    `json:"links,omitempty"`
	UID       string    `json:"uid"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PublicProjection builds the shareable view of a profile for the given uid.
func (p UserProfile) PublicProjection(uid string, now time.Time) PublicProfile {
	return PublicProfile{
		Name:      p.Name,
		Avatar:    p.Avatar,
		Bio:       p.Bio,
		Links:     p.Links,
		UID:       uid,
		UpdatedAt: now,
	}
}
