package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/david8015838-create/nexus-mind/internal/apperr"
	"github.com/david8015838-create/nexus-mind/internal/models"
)

// GetProfile returns the settings singleton or apperr.ErrNotFound.
func (s *Store) GetProfile() (*models.UserProfile, error) {
	var doc string
	err := s.conn.QueryRow(`SELECT doc FROM settings WHERE id = ?`, models.ProfileID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get profile: %w", err)
	}
	var p models.UserProfile
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("store: unmarshal profile: %w", err)
	}
	return &p, nil
}

// PutProfile inserts or replaces the settings singleton. The record id is
// forced to the fixed singleton key.
func (s *Store) PutProfile(p models.UserProfile) error {
	p.ID = models.ProfileID
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: marshal profile: %w", err)
	}
	_, err = s.conn.Exec(`
		INSERT INTO settings (id, doc) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc
	`, p.ID, string(doc))
	if err != nil {
		return fmt.Errorf("store: upsert profile: %w", err)
	}
	return nil
}

// SeedProfile creates the settings singleton with defaults when absent and
// returns the stored profile either way. Called once at startup.
func (s *Store) SeedProfile() (models.UserProfile, error) {
	existing, err := s.GetProfile()
	if err == nil {
		return *existing, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return models.UserProfile{}, err
	}
	p := models.DefaultProfile()
	if err := s.PutProfile(p); err != nil {
		return models.UserProfile{}, err
	}
	return p, nil
}
