package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/david8015838-create/nexus-mind/internal/apperr"
	"github.com/david8015838-create/nexus-mind/internal/models"
)

// PutContact inserts or replaces a contact and its FTS entry in one
// transaction.
func (s *Store) PutContact(c models.Contact) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("store: marshal contact %s: %w", c.ID, err)
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO contacts (id, name, last_updated, doc)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name         = excluded.name,
			last_updated = excluded.last_updated,
			doc          = excluded.doc
	`, c.ID, c.Name, c.LastUpdated, string(doc))
	if err != nil {
		return fmt.Errorf("store: upsert contact %s: %w", c.ID, err)
	}

	if err := ftsUpsert(tx, c); err != nil {
		return err
	}

	return tx.Commit()
}

// GetContact returns a single contact or apperr.ErrNotFound.
func (s *Store) GetContact(id string) (*models.Contact, error) {
	var doc string
	err := s.conn.QueryRow(`SELECT doc FROM contacts WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get contact %s: %w", id, err)
	}
	var c models.Contact
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, fmt.Errorf("store: unmarshal contact %s: %w", id, err)
	}
	return &c, nil
}

// DeleteContact removes a contact and its FTS entry. Deleting a missing
// contact is not an error (idempotent).
func (s *Store) DeleteContact(id string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM contacts WHERE id = ?`, id)

	return tx.Commit()
}

// AllContacts returns every contact ordered by last_updated descending,
// the order the memory feed displays.
func (s *Store) AllContacts() ([]models.Contact, error) {
	rows, err := s.conn.Query(`SELECT doc FROM contacts ORDER BY last_updated DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("store: all contacts: %w", err)
	}
	defer rows.Close()
	return scanContacts(rows)
}

// CountContacts returns the number of contacts in the collection.
func (s *Store) CountContacts() (int, error) {
	var n int
	if err := s.conn.QueryRow(`SELECT count(*) FROM contacts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count contacts: %w", err)
	}
	return n, nil
}

// ReplaceContacts clears the collection and bulk-inserts the given set in a
// single transaction. It backs the pull side of the mirror sync: the clear
// and the insert either both land or neither does.
func (s *Store) ReplaceContacts(contacts []models.Contact) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM contacts`); err != nil {
		return fmt.Errorf("store: clear contacts: %w", err)
	}
	ftsClear(tx)

	stmt, err := tx.Prepare(`INSERT INTO contacts (id, name, last_updated, doc) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare contact insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range contacts {
		doc, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("store: marshal contact %s: %w", c.ID, err)
		}
		if _, err := stmt.Exec(c.ID, c.Name, c.LastUpdated, string(doc)); err != nil {
			return fmt.Errorf("store: insert contact %s: %w", c.ID, err)
		}
		if err := ftsUpsert(tx, c); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func scanContacts(rows *sql.Rows) ([]models.Contact, error) {
	var out []models.Contact
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var c models.Contact
		if err := json.Unmarshal([]byte(doc), &c); err != nil {
			return nil, fmt.Errorf("store: unmarshal contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
