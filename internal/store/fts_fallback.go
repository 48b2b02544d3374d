//go:build !sqlite_fts5

package store

import (
	"database/sql"
	"fmt"

	"github.com/david8015838-create/nexus-mind/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses a LIKE fallback on the doc column.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ models.Contact) error {
	// The full record is already stored in the contacts table.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

func ftsClear(_ *sql.Tx) {}

// SearchContacts performs a LIKE-based search (fallback when FTS5 is not
// compiled in).
func (s *Store) SearchContacts(query string, limit int) ([]models.Contact, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := s.conn.Query(`
		SELECT doc
		FROM contacts
		WHERE name LIKE ? OR doc LIKE ?
		ORDER BY last_updated DESC
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()
	return scanContacts(rows)
}
