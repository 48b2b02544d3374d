//go:build sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/david8015838-create/nexus-mind/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS contacts_fts USING fts5(
			id UNINDEXED,
			name,
			company,
			bio,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, c models.Contact) error {
	_, _ = tx.Exec(`DELETE FROM contacts_fts WHERE id = ?`, c.ID)
	_, err := tx.Exec(`INSERT INTO contacts_fts (id, name, company, bio, tags) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Company, c.Bio, strings.Join(c.Tags, " "))
	if err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM contacts_fts WHERE id = ?`, id)
}

func ftsClear(tx *sql.Tx) {
	_, _ = tx.Exec(`DELETE FROM contacts_fts`)
}

// SearchContacts performs an FTS5 full-text search over name, company, bio,
// and tags, returning matching contacts in rank order.
func (s *Store) SearchContacts(query string, limit int) ([]models.Contact, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.Query(`
		SELECT c.doc
		FROM contacts_fts f
		JOIN contacts c ON c.id = f.id
		WHERE contacts_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()
	return scanContacts(rows)
}
