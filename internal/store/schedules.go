package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/david8015838-create/nexus-mind/internal/apperr"
	"github.com/david8015838-create/nexus-mind/internal/models"
)

// PutSchedule inserts or replaces a schedule.
func (s *Store) PutSchedule(sc models.Schedule) error {
	doc, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("store: marshal schedule %s: %w", sc.ID, err)
	}
	_, err = s.conn.Exec(`
		INSERT INTO schedules (id, date, type, doc)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			type = excluded.type,
			doc  = excluded.doc
	`, sc.ID, sc.Date, sc.Type, string(doc))
	if err != nil {
		return fmt.Errorf("store: upsert schedule %s: %w", sc.ID, err)
	}
	return nil
}

// GetSchedule returns a single schedule or apperr.ErrNotFound.
func (s *Store) GetSchedule(id string) (*models.Schedule, error) {
	var doc string
	err := s.conn.QueryRow(`SELECT doc FROM schedules WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get schedule %s: %w", id, err)
	}
	var sc models.Schedule
	if err := json.Unmarshal([]byte(doc), &sc); err != nil {
		return nil, fmt.Errorf("store: unmarshal schedule %s: %w", id, err)
	}
	return &sc, nil
}

// DeleteSchedule removes a schedule. Idempotent.
func (s *Store) DeleteSchedule(id string) error {
	if _, err := s.conn.Exec(`DELETE FROM schedules WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete schedule %s: %w", id, err)
	}
	return nil
}

// AllSchedules returns every schedule ordered by date ascending.
func (s *Store) AllSchedules() ([]models.Schedule, error) {
	rows, err := s.conn.Query(`SELECT doc FROM schedules ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("store: all schedules: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// UpcomingSchedules returns schedules on or after the given moment, ordered
// by date ascending, up to limit entries.
func (s *Store) UpcomingSchedules(from time.Time, limit int) ([]models.Schedule, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.Query(`SELECT doc FROM schedules WHERE date >= ? ORDER BY date, id LIMIT ?`, from, limit)
	if err != nil {
		return nil, fmt.Errorf("store: upcoming schedules: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// CountSchedules returns the number of schedules in the collection.
func (s *Store) CountSchedules() (int, error) {
	var n int
	if err := s.conn.QueryRow(`SELECT count(*) FROM schedules`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count schedules: %w", err)
	}
	return n, nil
}

// ReplaceSchedules clears the collection and bulk-inserts the given set in a
// single transaction.
func (s *Store) ReplaceSchedules(schedules []models.Schedule) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM schedules`); err != nil {
		return fmt.Errorf("store: clear schedules: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO schedules (id, date, type, doc) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare schedule insert: %w", err)
	}
	defer stmt.Close()

	for _, sc := range schedules {
		doc, err := json.Marshal(sc)
		if err != nil {
			return fmt.Errorf("store: marshal schedule %s: %w", sc.ID, err)
		}
		if _, err := stmt.Exec(sc.ID, sc.Date, sc.Type, string(doc)); err != nil {
			return fmt.Errorf("store: insert schedule %s: %w", sc.ID, err)
		}
	}

	return tx.Commit()
}

func scanSchedules(rows *sql.Rows) ([]models.Schedule, error) {
	var out []models.Schedule
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var sc models.Schedule
		if err := json.Unmarshal([]byte(doc), &sc); err != nil {
			return nil, fmt.Errorf("store: unmarshal schedule: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
