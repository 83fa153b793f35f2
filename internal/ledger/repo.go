package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/tempo/internal/apperr"
)

// DayRow is one indexed day file.
type DayRow struct {
	Path      string // relative to the tracking root
	Date      string
	Checksum  string
	Minutes   int
	Entries   int
	UpdatedAt time.Time
}

// Totals aggregates every indexed day.
type Totals struct {
	Days    int
	Entries int
	Minutes int
}

// Upsert inserts or replaces a day row.
func (db *DB) Upsert(d DayRow) error {
	_, err := db.conn.Exec(`
		INSERT INTO days (path, date, checksum, minutes, entries, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			date       = excluded.date,
			checksum   = excluded.checksum,
			minutes    = excluded.minutes,
			entries    = excluded.entries,
			updated_at = excluded.updated_at
	`, d.Path, d.Date, d.Checksum, d.Minutes, d.Entries, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ledger: upsert day: %w", err)
	}
	return nil
}

// Delete removes a day row. Deleting an unknown path is not an error.
func (db *DB) Delete(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM days WHERE path = ?`, path); err != nil {
		return fmt.Errorf("ledger: delete day: %w", err)
	}
	return nil
}

// Get returns the row for path, or apperr.ErrNotFound.
func (db *DB) Get(path string) (*DayRow, error) {
	var d DayRow
	err := db.conn.QueryRow(
		`SELECT path, date, checksum, minutes, entries, updated_at FROM days WHERE path = ?`, path,
	).Scan(&d.Path, &d.Date, &d.Checksum, &d.Minutes, &d.Entries, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger: %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get day: %w", err)
	}
	return &d, nil
}

// Checksum returns the stored checksum for a day, or empty string if not found.
func (db *DB) Checksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM days WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("ledger: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every indexed day.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM days`)
	if err != nil {
		return nil, fmt.Errorf("ledger: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// List returns up to limit days, newest date first. limit <= 0 means all.
func (db *DB) List(limit int) ([]DayRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(`
		SELECT path, date, checksum, minutes, entries, updated_at
		FROM days
		ORDER BY date DESC, path ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: list days: %w", err)
	}
	defer rows.Close()

	var out []DayRow
	for rows.Next() {
		var d DayRow
		if err := rows.Scan(&d.Path, &d.Date, &d.Checksum, &d.Minutes, &d.Entries, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Totals sums every indexed day.
func (db *DB) Totals() (Totals, error) {
	var t Totals
	err := db.conn.QueryRow(
		`SELECT count(*), COALESCE(SUM(entries), 0), COALESCE(SUM(minutes), 0) FROM days`,
	).Scan(&t.Days, &t.Entries, &t.Minutes)
	if err != nil {
		return Totals{}, fmt.Errorf("ledger: totals: %w", err)
	}
	return t, nil
}
