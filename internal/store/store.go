// Package store persists calendar events in SQLite. Series membership is
// modeled through a shared non-empty series_id column, so whole-series
// updates and deletes are single statements.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"edusync/internal/model"
)

const (
	createEventsTableSQL = `
  CREATE TABLE IF NOT EXISTS events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  start_time DATETIME NOT NULL,
  end_time DATETIME NOT NULL,
  color_r INTEGER NOT NULL DEFAULT 120,
  color_g INTEGER NOT NULL DEFAULT 144,
  color_b INTEGER NOT NULL DEFAULT 156,
  series_id TEXT NOT NULL DEFAULT '',
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
  )`

	createSeriesIndexSQL = `
  CREATE INDEX IF NOT EXISTS idx_events_series ON events(series_id)`

	createStartIndexSQL = `
  CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_time)`

	insertEventSQL = `INSERT INTO events
  (title, description, start_time, end_time, color_r, color_g, color_b, series_id)
  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	selectEventSQL = `SELECT id, title, description, start_time, end_time,
  color_r, color_g, color_b, series_id FROM events WHERE id = ?`

	selectRangeSQL = `SELECT id, title, description, start_time, end_time,
  color_r, color_g, color_b, series_id FROM events
  WHERE start_time < ? AND end_time > ? ORDER BY start_time`

	updateEventSQL = `UPDATE events SET title = ?, description = ?,
  start_time = ?, end_time = ?, color_r = ?, color_g = ?, color_b = ?
  WHERE id = ?`

	updateSeriesSQL = `UPDATE events SET title = ?, description = ?,
  color_r = ?, color_g = ?, color_b = ? WHERE series_id = ? AND series_id != ''`

	deleteEventSQL  = `DELETE FROM events WHERE id = ?`
	deleteSeriesSQL = `DELETE FROM events WHERE series_id = ? AND series_id != ''`
)

// ErrNotFound is returned when an event id does not exist.
var ErrNotFound = errors.New("store: event not found")

// Repo wraps the SQLite database holding events.
type Repo struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at dbPath and runs
// migrations.
func Open(dbPath string) (*Repo, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("store: creating directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: pinging database: %w", err)
	}

	r := &Repo{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) migrate() error {
	for _, stmt := range []string{createEventsTableSQL, createSeriesIndexSQL, createStartIndexSQL} {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("store: migration failed: %w", err)
		}
	}
	return nil
}

// Insert stores a single event and returns it with its assigned id.
func (r *Repo) Insert(ev model.Event) (model.Event, error) {
	res, err := r.db.Exec(insertEventSQL,
		ev.Title, ev.Description, ev.Start.UTC(), ev.End.UTC(),
		ev.Color.R, ev.Color.G, ev.Color.B, ev.SeriesID)
	if err != nil {
		return ev, fmt.Errorf("store: inserting event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ev, err
	}
	ev.ID = id
	return ev, nil
}

// InsertAll stores events in one transaction, returning them with ids.
// Used for recurrence expansion, where a series lands as a batch.
func (r *Repo) InsertAll(events []model.Event) ([]model.Event, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertEventSQL)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		res, err := stmt.Exec(
			ev.Title, ev.Description, ev.Start.UTC(), ev.End.UTC(),
			ev.Color.R, ev.Color.G, ev.Color.B, ev.SeriesID)
		if err != nil {
			return nil, fmt.Errorf("store: inserting series event: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ev.ID = id
		out = append(out, ev)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the event with the given id, or ErrNotFound.
func (r *Repo) Get(id int64) (model.Event, error) {
	return scanEvent(r.db.QueryRow(selectEventSQL, id))
}

// ListRange returns events overlapping [from, to), ordered by start time.
func (r *Repo) ListRange(from, to time.Time) ([]model.Event, error) {
	rows, err := r.db.Query(selectRangeSQL, to.UTC(), from.UTC())
	if err != nil {
		return nil, fmt.Errorf("store: listing events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ListDay returns events touching the civil date of day in day's location.
func (r *Repo) ListDay(day time.Time) ([]model.Event, error) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return r.ListRange(start, start.AddDate(0, 0, 1))
}

// Update rewrites a single event in place.
func (r *Repo) Update(ev model.Event) error {
	res, err := r.db.Exec(updateEventSQL,
		ev.Title, ev.Description, ev.Start.UTC(), ev.End.UTC(),
		ev.Color.R, ev.Color.G, ev.Color.B, ev.ID)
	if err != nil {
		return fmt.Errorf("store: updating event: %w", err)
	}
	return affectedOrNotFound(res)
}

// UpdateSeries applies the template's title, description, and color to
// every event sharing the template's series id. Start/end times are left
// untouched so each instance keeps its own date.
func (r *Repo) UpdateSeries(template model.Event) error {
	if template.SeriesID == "" {
		return errors.New("store: event has no series id")
	}
	res, err := r.db.Exec(updateSeriesSQL,
		template.Title, template.Description,
		template.Color.R, template.Color.G, template.Color.B,
		template.SeriesID)
	if err != nil {
		return fmt.Errorf("store: updating series: %w", err)
	}
	return affectedOrNotFound(res)
}

// Delete removes a single event.
func (r *Repo) Delete(id int64) error {
	res, err := r.db.Exec(deleteEventSQL, id)
	if err != nil {
		return fmt.Errorf("store: deleting event: %w", err)
	}
	return affectedOrNotFound(res)
}

// DeleteSeries removes every event sharing the series id.
func (r *Repo) DeleteSeries(seriesID string) error {
	if seriesID == "" {
		return errors.New("store: empty series id")
	}
	res, err := r.db.Exec(deleteSeriesSQL, seriesID)
	if err != nil {
		return fmt.Errorf("store: deleting series: %w", err)
	}
	return affectedOrNotFound(res)
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (model.Event, error) {
	var ev model.Event
	var r, g, b int
	err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Start, &ev.End,
		&r, &g, &b, &ev.SeriesID)
	if errors.Is(err, sql.ErrNoRows) {
		return ev, ErrNotFound
	}
	if err != nil {
		return ev, fmt.Errorf("store: scanning event: %w", err)
	}
	ev.Color = model.Color{R: uint8(r), G: uint8(g), B: uint8(b)}
	return ev, nil
}
