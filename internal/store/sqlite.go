// Package store keeps tasks in SQLite and serves them as scheduled items.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	appLog "timegrid/internal/log"
	"timegrid/internal/model"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned for ids the store does not hold.
var ErrNotFound = errors.New("store: item not found")

// Store is an item repository backed by a SQLite database.
type Store struct {
	db *sqlx.DB
}

// row mirrors the items table.
type row struct {
	ID              string         `db:"id"`
	Kind            string         `db:"kind"`
	Title           string         `db:"title"`
	Date            sql.NullString `db:"date"`
	Time            sql.NullString `db:"time"`
	DurationMinutes sql.NullInt64  `db:"duration_minutes"`
	Location        string         `db:"location"`
	Color           string         `db:"color"`
	Priority        string         `db:"priority"`
	Status          string         `db:"status"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

const columns = `id, kind, title, date, time, duration_minutes, location, color, priority, status, created_at, updated_at`

// Open connects to the database at path and creates the schema if needed.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Updates arrive from several goroutines at once; SQLite takes one
	// writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// FetchItems returns the items dated within r, ordered by date and time.
func (s *Store) FetchItems(ctx context.Context, r model.DateRange) ([]model.ScheduledItem, error) {
	var rows []row
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+columns+` FROM items WHERE date BETWEEN ? AND ? ORDER BY date, time IS NOT NULL, time, id`,
		r.Start.String(), r.End.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}

	items := make([]model.ScheduledItem, 0, len(rows))
	for _, rw := range rows {
		it, err := rw.item()
		if err != nil {
			appLog.Error("skipping malformed item row", err, "id", rw.ID)
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// Get returns one item.
func (s *Store) Get(ctx context.Context, id string) (model.ScheduledItem, error) {
	var rw row
	err := s.db.GetContext(ctx, &rw, `SELECT `+columns+` FROM items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScheduledItem{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return model.ScheduledItem{}, fmt.Errorf("get item: %w", err)
	}
	return rw.item()
}

// UpdateItem applies patch to id. An empty patch only checks that the item
// exists.
func (s *Store) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) error {
	var (
		sets []string
		args []any
	)
	if patch.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, patch.Date.String())
	}
	if patch.TimeSet {
		sets = append(sets, "time = ?")
		args = append(args, nullTime(patch.Time))
	}
	if patch.DurationMinutes != nil {
		sets = append(sets, "duration_minutes = ?")
		args = append(args, *patch.DurationMinutes)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := s.db.ExecContext(ctx, `UPDATE items SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update item %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update item %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	appLog.Debug("item updated", "id", id, "fields", len(sets)-1)
	return nil
}

// CreateItem inserts it. An empty ID gets a fresh UUID; an empty Kind
// becomes a task. The stored item is returned.
func (s *Store) CreateItem(ctx context.Context, it model.ScheduledItem) (model.ScheduledItem, error) {
	if it.ID == "" {
		it.ID = uuid.New().String()
	}
	if it.Kind == "" {
		it.Kind = model.KindTask
	}
	now := time.Now().UTC()
	rw := fromItem(it)
	rw.CreatedAt, rw.UpdatedAt = now, now

	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO items (`+columns+`)
		 VALUES (:id, :kind, :title, :date, :time, :duration_minutes, :location, :color, :priority, :status, :created_at, :updated_at)`,
		rw,
	)
	if err != nil {
		return model.ScheduledItem{}, fmt.Errorf("insert item: %w", err)
	}
	appLog.Info("item created", "id", it.ID, "date", rw.Date.String, "time", rw.Time.String)
	return it, nil
}

// DeleteItem removes id.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (rw row) item() (model.ScheduledItem, error) {
	it := model.ScheduledItem{
		ID:       rw.ID,
		Kind:     model.Kind(rw.Kind),
		Title:    rw.Title,
		Location: rw.Location,
		Color:    rw.Color,
		Priority: rw.Priority,
		Status:   rw.Status,
	}
	if rw.Date.Valid {
		d, err := model.ParseDate(rw.Date.String)
		if err != nil {
			return it, err
		}
		it.Date = &d
	}
	if rw.Time.Valid {
		t, err := model.ParseTimeOfDay(rw.Time.String)
		if err != nil {
			return it, err
		}
		it.Time = &t
	}
	if rw.DurationMinutes.Valid {
		it.DurationMinutes = int(rw.DurationMinutes.Int64)
	}
	return it, nil
}

func fromItem(it model.ScheduledItem) row {
	rw := row{
		ID:       it.ID,
		Kind:     string(it.Kind),
		Title:    it.Title,
		Time:     nullTime(it.Time),
		Location: it.Location,
		Color:    it.Color,
		Priority: it.Priority,
		Status:   it.Status,
	}
	if it.Date != nil {
		rw.Date = sql.NullString{String: it.Date.String(), Valid: true}
	}
	if it.DurationMinutes > 0 {
		rw.DurationMinutes = sql.NullInt64{Int64: int64(it.DurationMinutes), Valid: true}
	}
	return rw
}

func nullTime(t *model.TimeOfDay) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.String(), Valid: true}
}
