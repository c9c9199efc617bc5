package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"eventline.dev/db"
	"eventline.dev/events"
)

// Postgres implements EventsRepository directly against the events,
// users, and event_types tables via the shared pgx pool.
type Postgres struct {
	db *db.Postgres
}

// NewPostgres wraps an already-connected pool.
func NewPostgres(pg *db.Postgres) *Postgres {
	return &Postgres{db: pg}
}

// GetTypes returns every known event type.
func (p *Postgres) GetTypes(ctx context.Context) ([]events.EventType, error) {
	rows, err := p.db.Query(ctx, `SELECT id, name FROM event_types`)
	if err != nil {
		return nil, fmt.Errorf("get types: %w", err)
	}
	defer rows.Close()

	var out []events.EventType
	for rows.Next() {
		var t events.EventType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan event type: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetUsersID returns the ID of every known user.
func (p *Postgres) GetUsersID(ctx context.Context) ([]events.ID, error) {
	rows, err := p.db.Query(ctx, `SELECT id FROM users`)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	defer rows.Close()

	var out []events.ID
	for rows.Next() {
		var id events.ID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CountEvents returns the total row count of the events table.
func (p *Postgres) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.QueryRow(ctx, `SELECT COUNT(id) FROM events`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// PaginateEvents returns one page of events, most recent first.
func (p *Postgres) PaginateEvents(ctx context.Context, page, limit int) ([]events.Event, error) {
	offset := (page - 1) * limit
	rows, err := p.db.Query(ctx, `
		SELECT id, user_id, type_id, timestamp, metadata
		FROM events
		ORDER BY timestamp DESC
		OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("paginate events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// GetUserEvents returns the most recent 1000 events for userID.
func (p *Postgres) GetUserEvents(ctx context.Context, userID events.ID) ([]events.Event, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, user_id, type_id, timestamp, metadata
		FROM events
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT 1000`, userID)
	if err != nil {
		return nil, fmt.Errorf("get user events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Stats groups events in [from, to] of the given type by user and page.
func (p *Postgres) Stats(ctx context.Context, from, to time.Time, typeID events.ID) ([]events.StatRow, error) {
	rows, err := p.db.Query(ctx, `
		SELECT COUNT(*) AS page_count, user_id, metadata->>'page' AS page
		FROM events
		WHERE timestamp >= $1 AND timestamp <= $2 AND type_id = $3
		GROUP BY user_id, metadata->>'page'`, from, to, typeID)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()

	var out []events.StatRow
	for rows.Next() {
		var r events.StatRow
		if err := rows.Scan(&r.PageCount, &r.UserID, &r.Page); err != nil {
			return nil, fmt.Errorf("scan stat row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UserExists reports whether a user with the given ID exists.
func (p *Postgres) UserExists(ctx context.Context, userID events.ID) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}

// EventTypeID resolves an event type's name to its ID.
func (p *Postgres) EventTypeID(ctx context.Context, name string) (events.ID, bool, error) {
	var id events.ID
	err := p.db.QueryRow(ctx, `SELECT id FROM event_types WHERE name = $1`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("event type id: %w", err)
	}
	return id, true, nil
}

func scanEvents(rows pgx.Rows) ([]events.Event, error) {
	var out []events.Event
	for rows.Next() {
		var e events.Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.TypeID, &e.Timestamp, &e.Metadata); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
