// Package repository is the data-access layer over the events/users/
// event_types tables: plain parameterized SQL through pgx, no ORM.
package repository

import (
	"context"
	"time"

	"eventline.dev/events"
)

// EventsRepository is the read contract the projection and HTTP layers
// depend on. It has no write methods: writes funnel through the command
// bus, and the interface only exposes the reads a Postgres-backed
// implementation serves synchronously.
type EventsRepository interface {
	GetTypes(ctx context.Context) ([]events.EventType, error)
	GetUsersID(ctx context.Context) ([]events.ID, error)
	CountEvents(ctx context.Context) (int64, error)
	PaginateEvents(ctx context.Context, page, limit int) ([]events.Event, error)
	GetUserEvents(ctx context.Context, userID events.ID) ([]events.Event, error)
	Stats(ctx context.Context, from, to time.Time, typeID events.ID) ([]events.StatRow, error)
	UserExists(ctx context.Context, userID events.ID) (bool, error)
	EventTypeID(ctx context.Context, name string) (events.ID, bool, error)
}
