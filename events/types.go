// Package events holds the domain model and cross-cutting types shared by
// the repository, projection, and HTTP layers: events, event types, and
// the read-side aggregates (paginated lists, per-user history, stats).
package events

import (
	"encoding/json"
	"strconv"
	"time"
)

// ID is a 64-bit identifier that marshals to JSON as a string, so clients
// built on float64-based JSON numbers (JavaScript included) never lose
// precision on the high bits.
type ID int64

// MarshalJSON renders the ID as a quoted decimal string.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(id), 10))
}

// UnmarshalJSON accepts either a JSON string or a JSON number, so callers
// that send raw integers are not rejected.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*id = ID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n)
	return nil
}

// EventType is a row of the event_types table.
type EventType struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Event is a row of the events table, with Metadata left as raw JSON since
// its shape (at minimum a "page" field) is interpreted by callers.
type Event struct {
	ID        ID              `json:"id"`
	UserID    ID              `json:"user_id"`
	TypeID    ID              `json:"type_id"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  json.RawMessage `json:"metadata"`
}

// EventWithType is an Event with its type name resolved, as returned by
// the paginated and per-user listing endpoints.
type EventWithType struct {
	ID        ID              `json:"id"`
	UserID    ID              `json:"user_id"`
	EventType string          `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  json.RawMessage `json:"metadata"`
}

// Pagination describes the page a PaginatedEvents response was built
// from, plus the total row count across all pages.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// PaginatedEvents is the response body of the paginate-events operation.
type PaginatedEvents struct {
	Data  []EventWithType `json:"data"`
	Query Pagination      `json:"query"`
}

// StatRow is one grouped row out of the repository's stats query: a count
// of events for one user on one page, within the requested window and
// event type.
type StatRow struct {
	UserID    ID
	Page      string
	PageCount int64
}

// Stat is the response body of the stats operation: total events and
// unique users in the window, plus each page's event count.
type Stat struct {
	TotalEvents int64            `json:"total_events"`
	UniqueUsers int64            `json:"unique_users"`
	TopPages    map[string]int64 `json:"top_pages"`
}
