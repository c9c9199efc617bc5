// Package httpapi exposes the event-ingestion and analytics surface over
// echo: create-event, list-user-events, paginate-events, and stats.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"eventline.dev/bus"
	"eventline.dev/events"
	"eventline.dev/events/projection"
	"eventline.dev/events/repository"
	"eventline.dev/idgen"
)

// Handlers wires the HTTP surface to the repository, the read-through
// projection, the command bus, and a per-handler ID generator.
type Handlers struct {
	repo  repository.EventsRepository
	proj  *projection.Projection
	bus   *bus.Bus
	idgen *idgen.Generator
}

// New builds the handler set. gen should be a Generator dedicated to this
// Handlers instance rather than shared ambiently, per the service's
// explicit-over-ambient-state convention.
func New(repo repository.EventsRepository, proj *projection.Projection, b *bus.Bus, gen *idgen.Generator) *Handlers {
	return &Handlers{repo: repo, proj: proj, bus: b, idgen: gen}
}

// Register mounts every route on e.
func (h *Handlers) Register(e *echo.Echo) {
	e.POST("/event", h.createEvent)
	e.GET("/events", h.paginateEvents)
	e.GET("/users/:user_id/events", h.userEvents)
	e.GET("/stats", h.stats)
}

type createEventRequest struct {
	UserID    int64           `json:"user_id"`
	EventType string          `json:"event_type"`
	Timestamp string          `json:"timestamp"`
	Metadata  json.RawMessage `json:"metadata"`
}

type createEventResponse struct {
	ID        events.ID       `json:"id"`
	UserID    events.ID       `json:"user_id"`
	TypeID    events.ID       `json:"type_id"`
	Timestamp string          `json:"timestamp"`
	Metadata  json.RawMessage `json:"metadata"`
}

// createEvent validates the request, confirms the user and event type
// exist, then pushes a batched insert onto the command bus and returns
// immediately — the row is not guaranteed durable until the next flush.
func (h *Handlers) createEvent(c echo.Context) error {
	ctx := c.Request().Context()

	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, validationError("malformed request body"))
	}

	ts, _, verr := validateCreateEvent(req)
	if verr != nil {
		return writeError(c, verr)
	}

	userID := events.ID(req.UserID)

	userExists, typeID, typeOK, err := h.checkReferences(ctx, userID, req.EventType)
	if err != nil {
		return writeError(c, transientError(err.Error()))
	}
	if !userExists {
		return writeError(c, referentialError(fmt.Sprintf("user %d does not exist", req.UserID)))
	}
	if !typeOK {
		return writeError(c, referentialError(fmt.Sprintf("event type %q does not exist", req.EventType)))
	}

	id := events.ID(h.idgen.Next())

	h.pushInsert(id, userID, typeID, ts, req.Metadata)

	return c.JSON(http.StatusOK, createEventResponse{
		ID:        id,
		UserID:    userID,
		TypeID:    typeID,
		Timestamp: req.Timestamp,
		Metadata:  req.Metadata,
	})
}

// checkReferences resolves both referential checks through the projection,
// so the hot ingestion path hits the leveled cache rather than Postgres
// directly.
func (h *Handlers) checkReferences(ctx context.Context, userID events.ID, typeName string) (userExists bool, typeID events.ID, typeOK bool, err error) {
	userIDs, err := h.proj.UsersID(ctx)
	if err != nil {
		return false, 0, false, err
	}
	for _, id := range userIDs {
		if id == userID {
			userExists = true
			break
		}
	}

	nameToID, err := h.proj.TypesNameToID(ctx)
	if err != nil {
		return false, 0, false, err
	}
	typeID, typeOK = nameToID[typeName]

	return userExists, typeID, typeOK, nil
}

// pushInsert pushes the UNNEST batch insert for a single event onto the
// command bus. The insert is a CTE so the RETURNING clause reports both
// the row count inserted and the distinct user IDs touched in one round
// trip, which is everything OnEventsInserted's cache maintenance needs.
func (h *Handlers) pushInsert(id, userID, typeID events.ID, ts time.Time, metadata json.RawMessage) {
	const insertSQL = `
		WITH inserted AS (
			INSERT INTO events (id, user_id, type_id, timestamp, metadata)
			SELECT * FROM UNNEST($1::bigint[], $2::bigint[], $3::bigint[], $4::timestamptz[], $5::jsonb[])
			RETURNING user_id
		)
		SELECT COUNT(*) AS total_inserted, array_agg(DISTINCT user_id) AS unique_users FROM inserted`

	var metaValue any
	if len(metadata) > 0 {
		metaValue = metadata
	} else {
		metaValue = json.RawMessage("{}")
	}

	params := []bus.Value{
		bus.Int(id),
		bus.Int(userID),
		bus.Int(typeID),
		bus.Timestamp(ts),
		bus.JSON{Value: metaValue},
	}

	h.bus.Push(insertSQL, params, func(row pgx.Row) {
		if row == nil {
			return
		}
		var totalInserted int64
		var uniqueUsers []int64
		if err := row.Scan(&totalInserted, &uniqueUsers); err != nil {
			return
		}
		touched := make([]events.ID, len(uniqueUsers))
		for i, u := range uniqueUsers {
			touched[i] = events.ID(u)
		}
		go h.proj.OnEventsInserted(context.Background(), totalInserted, touched)
	})
}

// paginateEvents serves GET /events?page=&limit=.
func (h *Handlers) paginateEvents(c echo.Context) error {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 50)
	if page < 1 || limit < 1 {
		return writeError(c, validationError("page and limit must be positive"))
	}

	result, err := h.proj.PaginateEvents(c.Request().Context(), page, limit)
	if err != nil {
		return writeError(c, transientError(err.Error()))
	}
	return c.JSON(http.StatusOK, result)
}

// userEvents serves GET /users/:user_id/events.
func (h *Handlers) userEvents(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		return writeError(c, validationError("user_id must be an integer"))
	}

	result, err := h.proj.UserEvents(c.Request().Context(), events.ID(userID))
	if err != nil {
		return writeError(c, transientError(err.Error()))
	}
	return c.JSON(http.StatusOK, result)
}

// stats serves GET /stats?from=&to=&type_id=, where from/to are RFC3339
// timestamps.
func (h *Handlers) stats(c echo.Context) error {
	from, err := time.Parse(time.RFC3339, c.QueryParam("from"))
	if err != nil {
		return writeError(c, validationError("from must be an RFC3339 timestamp"))
	}
	to, err := time.Parse(time.RFC3339, c.QueryParam("to"))
	if err != nil {
		return writeError(c, validationError("to must be an RFC3339 timestamp"))
	}
	typeID, err := strconv.ParseInt(c.QueryParam("type_id"), 10, 64)
	if err != nil {
		return writeError(c, validationError("type_id must be an integer"))
	}

	result, err := h.proj.Stats(c.Request().Context(), from, to, events.ID(typeID))
	if err != nil {
		return writeError(c, transientError(err.Error()))
	}
	return c.JSON(http.StatusOK, result)
}

func queryInt(c echo.Context, name string, defaultValue int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return n
}
