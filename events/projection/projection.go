// Package projection is the read-through cache facade over
// EventsRepository: every read first checks the leveled cache, and on a
// miss queries Postgres, serializes the result, and saves it back with
// the key's documented TTL.
package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eventline.dev/cache"
	"eventline.dev/events"
	"eventline.dev/events/repository"
)

const (
	ttlShort = 100 * time.Second
	ttlLong  = 300 * time.Second
)

// Projection serves reads out of the leveled cache, falling back to repo
// on a miss.
type Projection struct {
	cache *cache.LeveledCache
	repo  repository.EventsRepository
}

// New wires a leveled cache to a repository.
func New(c *cache.LeveledCache, repo repository.EventsRepository) *Projection {
	return &Projection{cache: c, repo: repo}
}

// get is the shared read-through helper: check the cache for key, and on
// a miss call load, cache its JSON-encoded result under key with ttl, and
// return it.
func get[T any](ctx context.Context, p *Projection, key cache.Key, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if raw, ok, err := p.cache.Get(ctx, key.String()); err != nil {
		return zero, err
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return zero, fmt.Errorf("decode cached %s: %w", key.String(), err)
		}
		return v, nil
	}

	v, err := load(ctx)
	if err != nil {
		return zero, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return zero, fmt.Errorf("encode %s for cache: %w", key.String(), err)
	}
	// A failed Save is a cache-tier problem, not a read failure: the value
	// was already loaded from the repository, so the caller still gets a
	// correct answer even if nothing gets cached this time.
	_ = p.cache.Save(ctx, key, raw, ttl)
	return v, nil
}

// EventsCount returns the total row count of the events table, cached
// under the exact key "total_events" with a 300s TTL on a cache miss. The
// write path (see OnEventsInserted) re-saves the same key with a shorter
// 100s TTL after an insert, a deliberate asymmetry carried over from the
// original implementation: a freshly-written count is allowed to go
// stale sooner than one that was merely read.
func (p *Projection) EventsCount(ctx context.Context) (int64, error) {
	return get(ctx, p, cache.ExactKey("total_events"), ttlLong, p.repo.CountEvents)
}

// Types returns every event type, cached under "event_types".
func (p *Projection) Types(ctx context.Context) ([]events.EventType, error) {
	return get(ctx, p, cache.ExactKey("event_types"), ttlLong, p.repo.GetTypes)
}

// TypesIDToName derives an id->name map from Types.
func (p *Projection) TypesIDToName(ctx context.Context) (map[events.ID]string, error) {
	types, err := p.Types(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[events.ID]string, len(types))
	for _, t := range types {
		out[t.ID] = t.Name
	}
	return out, nil
}

// TypesNameToID derives a name->id map from Types.
func (p *Projection) TypesNameToID(ctx context.Context) (map[string]events.ID, error) {
	types, err := p.Types(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]events.ID, len(types))
	for _, t := range types {
		out[t.Name] = t.ID
	}
	return out, nil
}

// UsersID returns every known user ID, cached under "users_id".
func (p *Projection) UsersID(ctx context.Context) ([]events.ID, error) {
	return get(ctx, p, cache.ExactKey("users_id"), ttlLong, p.repo.GetUsersID)
}

// UserEvents returns the most recent 1000 events for userID, resolving
// each event's type name, cached under "user_events_{user_id}".
func (p *Projection) UserEvents(ctx context.Context, userID events.ID) ([]events.EventWithType, error) {
	key := cache.ExactKey(fmt.Sprintf("user_events_%d", userID))
	return get(ctx, p, key, ttlLong, func(ctx context.Context) ([]events.EventWithType, error) {
		rows, err := p.repo.GetUserEvents(ctx, userID)
		if err != nil {
			return nil, err
		}
		return p.withTypeNames(ctx, rows)
	})
}

// PaginateEvents returns one page of events plus the total row count,
// cached under the pattern "page_{}_{}" keyed by page and limit.
func (p *Projection) PaginateEvents(ctx context.Context, page, limit int) (events.PaginatedEvents, error) {
	key := cache.PatternOf("page_{}_{}", fmt.Sprintf("%d", page), fmt.Sprintf("%d", limit))
	return get(ctx, p, key, ttlLong, func(ctx context.Context) (events.PaginatedEvents, error) {
		rows, err := p.repo.PaginateEvents(ctx, page, limit)
		if err != nil {
			return events.PaginatedEvents{}, err
		}
		withTypes, err := p.withTypeNames(ctx, rows)
		if err != nil {
			return events.PaginatedEvents{}, err
		}
		total, err := p.EventsCount(ctx)
		if err != nil {
			return events.PaginatedEvents{}, err
		}
		return events.PaginatedEvents{
			Data:  withTypes,
			Query: events.Pagination{Page: page, Limit: limit, Total: total},
		}, nil
	})
}

// Stats aggregates per-user-per-page event counts in [from, to] for
// typeID, cached under the pattern "events_stat_{}_{}_{}" keyed by the
// RFC3339 from/to timestamps and the type ID. Two timestamps that differ
// only in sub-second precision after formatting will collide on the same
// cache key; two that round-trip to different RFC3339 strings will miss
// even if they describe overlapping windows in practice.
func (p *Projection) Stats(ctx context.Context, from, to time.Time, typeID events.ID) (events.Stat, error) {
	key := cache.PatternOf("events_stat_{}_{}_{}",
		from.Format(time.RFC3339), to.Format(time.RFC3339), fmt.Sprintf("%d", typeID))

	return get(ctx, p, key, ttlLong, func(ctx context.Context) (events.Stat, error) {
		rows, err := p.repo.Stats(ctx, from, to, typeID)
		if err != nil {
			return events.Stat{}, err
		}

		users := make(map[events.ID]struct{})
		pageCounts := make(map[string]int64)
		var total int64
		for _, r := range rows {
			users[r.UserID] = struct{}{}
			pageCounts[r.Page] += r.PageCount
			total += r.PageCount
		}

		return events.Stat{
			TotalEvents: total,
			UniqueUsers: int64(len(users)),
			TopPages:    pageCounts,
		}, nil
	})
}

// withTypeNames resolves each row's type_id against TypesIDToName.
func (p *Projection) withTypeNames(ctx context.Context, rows []events.Event) ([]events.EventWithType, error) {
	idToName, err := p.TypesIDToName(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]events.EventWithType, len(rows))
	for i, r := range rows {
		out[i] = events.EventWithType{
			ID:        r.ID,
			UserID:    r.UserID,
			EventType: idToName[r.TypeID],
			Timestamp: r.Timestamp,
			Metadata:  r.Metadata,
		}
	}
	return out, nil
}

// OnEventsInserted is the create-event write path's completion hook: it
// recomputes the cached total from the delta the batch insert reported,
// re-saves "total_events" with the shorter write-path TTL, and
// invalidates the per-user exact key and the stats pattern family for
// every user touched by the batch. The design notes on the original call
// this out explicitly: every touched user re-triggers a full invalidation
// of the same "events_stat_{}_{}_{}" pattern rather than a per-user scoped
// one, since stats are grouped across users and there is no narrower key
// to target. Callers should invoke this as `go proj.OnEventsInserted(...)`
// rather than inline, so a slow cache round trip on the write path never
// blocks the command bus flusher that called it.
func (p *Projection) OnEventsInserted(ctx context.Context, inserted int64, touchedUsers []events.ID) {
	current, err := p.EventsCount(ctx)
	if err != nil {
		current = 0
	}
	total := current + inserted

	raw, err := json.Marshal(total)
	if err == nil {
		_ = p.cache.Save(ctx, cache.ExactKey("total_events"), raw, ttlShort)
	}

	for _, userID := range touchedUsers {
		_ = p.cache.Invalidate(ctx, cache.ExactKey(fmt.Sprintf("user_events_%d", userID)))
		_ = p.cache.Invalidate(ctx, cache.PatternOf("events_stat_{}_{}_{}"))
	}
}
