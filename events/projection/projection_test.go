package projection

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventline.dev/cache"
	"eventline.dev/events"
)

// fakeRepo counts how many times each read hits the repository, so tests
// can assert the cache actually short-circuits on a hit.
type fakeRepo struct {
	countCalls int
	typesCalls int
	types      []events.EventType
	count      int64
}

func (f *fakeRepo) GetTypes(ctx context.Context) ([]events.EventType, error) {
	f.typesCalls++
	return f.types, nil
}
func (f *fakeRepo) GetUsersID(ctx context.Context) ([]events.ID, error) { return nil, nil }
func (f *fakeRepo) CountEvents(ctx context.Context) (int64, error) {
	f.countCalls++
	return f.count, nil
}
func (f *fakeRepo) PaginateEvents(ctx context.Context, page, limit int) ([]events.Event, error) {
	return nil, nil
}
func (f *fakeRepo) GetUserEvents(ctx context.Context, userID events.ID) ([]events.Event, error) {
	return nil, nil
}
func (f *fakeRepo) Stats(ctx context.Context, from, to time.Time, typeID events.ID) ([]events.StatRow, error) {
	return nil, nil
}
func (f *fakeRepo) UserExists(ctx context.Context, userID events.ID) (bool, error) {
	return true, nil
}
func (f *fakeRepo) EventTypeID(ctx context.Context, name string) (events.ID, bool, error) {
	return 0, false, nil
}

func newTestProjection(t *testing.T, repo *fakeRepo) *Projection {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	leveled := cache.NewLeveledCache(cache.NewLocalCache(1<<20), cache.NewRedisCache(client), cache.NewPatternRegistry())
	return New(leveled, repo)
}

func TestEventsCountCachesAfterFirstLoad(t *testing.T) {
	repo := &fakeRepo{count: 42}
	p := newTestProjection(t, repo)
	ctx := context.Background()

	n, err := p.EventsCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)

	n, err = p.EventsCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)

	assert.Equal(t, 1, repo.countCalls, "second call should be served from cache, not hit the repository again")
}

func TestTypesIDToNameDerivesFromTypes(t *testing.T) {
	repo := &fakeRepo{types: []events.EventType{{ID: 1, Name: "click"}, {ID: 2, Name: "view"}}}
	p := newTestProjection(t, repo)
	ctx := context.Background()

	idToName, err := p.TypesIDToName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "click", idToName[1])
	assert.Equal(t, "view", idToName[2])
}

func TestOnEventsInsertedUpdatesTotalAndInvalidatesTouchedUsers(t *testing.T) {
	repo := &fakeRepo{count: 10}
	p := newTestProjection(t, repo)
	ctx := context.Background()

	_, err := p.EventsCount(ctx)
	require.NoError(t, err)
	_, err = p.UserEvents(ctx, 7)
	require.NoError(t, err)

	p.OnEventsInserted(ctx, 5, []events.ID{7})

	_, ok, err := p.cache.Get(ctx, "user_events_7")
	require.NoError(t, err)
	assert.False(t, ok, "the touched user's cached events should be invalidated")

	// The write path re-saves total_events directly; a subsequent read
	// should observe the updated total without another repository call.
	n, err := p.EventsCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 15, n)
	assert.Equal(t, 1, repo.countCalls)
}
