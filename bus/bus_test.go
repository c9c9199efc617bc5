package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventline.dev/common"
)

// fakeRow is a canned pgx.Row whose Scan copies pre-set values into dest.
type fakeRow struct {
	values []any
}

func (r fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		switch dp := d.(type) {
		case *int64:
			*dp = r.values[i].(int64)
		case *[]int64:
			*dp = r.values[i].([]int64)
		}
	}
	return nil
}

// fakeExecutor records every QueryRow/Exec call it receives so tests can
// assert on batching behavior without a live Postgres connection.
type fakeExecutor struct {
	mu         sync.Mutex
	queryCalls []queryCall
	execCalls  []string
}

type queryCall struct {
	sql  string
	args []any
}

func (f *fakeExecutor) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execCalls = append(f.execCalls, sql)
	return pgconn.CommandTag{}, nil
}

func (f *fakeExecutor) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls = append(f.queryCalls, queryCall{sql: sql, args: args})
	return fakeRow{values: []any{int64(len(args[0].([]int64))), []int64{1}}}
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queryCalls)
}

func newTestBus(exec Executor) *Bus {
	diag := common.NewDiagnostics(nil)
	return New(exec, diag, time.Hour)
}

func tuplesOf(n int) [][]Value {
	out := make([][]Value, n)
	for i := range out {
		out[i] = []Value{Int(i), Str("x")}
	}
	return out
}

func TestBusFlushChunksLargeBatchesAtTwoThousand(t *testing.T) {
	exec := &fakeExecutor{}
	b := newTestBus(exec)

	for _, tuple := range tuplesOf(5000) {
		b.Push("INSERT ... SELECT * FROM UNNEST($1,$2) RETURNING x", tuple, nil)
	}

	b.flush(context.Background())

	assert.Equal(t, 3, exec.callCount(), "5000 tuples at a 2000-tuple batch size should take 3 round trips")
}

func TestBusFlushInvokesCallbackOncePerSQLTextPerCycle(t *testing.T) {
	exec := &fakeExecutor{}
	b := newTestBus(exec)

	var calls int
	var mu sync.Mutex
	cb := func(row pgx.Row) {
		mu.Lock()
		calls++
		mu.Unlock()
	}

	for _, tuple := range tuplesOf(10) {
		b.Push("INSERT ... FROM UNNEST($1,$2) RETURNING x", tuple, cb)
	}

	b.flush(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestBusFlushHandlesHeterogeneousSQLTextsIndependently(t *testing.T) {
	exec := &fakeExecutor{}
	b := newTestBus(exec)

	var aCalls, bCalls int
	var mu sync.Mutex

	b.Push("SQL_A FROM UNNEST($1,$2)", []Value{Int(1), Str("x")}, func(pgx.Row) {
		mu.Lock()
		aCalls++
		mu.Unlock()
	})
	b.Push("SQL_B FROM UNNEST($1,$2)", []Value{Int(2), Str("y")}, func(pgx.Row) {
		mu.Lock()
		bCalls++
		mu.Unlock()
	})

	b.flush(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, aCalls)
	assert.Equal(t, 1, bCalls)
	assert.Equal(t, 2, exec.callCount())
}

func TestBusFlushClearsCallbacksAfterEachCycle(t *testing.T) {
	exec := &fakeExecutor{}
	b := newTestBus(exec)

	var calls int
	var mu sync.Mutex
	cb := func(pgx.Row) {
		mu.Lock()
		calls++
		mu.Unlock()
	}

	b.Push("SQL_A FROM UNNEST($1,$2)", []Value{Int(1), Str("x")}, cb)
	b.flush(context.Background())

	// Second cycle pushes the same SQL text with no callback; the
	// previous cycle's callback must not carry over.
	b.Push("SQL_A FROM UNNEST($1,$2)", []Value{Int(2), Str("y")}, nil)
	b.flush(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestBusFlushNonUnnestExecutesPerTupleWithoutBindings(t *testing.T) {
	exec := &fakeExecutor{}
	b := newTestBus(exec)

	b.Push("DELETE FROM events WHERE id = 1", tuplesOf(3)[0], nil)
	for _, tuple := range tuplesOf(3) {
		b.Push("DELETE FROM events WHERE id = 1", tuple, nil)
	}

	b.flush(context.Background())

	require.Len(t, exec.execCalls, 4)
	for _, sql := range exec.execCalls {
		assert.Equal(t, "DELETE FROM events WHERE id = 1", sql)
	}
}

func TestBindUnnestTransposesRowsIntoColumns(t *testing.T) {
	chunk := [][]Value{
		{Int(1), Str("a")},
		{Int(2), Str("b")},
	}

	args, err := bindUnnest(chunk)
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, []int64{1, 2}, args[0])
	assert.Equal(t, []string{"a", "b"}, args[1])
}

func TestBindUnnestPanicsOnMismatchedColumnTypes(t *testing.T) {
	chunk := [][]Value{
		{Int(1)},
		{Str("oops")},
	}

	assert.Panics(t, func() {
		_, _ = bindUnnest(chunk)
	})
}
