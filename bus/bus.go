// Package bus implements the coalescing command bus: writers push
// parameterized SQL statements keyed by their SQL text, and a single
// background goroutine periodically drains the accumulated parameter
// tuples into batched UNNEST inserts (or, for statements that don't use
// UNNEST, a per-tuple execution loop), with at most one completion
// callback registered per SQL text per flush cycle.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"eventline.dev/common"
)

// maxBatchSize bounds how many parameter tuples are sent to Postgres in a
// single UNNEST call, splitting larger batches into multiple round trips.
const maxBatchSize = 2000

// CompletionCallback is invoked once for every chunk (of at most
// maxBatchSize tuples) of a SQL text that flushOne sees no error for, so a
// SQL text split into several chunks in one flush cycle invokes it several
// times. row is the single row returned by the chunk's RETURNING clause
// (nil for statements that don't use UNNEST and so execute with no return
// value). For UNNEST statements row comes from QueryRow, whose execution
// error surfaces only when the callback calls row.Scan; the callback is
// invoked for such a chunk and the error is not sent to diagnostics.
type CompletionCallback func(row pgx.Row)

// Executor is the slice of *pgxpool.Pool the flusher needs. It exists so
// tests can flush against a fake instead of a live Postgres connection,
// the same way the worker pool's Queue interface isolates its consumer
// from a concrete Redis client.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Bus accumulates pending writes under their SQL text and flushes them on
// a timer or on demand. It never propagates a write failure to the
// pusher: Push returns before the write executes. Bind failures and
// failed Exec calls of non-UNNEST statements are reported on the
// diagnostics channel; an UNNEST statement's execution error reaches only
// the completion callback, through row.Scan.
type Bus struct {
	mu        sync.Mutex
	queries   map[string][][]Value
	callbacks map[string]CompletionCallback

	exec   Executor
	diag   *common.Diagnostics
	notify chan struct{}
	period time.Duration
}

// New creates a Bus that flushes against exec every period, or
// immediately whenever Push is called while the flusher is idle.
func New(exec Executor, diag *common.Diagnostics, period time.Duration) *Bus {
	return &Bus{
		queries:   make(map[string][][]Value),
		callbacks: make(map[string]CompletionCallback),
		exec:      exec,
		diag:      diag,
		notify:    make(chan struct{}, 1),
		period:    period,
	}
}

// Push appends params to sql's pending tuple list. If cb is non-nil it
// replaces any callback previously registered for sql; a later Push for
// the same sql with a nil callback leaves the existing one in place.
func (b *Bus) Push(sql string, params []Value, cb CompletionCallback) {
	b.mu.Lock()
	b.queries[sql] = append(b.queries[sql], params)
	if cb != nil {
		b.callbacks[sql] = cb
	}
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Run drains the bus on tick(period) or notified(), whichever comes
// first, until ctx is cancelled. It is meant to be started once, in its
// own goroutine, from the process entrypoint.
func (b *Bus) Run(ctx context.Context) {
	ticker := time.NewTicker(b.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.flush(ctx)
		case <-b.notify:
			b.flush(ctx)
		}
	}
}

// flush drains the current queue and callback map, then executes every
// SQL text's tuples against Postgres. Every query is processed
// independently: one query's failure never stops the others from
// flushing, and the failures flushOne detects are logged to diagnostics.
func (b *Bus) flush(ctx context.Context) {
	b.mu.Lock()
	if len(b.queries) == 0 {
		b.mu.Unlock()
		return
	}
	queries := b.queries
	callbacks := b.callbacks
	b.queries = make(map[string][][]Value)
	b.callbacks = make(map[string]CompletionCallback)
	b.mu.Unlock()

	for sql, tuples := range queries {
		b.flushOne(ctx, sql, tuples, callbacks[sql])
	}
}

func (b *Bus) flushOne(ctx context.Context, sql string, tuples [][]Value, cb CompletionCallback) {
	b.diag.Group(sql)

	isUnnest := strings.Contains(strings.ToLower(sql), "unnest")

	for start := 0; start < len(tuples); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(tuples) {
			end = len(tuples)
		}
		chunk := tuples[start:end]

		var row pgx.Row
		var err error
		if isUnnest {
			row, err = b.execUnnest(ctx, sql, chunk)
		} else {
			err = b.execPerTuple(ctx, sql, chunk)
		}

		if err != nil {
			b.diag.Message(err.Error())
			continue
		}
		if cb != nil {
			cb(row)
		}
	}
}

// execUnnest binds chunk column-wise into typed arrays and runs sql once,
// expecting a single RETURNING row.
func (b *Bus) execUnnest(ctx context.Context, sql string, chunk [][]Value) (pgx.Row, error) {
	args, err := bindUnnest(chunk)
	if err != nil {
		return nil, fmt.Errorf("bind unnest batch: %w", err)
	}
	return b.exec.QueryRow(ctx, sql, args...), nil
}

// execPerTuple executes sql once per tuple with no bound parameters. This
// mirrors the original command bus exactly: non-UNNEST statements are
// expected to carry their values as literal SQL text rather than
// placeholders, so the tuple's Values are not bound here at all. A
// parameterized non-UNNEST statement pushed onto the bus would silently
// ignore its parameters; see the design notes on this branch.
func (b *Bus) execPerTuple(ctx context.Context, sql string, chunk [][]Value) error {
	for range chunk {
		if _, err := b.exec.Exec(ctx, sql); err != nil {
			return err
		}
	}
	return nil
}

// bindUnnest transposes a row-oriented batch of tuples into column-oriented
// typed slices pgx can bind as Postgres arrays, using the first tuple to
// fix each column's type. A later tuple whose column type disagrees with
// the first tuple's violates the CommandQueue invariant that every tuple
// under one sql_text shares arity and per-column types; that invariant is
// a caller bug, not a recoverable condition, so this panics rather than
// returning an error the flusher would log and skip like an ordinary
// transient failure.
func bindUnnest(chunk [][]Value) ([]any, error) {
	if len(chunk) == 0 {
		return nil, nil
	}
	numCols := len(chunk[0])
	columns := make([]any, numCols)

	for col := 0; col < numCols; col++ {
		switch chunk[0][col].(type) {
		case Int:
			vals := make([]int64, len(chunk))
			for i, tuple := range chunk {
				v, ok := tuple[col].(Int)
				if !ok {
					panic(fmt.Sprintf("bus: param type mismatch at column %d", col))
				}
				vals[i] = int64(v)
			}
			columns[col] = vals
		case Str:
			vals := make([]string, len(chunk))
			for i, tuple := range chunk {
				v, ok := tuple[col].(Str)
				if !ok {
					panic(fmt.Sprintf("bus: param type mismatch at column %d", col))
				}
				vals[i] = string(v)
			}
			columns[col] = vals
		case Timestamp:
			vals := make([]time.Time, len(chunk))
			for i, tuple := range chunk {
				v, ok := tuple[col].(Timestamp)
				if !ok {
					panic(fmt.Sprintf("bus: param type mismatch at column %d", col))
				}
				vals[i] = time.Time(v)
			}
			columns[col] = vals
		case JSON:
			vals := make([]string, len(chunk))
			for i, tuple := range chunk {
				v, ok := tuple[col].(JSON)
				if !ok {
					panic(fmt.Sprintf("bus: param type mismatch at column %d", col))
				}
				b, err := json.Marshal(v.Value)
				if err != nil {
					return nil, fmt.Errorf("marshal json column %d: %w", col, err)
				}
				vals[i] = string(b)
			}
			columns[col] = vals
		default:
			panic(fmt.Sprintf("bus: unsupported value type at column %d", col))
		}
	}

	return columns, nil
}
