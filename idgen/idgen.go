// Package idgen generates Snowflake-style 64-bit monotonic IDs, one
// generator per logical worker so concurrent producers never contend on a
// single internal mutex. The original service kept its generator in
// thread-local storage, lazily assigning each new OS thread the next
// sequential worker ID the first time it generated an ID; goroutines have
// no equivalent thread-local slot, so here each caller that wants isolated
// generator state asks for its own Generator explicitly, and receives the
// next sequential worker ID at that point instead of at first use.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
)

// maxWorkerID is the largest node number bwmarrin/snowflake's 10-bit node
// field can hold.
const maxWorkerID = 1023

var nextWorkerID int64

// Generator wraps a single Snowflake node. It is safe for concurrent use
// by multiple goroutines, but a pool of Generators (one per worker) avoids
// funneling every ID request through one shared mutex.
type Generator struct {
	node     *snowflake.Node
	workerID int64
}

// New allocates the next sequential worker ID and returns a Generator
// bound to it. Exhausting the worker-id space is a programmer error —
// it means more concurrent generators were created than the Snowflake
// node field can address without risking two generators sharing a
// worker id — so New fails fast instead of wrapping the counter back to
// a worker id that may still be live.
func New() (*Generator, error) {
	workerID := atomic.AddInt64(&nextWorkerID, 1) - 1
	if workerID > maxWorkerID {
		return nil, fmt.Errorf("idgen: worker id space exhausted (max %d)", maxWorkerID)
	}

	node, err := snowflake.NewNode(workerID)
	if err != nil {
		return nil, fmt.Errorf("idgen: create node %d: %w", workerID, err)
	}
	return &Generator{node: node, workerID: workerID}, nil
}

// Next returns the next monotonic ID from this generator.
func (g *Generator) Next() int64 {
	return int64(g.node.Generate())
}

// WorkerID reports which sequential worker ID this generator was assigned.
func (g *Generator) WorkerID() int64 {
	return g.workerID
}
