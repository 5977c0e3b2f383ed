package engine

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// gate is the single binary mutex spec.md §4.1 requires: it serializes
// open, start, stop, run, runWithoutSetHead, and setHead. It is built on
// golang.org/x/sync/semaphore.Weighted rather than a plain sync.Mutex
// (the teacher's own choice for its single-writer paths, e.g.
// avalanchego/chains/atomic/memory.go) because acquisition here must be
// cancellable via context, matching spec.md §4.1's "acquiring is
// asynchronous (may suspend)" contract.
type gate struct {
	sem *semaphore.Weighted

	running  int32
	shutdown int32
}

func newGate() *gate {
	return &gate{sem: semaphore.NewWeighted(1)}
}

// acquire blocks until the gate is free or ctx is done, then marks the
// gate running. Every public mutator wraps its body as
// acquire -> try { action } finally { release }.
func (g *gate) acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	atomic.StoreInt32(&g.running, 1)
	return nil
}

// tryAcquire is the non-blocking variant runWithoutSetHead uses when
// blocking=false: callers that find the gate busy do not queue.
func (g *gate) tryAcquire() bool {
	if !g.sem.TryAcquire(1) {
		return false
	}
	atomic.StoreInt32(&g.running, 1)
	return true
}

// release clears the running flag before releasing the semaphore, so it
// never clears a flag already set by the next holder. A concurrent
// isRunning() observer may briefly see "not running" while the semaphore
// is still held.
func (g *gate) release() {
	atomic.StoreInt32(&g.running, 0)
	g.sem.Release(1)
}

func (g *gate) isRunning() bool {
	return atomic.LoadInt32(&g.running) == 1
}

// requestShutdown sets the cooperative shutdown flag consulted at every
// suspension point (spec.md §4.1, §5).
func (g *gate) requestShutdown() {
	atomic.StoreInt32(&g.shutdown, 1)
}

func (g *gate) isShutdown() bool {
	return atomic.LoadInt32(&g.shutdown) == 1
}
