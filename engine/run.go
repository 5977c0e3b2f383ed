package engine

import (
	"context"
	"strings"
	"time"

	log "github.com/inconshreveable/log15"

	"github.com/lattica-labs/execution-engine/chainstore"
	"github.com/lattica-labs/execution-engine/events"
)

// Run walks the vm cursor toward the canonical head, executing each
// delivered block via the per-block callback (spec.md §4.2). When loop is
// false, at most one batch of config.NumBlocksPerIteration blocks is
// executed. When onlyBatched is true, Run only starts a batch once the
// gap between vm and canonical is at least NumBlocksPerIteration -- used
// by Start's catch-up run so a lagging node executes in full batches
// rather than one block at a time.
func (e *Engine) Run(ctx context.Context, loop bool, onlyBatched bool) (int, error) {
	if err := e.gate.acquire(ctx); err != nil {
		return 0, err
	}
	defer e.gate.release()

	if !e.isStarted() {
		return 0, ErrNotStarted
	}

	runStart := time.Now()
	defer func() { e.metrics.RunDuration.Observe(time.Since(runStart).Seconds()) }()

	startHead, err := e.store.IteratorHead(chainstore.CursorVM)
	if err != nil {
		return 0, err
	}
	canonical, err := e.store.CanonicalHead()
	if err != nil {
		return 0, err
	}

	st := newPerBlockState()
	total := 0
	firstIteration := true
	lastBatchFull := false

	for e.isStarted() && !e.gate.isShutdown() && startHead.Hash() != canonical.Hash() {
		gap := canonical.Header.Number - startHead.Header.Number
		if onlyBatched && gap < e.config.NumBlocksPerIteration {
			break
		}
		if !firstIteration && !(loop && lastBatchFull) {
			break
		}
		firstIteration = false

		n, iterErr := e.store.Iterate(chainstore.CursorVM, e.runBlockCallback(ctx, st), e.config.NumBlocksPerIteration, true)
		total += n
		lastBatchFull = uint64(n) == e.config.NumBlocksPerIteration

		if iterErr != nil {
			actual := e.handleIterationError(startHead, st, iterErr)
			return total - n + actual, nil
		}

		startHead, err = e.store.IteratorHead(chainstore.CursorVM)
		if err != nil {
			return total, err
		}
		canonical, err = e.store.CanonicalHead()
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// handleIterationError implements spec.md §4.4: emit the VM error event,
// dispatch to backstep recovery on a missing state root for a block past
// height 1, otherwise log a warning and leave the cursor where it is.
// Returns actualExecuted = errorBlock.number - startHead.number.
func (e *Engine) handleIterationError(startHead *chainstore.Block, st *perBlockState, iterErr error) int {
	if st.errorBlock == nil {
		log.Warn("run aborted outside per-block scope", "err", iterErr)
		return 0
	}

	e.eventBus.Publish(events.VMErrorEvent{BlockHash: st.errorBlock.Hash(), Err: iterErr})

	if msre, ok := AsMissingStateRootError(iterErr); ok && st.errorBlock.Header.Number > 1 {
		e.backstep(msre, st)
	} else if isMissingStateRootMessage(iterErr) && st.errorBlock.Header.Number > 1 {
		// Legacy-shaped VM errors that were not constructed as a typed
		// MissingStateRootError still get backstep treatment; new VM
		// backends should return *MissingStateRootError directly.
		e.backstep(&MissingStateRootError{
			Root:        st.parentState,
			BlockHash:   st.errorBlock.Hash(),
			BlockNumber: st.errorBlock.Header.Number,
		}, st)
	} else {
		log.Warn("block execution failed", "number", st.errorBlock.Header.Number, "hash", st.errorBlock.Hash(), "err", iterErr)
	}

	if st.errorBlock.Header.Number < startHead.Header.Number {
		return 0
	}
	return int(st.errorBlock.Header.Number - startHead.Header.Number)
}

// isMissingStateRootMessage is retained only to recognize VM backends
// that have not yet been migrated off string-matched errors (spec.md §9
// flags this as the pattern to move away from).
func isMissingStateRootMessage(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "does not contain state root")
}
