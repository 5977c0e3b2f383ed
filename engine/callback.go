package engine

import (
	"context"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/lattica-labs/execution-engine/chainstore"
	"github.com/lattica-labs/execution-engine/forks"
	"github.com/lattica-labs/execution-engine/vm"
)

// perBlockState is the callback-local state spec.md §4.3 describes:
// headBlock/parentState persist across every block delivered within one
// run() invocation, reset only on the first call or a reorg.
type perBlockState struct {
	first           bool
	headBlock       *chainstore.Block
	parentState     ids.ID
	prevVMStateRoot ids.ID
	errorBlock      *chainstore.Block
}

func newPerBlockState() *perBlockState {
	return &perBlockState{first: true}
}

// runBlockCallback builds the chainstore.IterateCallback the run loop
// hands to Store.Iterate, closing over st so state survives across
// multiple Iterate calls within the same Run invocation.
func (e *Engine) runBlockCallback(ctx context.Context, st *perBlockState) chainstore.IterateCallback {
	return func(block *chainstore.Block, reorg bool) error {
		return e.executeCallbackBlock(ctx, st, block, reorg)
	}
}

func (e *Engine) executeCallbackBlock(ctx context.Context, st *perBlockState, block *chainstore.Block, reorg bool) error {
	// 1. Parent state selection.
	var clearCache bool
	if st.first || reorg {
		parent, err := e.store.GetBlockByHash(block.Header.ParentHash)
		if err != nil {
			return err
		}
		st.headBlock = parent
		st.parentState = parent.Header.StateRoot
		clearCache = true
		st.first = false
	} else {
		clearCache = st.prevVMStateRoot != st.parentState
	}

	if clearCache {
		e.metrics.CacheMisses.Inc()
	} else {
		e.metrics.CacheHits.Inc()
	}

	// 2. Hardfork transition -- must happen before runBlock.
	td, err := e.store.GetTotalDifficulty(block.Hash())
	if err != nil {
		return err
	}
	e.checkHardforkTransition(block.Header.Number, td, block.Header.Timestamp)

	// 3. Validation flags.
	skipBlockValidation := e.chainConfig.ConsensusType(e.hardfork) == forks.ConsensusPoA
	flags := vm.RunFlags{
		ClearCache:           clearCache,
		SkipBlockValidation:  skipBlockValidation,
		SkipHeaderValidation: true,
	}

	// 4. Cancellation check.
	if !e.isStarted() || e.gate.isShutdown() {
		return ErrExecutionStopped
	}

	// 5. Execute.
	start := e.clock.Time()
	result, err := e.backend.RunBlock(ctx, block, st.parentState, flags)
	elapsed := e.clock.Time().Sub(start)
	e.metrics.BlockExecTime.Observe(elapsed.Seconds())
	if err != nil {
		st.errorBlock = block
		return err
	}
	if elapsed > e.config.MaxToleratedBlockTime {
		e.metrics.SlowBlockWarnings.Inc()
		log.Warn("slow block", "number", block.Header.Number, "hash", block.Hash(),
			"txCount", len(block.Transactions), "gasUsed", result.GasUsed, "elapsed", elapsed)
	}

	// 6. Persist receipts. Unlike the fire-and-forget dispatch spec.md §9
	// flags, this awaits SaveReceipts before the callback returns, so the
	// cursor never advances past a block whose receipts might not survive
	// a crash.
	if err := e.receiptsMgr.SaveReceipts(block.Hash(), result.Receipts); err != nil {
		st.errorBlock = block
		return err
	}

	// 7. Advance.
	st.headBlock = block
	st.parentState = result.StateRoot
	st.prevVMStateRoot = result.StateRoot
	e.metrics.BlocksExecuted.Inc()
	if reorg {
		e.metrics.ReorgCount.Inc()
	}
	return nil
}
