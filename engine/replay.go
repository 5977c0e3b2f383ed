package engine

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/lattica-labs/execution-engine/vm"
)

// ExecuteBlocks re-executes the canonical blocks numbered [first, last]
// for tracing and post-mortem debugging (spec.md §4.8). It runs against
// a shallow copy of the VM backend -- same backing state, independent
// caches -- so normal execution is never disturbed, and it does not take
// the gate: a debug replay must be able to run alongside the live run
// loop. An empty txHashes replays the whole block (the wildcard "*"
// case); a non-empty txHashes restricts each block's replay to exactly
// those transactions.
func (e *Engine) ExecuteBlocks(ctx context.Context, first, last uint64, txHashes []ids.ID) error {
	if first > last {
		return fmt.Errorf("engine: replay range invalid: first %d > last %d", first, last)
	}

	replayAll := len(txHashes) == 0

	copyVM := e.backend.ShallowCopy(true)

	for number := first; number <= last; number++ {
		block, err := e.store.GetBlockByNumber(number)
		if err != nil {
			return err
		}
		parent, err := e.store.GetBlockByHash(block.Header.ParentHash)
		if err != nil {
			return err
		}
		td, err := e.store.GetTotalDifficulty(block.Hash())
		if err != nil {
			return err
		}

		hf := e.chainConfig.HardforkFor(block.Header.Number, td, block.Header.Timestamp)
		copyVM.SetHardfork(hf)

		flags := vm.RunFlags{ClearCache: true, SkipHeaderValidation: true}
		if replayAll {
			if _, err := copyVM.RunBlock(ctx, block, parent.Header.StateRoot, flags); err != nil {
				return fmt.Errorf("engine: replay block %d: %w", number, err)
			}
			continue
		}
		if _, err := copyVM.RunTransactions(ctx, block, parent.Header.StateRoot, txHashes, flags); err != nil {
			return fmt.Errorf("engine: replay block %d: %w", number, err)
		}
	}

	return nil
}
