package engine

import (
	"context"
	"math/big"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/lattica-labs/execution-engine/chainstore"
	"github.com/lattica-labs/execution-engine/receipts"
	"github.com/lattica-labs/execution-engine/vm"
)

// RunWithoutSetHead executes block speculatively without promoting it to
// canonical (spec.md §4.6). When blocking is false and the gate is
// already held, it returns (false, nil) immediately rather than queuing
// -- callers that need the result must pass blocking=true. If
// providedReceipts is non-nil the block is assumed to have been built
// locally and its receipts already known, so re-execution is skipped.
// Unless skipBlockchain is set, the block and its total-difficulty and
// hash->number index entries are written in one atomic batch; the
// canonical number->hash mapping is deliberately left to SetHead.
func (e *Engine) RunWithoutSetHead(
	ctx context.Context,
	block *chainstore.Block,
	providedReceipts []receipts.Receipt,
	blocking bool,
	skipBlockchain bool,
) (bool, error) {
	if blocking {
		if err := e.gate.acquire(ctx); err != nil {
			return false, err
		}
	} else if !e.gate.tryAcquire() {
		return false, nil
	}
	defer e.gate.release()

	if !e.isStarted() {
		return false, ErrNotStarted
	}

	receiptList := providedReceipts
	if receiptList == nil {
		parentState := e.backend.StateManager().GetStateRoot()
		clearCache := e.lastRunRoot != (ids.ID{}) && e.lastRunRoot != parentState

		parentTD, err := e.store.GetTotalDifficulty(block.Header.ParentHash)
		if err != nil {
			return false, err
		}
		e.checkHardforkTransition(block.Header.Number, parentTD, block.Header.Timestamp)

		result, err := e.backend.RunBlock(ctx, block, parentState, vm.RunFlags{ClearCache: clearCache})
		if err != nil {
			return false, err
		}
		receiptList = result.Receipts
		e.lastRunRoot = result.StateRoot
	}

	e.pendingMu.Lock()
	e.pendingReceipts[block.Hash()] = receiptList
	e.pendingMu.Unlock()

	if !skipBlockchain {
		parentTD, err := e.store.GetTotalDifficulty(block.Header.ParentHash)
		if err != nil {
			return false, err
		}
		td := new(big.Int).Add(parentTD, block.Difficulty())
		if err := e.store.Batch(
			chainstore.SetTD(block.Hash(), td),
			chainstore.SetBlockOrHeader(block),
			chainstore.SetHashToNumber(block.Hash(), block.Header.Number),
		); err != nil {
			return false, err
		}
	}

	return true, nil
}

// SetHead promotes blocks to canonical and drains their staged receipts
// (spec.md §4.6). finalized and safe are optional; when provided, their
// cursors are advanced alongside vm and their canonicality is verified
// exactly like vmHead's.
func (e *Engine) SetHead(ctx context.Context, blocks []*chainstore.Block, finalized, safe *chainstore.Block) error {
	if err := e.gate.acquire(ctx); err != nil {
		return err
	}
	defer e.gate.release()

	if len(blocks) == 0 {
		return nil
	}
	vmHead := blocks[len(blocks)-1]

	if !e.backend.StateManager().HasStateRoot(vmHead.Header.StateRoot) {
		return &MissingStateRootError{Root: vmHead.Header.StateRoot, BlockHash: vmHead.Hash(), BlockNumber: vmHead.Header.Number}
	}

	if err := e.store.PutBlocks(blocks, true, true); err != nil {
		return err
	}

	for _, b := range blocks {
		hash := b.Hash()
		e.pendingMu.Lock()
		staged, ok := e.pendingReceipts[hash]
		if ok {
			delete(e.pendingReceipts, hash)
		}
		e.pendingMu.Unlock()
		if ok {
			if err := e.receiptsMgr.SaveReceipts(hash, staged); err != nil {
				return err
			}
		}
	}

	named := []*chainstore.Block{vmHead}
	if safe != nil {
		named = append(named, safe)
	}
	if finalized != nil {
		named = append(named, finalized)
	}
	for _, b := range named {
		onChain, err := e.store.GetBlockByNumber(b.Header.Number)
		if err != nil {
			return err
		}
		if onChain.Hash() != b.Hash() {
			return ErrNotCanonical
		}
	}

	if err := e.store.SetIteratorHead(chainstore.CursorVM, vmHead.Hash()); err != nil {
		return err
	}
	if safe != nil {
		if err := e.store.SetIteratorHead(chainstore.CursorSafe, safe.Hash()); err != nil {
			return err
		}
	}
	if finalized != nil {
		if err := e.store.SetIteratorHead(chainstore.CursorFinalized, finalized.Hash()); err != nil {
			return err
		}
	}

	if err := e.store.Update(false); err != nil {
		return err
	}

	log.Info("set head", "vm", vmHead.Hash(), "number", vmHead.Header.Number)
	return nil
}
