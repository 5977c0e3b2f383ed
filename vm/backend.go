// Package vm declares the contract the execution engine expects from the
// EVM/opcode interpreter it invokes but does not implement (spec.md §1,
// §6 "Consumed -- VM"). Real opcode execution, gas accounting, and
// precompiles live outside this repository; this package only fixes the
// shape of the boundary and ships a deterministic stub for tests.
package vm

import (
	"context"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/lattica-labs/execution-engine/chainstore"
	"github.com/lattica-labs/execution-engine/receipts"
)

// RunFlags carries the per-call execution flags spec.md §4.3/§4.4 name.
// clearCache forces the VM to discard its per-block caches because the
// parent state changed out from under it (a fresh callback invocation or
// a reorg); skipBlockValidation and skipHeaderValidation let the engine
// bypass re-checks it has already performed itself.
type RunFlags struct {
	ClearCache           bool
	SkipBlockValidation  bool
	SkipHeaderValidation bool
}

// RunResult is what runBlock hands back on success: the gas the block
// consumed, its per-transaction receipts, and the resulting state root.
type RunResult struct {
	GasUsed   uint64
	Receipts  []receipts.Receipt
	StateRoot ids.ID
}

// Backend is the single static trait the engine programs against (spec.md
// §9 "dynamic capability probing -> static trait" REDESIGN FLAG),
// grounded on the teacher's BlockExecutor.Execute two-phase shape
// (examples/timestampblock/vm/block_executor.go's SyntacticVerify +
// ExecuteStateChanges) generalized into one call the engine treats
// atomically: it must either produce a valid new state root and receipts
// or fail outright, never leaving partial state (spec.md §6).
type Backend interface {
	// Init prepares the backend to serve requests against the chain
	// identified by genesisRoot (spec.md §6's init()).
	Init(ctx context.Context, genesisRoot ids.ID) error

	RunBlock(ctx context.Context, block *chainstore.Block, root ids.ID, flags RunFlags) (RunResult, error)
	RunTransactions(ctx context.Context, block *chainstore.Block, root ids.ID, txHashes []ids.ID, flags RunFlags) (RunResult, error)

	// ShallowCopy returns a Backend sharing this one's backing state but
	// with independent caches, for the debug replay path (spec.md §4.8)
	// to speculatively re-execute historical blocks without perturbing
	// the live engine's cached tries. preserveCaches seeds the copy's
	// caches from the original instead of starting cold.
	ShallowCopy(preserveCaches bool) Backend

	StateManager() StateManager

	// SetHardfork rekeys the backend's common consensus parameters ahead
	// of executing a block under a new ruleset (spec.md §4.4).
	SetHardfork(tag string)
}

// StateManager is the authenticated state trie's contract (spec.md §3,
// §6): the engine only ever asks for the current root, checks whether a
// root is present, or seeds the genesis state — it never inspects trie
// contents directly.
type StateManager interface {
	GetStateRoot() ids.ID
	HasStateRoot(root ids.ID) bool
	GenerateCanonicalGenesis(ctx context.Context) (ids.ID, error)
}
