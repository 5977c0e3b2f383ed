package vm

import (
	"context"
	"errors"
	"sync"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/lattica-labs/execution-engine/chainstore"
	"github.com/lattica-labs/execution-engine/receipts"
)

// ErrUnknownRoot is returned by Stub.RunBlock when asked to execute
// against a root it has never produced or seeded, standing in for a real
// interpreter's "missing trie node" failure.
var ErrUnknownRoot = errors.New("vm: unknown state root")

const perTxGas = 21000

// Stub is a deterministic, in-memory Backend with no opcodes and no gas
// metering -- genuinely out of scope per spec.md §1 -- used to exercise
// the engine in tests. It derives each block's resulting state root as a
// hash of the parent root and the block hash, so re-executing the same
// block from the same parent always reproduces the same root and
// receipts, matching spec.md's P3 "receipt conservation" property.
type Stub struct {
	mu       sync.Mutex
	roots    map[ids.ID]struct{}
	current  ids.ID
	hardfork string
}

// NewStub builds a Stub whose only known root is genesisRoot.
func NewStub(genesisRoot ids.ID) *Stub {
	return &Stub{
		roots:   map[ids.ID]struct{}{genesisRoot: {}},
		current: genesisRoot,
	}
}

func (s *Stub) StateManager() StateManager { return (*stubStateManager)(s) }

// Init seeds the stub with genesisRoot if it does not already know it,
// satisfying the Backend contract's init() step without discarding any
// roots produced before Init was called (useful for tests that seed a
// Stub via NewStub and re-Init it against the same genesis).
func (s *Stub) Init(ctx context.Context, genesisRoot ids.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roots == nil {
		s.roots = map[ids.ID]struct{}{}
	}
	s.roots[genesisRoot] = struct{}{}
	if s.current == (ids.ID{}) {
		s.current = genesisRoot
	}
	return nil
}

// ShallowCopy returns a Stub holding a copy of the known-roots set taken
// at the time of the call (so replayed blocks pass the same HasStateRoot
// checks the live backend would), with its own current pointer and mutex,
// so the debug replay path (spec.md §4.8) can advance a copy's "current"
// independent of the engine's own. The set is not shared: roots the copy
// produces are not added to the original, and roots the original produces
// later are not visible to the copy. preserveCaches has no effect on Stub, which has
// no cache to seed or discard; real backends would use it to decide
// whether to warm the copy's trie cache from the original.
func (s *Stub) ShallowCopy(preserveCaches bool) Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	roots := make(map[ids.ID]struct{}, len(s.roots))
	for r := range s.roots {
		roots[r] = struct{}{}
	}
	return &Stub{
		roots:    roots,
		current:  s.current,
		hardfork: s.hardfork,
	}
}

func (s *Stub) SetHardfork(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hardfork = tag
}

func (s *Stub) RunBlock(ctx context.Context, block *chainstore.Block, root ids.ID, flags RunFlags) (RunResult, error) {
	return s.run(ctx, block, root, block.Transactions, flags)
}

func (s *Stub) RunTransactions(ctx context.Context, block *chainstore.Block, root ids.ID, txHashes []ids.ID, flags RunFlags) (RunResult, error) {
	return s.run(ctx, block, root, selectTransactions(block, txHashes), flags)
}

// run computes the deterministic post-state root for block, executing
// exactly the transactions in selected, matching spec.md §4.7's replay
// contract: no state or receipts are persisted here, only computed and
// returned -- persistence is the caller's job.
func (s *Stub) run(ctx context.Context, block *chainstore.Block, root ids.ID, selected []chainstore.Transaction, flags RunFlags) (RunResult, error) {
	select {
	case <-ctx.Done():
		return RunResult{}, ctx.Err()
	default:
	}

	s.mu.Lock()
	_, known := s.roots[root]
	s.mu.Unlock()
	if !known {
		return RunResult{}, ErrUnknownRoot
	}

	blockHash := block.Hash()
	newRoot := hashing.ComputeHash256Array(append(append([]byte{}, root[:]...), blockHash[:]...))

	receiptList := make([]receipts.Receipt, len(selected))
	var cumulative uint64
	for i, tx := range selected {
		cumulative += perTxGas
		receiptList[i] = receipts.Receipt{
			TxHash:            tx.Hash,
			Status:            1,
			GasUsed:           perTxGas,
			CumulativeGasUsed: cumulative,
		}
	}

	s.mu.Lock()
	s.roots[newRoot] = struct{}{}
	s.current = newRoot
	s.mu.Unlock()

	return RunResult{
		GasUsed:   cumulative,
		Receipts:  receiptList,
		StateRoot: newRoot,
	}, nil
}

// selectTransactions filters block's transactions down to txHashes. The
// wildcard "*" case spec.md §4.7 describes is resolved by the caller,
// which calls RunBlock instead of RunTransactions when it means "all";
// RunTransactions here always means "exactly these".
func selectTransactions(block *chainstore.Block, txHashes []ids.ID) []chainstore.Transaction {
	if len(txHashes) == 0 {
		return nil
	}
	want := make(map[ids.ID]struct{}, len(txHashes))
	for _, h := range txHashes {
		want[h] = struct{}{}
	}
	var out []chainstore.Transaction
	for _, tx := range block.Transactions {
		if _, ok := want[tx.Hash]; ok {
			out = append(out, tx)
		}
	}
	return out
}

type stubStateManager Stub

func (m *stubStateManager) GetStateRoot() ids.ID {
	s := (*Stub)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (m *stubStateManager) HasStateRoot(root ids.ID) bool {
	s := (*Stub)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.roots[root]
	return ok
}

func (m *stubStateManager) GenerateCanonicalGenesis(ctx context.Context) (ids.ID, error) {
	s := (*Stub)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, nil
}
