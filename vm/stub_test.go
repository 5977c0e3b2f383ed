package vm

import (
	"context"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/lattica-labs/execution-engine/chainstore"
	"github.com/stretchr/testify/assert"
)

func testBlock(t *testing.T, parent ids.ID, number uint64, txHashes ...ids.ID) *chainstore.Block {
	t.Helper()
	txs := make([]chainstore.Transaction, len(txHashes))
	for i, h := range txHashes {
		txs[i] = chainstore.Transaction{Hash: h}
	}
	b, err := chainstore.NewBlock(&chainstore.Header{ParentHash: parent, Number: number}, txs)
	assert.NoError(t, err)
	return b
}

func TestStubRunBlockIsDeterministic(t *testing.T) {
	genesis := ids.ID{1}
	s1 := NewStub(genesis)
	s2 := NewStub(genesis)

	block := testBlock(t, ids.ID{}, 1, ids.ID{100}, ids.ID{101})

	r1, err := s1.RunBlock(context.Background(), block, genesis, RunFlags{})
	assert.NoError(t, err)
	r2, err := s2.RunBlock(context.Background(), block, genesis, RunFlags{})
	assert.NoError(t, err)

	assert.Equal(t, r1.StateRoot, r2.StateRoot)
	assert.Equal(t, r1.Receipts, r2.Receipts)
	assert.Equal(t, uint64(42000), r1.GasUsed)
}

func TestStubRunBlockUnknownRoot(t *testing.T) {
	s := NewStub(ids.ID{1})
	block := testBlock(t, ids.ID{}, 1)

	_, err := s.RunBlock(context.Background(), block, ids.ID{99}, RunFlags{})
	assert.ErrorIs(t, err, ErrUnknownRoot)
}

func TestStubStateManagerTracksProducedRoots(t *testing.T) {
	genesis := ids.ID{1}
	s := NewStub(genesis)
	sm := s.StateManager()

	assert.True(t, sm.HasStateRoot(genesis))
	assert.Equal(t, genesis, sm.GetStateRoot())

	block := testBlock(t, ids.ID{}, 1)
	res, err := s.RunBlock(context.Background(), block, genesis, RunFlags{})
	assert.NoError(t, err)

	assert.True(t, sm.HasStateRoot(res.StateRoot))
	assert.Equal(t, res.StateRoot, sm.GetStateRoot())
	assert.False(t, sm.HasStateRoot(ids.ID{200}))
}

func TestStubRunTransactionsSelectsSubset(t *testing.T) {
	genesis := ids.ID{1}
	s := NewStub(genesis)
	block := testBlock(t, ids.ID{}, 1, ids.ID{100}, ids.ID{101}, ids.ID{102})

	res, err := s.RunTransactions(context.Background(), block, genesis, []ids.ID{ids.ID{101}}, RunFlags{})
	assert.NoError(t, err)
	assert.Len(t, res.Receipts, 1)
	assert.Equal(t, ids.ID{101}, res.Receipts[0].TxHash)
}

func TestStubSetHardforkDoesNotAffectDeterminism(t *testing.T) {
	genesis := ids.ID{1}
	s := NewStub(genesis)
	s.SetHardfork("london")

	block := testBlock(t, ids.ID{}, 1)
	res, err := s.RunBlock(context.Background(), block, genesis, RunFlags{})
	assert.NoError(t, err)
	assert.True(t, s.StateManager().HasStateRoot(res.StateRoot))
}

func TestStubShallowCopySharesRootsIndependentCurrent(t *testing.T) {
	genesis := ids.ID{1}
	s := NewStub(genesis)
	block := testBlock(t, ids.ID{}, 1)
	res, err := s.RunBlock(context.Background(), block, genesis, RunFlags{})
	assert.NoError(t, err)

	cp := s.ShallowCopy(true)
	assert.True(t, cp.StateManager().HasStateRoot(res.StateRoot))

	block2 := testBlock(t, ids.ID{}, 2)
	_, err = cp.RunBlock(context.Background(), block2, res.StateRoot, RunFlags{})
	assert.NoError(t, err)

	assert.Equal(t, res.StateRoot, s.StateManager().GetStateRoot())
}

func TestStubInitSeedsGenesisRootWithoutDiscardingExisting(t *testing.T) {
	genesis := ids.ID{1}
	s := NewStub(genesis)
	block := testBlock(t, ids.ID{}, 1)
	res, err := s.RunBlock(context.Background(), block, genesis, RunFlags{})
	assert.NoError(t, err)

	assert.NoError(t, s.Init(context.Background(), genesis))
	assert.True(t, s.StateManager().HasStateRoot(res.StateRoot))
	assert.True(t, s.StateManager().HasStateRoot(genesis))
}
