package chainstore

import (
	"math/big"
	"testing"

	"github.com/ava-labs/avalanchego/database/manager"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T) (*Store, *Block) {
	t.Helper()
	dbManager := manager.NewMemDB(version.DefaultVersion1_0_0)
	genesis, err := NewBlock(&Header{Number: 0}, nil)
	assert.NoError(t, err)
	s, err := New(dbManager.Current().Database, genesis, prometheus.NewRegistry())
	assert.NoError(t, err)
	return s, genesis
}

func appendBlock(t *testing.T, s *Store, parent *Block, number uint64) *Block {
	t.Helper()
	b, err := NewBlock(&Header{ParentHash: parent.Hash(), Number: number}, nil)
	assert.NoError(t, err)
	assert.NoError(t, s.PutBlocks([]*Block{b}, false, false))
	return b
}

func TestNewSeedsGenesisAndCursors(t *testing.T) {
	s, genesis := newTestStore(t)

	head, err := s.CanonicalHead()
	assert.NoError(t, err)
	assert.Equal(t, genesis.Hash(), head.Hash())

	for _, name := range []CursorName{CursorVM, CursorSafe, CursorFinalized} {
		cur, err := s.IteratorHead(name)
		assert.NoError(t, err)
		assert.Equal(t, genesis.Hash(), cur.Hash())
	}
}

func TestNewIsIdempotent(t *testing.T) {
	dbManager := manager.NewMemDB(version.DefaultVersion1_0_0)
	genesis, err := NewBlock(&Header{Number: 0}, nil)
	assert.NoError(t, err)
	db := dbManager.Current().Database

	s1, err := New(db, genesis, prometheus.NewRegistry())
	assert.NoError(t, err)
	assert.NoError(t, s1.Close())

	s2, err := New(db, nil, prometheus.NewRegistry())
	assert.NoError(t, err)
	head, err := s2.CanonicalHead()
	assert.NoError(t, err)
	assert.Equal(t, genesis.Hash(), head.Hash())
}

func TestGetBlockByHashAndNumber(t *testing.T) {
	s, genesis := newTestStore(t)
	b1 := appendBlock(t, s, genesis, 1)

	byHash, err := s.GetBlockByHash(b1.Hash())
	assert.NoError(t, err)
	assert.Equal(t, b1.Hash(), byHash.Hash())

	byNumber, err := s.GetBlockByNumber(1)
	assert.NoError(t, err)
	assert.Equal(t, b1.Hash(), byNumber.Hash())

	_, err = s.GetBlockByNumber(99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCanonicalHeadTracksAppends(t *testing.T) {
	s, genesis := newTestStore(t)
	b1 := appendBlock(t, s, genesis, 1)
	b2 := appendBlock(t, s, b1, 2)

	head, err := s.CanonicalHead()
	assert.NoError(t, err)
	assert.Equal(t, b2.Hash(), head.Hash())
}

func TestBatchAppliesAllOps(t *testing.T) {
	s, genesis := newTestStore(t)
	b1, err := NewBlock(&Header{ParentHash: genesis.Hash(), Number: 1}, nil)
	assert.NoError(t, err)

	err = s.Batch(
		SetBlockOrHeader(b1),
		SaveLookups(b1.Hash(), 1),
	)
	assert.NoError(t, err)

	got, err := s.GetBlockByNumber(1)
	assert.NoError(t, err)
	assert.Equal(t, b1.Hash(), got.Hash())
}

func TestSetHashToNumberDoesNotAffectCanonical(t *testing.T) {
	s, genesis := newTestStore(t)
	b1, err := NewBlock(&Header{ParentHash: genesis.Hash(), Number: 1}, nil)
	assert.NoError(t, err)

	assert.NoError(t, s.Batch(SetHashToNumber(b1.Hash(), 1)))

	_, err = s.GetBlockByNumber(1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetAndGetTotalDifficulty(t *testing.T) {
	s, _ := newTestStore(t)

	b1, err := NewBlock(&Header{Number: 1}, nil)
	assert.NoError(t, err)
	td := big.NewInt(100)
	assert.NoError(t, s.Batch(SetTD(b1.Hash(), td)))

	got, err := s.GetTotalDifficulty(b1.Hash())
	assert.NoError(t, err)
	assert.Equal(t, 0, td.Cmp(got))
}

func TestUpdateFiresCallbackUnlessSkipped(t *testing.T) {
	s, _ := newTestStore(t)
	fired := 0
	s.OnUpdate(func() { fired++ })

	assert.NoError(t, s.Update(false))
	assert.Equal(t, 1, fired)

	assert.NoError(t, s.Update(true))
	assert.Equal(t, 1, fired)
}

func TestTransactionsRoundTrip(t *testing.T) {
	s, genesis := newTestStore(t)
	txs := []Transaction{{Hash: ids.ID{1}, Data: []byte("a")}, {Hash: ids.ID{2}, Data: []byte("b")}}
	b1, err := NewBlock(&Header{ParentHash: genesis.Hash(), Number: 1}, txs)
	assert.NoError(t, err)
	assert.NoError(t, s.PutBlocks([]*Block{b1}, false, false))

	got, err := s.GetBlockByHash(b1.Hash())
	assert.NoError(t, err)
	assert.Equal(t, txs, got.Transactions)
}
