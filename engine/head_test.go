package engine

import (
	"context"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/stretchr/testify/require"

	"github.com/lattica-labs/execution-engine/chainstore"
	"github.com/lattica-labs/execution-engine/internal/testutil"
)

func newHeadTestEngine(t *testing.T) (*Engine, *testutil.Chain) {
	t.Helper()
	chain := testutil.NewChain(t)
	e := New(chain.Store, chain.Backend, chain.Receipts, chain.ChainConfig, chain.Events, chain.Metrics, Config{
		NumBlocksPerIteration: 8,
		StatsInterval:         time.Hour,
	})
	ctx := context.Background()
	_, err := e.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, e.Start(ctx))
	return e, chain
}

func TestRunWithoutSetHeadStagesReceiptsAndSkipsCanonical(t *testing.T) {
	e, chain := newHeadTestEngine(t)
	ctx := context.Background()

	b1, err := chainstore.NewBlock(&chainstore.Header{ParentHash: chain.Genesis.Hash(), Number: 1}, nil)
	require.NoError(t, err)

	ok, err := e.RunWithoutSetHead(ctx, b1, nil, true, false)
	require.NoError(t, err)
	require.True(t, ok)

	e.pendingMu.Lock()
	_, staged := e.pendingReceipts[b1.Hash()]
	e.pendingMu.Unlock()
	require.True(t, staged)

	_, err = chain.Store.GetBlockByNumber(1)
	require.ErrorIs(t, err, chainstore.ErrNotFound)

	byHash, err := chain.Store.GetBlockByHash(b1.Hash())
	require.NoError(t, err)
	require.Equal(t, b1.Hash(), byHash.Hash())
}

func TestRunWithoutSetHeadNonBlockingReturnsFalseWhenGateHeld(t *testing.T) {
	e, chain := newHeadTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.gate.acquire(ctx))
	defer e.gate.release()

	b1, err := chainstore.NewBlock(&chainstore.Header{ParentHash: chain.Genesis.Hash(), Number: 1}, nil)
	require.NoError(t, err)

	ok, err := e.RunWithoutSetHead(ctx, b1, nil, false, false)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetHeadPromotesAndDrainsPendingReceipts(t *testing.T) {
	e, chain := newHeadTestEngine(t)
	ctx := context.Background()

	pending, err := chainstore.NewBlock(&chainstore.Header{ParentHash: chain.Genesis.Hash(), Number: 1}, nil)
	require.NoError(t, err)

	ok, err := e.RunWithoutSetHead(ctx, pending, nil, true, false)
	require.NoError(t, err)
	require.True(t, ok)

	vmHead, err := chain.Store.IteratorHead(chainstore.CursorVM)
	require.NoError(t, err)
	require.Equal(t, chain.Genesis.Hash(), vmHead.Hash())

	require.NoError(t, e.SetHead(ctx, []*chainstore.Block{pending}, nil, nil))

	vmHead, err = chain.Store.IteratorHead(chainstore.CursorVM)
	require.NoError(t, err)
	require.Equal(t, pending.Hash(), vmHead.Hash())

	e.pendingMu.Lock()
	_, staged := e.pendingReceipts[pending.Hash()]
	e.pendingMu.Unlock()
	require.False(t, staged)

	_, err = e.GetReceipts(pending.Hash())
	require.NoError(t, err)
}

func TestSetHeadFailsWhenVMHeadStateRootMissing(t *testing.T) {
	e, chain := newHeadTestEngine(t)

	badBlock, err := chainstore.NewBlock(&chainstore.Header{
		ParentHash: chain.Genesis.Hash(),
		Number:     1,
		StateRoot:  ids.ID{9, 9, 9},
	}, nil)
	require.NoError(t, err)

	err = e.SetHead(context.Background(), []*chainstore.Block{badBlock}, nil, nil)
	_, isMissing := AsMissingStateRootError(err)
	require.True(t, isMissing)
}
