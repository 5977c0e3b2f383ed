package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/lattica-labs/execution-engine/chainstore"
	"github.com/lattica-labs/execution-engine/internal/testutil"
)

// markStarted flips the engine's started flag directly, bypassing
// Start's async catch-up goroutine so Run can be driven deterministically
// from the test itself.
func markStarted(e *Engine) { atomic.StoreInt32(&e.started, 1) }

func TestRunExecutesToCanonicalHead(t *testing.T) {
	chain := testutil.NewChain(t)
	e := New(chain.Store, chain.Backend, chain.Receipts, chain.ChainConfig, chain.Events, chain.Metrics, Config{
		NumBlocksPerIteration: 8,
		StatsInterval:         time.Hour,
	})
	ctx := context.Background()
	_, err := e.Open(ctx)
	require.NoError(t, err)
	markStarted(e)

	b1 := chain.AppendBlock(t, chain.Genesis, 1, ids.ID{})
	b2 := chain.AppendBlock(t, b1, 2, ids.ID{})
	b3 := chain.AppendBlock(t, b2, 3, ids.ID{})

	n, err := e.Run(ctx, false, false)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	vmHead, err := chain.Store.IteratorHead(chainstore.CursorVM)
	require.NoError(t, err)
	require.Equal(t, b3.Hash(), vmHead.Hash())

	_, err = e.GetReceipts(b1.Hash())
	require.NoError(t, err)
}

func TestRunStopsWhenNotStarted(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Open(context.Background())
	require.NoError(t, err)

	_, err = e.Run(context.Background(), false, false)
	require.ErrorIs(t, err, ErrNotStarted)
}

func TestRunRespectsOnlyBatchedGap(t *testing.T) {
	chain := testutil.NewChain(t)
	e := New(chain.Store, chain.Backend, chain.Receipts, chain.ChainConfig, chain.Events, chain.Metrics, Config{
		NumBlocksPerIteration: 4,
		StatsInterval:         time.Hour,
	})
	ctx := context.Background()
	_, err := e.Open(ctx)
	require.NoError(t, err)
	markStarted(e)

	b1 := chain.AppendBlock(t, chain.Genesis, 1, ids.ID{})

	n, err := e.Run(ctx, true, true)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	vmHead, err := chain.Store.IteratorHead(chainstore.CursorVM)
	require.NoError(t, err)
	require.Equal(t, chain.Genesis.Hash(), vmHead.Hash())
	_ = b1
}
