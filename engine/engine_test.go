package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lattica-labs/execution-engine/internal/testutil"
)

func newTestEngine(t *testing.T) (*Engine, *testutil.Chain) {
	t.Helper()
	chain := testutil.NewChain(t)
	e := New(chain.Store, chain.Backend, chain.Receipts, chain.ChainConfig, chain.Events, chain.Metrics, Config{
		NumBlocksPerIteration: 4,
		StatsInterval:         time.Hour,
	})
	return e, chain
}

func TestOpenInitializesGenesisState(t *testing.T) {
	e, chain := newTestEngine(t)
	alreadyOpen, err := e.Open(context.Background())
	require.NoError(t, err)
	require.False(t, alreadyOpen)
	require.Equal(t, "genesis", e.Hardfork())
	require.True(t, chain.Backend.StateManager().HasStateRoot(chain.Genesis.Header.StateRoot))
}

func TestOpenTwiceReturnsAlreadyOpen(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	_, err := e.Open(ctx)
	require.NoError(t, err)

	alreadyOpen, err := e.Open(ctx)
	require.NoError(t, err)
	require.True(t, alreadyOpen)
}

func TestStartTwiceIsANoOp(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	_, err := e.Open(ctx)
	require.NoError(t, err)

	require.NoError(t, e.Start(ctx))
	require.NoError(t, e.Start(ctx))
	require.True(t, e.isStarted())
}

func TestStopClosesStoreAndClearsStarted(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	_, err := e.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, e.Start(ctx))

	require.NoError(t, e.Stop(ctx))
	require.False(t, e.isStarted())
}
