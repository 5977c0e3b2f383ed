package engine

import (
	"context"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/stretchr/testify/require"

	"github.com/lattica-labs/execution-engine/chainstore"
	"github.com/lattica-labs/execution-engine/internal/testutil"
	"github.com/lattica-labs/execution-engine/vm"
)

func TestBackstepRewindsToCandidateParentWhenCandidateRootPresent(t *testing.T) {
	chain := testutil.NewChain(t)
	e := New(chain.Store, chain.Backend, chain.Receipts, chain.ChainConfig, chain.Events, chain.Metrics, Config{
		NumBlocksPerIteration: 8,
		StatsInterval:         time.Hour,
	})
	_, err := e.Open(context.Background())
	require.NoError(t, err)

	// Actually execute a block so its resulting root is genuinely known
	// to the backend, then persist a block declaring that root -- this
	// is the "candidate" backstep should be able to rewind past.
	pending, err := chainstore.NewBlock(&chainstore.Header{ParentHash: chain.Genesis.Hash(), Number: 1}, nil)
	require.NoError(t, err)
	result, err := chain.Backend.RunBlock(context.Background(), pending, chain.Genesis.Header.StateRoot, vm.RunFlags{})
	require.NoError(t, err)
	candidate := chain.AppendBlock(t, chain.Genesis, 1, result.StateRoot)

	cause := &MissingStateRootError{Root: ids.ID{99}, BlockHash: ids.ID{7}, BlockNumber: 2}
	st := &perBlockState{headBlock: candidate, parentState: chain.Genesis.Header.StateRoot}

	e.backstep(cause, st)

	vmHead, err := chain.Store.IteratorHead(chainstore.CursorVM)
	require.NoError(t, err)
	require.Equal(t, candidate.Header.ParentHash, vmHead.Hash())
	require.Equal(t, chain.Genesis.Hash(), vmHead.Hash())
}

func TestBackstepLeavesCursorWhenCandidateRootAbsent(t *testing.T) {
	chain := testutil.NewChain(t)
	e := New(chain.Store, chain.Backend, chain.Receipts, chain.ChainConfig, chain.Events, chain.Metrics, Config{
		NumBlocksPerIteration: 8,
		StatsInterval:         time.Hour,
	})
	_, err := e.Open(context.Background())
	require.NoError(t, err)

	before, err := chain.Store.IteratorHead(chainstore.CursorVM)
	require.NoError(t, err)

	unknownStateCandidate, err := chainstore.NewBlock(&chainstore.Header{
		ParentHash: chain.Genesis.Hash(),
		Number:     1,
		StateRoot:  ids.ID{123}, // never produced or seeded in the Stub
	}, nil)
	require.NoError(t, err)

	cause := &MissingStateRootError{Root: ids.ID{99}, BlockHash: ids.ID{8}, BlockNumber: 2}
	st := &perBlockState{headBlock: unknownStateCandidate, parentState: chain.Genesis.Header.StateRoot}

	e.backstep(cause, st)

	after, err := chain.Store.IteratorHead(chainstore.CursorVM)
	require.NoError(t, err)
	require.Equal(t, before.Hash(), after.Hash())
}

func TestBackstepWithNoCandidateLogsAndDoesNotPanic(t *testing.T) {
	chain := testutil.NewChain(t)
	e := New(chain.Store, chain.Backend, chain.Receipts, chain.ChainConfig, chain.Events, chain.Metrics, Config{})
	_, err := e.Open(context.Background())
	require.NoError(t, err)

	cause := &MissingStateRootError{Root: ids.ID{1}, BlockHash: ids.ID{2}, BlockNumber: 5}
	require.NotPanics(t, func() { e.backstep(cause, &perBlockState{}) })
}
