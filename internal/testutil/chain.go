// Package testutil builds the small collaborator graph the engine and
// api packages each need in their tests: an
// in-memory store seeded with a genesis block, a deterministic VM stub,
// and a chain config with a trivial single-fork table. Kept internal
// since none of it is meant to be a public testing API.
package testutil

import (
	"math/big"
	"testing"

	"github.com/ava-labs/avalanchego/database/manager"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/version"
	"github.com/stretchr/testify/require"

	"github.com/lattica-labs/execution-engine/chainconfig"
	"github.com/lattica-labs/execution-engine/chainstore"
	"github.com/lattica-labs/execution-engine/events"
	"github.com/lattica-labs/execution-engine/forks"
	"github.com/lattica-labs/execution-engine/metrics"
	"github.com/lattica-labs/execution-engine/receipts"
	"github.com/lattica-labs/execution-engine/vm"

	"github.com/prometheus/client_golang/prometheus"
)

// Chain bundles a fresh test chain and its collaborators.
type Chain struct {
	Store       *chainstore.Store
	Genesis     *chainstore.Block
	Backend     *vm.Stub
	ChainConfig *chainconfig.ChainConfig
	Receipts    *receipts.Manager
	Events      *events.Bus
	Metrics     *metrics.Metrics
}

// NewChain builds a genesis-seeded store, a Stub VM whose only known root
// is the genesis state root, a single-hardfork chain config, and fresh
// receipts/events/metrics collaborators -- everything New(engine) needs.
func NewChain(t *testing.T) *Chain {
	t.Helper()

	genesis, err := chainstore.NewBlock(&chainstore.Header{Number: 0}, nil)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()

	dbManager := manager.NewMemDB(version.DefaultVersion1_0_0)
	store, err := chainstore.New(dbManager.Current().Database, genesis, registry)
	require.NoError(t, err)

	backend := vm.NewStub(genesis.Header.StateRoot)

	table := forks.NewTable("genesis", forks.Activation{Name: "genesis", Consensus: forks.ConsensusPoW})
	cfg := chainconfig.New(table, &chainconfig.Genesis{StateRoot: genesis.Header.StateRoot})

	receiptsDB := manager.NewMemDB(version.DefaultVersion1_0_0).Current().Database
	receiptsMgr := receipts.NewManager(receiptsDB)

	m, err := metrics.New(registry)
	require.NoError(t, err)

	return &Chain{
		Store:       store,
		Genesis:     genesis,
		Backend:     backend,
		ChainConfig: cfg,
		Receipts:    receiptsMgr,
		Events:      events.NewBus(),
		Metrics:     m,
	}
}

// AppendBlock builds a block on top of parent, sets its total difficulty
// to parent's TD plus 1, and appends it to the store as a canonical
// block -- the shape most engine tests need without caring about
// consensus difficulty math.
func (c *Chain) AppendBlock(t *testing.T, parent *chainstore.Block, number uint64, stateRoot ids.ID) *chainstore.Block {
	t.Helper()

	b, err := chainstore.NewBlock(&chainstore.Header{
		ParentHash: parent.Hash(),
		Number:     number,
		StateRoot:  stateRoot,
		Timestamp:  number,
	}, nil)
	require.NoError(t, err)

	parentTD, err := c.Store.GetTotalDifficulty(parent.Hash())
	require.NoError(t, err)
	td := new(big.Int).Add(parentTD, big.NewInt(1))

	require.NoError(t, c.Store.Batch(chainstore.SetTD(b.Hash(), td)))
	require.NoError(t, c.Store.PutBlocks([]*chainstore.Block{b}, false, false))
	return b
}
