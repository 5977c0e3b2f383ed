// Package chainconfig bundles the hardfork activation table with the
// genesis definition an execution client needs to materialize its
// initial canonical state (spec.md §4.7's genesis-state materialization,
// supplemented here because every real execution client carries this
// even though the core spec treats it as a one-line detail of open()).
package chainconfig

import (
	"math/big"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/lattica-labs/execution-engine/forks"
)

// Genesis describes the genesis block's state root and initial account
// balances: enough for a StateManager to materialize canonical genesis
// state without the engine needing to know how balances are encoded.
type Genesis struct {
	StateRoot     ids.ID
	Timestamp     uint64
	Difficulty    *big.Int
	InitialBalances map[ids.ShortID]*big.Int
}

// ChainConfig is the "Common" collaborator spec.md §6 names: the
// hardfork table plus genesis, everything hardforkFor/setHardforkFor/
// consensusType/gteHardfork and Engine.Open's genesis bootstrap need.
type ChainConfig struct {
	Forks   *forks.Table
	Genesis *Genesis
}

// New builds a ChainConfig from an already-constructed activation table
// and genesis definition.
func New(table *forks.Table, genesis *Genesis) *ChainConfig {
	return &ChainConfig{Forks: table, Genesis: genesis}
}

// HardforkFor is the pure lookup spec.md §6 names, delegated to the
// activation table.
func (c *ChainConfig) HardforkFor(blockNumber uint64, td *big.Int, timestamp uint64) string {
	return c.Forks.HardforkFor(blockNumber, td, timestamp)
}

// ConsensusType returns the consensus type in effect for the named
// hardfork.
func (c *ChainConfig) ConsensusType(hardfork string) forks.ConsensusType {
	return c.Forks.ConsensusTypeFor(hardfork)
}

// GteHardfork reports whether current is at or past threshold in this
// config's activation order.
func (c *ChainConfig) GteHardfork(current, threshold string) bool {
	return c.Forks.GteHardfork(current, threshold)
}
