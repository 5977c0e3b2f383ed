package chainconfig

import (
	"math/big"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/lattica-labs/execution-engine/forks"
	"github.com/stretchr/testify/assert"
)

func testConfig() *ChainConfig {
	table := forks.NewTable("frontier",
		forks.Activation{Name: "byzantium", BlockNumber: 5},
	)
	genesis := &Genesis{
		StateRoot: ids.ID{1},
		InitialBalances: map[ids.ShortID]*big.Int{
			{1}: big.NewInt(1_000_000),
		},
	}
	return New(table, genesis)
}

func TestChainConfigDelegatesToTable(t *testing.T) {
	c := testConfig()
	assert.Equal(t, "frontier", c.HardforkFor(0, big.NewInt(0), 0))
	assert.Equal(t, "byzantium", c.HardforkFor(5, big.NewInt(0), 0))
	assert.True(t, c.GteHardfork("byzantium", "frontier"))
	assert.Equal(t, forks.ConsensusPoW, c.ConsensusType("byzantium"))
}

func TestGenesisCarriesInitialBalances(t *testing.T) {
	c := testConfig()
	bal, ok := c.Genesis.InitialBalances[ids.ShortID{1}]
	assert.True(t, ok)
	assert.Equal(t, 0, big.NewInt(1_000_000).Cmp(bal))
	assert.Equal(t, ids.ID{1}, c.Genesis.StateRoot)
}
