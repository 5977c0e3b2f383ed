// Package forks implements the "Common" collaborator's hardfork table
// (spec.md §3, §6): deriving the active protocol ruleset from
// (blockNumber, totalDifficulty, timestamp) via an ordered activation
// table, in the spirit of avalanchego/version's semantic-version compare
// idiom the teacher imports for peer/application version negotiation.
package forks

import "math/big"

// ConsensusType names the consensus mechanism a hardfork activates under
// (spec.md §6's consensusType() -> {PoW, PoA, PoS}).
type ConsensusType string

const (
	ConsensusPoW ConsensusType = "PoW"
	ConsensusPoA ConsensusType = "PoA"
	ConsensusPoS ConsensusType = "PoS"
)

// Activation is one row of the ordered table: the hardfork named Name
// takes effect once a block satisfies all of the non-zero thresholds
// below. A zero BlockNumber/TD/Timestamp means "no constraint on this
// axis" -- most real activation schedules gate on exactly one axis.
type Activation struct {
	Name          string
	BlockNumber   uint64
	TotalDiff     *big.Int
	Timestamp     uint64
	Consensus     ConsensusType
}

// Table is an ordered, ascending-activation-order hardfork schedule. The
// zero Table has no forks and always answers the table's designated
// "pre-fork" name.
type Table struct {
	preForkName string
	activations []Activation
}

// NewTable builds a Table. preForkName is returned by HardforkFor for any
// block that activates none of activations. activations need not be
// pre-sorted; NewTable orders them ascending by BlockNumber so table
// construction reads naturally top-to-bottom in genesis configs. An
// activation with no BlockNumber threshold but a TotalDiff or Timestamp
// threshold sorts after every block-number-gated one; the sort is stable.
func NewTable(preForkName string, activations ...Activation) *Table {
	key := func(a Activation) uint64 {
		if a.BlockNumber == 0 && ((a.TotalDiff != nil && a.TotalDiff.Sign() != 0) || a.Timestamp != 0) {
			return ^uint64(0)
		}
		return a.BlockNumber
	}
	sorted := make([]Activation, len(activations))
	copy(sorted, activations)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && key(sorted[j]) < key(sorted[j-1]); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return &Table{preForkName: preForkName, activations: sorted}
}

// HardforkFor is the pure lookup spec.md §6 names: hardforkFor(blockNumber,
// td, timestamp) -> string. It returns the name of the last activation in
// the table whose thresholds are all satisfied, or preForkName if none
// are.
func (t *Table) HardforkFor(blockNumber uint64, td *big.Int, timestamp uint64) string {
	name := t.preForkName
	for _, a := range t.activations {
		if !activationSatisfied(a, blockNumber, td, timestamp) {
			continue
		}
		name = a.Name
	}
	return name
}

func activationSatisfied(a Activation, blockNumber uint64, td *big.Int, timestamp uint64) bool {
	if a.BlockNumber != 0 && blockNumber < a.BlockNumber {
		return false
	}
	if a.TotalDiff != nil && a.TotalDiff.Sign() != 0 {
		if td == nil || td.Cmp(a.TotalDiff) < 0 {
			return false
		}
	}
	if a.Timestamp != 0 && timestamp < a.Timestamp {
		return false
	}
	return true
}

// ConsensusTypeFor returns the consensus type in effect for name, or
// ConsensusPoW if name activates no explicit consensus change (matching a
// pre-Merge default).
func (t *Table) ConsensusTypeFor(name string) ConsensusType {
	for _, a := range t.activations {
		if a.Name == name && a.Consensus != "" {
			return a.Consensus
		}
	}
	return ConsensusPoW
}

// GteHardfork reports whether the hardfork named current is at or past
// the hardfork named threshold in this table's activation order,
// matching spec.md §6's gteHardfork(name) -> bool. Both current and
// threshold are looked up by name; the table's preForkName ranks below
// every activation, and an unknown name ranks below preForkName.
func (t *Table) GteHardfork(current, threshold string) bool {
	return t.rank(current) >= t.rank(threshold)
}

func (t *Table) rank(name string) int {
	if name == t.preForkName {
		return 0
	}
	for i, a := range t.activations {
		if a.Name == name {
			return i + 1
		}
	}
	return -1
}
