package chainstore

import (
	"encoding/binary"
	"math/big"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

type setTDOp struct {
	hash ids.ID
	td   *big.Int
}

// SetTD records the total difficulty of the block identified by hash.
func SetTD(hash ids.ID, td *big.Int) BatchOp { return &setTDOp{hash: hash, td: td} }

func (op *setTDOp) apply(s *Store) error {
	return s.tdIndex.Put(op.hash[:], op.td.Bytes())
}

type setBlockOrHeaderOp struct {
	block *Block
}

// SetBlockOrHeader persists the block's encoded body and header.
func SetBlockOrHeader(block *Block) BatchOp { return &setBlockOrHeaderOp{block: block} }

func (op *setBlockOrHeaderOp) apply(s *Store) error {
	return s.putBlockBody(op.block)
}

type setHashToNumberOp struct {
	hash   ids.ID
	number uint64
}

// SetHashToNumber records the hash -> number index entry. This does NOT
// touch the canonical number -> hash mapping; that belongs to
// SaveLookups / PutBlocks (spec.md §4.6).
func SetHashToNumber(hash ids.ID, number uint64) BatchOp {
	return &setHashToNumberOp{hash: hash, number: number}
}

func (op *setHashToNumberOp) apply(s *Store) error {
	numberBytes := make([]byte, wrappers.LongLen)
	binary.BigEndian.PutUint64(numberBytes, op.number)
	return s.hashToNumber.Put(op.hash[:], numberBytes)
}

type saveLookupsOp struct {
	hash   ids.ID
	number uint64
}

// SaveLookups establishes the canonical number -> hash mapping for a
// block that is already known to be canonical.
func SaveLookups(hash ids.ID, number uint64) BatchOp {
	return &saveLookupsOp{hash: hash, number: number}
}

func (op *saveLookupsOp) apply(s *Store) error {
	return s.putCanonical(op.number, op.hash)
}

// Batch applies ops as a single atomic unit, matching the teacher's
// versiondb.Abort()-deferred / Commit()-on-success idiom in
// examples/timestampchain/vm/vm.go's Accept method.
func (s *Store) Batch(ops ...BatchOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer s.vDB.Abort()
	for _, op := range ops {
		if err := op.apply(s); err != nil {
			return err
		}
	}
	return s.vDB.Commit()
}
