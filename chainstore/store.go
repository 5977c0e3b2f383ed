// Package chainstore implements the blockchain-store collaborator the
// execution engine treats as an external dependency: ordered blocks, a
// canonical head, and named iterator cursors.
package chainstore

import (
	"errors"
	"math/big"

	"github.com/ava-labs/avalanchego/codec"
	"github.com/ava-labs/avalanchego/codec/linearcodec"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

// CursorName identifies one of the store's persisted named cursors.
type CursorName string

const (
	CursorVM        CursorName = "vm"
	CursorSafe      CursorName = "safe"
	CursorFinalized CursorName = "finalized"
)

const codecVersion = 0

// Codec is registered once, at package init, exactly the way
// timestampvm/codec.go registers TimeBlock.
var Codec codec.Manager

func init() {
	c := linearcodec.NewDefault()
	Codec = codec.NewDefaultManager()
	errs := wrappers.Errs{}
	errs.Add(
		c.RegisterType(&Header{}),
		c.RegisterType(&txList{}),
		Codec.RegisterCodec(codecVersion, c),
	)
	if errs.Errored() {
		panic(errs.Err)
	}
}

// Header carries everything the engine needs about a block without
// touching the transaction payloads: the wire fields spec.md §3 names.
type Header struct {
	ParentHash    ids.ID   `serialize:"true"`
	Number        uint64   `serialize:"true"`
	StateRoot     ids.ID   `serialize:"true"`
	Timestamp     uint64   `serialize:"true"`
	Difficulty    []byte   `serialize:"true"` // big-endian big.Int bytes
	BaseFeePerGas []byte   `serialize:"true"` // nil/empty pre-London
}

func (h *Header) difficulty() *big.Int {
	if len(h.Difficulty) == 0 {
		return new(big.Int)
	}
	return new(big.Int).SetBytes(h.Difficulty)
}

func (h *Header) baseFee() *big.Int {
	if len(h.BaseFeePerGas) == 0 {
		return nil
	}
	return new(big.Int).SetBytes(h.BaseFeePerGas)
}

// SetDifficulty stores d in the header's wire representation.
func (h *Header) SetDifficulty(d *big.Int) {
	if d == nil {
		h.Difficulty = nil
		return
	}
	h.Difficulty = d.Bytes()
}

// SetBaseFee stores fee in the header's wire representation.
func (h *Header) SetBaseFee(fee *big.Int) {
	if fee == nil {
		h.BaseFeePerGas = nil
		return
	}
	h.BaseFeePerGas = fee.Bytes()
}

// Transaction is an opaque, already-decoded transaction handed to the VM.
// Transaction decoding itself is out of scope (spec.md §1).
type Transaction struct {
	Hash ids.ID `serialize:"true"`
	Data []byte `serialize:"true"`
}

// Block is an immutable, hash-identified record once accepted into the
// store (spec.md §3).
type Block struct {
	Header       *Header
	Transactions []Transaction

	hash ids.ID
	set  bool
}

// NewBlock builds and hashes a new block. The hash is computed once and
// memoized, matching the teacher's block-construction idiom in
// examples/timestampchain/vm/block.go (hashing.ComputeHash256Array over
// the marshaled bytes).
func NewBlock(header *Header, txs []Transaction) (*Block, error) {
	bytes, err := Codec.Marshal(codecVersion, header)
	if err != nil {
		return nil, err
	}
	return &Block{
		Header:       header,
		Transactions: txs,
		hash:         hashing.ComputeHash256Array(bytes),
		set:          true,
	}, nil
}

// Hash returns the block's identifying hash.
func (b *Block) Hash() ids.ID {
	if !b.set {
		bytes, err := Codec.Marshal(codecVersion, b.Header)
		if err != nil {
			// Header is a plain struct registered at init; a marshal
			// failure here means Header's shape changed incompatibly.
			panic(err)
		}
		b.hash = hashing.ComputeHash256Array(bytes)
		b.set = true
	}
	return b.hash
}

// Difficulty is a convenience accessor over the header's difficulty.
func (b *Block) Difficulty() *big.Int { return b.Header.difficulty() }

// BaseFeePerGas is a convenience accessor over the header's base fee.
func (b *Block) BaseFeePerGas() *big.Int { return b.Header.baseFee() }

// ErrNotFound is returned when a block, cursor, or total-difficulty
// lookup misses.
var ErrNotFound = errors.New("chainstore: not found")

// IterateCallback is invoked once per delivered block. reorg is true when
// the iterator had to rewind past a common ancestor to keep pace with a
// changed canonical chain (spec.md §4.2, §6).
type IterateCallback func(block *Block, reorg bool) error

// BatchOp is one composable write against the store's atomic batch,
// mirroring spec.md §6's SetTD / SetBlockOrHeader / SetHashToNumber /
// SaveLookups primitives.
type BatchOp interface {
	apply(s *Store) error
}

// Blockchain is the blockchain-store contract the engine consumes
// (spec.md §6, "Consumed -- Blockchain store"). It is a single abstract
// interface per spec.md §9's "dynamic capability probing -> static
// trait" REDESIGN FLAG: every method the engine needs is declared here,
// so a store that can't provide one is a compile error, not a runtime
// probe.
type Blockchain interface {
	GetBlockByHash(hash ids.ID) (*Block, error)
	GetBlockByNumber(number uint64) (*Block, error)
	CanonicalHead() (*Block, error)
	IteratorHead(name CursorName) (*Block, error)
	SetIteratorHead(name CursorName, hash ids.ID) error
	GetTotalDifficulty(hash ids.ID) (*big.Int, error)

	// Iterate delivers blocks in canonical order from the named cursor,
	// starting after its current position, until maxBlocks have been
	// delivered or the canonical head is reached. If releaseLock is true
	// the store's internal lock is released for the duration of each
	// callback invocation so other store operations may proceed
	// concurrently with block execution (spec.md §5).
	Iterate(name CursorName, cb IterateCallback, maxBlocks uint64, releaseLock bool) (int, error)

	PutBlocks(blocks []*Block, skipCanonicalCheck, suppressChainUpdatedEvent bool) error
	Batch(ops ...BatchOp) error
	Update(skipEmit bool) error
	Close() error
}
