package receipts

import (
	"errors"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/ava-labs/avalanchego/ids"
)

// ErrNotFound is returned when a receipt or tx-location lookup misses.
var ErrNotFound = errors.New("receipts: not found")

var (
	receiptPrefix = []byte("receipt")
	txIndexPrefix = []byte("txindex")
)

// Manager persists per-block receipt lists and a tx-hash -> (block hash,
// index) reverse index, mirroring the singletonDB/blockDB split in
// timestampvm/state.go: two prefixdb sub-databases sharing one base
// versiondb so a single Commit makes both indexes durable together.
type Manager struct {
	base       *versiondb.Database
	receiptsDB database.Database
	txIndexDB  database.Database
}

// NewManager builds a Manager on top of db. The Manager wraps db in its
// own versiondb, so its commits are separate from the blockchain store's
// batches even when both share one underlying database; receipts and
// block bodies are not written in a single atomic write.
func NewManager(db database.Database) *Manager {
	base := versiondb.New(db)
	return &Manager{
		base:       base,
		receiptsDB: prefixdb.New(receiptPrefix, base),
		txIndexDB:  prefixdb.New(txIndexPrefix, base),
	}
}

// SaveReceipts persists receipts for blockHash and indexes each
// transaction's hash to its (block hash, position) location, then commits
// the underlying versiondb. Unlike the fire-and-forget dispatch spec.md §9
// flags, SaveReceipts is synchronous: it returns only once both the
// receipt list and the reverse index are durable, so a caller that awaits
// it (as engine's head manager does) never advances a cursor past a block
// whose receipts might not survive a crash.
func (m *Manager) SaveReceipts(blockHash ids.ID, list []Receipt) error {
	defer m.base.Abort()

	encoded, err := Codec.Marshal(codecVersion, &receiptList{Receipts: list})
	if err != nil {
		return err
	}
	if err := m.receiptsDB.Put(blockHash[:], encoded); err != nil {
		return err
	}

	for i, r := range list {
		loc := &txLocation{BlockHash: blockHash, Index: uint32(i)}
		locBytes, err := Codec.Marshal(codecVersion, loc)
		if err != nil {
			return err
		}
		txHash := r.TxHash
		if err := m.txIndexDB.Put(txHash[:], locBytes); err != nil {
			return err
		}
	}

	return m.base.Commit()
}

// GetReceipts returns the receipt list stored for blockHash.
func (m *Manager) GetReceipts(blockHash ids.ID) ([]Receipt, error) {
	raw, err := m.receiptsDB.Get(blockHash[:])
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	list := &receiptList{}
	if _, err := Codec.Unmarshal(raw, list); err != nil {
		return nil, err
	}
	// The codec decodes a zero-length slice as empty rather than nil;
	// normalize so a nil Bloom/Logs round-trips as nil.
	for i := range list.Receipts {
		if len(list.Receipts[i].Bloom) == 0 {
			list.Receipts[i].Bloom = nil
		}
		if len(list.Receipts[i].Logs) == 0 {
			list.Receipts[i].Logs = nil
		}
	}
	return list.Receipts, nil
}

// GetTxReceipt resolves txHash to its receipt, the block it was included
// in, and its index within that block's receipt list, matching spec.md
// §6's getTxReceipt(txHash) -> (receipt, blockHash, index) contract.
func (m *Manager) GetTxReceipt(txHash ids.ID) (Receipt, ids.ID, uint32, error) {
	raw, err := m.txIndexDB.Get(txHash[:])
	if errors.Is(err, database.ErrNotFound) {
		return Receipt{}, ids.Empty, 0, ErrNotFound
	} else if err != nil {
		return Receipt{}, ids.Empty, 0, err
	}
	loc := &txLocation{}
	if _, err := Codec.Unmarshal(raw, loc); err != nil {
		return Receipt{}, ids.Empty, 0, err
	}

	list, err := m.GetReceipts(loc.BlockHash)
	if err != nil {
		return Receipt{}, ids.Empty, 0, err
	}
	if int(loc.Index) >= len(list) {
		return Receipt{}, ids.Empty, 0, ErrNotFound
	}
	return list[loc.Index], loc.BlockHash, loc.Index, nil
}

// Close releases the manager's underlying database handle.
func (m *Manager) Close() error {
	return m.base.Close()
}
