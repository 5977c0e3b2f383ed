// Package api exposes the engine's runWithoutSetHead/setHead head-manager
// split as an engine-API-shaped JSON-RPC service, the external consensus
// client's view of the pipeline (spec.md §6). It mirrors the
// service.go/handlers.go/client.go split in
// examples/timestampchain/vm.
package api

import (
	"github.com/ava-labs/avalanchego/ids"

	"github.com/lattica-labs/execution-engine/chainstore"
	"github.com/lattica-labs/execution-engine/receipts"
)

// TxArgs is the wire shape of a single already-decoded transaction.
type TxArgs struct {
	Hash ids.ID `json:"hash"`
	Data []byte `json:"data"`
}

// BlockArgs is the wire shape of a block payload delivered by the
// consensus client. Number/StateRoot/Timestamp mirror chainstore.Header
// directly; Difficulty/BaseFeePerGas travel as big-endian bytes exactly
// as chainstore.Header stores them.
type BlockArgs struct {
	ParentHash    ids.ID   `json:"parentHash"`
	Number        uint64   `json:"number"`
	StateRoot     ids.ID   `json:"stateRoot"`
	Timestamp     uint64   `json:"timestamp"`
	Difficulty    []byte   `json:"difficulty"`
	BaseFeePerGas []byte   `json:"baseFeePerGas"`
	Transactions  []TxArgs `json:"transactions"`
}

func (b *BlockArgs) toBlock() (*chainstore.Block, error) {
	header := &chainstore.Header{
		ParentHash:    b.ParentHash,
		Number:        b.Number,
		StateRoot:     b.StateRoot,
		Timestamp:     b.Timestamp,
		Difficulty:    b.Difficulty,
		BaseFeePerGas: b.BaseFeePerGas,
	}
	txs := make([]chainstore.Transaction, len(b.Transactions))
	for i, t := range b.Transactions {
		txs[i] = chainstore.Transaction{Hash: t.Hash, Data: t.Data}
	}
	return chainstore.NewBlock(header, txs)
}

// ReceiptArgs is the wire shape of a pre-computed receipt, used when a
// caller supplies receipts up front rather than asking the engine to
// execute the block (spec.md §4.6's "receipts?" parameter).
type ReceiptArgs struct {
	TxHash            ids.ID          `json:"txHash"`
	Status            uint64          `json:"status"`
	CumulativeGasUsed uint64          `json:"cumulativeGasUsed"`
	GasUsed           uint64          `json:"gasUsed"`
	Bloom             []byte          `json:"bloom"`
	Logs              []receipts.Log  `json:"logs"`
	ContractAddress   ids.ShortID     `json:"contractAddress"`
}

func (r ReceiptArgs) toReceipt() receipts.Receipt {
	return receipts.Receipt{
		TxHash:            r.TxHash,
		Status:            r.Status,
		CumulativeGasUsed: r.CumulativeGasUsed,
		GasUsed:           r.GasUsed,
		Bloom:             r.Bloom,
		Logs:              r.Logs,
		ContractAddress:   r.ContractAddress,
	}
}

func receiptToArgs(r receipts.Receipt) ReceiptArgs {
	return ReceiptArgs{
		TxHash:            r.TxHash,
		Status:            r.Status,
		CumulativeGasUsed: r.CumulativeGasUsed,
		GasUsed:           r.GasUsed,
		Bloom:             r.Bloom,
		Logs:              r.Logs,
		ContractAddress:   r.ContractAddress,
	}
}

// NewPayloadArgs is the request shape for ExecutionEngine.newPayload.
type NewPayloadArgs struct {
	Block           BlockArgs     `json:"block"`
	Receipts        []ReceiptArgs `json:"receipts,omitempty"`
	Blocking        bool          `json:"blocking"`
	SkipBlockchain  bool          `json:"skipBlockchain"`
}

// NewPayloadReply is the response shape for ExecutionEngine.newPayload.
type NewPayloadReply struct {
	Accepted bool `json:"accepted"`
}

// ForkchoiceUpdatedArgs is the request shape for
// ExecutionEngine.forkchoiceUpdated.
type ForkchoiceUpdatedArgs struct {
	Blocks    []BlockArgs `json:"blocks"`
	Safe      *BlockArgs  `json:"safe,omitempty"`
	Finalized *BlockArgs  `json:"finalized,omitempty"`
}

// ForkchoiceUpdatedReply is the response shape for
// ExecutionEngine.forkchoiceUpdated.
type ForkchoiceUpdatedReply struct {
	VMHead ids.ID `json:"vmHead"`
}

// GetReceiptsArgs is the request shape for ExecutionEngine.getReceipts.
type GetReceiptsArgs struct {
	BlockHash ids.ID `json:"blockHash"`
}

// GetReceiptsReply is the response shape for ExecutionEngine.getReceipts.
type GetReceiptsReply struct {
	Receipts []ReceiptArgs `json:"receipts"`
}

// GetTxReceiptArgs is the request shape for ExecutionEngine.getTxReceipt.
type GetTxReceiptArgs struct {
	TxHash ids.ID `json:"txHash"`
}

// GetTxReceiptReply is the response shape for
// ExecutionEngine.getTxReceipt.
type GetTxReceiptReply struct {
	Receipt   ReceiptArgs `json:"receipt"`
	BlockHash ids.ID      `json:"blockHash"`
	Index     uint32      `json:"index"`
}
