package api

import (
	"net/http"

	"github.com/lattica-labs/execution-engine/chainstore"
	"github.com/lattica-labs/execution-engine/engine"
	"github.com/lattica-labs/execution-engine/receipts"
)

// Name is the JSON-RPC service name every method below is registered
// under, matching timestampvm's Name constant convention.
const Name = "ExecutionEngine"

// Service adapts an *engine.Engine to gorilla/rpc's
// func(*http.Request, *Args, *Reply) error method shape, mirroring
// examples/timestampchain/vm/service.go.
type Service struct {
	engine *engine.Engine
}

// NewService wraps eng for JSON-RPC dispatch.
func NewService(eng *engine.Engine) *Service {
	return &Service{engine: eng}
}

// NewPayload implements ExecutionEngine.newPayload, the wire form of
// runWithoutSetHead: execute (or accept pre-supplied receipts for) a
// block and stash its receipts without promoting the canonical cursor.
func (s *Service) NewPayload(r *http.Request, args *NewPayloadArgs, reply *NewPayloadReply) error {
	block, err := args.Block.toBlock()
	if err != nil {
		return err
	}
	var provided []receipts.Receipt
	if args.Receipts != nil {
		provided = make([]receipts.Receipt, len(args.Receipts))
		for i, rc := range args.Receipts {
			provided[i] = rc.toReceipt()
		}
	}
	accepted, err := s.engine.RunWithoutSetHead(r.Context(), block, provided, args.Blocking, args.SkipBlockchain)
	if err != nil {
		return err
	}
	reply.Accepted = accepted
	return nil
}

// ForkchoiceUpdated implements ExecutionEngine.forkchoiceUpdated, the
// wire form of setHead: promote the cursor to the last of the supplied
// blocks and, if present, the named safe/finalized pointers.
func (s *Service) ForkchoiceUpdated(r *http.Request, args *ForkchoiceUpdatedArgs, reply *ForkchoiceUpdatedReply) error {
	blocks := make([]*chainstore.Block, len(args.Blocks))
	for i, b := range args.Blocks {
		block, err := b.toBlock()
		if err != nil {
			return err
		}
		blocks[i] = block
	}

	var finalized, safe *chainstore.Block
	if args.Finalized != nil {
		block, err := args.Finalized.toBlock()
		if err != nil {
			return err
		}
		finalized = block
	}
	if args.Safe != nil {
		block, err := args.Safe.toBlock()
		if err != nil {
			return err
		}
		safe = block
	}

	if err := s.engine.SetHead(r.Context(), blocks, finalized, safe); err != nil {
		return err
	}
	if len(blocks) > 0 {
		reply.VMHead = blocks[len(blocks)-1].Hash()
	}
	return nil
}

// GetReceipts implements ExecutionEngine.getReceipts.
func (s *Service) GetReceipts(r *http.Request, args *GetReceiptsArgs, reply *GetReceiptsReply) error {
	list, err := s.engine.GetReceipts(args.BlockHash)
	if err != nil {
		return err
	}
	out := make([]ReceiptArgs, len(list))
	for i, rc := range list {
		out[i] = receiptToArgs(rc)
	}
	reply.Receipts = out
	return nil
}

// GetTxReceipt implements ExecutionEngine.getTxReceipt.
func (s *Service) GetTxReceipt(r *http.Request, args *GetTxReceiptArgs, reply *GetTxReceiptReply) error {
	rc, blockHash, index, err := s.engine.GetTxReceipt(args.TxHash)
	if err != nil {
		return err
	}
	reply.Receipt = receiptToArgs(rc)
	reply.BlockHash = blockHash
	reply.Index = index
	return nil
}
