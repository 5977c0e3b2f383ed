package api

import (
	"context"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/rpc"

	"github.com/lattica-labs/execution-engine/receipts"
)

// Client defines the execution engine's external consensus-client
// operations, mirroring examples/timestampchain/vm.Client's shape:
// one method per JSON-RPC call, ids/domain types in and out rather than
// the wire Args/Reply structs.
type Client interface {
	NewPayload(ctx context.Context, block BlockArgs, blocking, skipBlockchain bool) (bool, error)
	ForkchoiceUpdated(ctx context.Context, blocks []BlockArgs, safe, finalized *BlockArgs) (ids.ID, error)
	GetReceipts(ctx context.Context, blockHash ids.ID) ([]receipts.Receipt, error)
	GetTxReceipt(ctx context.Context, txHash ids.ID) (receipts.Receipt, ids.ID, uint32, error)
}

// NewClient creates a new client object, exactly the way
// examples/timestampchain/vm.NewClient wraps rpc.NewEndpointRequester.
func NewClient(uri string) Client {
	req := rpc.NewEndpointRequester(uri, "", Name)
	return &client{req: req}
}

type client struct {
	req rpc.EndpointRequester
}

func (c *client) NewPayload(ctx context.Context, block BlockArgs, blocking, skipBlockchain bool) (bool, error) {
	reply := &NewPayloadReply{}
	err := c.req.SendRequest(ctx,
		"newPayload",
		&NewPayloadArgs{Block: block, Blocking: blocking, SkipBlockchain: skipBlockchain},
		reply,
	)
	return reply.Accepted, err
}

func (c *client) ForkchoiceUpdated(ctx context.Context, blocks []BlockArgs, safe, finalized *BlockArgs) (ids.ID, error) {
	reply := &ForkchoiceUpdatedReply{}
	err := c.req.SendRequest(ctx,
		"forkchoiceUpdated",
		&ForkchoiceUpdatedArgs{Blocks: blocks, Safe: safe, Finalized: finalized},
		reply,
	)
	return reply.VMHead, err
}

func (c *client) GetReceipts(ctx context.Context, blockHash ids.ID) ([]receipts.Receipt, error) {
	reply := &GetReceiptsReply{}
	err := c.req.SendRequest(ctx,
		"getReceipts",
		&GetReceiptsArgs{BlockHash: blockHash},
		reply,
	)
	if err != nil {
		return nil, err
	}
	list := make([]receipts.Receipt, len(reply.Receipts))
	for i, rc := range reply.Receipts {
		list[i] = rc.toReceipt()
	}
	return list, nil
}

func (c *client) GetTxReceipt(ctx context.Context, txHash ids.ID) (receipts.Receipt, ids.ID, uint32, error) {
	reply := &GetTxReceiptReply{}
	err := c.req.SendRequest(ctx,
		"getTxReceipt",
		&GetTxReceiptArgs{TxHash: txHash},
		reply,
	)
	if err != nil {
		return receipts.Receipt{}, ids.Empty, 0, err
	}
	return reply.Receipt.toReceipt(), reply.BlockHash, reply.Index, nil
}
