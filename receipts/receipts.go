// Package receipts implements the receipts index the execution engine
// treats as an external collaborator: per-block receipt persistence and
// the tx-hash reverse index (spec.md §3, §6).
package receipts

import (
	"github.com/ava-labs/avalanchego/codec"
	"github.com/ava-labs/avalanchego/codec/linearcodec"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

const codecVersion = 0

// Codec is registered once at package init, mirroring
// timestampvm/codec.go's registration of TimeBlock.
var Codec codec.Manager

func init() {
	c := linearcodec.NewDefault()
	Codec = codec.NewDefaultManager()
	errs := wrappers.Errs{}
	errs.Add(
		c.RegisterType(&Log{}),
		c.RegisterType(&Receipt{}),
		c.RegisterType(&receiptList{}),
		c.RegisterType(&txLocation{}),
		Codec.RegisterCodec(codecVersion, c),
	)
	if errs.Errored() {
		panic(errs.Err)
	}
}

// Log is a single event emitted by a transaction. Its fields are opaque
// to the engine; log filtering and topic semantics are the VM's concern
// (spec.md §1).
type Log struct {
	Address ids.ShortID `serialize:"true"`
	Topics  []ids.ID    `serialize:"true"`
	Data    []byte      `serialize:"true"`
}

// Receipt is the per-transaction outcome spec.md §3 names: status,
// cumulative gas, logs, bloom.
type Receipt struct {
	TxHash            ids.ID   `serialize:"true"`
	Status            uint64   `serialize:"true"`
	CumulativeGasUsed uint64   `serialize:"true"`
	GasUsed           uint64   `serialize:"true"`
	Bloom             []byte   `serialize:"true"`
	Logs              []Log    `serialize:"true"`
	ContractAddress   ids.ShortID `serialize:"true"`
}

type receiptList struct {
	Receipts []Receipt `serialize:"true"`
}

// txLocation is the reverse index entry a tx hash resolves to.
type txLocation struct {
	BlockHash ids.ID `serialize:"true"`
	Index     uint32 `serialize:"true"`
}
