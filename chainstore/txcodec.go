package chainstore

// txList is the wire wrapper transactions are marshaled through; the codec
// manager registers concrete types, not bare slices, matching the
// teacher's pattern of wrapping repeated fields in a named struct
// (timestampvm/block.go's TimeBlock). It is registered alongside Header in
// store.go's package init.
type txList struct {
	Transactions []Transaction `serialize:"true"`
}

func encodeTransactions(txs []Transaction) ([]byte, error) {
	return Codec.Marshal(codecVersion, &txList{Transactions: txs})
}

func decodeTransactions(raw []byte) ([]Transaction, error) {
	list := &txList{}
	if _, err := Codec.Unmarshal(raw, list); err != nil {
		return nil, err
	}
	return list.Transactions, nil
}
