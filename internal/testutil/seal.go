package testutil

import (
	"testing"

	"chronovault/internal/chrono"
)

// SealRecord encodes s and wraps it as an indexer record in the 0x-hex form
// a subgraph returns.
func SealRecord(t *testing.T, s chrono.Seal, txHash string, timestamp int64) chrono.Record {
	t.Helper()
	data, err := chrono.EncodeSeal(s)
	if err != nil {
		t.Fatalf("encoding test seal: %v", err)
	}
	return chrono.Record{
		ID:              txHash + "-0",
		Sender:          s.Creator,
		Data:            []byte(chrono.EncodeHex(data)),
		Timestamp:       timestamp,
		TransactionHash: txHash,
		BlockNumber:     uint64(timestamp),
	}
}

// MalformedRecord is a record whose payload is not a seal.
func MalformedRecord(sender, txHash string, timestamp int64) chrono.Record {
	return chrono.Record{
		ID:              txHash + "-0",
		Sender:          sender,
		Data:            []byte("0x6e6f74206a736f6e"), // "not json"
		Timestamp:       timestamp,
		TransactionHash: txHash,
	}
}
