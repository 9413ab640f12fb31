package ledger

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// ZeroHash is the parent hash of the first block.
const ZeroHash = "0x0000000000000000000000000000000000000000000000000000000000000000"

func keccak256(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func hexHash(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func uint64Bytes(vs ...uint64) []byte {
	buf := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.BigEndian.PutUint64(buf[8*i:], v)
	}
	return buf
}

// transactionHash identifies a write by chain, sender, nonce and payload, so
// the same bytes sent twice get distinct hashes.
func transactionHash(chainID int64, sender string, nonce int64, data []byte) string {
	return hexHash(keccak256(uint64Bytes(uint64(chainID), uint64(nonce)), []byte(sender), data))
}

func blockHash(parent string, number uint64, timestamp int64, txHash string) string {
	return hexHash(keccak256([]byte(parent), uint64Bytes(number, uint64(timestamp)), []byte(txHash)))
}
