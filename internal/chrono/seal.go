package chrono

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// BodyFormat records how the nested content layer of a payload was read.
type BodyFormat int

const (
	// BodyJSON means the nested content parsed as a JSON object.
	BodyJSON BodyFormat = iota
	// BodyPlain means the nested content was not JSON and is kept verbatim.
	BodyPlain
)

func (f BodyFormat) String() string {
	if f == BodyPlain {
		return "plain"
	}
	return "json"
}

// Seal is the logical time-capsule record as authored by a user.
type Seal struct {
	Title      string
	Content    string
	CreatedAt  time.Time
	UnlockTime int64 // seconds since epoch
	MediaIDs   []string
	Creator    string
	Emotion    string
	Tags       []string

	// Extra holds nested-content fields this package does not know about so
	// they survive a decode/encode cycle.
	Extra map[string]json.RawMessage
}

// DecodedSeal is a seal as observed on the ledger at read time.
// IsUnlocked is derived from the clock at decode time and is never stored.
type DecodedSeal struct {
	Seal

	ID          string // durable id, equal to TxHash
	TxHash      string
	Sender      string
	BlockNumber uint64
	Timestamp   int64 // ledger seconds
	SubmittedAt time.Time
	BodyFormat  BodyFormat
	IsUnlocked  bool
}

// UnlockAt returns the unlock time as a time.Time.
func (s *Seal) UnlockAt() time.Time {
	return time.Unix(s.UnlockTime, 0)
}

// JoinMediaIDs renders ids in the comma-joined form stored on the ledger.
func JoinMediaIDs(ids []string) string {
	return strings.Join(ids, ",")
}

// SplitMediaIDs parses a comma-joined id list, trimming whitespace and
// dropping empty tokens.
func SplitMediaIDs(joined string) []string {
	if joined == "" {
		return nil
	}
	var ids []string
	for _, tok := range strings.Split(joined, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			ids = append(ids, tok)
		}
	}
	return ids
}

// Record is one DataStored event row as returned by an indexer.
type Record struct {
	ID              string
	Sender          string
	Data            []byte // "0x"-prefixed hex text or raw UTF-8
	Timestamp       int64
	TransactionHash string
	BlockNumber     uint64
}

// Page selects a window of indexer results.
type Page struct {
	First int
	Skip  int
}

// ExtraKeys returns the names of unrecognized content fields in sorted order.
func (s *Seal) ExtraKeys() []string {
	keys := make([]string, 0, len(s.Extra))
	for k := range s.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
