package chrono

import "context"

// Ledger is the append-only write capability. StoreData submits opaque bytes
// as a transaction from the given address and returns a handle that can be
// waited on for inclusion.
type Ledger interface {
	StoreData(ctx context.Context, from string, data []byte) (Transaction, error)
}

// Transaction is a submitted but possibly unconfirmed ledger write.
type Transaction interface {
	// Hash returns the transaction identifier. It is known before inclusion.
	Hash() string

	// Wait blocks until the transaction is included and returns its receipt.
	// Cancelling ctx stops the wait; it does not withdraw the write.
	Wait(ctx context.Context) (*Receipt, error)
}

// Receipt describes an included transaction.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	Timestamp   int64
	From        string
}

// Indexer is the read capability over DataStored events.
// Implementations must not serve results from a client-side cache: unlock
// state is computed from the current time on every read.
type Indexer interface {
	// FindByTransactionHash returns every record emitted by txHash.
	FindByTransactionHash(ctx context.Context, txHash string) ([]Record, error)

	// FindBySender returns records whose sender equals sender (lowercase hex),
	// newest ledger timestamp first.
	FindBySender(ctx context.Context, sender string, page Page) ([]Record, error)

	// FindAll returns records from every sender, newest first.
	FindAll(ctx context.Context, page Page) ([]Record, error)
}
