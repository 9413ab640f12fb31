package chrono

import (
	"strings"
	"sync/atomic"
)

// SigningContext is a connected identity that seals are submitted from.
// It is created when a wallet connects and invalidated when the wallet
// disconnects or switches account; an invalidated context can no longer be
// used to submit. Callers hold it and pass it to each operation.
type SigningContext struct {
	address     string
	chainID     int64
	invalidated atomic.Bool
}

// NewSigningContext creates a live signing context for address on chainID.
func NewSigningContext(address string, chainID int64) *SigningContext {
	return &SigningContext{address: address, chainID: chainID}
}

// Address returns the account address as the wallet reported it.
func (c *SigningContext) Address() string {
	if c == nil {
		return ""
	}
	return c.address
}

// Owner returns the lowercase address used for indexer queries.
func (c *SigningContext) Owner() string {
	return strings.ToLower(c.Address())
}

// ChainID returns the chain the context was created on.
func (c *SigningContext) ChainID() int64 {
	if c == nil {
		return 0
	}
	return c.chainID
}

// Connected reports whether the context may still be used. A nil context is
// never connected.
func (c *SigningContext) Connected() bool {
	return c != nil && c.address != "" && !c.invalidated.Load()
}

// Invalidate ends the context's lifetime. It is safe to call more than once.
func (c *SigningContext) Invalidate() {
	if c != nil {
		c.invalidated.Store(true)
	}
}
