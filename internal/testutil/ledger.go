package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"chronovault/internal/chrono"
	"chronovault/internal/ledger"
)

// NewTestLedger creates an in-memory, migrated ledger driven by clock.
// The ledger is closed when the test completes.
func NewTestLedger(t *testing.T, clock chrono.Clock) *ledger.SQLiteLedger {
	t.Helper()

	l, err := ledger.NewSQLiteLedger(":memory:", ledger.DefaultChainID, clock)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	if err := l.Migrate(); err != nil {
		l.Close()
		t.Fatalf("failed to migrate ledger: %v", err)
	}

	t.Cleanup(func() {
		l.Close()
	})
	return l
}

// ErrLedgerUnavailable is returned by FailingLedger.
var ErrLedgerUnavailable = errors.New("ledger unavailable")

// FailingLedger is a chrono.Ledger whose writes fail. When FailOnWait is
// set the write is accepted and the failure happens while waiting.
type FailingLedger struct {
	FailOnWait bool

	mu    sync.Mutex
	calls int
}

// Calls returns how many times StoreData was invoked.
func (l *FailingLedger) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *FailingLedger) StoreData(ctx context.Context, from string, data []byte) (chrono.Transaction, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()

	if !l.FailOnWait {
		return nil, ErrLedgerUnavailable
	}
	return failingTransaction{}, nil
}

type failingTransaction struct{}

func (failingTransaction) Hash() string { return "0xfailed" }

func (failingTransaction) Wait(ctx context.Context) (*chrono.Receipt, error) {
	return nil, ErrLedgerUnavailable
}

var _ chrono.Ledger = (*FailingLedger)(nil)
