package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"chronovault/internal/chrono"
)

// ErrIndexerUnavailable is returned by FakeIndexer when Fail is set.
var ErrIndexerUnavailable = errors.New("indexer unavailable")

// FakeIndexer serves canned records. Records are returned in the order they
// were added, so tests control ordering explicitly.
type FakeIndexer struct {
	Fail bool

	mu      sync.Mutex
	records []chrono.Record
	queries int
}

// NewFakeIndexer creates an indexer serving records.
func NewFakeIndexer(records ...chrono.Record) *FakeIndexer {
	return &FakeIndexer{records: records}
}

// Add appends records.
func (f *FakeIndexer) Add(records ...chrono.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, records...)
}

// Queries returns how many queries were served or failed.
func (f *FakeIndexer) Queries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

func (f *FakeIndexer) FindByTransactionHash(ctx context.Context, txHash string) ([]chrono.Record, error) {
	return f.filter(func(r chrono.Record) bool {
		return strings.EqualFold(r.TransactionHash, txHash)
	}, chrono.Page{})
}

func (f *FakeIndexer) FindBySender(ctx context.Context, sender string, page chrono.Page) ([]chrono.Record, error) {
	return f.filter(func(r chrono.Record) bool {
		return r.Sender == sender
	}, page)
}

func (f *FakeIndexer) FindAll(ctx context.Context, page chrono.Page) ([]chrono.Record, error) {
	return f.filter(func(chrono.Record) bool { return true }, page)
}

func (f *FakeIndexer) filter(keep func(chrono.Record) bool, page chrono.Page) ([]chrono.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.Fail {
		return nil, ErrIndexerUnavailable
	}

	var out []chrono.Record
	for _, r := range f.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	if page.Skip > 0 {
		if page.Skip >= len(out) {
			return nil, nil
		}
		out = out[page.Skip:]
	}
	if page.First > 0 && len(out) > page.First {
		out = out[:page.First]
	}
	return out, nil
}

var _ chrono.Indexer = (*FakeIndexer)(nil)
