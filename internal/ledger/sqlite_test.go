package ledger_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"chronovault/internal/chrono"
	"chronovault/internal/ledger"
	"chronovault/internal/testutil"
)

const (
	alice = "0xAbC0000000000000000000000000000000000001"
	bob   = "0xbob0000000000000000000000000000000000002"
)

func newTestLedger(t *testing.T) (*ledger.SQLiteLedger, *testutil.StubClock) {
	t.Helper()
	clock := testutil.FixedClock()
	l, err := ledger.NewSQLiteLedger(":memory:", ledger.DefaultChainID, clock)
	if err != nil {
		t.Fatalf("NewSQLiteLedger() error = %v", err)
	}
	if err := l.Migrate(); err != nil {
		l.Close()
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, clock
}

func store(t *testing.T, l *ledger.SQLiteLedger, from, data string) *chrono.Receipt {
	t.Helper()
	ctx := context.Background()
	tx, err := l.StoreData(ctx, from, []byte(data))
	if err != nil {
		t.Fatalf("StoreData() error = %v", err)
	}
	receipt, err := tx.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return receipt
}

func TestSQLiteLedger_StoreData(t *testing.T) {
	t.Run("hash is known before inclusion", func(t *testing.T) {
		l, _ := newTestLedger(t)
		ctx := context.Background()

		tx, err := l.StoreData(ctx, alice, []byte(`{"content":"x"}`))
		if err != nil {
			t.Fatalf("StoreData() error = %v", err)
		}
		if !strings.HasPrefix(tx.Hash(), "0x") || len(tx.Hash()) != 66 {
			t.Errorf("Hash() = %q, want 0x-prefixed 32-byte hex", tx.Hash())
		}

		pending, err := l.Pending(ctx)
		if err != nil {
			t.Fatalf("Pending() error = %v", err)
		}
		if len(pending) != 1 || pending[0] != tx.Hash() {
			t.Errorf("Pending() = %v, want [%s]", pending, tx.Hash())
		}

		records, err := l.FindByTransactionHash(ctx, tx.Hash())
		if err != nil {
			t.Fatalf("FindByTransactionHash() error = %v", err)
		}
		if len(records) != 0 {
			t.Errorf("pending transaction visible to indexer: %v", records)
		}
	})

	t.Run("identical payloads get distinct hashes", func(t *testing.T) {
		l, _ := newTestLedger(t)
		r1 := store(t, l, alice, "same")
		r2 := store(t, l, alice, "same")
		if r1.TxHash == r2.TxHash {
			t.Errorf("both writes hashed to %s", r1.TxHash)
		}
	})

	t.Run("rejects empty sender and payload", func(t *testing.T) {
		l, _ := newTestLedger(t)
		ctx := context.Background()
		if _, err := l.StoreData(ctx, "", []byte("x")); err == nil {
			t.Error("StoreData() with empty sender expected error")
		}
		if _, err := l.StoreData(ctx, alice, nil); err == nil {
			t.Error("StoreData() with empty payload expected error")
		}
	})
}

func TestSQLiteLedger_Wait(t *testing.T) {
	t.Run("includes one transaction per block", func(t *testing.T) {
		l, clock := newTestLedger(t)

		r1 := store(t, l, alice, "one")
		clock.Advance(2 * time.Second)
		r2 := store(t, l, alice, "two")

		if r1.BlockNumber != 1 || r2.BlockNumber != 2 {
			t.Errorf("block numbers = %d, %d, want 1, 2", r1.BlockNumber, r2.BlockNumber)
		}
		if r1.Timestamp != clock.Now().Add(-2*time.Second).Unix() {
			t.Errorf("r1.Timestamp = %d", r1.Timestamp)
		}
		if r2.Timestamp != clock.Now().Unix() {
			t.Errorf("r2.Timestamp = %d, want %d", r2.Timestamp, clock.Now().Unix())
		}
		if r1.From != strings.ToLower(alice) {
			t.Errorf("From = %q, want lowercase sender", r1.From)
		}

		head, err := l.Head(context.Background())
		if err != nil {
			t.Fatalf("Head() error = %v", err)
		}
		if head != 2 {
			t.Errorf("Head() = %d, want 2", head)
		}
	})

	t.Run("waiting twice returns the same receipt", func(t *testing.T) {
		l, clock := newTestLedger(t)
		ctx := context.Background()

		tx, err := l.StoreData(ctx, alice, []byte("data"))
		if err != nil {
			t.Fatalf("StoreData() error = %v", err)
		}
		first, err := tx.Wait(ctx)
		if err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		clock.Advance(time.Minute)
		second, err := tx.Wait(ctx)
		if err != nil {
			t.Fatalf("second Wait() error = %v", err)
		}
		if *first != *second {
			t.Errorf("second receipt = %+v, want %+v", second, first)
		}
	})

	t.Run("block timestamps never go backwards", func(t *testing.T) {
		l, clock := newTestLedger(t)
		r1 := store(t, l, alice, "one")
		clock.Advance(-time.Hour)
		r2 := store(t, l, alice, "two")
		if r2.Timestamp < r1.Timestamp {
			t.Errorf("r2.Timestamp = %d < r1.Timestamp = %d", r2.Timestamp, r1.Timestamp)
		}
	})

	t.Run("cancelled context does not include", func(t *testing.T) {
		l, _ := newTestLedger(t)
		tx, err := l.StoreData(context.Background(), alice, []byte("data"))
		if err != nil {
			t.Fatalf("StoreData() error = %v", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := tx.Wait(ctx); err == nil {
			t.Error("Wait() with cancelled context expected error")
		}

		// The write is not withdrawn; a later wait includes it.
		if _, err := tx.Wait(context.Background()); err != nil {
			t.Errorf("Wait() after cancel error = %v", err)
		}
	})
}

func TestSQLiteLedger_Transaction(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	got, err := l.Transaction(ctx, "0xmissing")
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}
	if got != nil {
		t.Errorf("Transaction() = %v, want nil", got)
	}

	tx, err := l.StoreData(ctx, alice, []byte("data"))
	if err != nil {
		t.Fatalf("StoreData() error = %v", err)
	}
	got, err = l.Transaction(ctx, strings.ToUpper(tx.Hash()[2:]))
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}
	if got != nil {
		t.Errorf("Transaction() without 0x prefix = %v, want nil", got)
	}
	got, err = l.Transaction(ctx, tx.Hash())
	if err != nil || got == nil {
		t.Fatalf("Transaction() = %v, %v", got, err)
	}
	if _, err := got.Wait(ctx); err != nil {
		t.Errorf("Wait() on resumed transaction error = %v", err)
	}
}

func TestSQLiteLedger_Indexer(t *testing.T) {
	l, clock := newTestLedger(t)
	ctx := context.Background()

	a1 := store(t, l, alice, "a1")
	clock.Advance(time.Second)
	b1 := store(t, l, bob, "b1")
	clock.Advance(time.Second)
	a2 := store(t, l, alice, "a2")

	t.Run("by transaction hash", func(t *testing.T) {
		records, err := l.FindByTransactionHash(ctx, strings.ToUpper("0x"+b1.TxHash[2:]))
		if err != nil {
			t.Fatalf("FindByTransactionHash() error = %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("len(records) = %d, want 1", len(records))
		}
		r := records[0]
		if string(r.Data) != "b1" || r.Sender != bob || r.BlockNumber != b1.BlockNumber || r.Timestamp != b1.Timestamp {
			t.Errorf("record = %+v", r)
		}
		if r.ID != b1.TxHash+"-0" {
			t.Errorf("ID = %q, want %q", r.ID, b1.TxHash+"-0")
		}
	})

	t.Run("unknown hash returns no records", func(t *testing.T) {
		records, err := l.FindByTransactionHash(ctx, "0xdead")
		if err != nil {
			t.Fatalf("FindByTransactionHash() error = %v", err)
		}
		if len(records) != 0 {
			t.Errorf("len(records) = %d, want 0", len(records))
		}
	})

	t.Run("by sender newest first", func(t *testing.T) {
		records, err := l.FindBySender(ctx, alice, chrono.Page{})
		if err != nil {
			t.Fatalf("FindBySender() error = %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("len(records) = %d, want 2", len(records))
		}
		if records[0].TransactionHash != a2.TxHash || records[1].TransactionHash != a1.TxHash {
			t.Errorf("order = %s, %s, want a2, a1", records[0].TransactionHash, records[1].TransactionHash)
		}
	})

	t.Run("all with paging", func(t *testing.T) {
		page1, err := l.FindAll(ctx, chrono.Page{First: 2})
		if err != nil {
			t.Fatalf("FindAll() error = %v", err)
		}
		page2, err := l.FindAll(ctx, chrono.Page{First: 2, Skip: 2})
		if err != nil {
			t.Fatalf("FindAll() error = %v", err)
		}
		if len(page1) != 2 || len(page2) != 1 {
			t.Fatalf("page sizes = %d, %d, want 2, 1", len(page1), len(page2))
		}
		if page1[0].TransactionHash != a2.TxHash || page1[1].TransactionHash != b1.TxHash || page2[0].TransactionHash != a1.TxHash {
			t.Error("FindAll() not ordered newest first")
		}
	})
}

func TestSQLiteLedger_BackupTo(t *testing.T) {
	l, _ := newTestLedger(t)
	r := store(t, l, alice, "payload")

	dest := t.TempDir() + "/backup.db"
	if err := l.BackupTo(dest); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	copied, err := ledger.NewSQLiteLedger(dest, ledger.DefaultChainID, chrono.RealClock{})
	if err != nil {
		t.Fatalf("opening backup: %v", err)
	}
	defer copied.Close()

	records, err := copied.FindByTransactionHash(context.Background(), r.TxHash)
	if err != nil {
		t.Fatalf("FindByTransactionHash() on backup error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("backup has %d records, want 1", len(records))
	}
}
