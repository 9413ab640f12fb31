package chrono_test

import (
	"testing"

	"chronovault/internal/chrono"
	"chronovault/internal/ledger"
	"chronovault/internal/media"
	"chronovault/internal/testutil"
)

const testAddress = "0xAbC0000000000000000000000000000000000001"

type fixture struct {
	svc      *chrono.SealService
	clock    *testutil.StubClock
	ledger   *ledger.SQLiteLedger
	media    *media.MemoryStore
	notifier *testutil.RecordingNotifier
	logger   *testutil.RecordingLogger
	signer   *chrono.SigningContext
}

// newFixture wires a service to a migrated in-memory ledger, which also acts
// as the indexer, and an in-memory media store.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:    testutil.FixedClock(),
		media:    testutil.NewTestMediaStore(),
		notifier: testutil.NewRecordingNotifier(),
		logger:   testutil.NewRecordingLogger(),
	}
	f.ledger = testutil.NewTestLedger(t, f.clock)
	f.signer = chrono.NewSigningContext(testAddress, f.ledger.ChainID())
	f.svc = chrono.NewSealService(f.ledger, f.ledger, f.media, f.logger, f.notifier, f.clock)
	return f
}

// newIndexedService wires a service to a FakeIndexer and a ledger that is
// never written to.
func newIndexedService(t *testing.T, indexer chrono.Indexer, store chrono.MediaStore) (*chrono.SealService, *testutil.StubClock, *testutil.RecordingNotifier, *testutil.RecordingLogger) {
	t.Helper()
	clock := testutil.FixedClock()
	notifier := testutil.NewRecordingNotifier()
	logger := testutil.NewRecordingLogger()
	if store == nil {
		store = testutil.NewTestMediaStore()
	}
	svc := chrono.NewSealService(&testutil.FailingLedger{}, indexer, store, logger, notifier, clock)
	return svc, clock, notifier, logger
}

func assertLevels(t *testing.T, got []chrono.NotificationLevel, want ...chrono.NotificationLevel) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("notification levels = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("notification levels = %v, want %v", got, want)
		}
	}
}
