package chrono

// DefaultPageSize is how many records are requested from the indexer per page.
const DefaultPageSize = 100

// SealService is the orchestration layer that seals, queries and reveals
// time capsules on top of the ledger, indexer and file store.
type SealService struct {
	ledger   Ledger
	indexer  Indexer
	media    MediaStore
	logger   Logger
	notifier Notifier
	clock    Clock
	pageSize int
}

// NewSealService creates a new SealService with the provided dependencies.
// One seal is written per ledger transaction; the transaction hash is the
// seal's id.
func NewSealService(ledger Ledger, indexer Indexer, media MediaStore, logger Logger, notifier Notifier, clock Clock) *SealService {
	return &SealService{
		ledger:   ledger,
		indexer:  indexer,
		media:    media,
		logger:   logger,
		notifier: notifier,
		clock:    clock,
		pageSize: DefaultPageSize,
	}
}

// SetPageSize changes the indexer page size. Non-positive values are ignored.
func (s *SealService) SetPageSize(n int) {
	if n > 0 {
		s.pageSize = n
	}
}

func (s *SealService) notify(level NotificationLevel, key, msg string) {
	s.notifier.Notify(Notification{Level: level, Key: key, Message: msg})
}
