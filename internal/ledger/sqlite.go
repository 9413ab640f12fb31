// Package ledger is a local append-only ledger backed by SQLite. It accepts
// storeData writes, includes each one in its own block and records a
// DataStored event that can be queried the way a subgraph would be.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"chronovault/internal/chrono"
	"chronovault/internal/ledger/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// DefaultChainID is the Monad testnet chain id.
const DefaultChainID int64 = 10143

// DefaultPageSize is used when a query does not set Page.First.
const DefaultPageSize = 100

// SQLiteLedger implements chrono.Ledger and chrono.Indexer on one database.
type SQLiteLedger struct {
	db      *sql.DB
	path    string
	chainID int64
	clock   chrono.Clock

	// mu serializes nonce assignment and block production.
	mu sync.Mutex
}

// NewSQLiteLedger opens the ledger at path (a file path or ":memory:").
// The schema is not migrated; call Migrate or CheckMigrations.
func NewSQLiteLedger(path string, chainID int64, clock chrono.Clock) (*SQLiteLedger, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteLedger{db: db, path: path, chainID: chainID, clock: clock}, nil
}

// OpenConnection opens a SQLite connection with the PRAGMAs the ledger needs.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// A single connection keeps ":memory:" databases alive and matches
	// SQLite's single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

// ChainID returns the chain id mixed into transaction hashes.
func (l *SQLiteLedger) ChainID() int64 {
	return l.chainID
}

// StoreData records a pending write from sender. The data is included in a
// block when the returned transaction is waited on.
func (l *SQLiteLedger) StoreData(ctx context.Context, from string, data []byte) (chrono.Transaction, error) {
	sender := strings.ToLower(strings.TrimSpace(from))
	if sender == "" {
		return nil, fmt.Errorf("storing data: sender is required")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("storing data: payload is empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var nonce int64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions WHERE sender = ?", sender).Scan(&nonce); err != nil {
		return nil, fmt.Errorf("reading nonce for %s: %w", sender, err)
	}

	hash := transactionHash(l.chainID, sender, nonce, data)
	_, err = tx.ExecContext(ctx,
		"INSERT INTO transactions (hash, sender, nonce, data, submitted_at) VALUES (?, ?, ?, ?, ?)",
		hash, sender, nonce, data, l.clock.Now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("inserting transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return &pendingTransaction{ledger: l, hash: hash}, nil
}

type pendingTransaction struct {
	ledger *SQLiteLedger
	hash   string
}

func (p *pendingTransaction) Hash() string {
	return p.hash
}

// Wait includes the transaction if it is still pending. Waiting again
// returns the same receipt.
func (p *pendingTransaction) Wait(ctx context.Context) (*chrono.Receipt, error) {
	return p.ledger.include(ctx, p.hash)
}

func (l *SQLiteLedger) include(ctx context.Context, hash string) (*chrono.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		sender   string
		data     []byte
		included sql.NullInt64
	)
	err = tx.QueryRowContext(ctx,
		"SELECT sender, data, block_number FROM transactions WHERE hash = ?", hash).
		Scan(&sender, &data, &included)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s is unknown", hash)
	}
	if err != nil {
		return nil, fmt.Errorf("reading transaction %s: %w", hash, err)
	}

	if included.Valid {
		var ts int64
		err := tx.QueryRowContext(ctx, "SELECT timestamp FROM blocks WHERE number = ?", included.Int64).Scan(&ts)
		if err != nil {
			return nil, fmt.Errorf("reading block %d: %w", included.Int64, err)
		}
		return &chrono.Receipt{TxHash: hash, BlockNumber: uint64(included.Int64), Timestamp: ts, From: sender}, nil
	}

	var (
		parentNumber int64
		parentHash   = ZeroHash
		parentTime   int64
	)
	err = tx.QueryRowContext(ctx, "SELECT number, hash, timestamp FROM blocks ORDER BY number DESC LIMIT 1").
		Scan(&parentNumber, &parentHash, &parentTime)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reading chain head: %w", err)
	}

	number := uint64(parentNumber + 1)
	timestamp := l.clock.Now().Unix()
	if timestamp < parentTime {
		timestamp = parentTime
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO blocks (number, hash, parent_hash, timestamp) VALUES (?, ?, ?, ?)",
		number, blockHash(parentHash, number, timestamp, hash), parentHash, timestamp); err != nil {
		return nil, fmt.Errorf("inserting block %d: %w", number, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO data_stored (id, sender, data, timestamp, transaction_hash, block_number, log_index)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		eventID(hash, 0), sender, data, timestamp, hash, number); err != nil {
		return nil, fmt.Errorf("recording DataStored for %s: %w", hash, err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE transactions SET block_number = ? WHERE hash = ?", number, hash); err != nil {
		return nil, fmt.Errorf("marking %s included: %w", hash, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing block %d: %w", number, err)
	}
	return &chrono.Receipt{TxHash: hash, BlockNumber: number, Timestamp: timestamp, From: sender}, nil
}

func eventID(txHash string, logIndex int) string {
	return fmt.Sprintf("%s-%d", txHash, logIndex)
}

// Head returns the latest block number, or 0 for an empty chain.
func (l *SQLiteLedger) Head(ctx context.Context) (uint64, error) {
	var n sql.NullInt64
	if err := l.db.QueryRowContext(ctx, "SELECT MAX(number) FROM blocks").Scan(&n); err != nil {
		return 0, fmt.Errorf("reading chain head: %w", err)
	}
	return uint64(n.Int64), nil
}

// Pending returns the hashes of transactions not yet included, oldest first.
func (l *SQLiteLedger) Pending(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT hash FROM transactions WHERE block_number IS NULL ORDER BY submitted_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("listing pending transactions: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scanning pending transaction: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// Transaction returns a handle for a previously submitted hash, or nil if
// the ledger has never seen it.
func (l *SQLiteLedger) Transaction(ctx context.Context, hash string) (chrono.Transaction, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	var n int
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions WHERE hash = ?", hash).Scan(&n); err != nil {
		return nil, fmt.Errorf("finding transaction %s: %w", hash, err)
	}
	if n == 0 {
		return nil, nil
	}
	return &pendingTransaction{ledger: l, hash: hash}, nil
}

const selectEvents = "SELECT id, sender, data, timestamp, transaction_hash, block_number FROM data_stored"

// FindByTransactionHash returns the DataStored events emitted by txHash.
func (l *SQLiteLedger) FindByTransactionHash(ctx context.Context, txHash string) ([]chrono.Record, error) {
	return l.queryEvents(ctx, selectEvents+" WHERE transaction_hash = ? ORDER BY log_index",
		strings.ToLower(txHash))
}

// FindBySender returns events from sender, newest first.
func (l *SQLiteLedger) FindBySender(ctx context.Context, sender string, page chrono.Page) ([]chrono.Record, error) {
	first, skip := pageBounds(page)
	return l.queryEvents(ctx,
		selectEvents+" WHERE sender = ? ORDER BY timestamp DESC, block_number DESC, log_index DESC LIMIT ? OFFSET ?",
		strings.ToLower(sender), first, skip)
}

// FindAll returns events from every sender, newest first.
func (l *SQLiteLedger) FindAll(ctx context.Context, page chrono.Page) ([]chrono.Record, error) {
	first, skip := pageBounds(page)
	return l.queryEvents(ctx,
		selectEvents+" ORDER BY timestamp DESC, block_number DESC, log_index DESC LIMIT ? OFFSET ?",
		first, skip)
}

func pageBounds(p chrono.Page) (int, int) {
	first, skip := p.First, p.Skip
	if first <= 0 {
		first = DefaultPageSize
	}
	if skip < 0 {
		skip = 0
	}
	return first, skip
}

func (l *SQLiteLedger) queryEvents(ctx context.Context, query string, args ...any) ([]chrono.Record, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying DataStored events: %w", err)
	}
	defer rows.Close()

	var records []chrono.Record
	for rows.Next() {
		var r chrono.Record
		var block int64
		if err := rows.Scan(&r.ID, &r.Sender, &r.Data, &r.Timestamp, &r.TransactionHash, &block); err != nil {
			return nil, fmt.Errorf("scanning DataStored event: %w", err)
		}
		r.BlockNumber = uint64(block)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating DataStored events: %w", err)
	}
	return records, nil
}

// Migrate brings the ledger schema up to date.
func (l *SQLiteLedger) Migrate() error {
	return migrations.Up(l.db)
}

// CheckMigrations verifies the ledger schema is current.
func (l *SQLiteLedger) CheckMigrations() error {
	return migrations.CheckStatus(l.db)
}

// BackupTo writes a consistent copy of the ledger to destPath.
func (l *SQLiteLedger) BackupTo(destPath string) error {
	if _, err := l.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up ledger: %w", err)
	}
	return nil
}

// Path returns the database path the ledger was opened with.
func (l *SQLiteLedger) Path() string {
	return l.path
}

// Close closes the database connection.
func (l *SQLiteLedger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

var (
	_ chrono.Ledger  = (*SQLiteLedger)(nil)
	_ chrono.Indexer = (*SQLiteLedger)(nil)
)
