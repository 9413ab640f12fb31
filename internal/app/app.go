package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"chronovault/internal/chrono"
	"chronovault/internal/config"
	"chronovault/internal/indexer"
	"chronovault/internal/keystore"
	"chronovault/internal/ledger"
	"chronovault/internal/media"
)

const (
	uploadMediaKey = "upload-media"
	connectKey     = "connect-wallet"
)

// ErrReadOnly is returned by write operations when the configured indexer does
// not read the ledger that seals are written to. A seal written there could
// never be found again.
var ErrReadOnly = errors.New("seals can only be created when the indexer reads the local ledger")

// ChronoApp is the application layer between the CLI and SealService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw CLI input, and manages the ledger lifecycle on Close.
type ChronoApp struct {
	cfg      *config.Config
	keystore keystore.Keystore
	ledger   *ledger.SQLiteLedger
	indexer  chrono.Indexer
	media    chrono.MediaStore
	service  *chrono.SealService
	session  *chrono.Session
	notifier chrono.Notifier
	logger   chrono.Logger
	clock    chrono.Clock
	op       *Operation
	logFile  *os.File
}

// NewChronoApp creates a fully wired ChronoApp from the given config.
// operation identifies the CLI command being run (e.g. "CreateSeal", "ListSeals").
// The caller must call Close when done.
func NewChronoApp(ctx context.Context, cfg *config.Config, operation string, notifier chrono.Notifier) (*ChronoApp, error) {
	clock := chrono.RealClock{}
	ids := chrono.UUIDGenerator{}

	consoleLevel, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	ks, err := keystore.NewKeystoreFromConfig(cfg.Wallet)
	if err != nil {
		return nil, fmt.Errorf("creating keystore: %w", err)
	}

	l, err := ledger.NewLedgerFromConfig(cfg.Ledger, cfg.Wallet.ChainID, clock)
	if err != nil {
		return nil, fmt.Errorf("creating ledger: %w", err)
	}

	if err := l.CheckMigrations(); err != nil {
		l.Close()
		return nil, fmt.Errorf("ledger schema out of date: %w", err)
	}

	store, err := media.NewMediaStoreFromConfig(ctx, cfg.Media, clock, ids)
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("creating media store: %w", err)
	}

	op := NewOperation(operation, clock, ids)
	logger, logFile, err := newLogger(cfg.LogDir, op.ID, consoleLevel)
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := &slogAdapter{l: logger}

	idx, err := indexer.NewIndexerFromConfig(cfg.Indexer, l, adapter)
	if err != nil {
		l.Close()
		if logFile != nil {
			logFile.Close()
		}
		return nil, fmt.Errorf("creating indexer: %w", err)
	}

	svc := chrono.NewSealService(l, idx, store, adapter, notifier, clock)
	svc.SetPageSize(cfg.Indexer.PageSize)

	return &ChronoApp{
		cfg:      cfg,
		keystore: ks,
		ledger:   l,
		indexer:  idx,
		media:    store,
		service:  svc,
		notifier: notifier,
		logger:   adapter,
		clock:    clock,
		op:       op,
		logFile:  logFile,
	}, nil
}

// track marks the operation failed when err is non-nil and returns err.
func (a *ChronoApp) track(err error) error {
	if err != nil {
		a.op.Fail()
	}
	return err
}

// Connect unlocks the wallet with passphrase and opens a signing session on
// the configured chain.
func (a *ChronoApp) Connect(ctx context.Context, passphrase string) (*chrono.SigningContext, error) {
	if err := a.checkWritable(connectKey); err != nil {
		return nil, err
	}

	wallet, err := a.keystore.Unlock(passphrase)
	if err != nil {
		return nil, a.track(fmt.Errorf("unlocking wallet: %w", err))
	}

	if a.session != nil {
		a.session.Close()
	}
	a.session = chrono.NewSession(wallet, a.cfg.Wallet.ChainID, a.logger)

	signer, err := a.session.Connect(ctx)
	if err != nil {
		return nil, a.track(err)
	}
	return signer, nil
}

// checkWritable rejects writes in read-only mode, where indexer type graphql
// serves a remote subgraph that never sees local ledger writes.
func (a *ChronoApp) checkWritable(key string) error {
	if a.cfg.Indexer.ReadsLedger() {
		return nil
	}
	a.notifier.Notify(chrono.Notification{
		Level:   chrono.NotifyError,
		Key:     key,
		Message: fmt.Sprintf("Read-only: the %s indexer cannot see seals written to the local ledger", a.cfg.Indexer.Type),
	})
	return a.track(fmt.Errorf("%w (indexer type %q)", ErrReadOnly, a.cfg.Indexer.Type))
}

// Signer returns the live signing context, or nil before Connect.
func (a *ChronoApp) Signer() *chrono.SigningContext {
	if a.session == nil {
		return nil
	}
	return a.session.Current()
}

// Address returns the configured wallet address without unlocking it.
func (a *ChronoApp) Address() (string, error) {
	return a.keystore.Address()
}

// CreateSeal uploads the files at paths, then seals the draft with their
// media ids appended. Every file is validated before any upload starts;
// uploads run in parallel and the seal is not created if any of them fails.
// Returns the seal's transaction id.
func (a *ChronoApp) CreateSeal(ctx context.Context, d chrono.Draft, paths []string) (string, error) {
	if err := a.checkWritable(chrono.CreateSealKey); err != nil {
		return "", err
	}

	signer := a.Signer()
	if !signer.Connected() {
		return "", a.track(chrono.ErrNotConnected)
	}

	uploaded, err := a.uploadFiles(ctx, paths)
	if err != nil {
		return "", a.track(err)
	}
	d.MediaIDs = append(append([]string(nil), d.MediaIDs...), uploaded...)

	id, err := a.service.CreateSeal(ctx, signer, d)
	if err != nil {
		a.discardMedia(uploaded)
		return "", a.track(err)
	}
	return id, nil
}

// uploadFiles validates and stores each file, returning ids in path order.
func (a *ChronoApp) uploadFiles(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	metas := make([]chrono.MediaMeta, len(paths))
	for i, p := range paths {
		meta, err := statMedia(p)
		if err != nil {
			return nil, err
		}
		if err := media.ValidateFile(meta, a.cfg.Media.MaxFileSize); err != nil {
			a.notifier.Notify(chrono.Notification{Level: chrono.NotifyError, Key: uploadMediaKey, Message: "Invalid file: " + meta.Name})
			return nil, fmt.Errorf("validating %s: %w", p, err)
		}
		metas[i] = meta
	}

	a.notifier.Notify(chrono.Notification{Level: chrono.NotifyLoading, Key: uploadMediaKey, Message: fmt.Sprintf("Uploading %d file(s)...", len(paths))})

	ids := make([]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			id, err := a.storeFile(gctx, p, metas[i])
			if err != nil {
				return fmt.Errorf("uploading %s: %w", p, err)
			}
			ids[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.discardMedia(ids)
		a.notifier.Notify(chrono.Notification{Level: chrono.NotifyError, Key: uploadMediaKey, Message: "Failed to upload files"})
		a.logger.Error("media upload failed", "error", err)
		return nil, err
	}

	a.notifier.Notify(chrono.Notification{Level: chrono.NotifySuccess, Key: uploadMediaKey, Message: fmt.Sprintf("Uploaded %d file(s)", len(ids))})
	return ids, nil
}

func (a *ChronoApp) storeFile(ctx context.Context, path string, meta chrono.MediaMeta) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	id, err := a.media.Store(ctx, f, meta)
	if err != nil {
		return "", err
	}
	a.logger.Debug("media stored", "id", id, "name", meta.Name, "size", meta.Size)
	return id, nil
}

// discardMedia removes uploads orphaned by a failed create. Errors are logged
// only; the create has already failed.
func (a *ChronoApp) discardMedia(ids []string) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if err := a.media.Delete(context.Background(), id); err != nil && !errors.Is(err, chrono.ErrMediaNotFound) {
			a.logger.Warn("removing orphaned media", "id", id, "error", err)
		}
	}
}

// statMedia builds upload metadata for a local file. The MIME type comes
// from the extension, falling back to sniffing the first 512 bytes.
func statMedia(path string) (chrono.MediaMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return chrono.MediaMeta{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return chrono.MediaMeta{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return chrono.MediaMeta{}, fmt.Errorf("%s is a directory", path)
	}

	var mimeType string
	if ext := media.FileExtension(filepath.Base(path)); ext != "" {
		mimeType = mime.TypeByExtension("." + ext)
	}
	if mimeType == "" {
		head := make([]byte, 512)
		n, err := io.ReadFull(f, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return chrono.MediaMeta{}, fmt.Errorf("reading %s: %w", path, err)
		}
		mimeType = http.DetectContentType(head[:n])
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	return chrono.MediaMeta{
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Size:     info.Size(),
	}, nil
}

// AddMedia uploads a single file and returns its resolved asset.
func (a *ChronoApp) AddMedia(ctx context.Context, path string) (*chrono.MediaAsset, error) {
	ids, err := a.uploadFiles(ctx, []string{path})
	if err != nil {
		return nil, a.track(err)
	}
	asset, err := a.media.Resolve(ctx, ids[0])
	return asset, a.track(err)
}

// ShowMedia resolves one media id.
func (a *ChronoApp) ShowMedia(ctx context.Context, id string) (*chrono.MediaAsset, error) {
	asset, err := a.media.Resolve(ctx, id)
	return asset, a.track(err)
}

// ListMedia lists stored files, newest first.
func (a *ChronoApp) ListMedia(ctx context.Context, filter chrono.MediaFilter) ([]*chrono.MediaAsset, error) {
	assets, err := a.media.List(ctx, filter)
	return assets, a.track(err)
}

// ExportMedia writes a stored file to dest, which must not exist, and
// verifies its checksum. dest is removed if the copy fails.
func (a *ChronoApp) ExportMedia(ctx context.Context, id, dest string) (*chrono.MediaAsset, error) {
	opener, ok := a.media.(media.Opener)
	if !ok {
		return nil, a.track(fmt.Errorf("%s media store cannot export files", a.cfg.Media.Type))
	}
	asset, err := a.media.Resolve(ctx, id)
	if err != nil {
		return nil, a.track(err)
	}

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, a.track(fmt.Errorf("creating %s: %w", dest, err))
	}
	err = media.Export(ctx, opener, asset, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return nil, a.track(err)
	}
	a.logger.Info("exported media", "id", id, "dest", dest, "size", asset.Size)
	return asset, nil
}

// GetSeal returns the seal written by txID, or nil if there is none.
func (a *ChronoApp) GetSeal(ctx context.Context, txID string) (*chrono.DecodedSeal, error) {
	seal, err := a.service.GetByTransactionID(ctx, txID)
	return seal, a.track(err)
}

// OpenSeal looks up a seal and builds its view. force reveals a locked seal.
func (a *ChronoApp) OpenSeal(ctx context.Context, txID string, force bool) (*chrono.SealView, error) {
	view, err := a.service.OpenByTransactionID(ctx, txID, chrono.RevealOptions{Force: force})
	return view, a.track(err)
}

// ListSeals lists the seals sent from address, or from the configured wallet
// when address is empty, filtered by search text and status.
func (a *ChronoApp) ListSeals(ctx context.Context, address, search, status string) ([]*chrono.DecodedSeal, error) {
	filter, err := chrono.ParseStatusFilter(status)
	if err != nil {
		return nil, a.track(err)
	}

	if address == "" {
		address, err = a.keystore.Address()
		if err != nil {
			return nil, a.track(fmt.Errorf("reading wallet address: %w", err))
		}
	} else if !keystore.IsAddress(address) {
		return nil, a.track(fmt.Errorf("invalid address: %s", address))
	}

	seals, err := a.service.ListByOwner(ctx, address)
	if err != nil {
		return nil, a.track(err)
	}
	return chrono.FilterSeals(seals, search, filter), nil
}

// Feed returns one page of seals from every sender, newest first.
func (a *ChronoApp) Feed(ctx context.Context, first, skip int) ([]*chrono.DecodedSeal, error) {
	seals, err := a.service.ListAll(ctx, chrono.Page{First: first, Skip: skip})
	return seals, a.track(err)
}

// Close ends the wallet session, logs the operation outcome and closes the
// ledger and log file.
func (a *ChronoApp) Close() error {
	var firstErr error

	if a.session != nil {
		a.session.Close()
	}

	a.logger.Info("operation finished",
		"operation", a.op.Name,
		"status", a.op.Status,
		"elapsed", a.op.Elapsed(a.clock.Now()).String())

	if err := a.ledger.Close(); err != nil {
		firstErr = fmt.Errorf("closing ledger: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// InitWallet creates the configured wallet identity protected by passphrase
// and returns its address.
func InitWallet(cfg *config.Config, passphrase string) (string, error) {
	ks, err := keystore.NewKeystoreFromConfig(cfg.Wallet)
	if err != nil {
		return "", fmt.Errorf("creating keystore: %w", err)
	}
	if err := ks.Setup(passphrase); err != nil {
		return "", err
	}
	return ks.Address()
}

// WalletAddress returns the configured wallet's address.
func WalletAddress(cfg *config.Config) (string, error) {
	ks, err := keystore.NewKeystoreFromConfig(cfg.Wallet)
	if err != nil {
		return "", fmt.Errorf("creating keystore: %w", err)
	}
	return ks.Address()
}
