package chrono

import (
	"context"
	"fmt"
	"sync"
)

// Wallet is the account provider a Session connects through.
type Wallet interface {
	// RequestAccounts asks the wallet for access and returns its accounts,
	// the active one first.
	RequestAccounts(ctx context.Context) ([]string, error)

	// ChainID returns the chain the wallet is currently on.
	ChainID(ctx context.Context) (int64, error)
}

// ConnectionEventKind identifies a change in wallet connection state.
type ConnectionEventKind int

const (
	EventConnected ConnectionEventKind = iota
	EventDisconnected
	EventAccountChanged
	EventChainChanged
)

func (k ConnectionEventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventAccountChanged:
		return "account_changed"
	case EventChainChanged:
		return "chain_changed"
	default:
		return "unknown"
	}
}

// ConnectionEvent reports a connection change to the presentation layer.
// Signer is the new live context, or nil when there is none.
type ConnectionEvent struct {
	Kind    ConnectionEventKind
	Signer  *SigningContext
	ChainID int64
}

const sessionEventBuffer = 16

// Session owns the lifecycle of signing contexts for one wallet. It turns
// wallet callbacks into ConnectionEvents; the seal service itself never
// subscribes to them and only receives the resolved context per call.
type Session struct {
	wallet  Wallet
	chainID int64
	logger  Logger

	mu      sync.Mutex
	current *SigningContext
	events  chan ConnectionEvent
	closed  bool
}

// NewSession creates a session that requires the wallet to be on chainID.
// A chainID of 0 accepts any chain.
func NewSession(wallet Wallet, chainID int64, logger Logger) *Session {
	return &Session{
		wallet:  wallet,
		chainID: chainID,
		logger:  logger,
		events:  make(chan ConnectionEvent, sessionEventBuffer),
	}
}

// Events returns the stream of connection changes. It is closed by Close.
func (s *Session) Events() <-chan ConnectionEvent {
	return s.events
}

// Current returns the live signing context, or nil when disconnected.
func (s *Session) Current() *SigningContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.Connected() {
		return s.current
	}
	return nil
}

// Connect requests accounts from the wallet and creates a new signing context
// for the active one. Any previous context is invalidated.
func (s *Session) Connect(ctx context.Context) (*SigningContext, error) {
	accounts, err := s.wallet.RequestAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting accounts: %w", err)
	}
	if len(accounts) == 0 || accounts[0] == "" {
		return nil, fmt.Errorf("wallet returned no accounts: %w", ErrNotConnected)
	}

	chainID, err := s.wallet.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading chain id: %w", err)
	}
	if s.chainID != 0 && chainID != s.chainID {
		return nil, fmt.Errorf("%w: on chain %d, want %d", ErrWrongNetwork, chainID, s.chainID)
	}

	signer := NewSigningContext(accounts[0], chainID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Invalidate()
	s.current = signer
	s.emit(ConnectionEvent{Kind: EventConnected, Signer: signer, ChainID: chainID})

	s.logger.Info("wallet connected", "address", signer.Address(), "chain_id", chainID)
	return signer, nil
}

// Disconnect invalidates the current context.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectLocked()
}

func (s *Session) disconnectLocked() {
	if s.current == nil {
		return
	}
	s.current.Invalidate()
	s.current = nil
	s.emit(ConnectionEvent{Kind: EventDisconnected})
	s.logger.Info("wallet disconnected")
}

// AccountsChanged handles the wallet reporting a new account list. An empty
// list disconnects; otherwise the active account gets a fresh context.
func (s *Session) AccountsChanged(accounts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(accounts) == 0 || accounts[0] == "" {
		s.disconnectLocked()
		return
	}
	if s.current == nil {
		return
	}

	chainID := s.current.ChainID()
	s.current.Invalidate()
	s.current = NewSigningContext(accounts[0], chainID)
	s.emit(ConnectionEvent{Kind: EventAccountChanged, Signer: s.current, ChainID: chainID})
	s.logger.Info("wallet account changed", "address", accounts[0])
}

// ChainChanged handles the wallet moving to another chain. The current
// context is invalidated; the caller reconnects to get a new one.
func (s *Session) ChainChanged(chainID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.Invalidate()
		s.current = nil
	}
	s.emit(ConnectionEvent{Kind: EventChainChanged, ChainID: chainID})
	s.logger.Info("wallet chain changed", "chain_id", chainID)
}

// Close invalidates the current context and closes the event stream.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.current.Invalidate()
	s.current = nil
	s.closed = true
	close(s.events)
}

// emit must be called with s.mu held. Events are dropped, with a warning,
// when nobody drains the stream.
func (s *Session) emit(ev ConnectionEvent) {
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("connection event dropped", "kind", ev.Kind.String())
	}
}
