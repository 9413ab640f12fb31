package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	
	"github.com/BurntSushi/toml"
)

// Defaults used by NewConfig and when a section leaves a field unset.
const (
	DefaultChainID        int64 = 10143 // Monad testnet
	DefaultPageSize             = 100
	DefaultTimeoutSeconds       = 15
	DefaultMaxFileSize    int64 = 100 * 1024 * 1024
	DefaultPresignMinutes       = 15
)

// Config represents the main configuration for chronovault.
type Config struct {
	BaseDir  string        `toml:"base_dir"`
	LogDir   string        `toml:"log_dir"`
	LogLevel string        `toml:"log_level,omitempty"` // lowest level echoed to stderr; the file gets everything
	Wallet   WalletConfig  `toml:"wallet"`
	Ledger   LedgerConfig  `toml:"ledger"`
	Indexer  IndexerConfig `toml:"indexer"`
	Media    MediaConfig   `toml:"media"`
}

// WalletConfig locates the signing identity.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type WalletConfig struct {
	Type    string `toml:"type"`               // "age" (default) or "test"
	KeyPath string `toml:"key_path,omitempty"` // passphrase-encrypted identity, type=age
	ChainID int64  `toml:"chain_id"`
}

// LedgerConfig selects where seals are written.
type LedgerConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// IndexerConfig selects where seals are read from.
type IndexerConfig struct {
	Type           string `toml:"type"`               // "ledger" (default) or "graphql"
	Endpoint       string `toml:"endpoint,omitempty"` // only used for type=graphql
	PageSize       int    `toml:"page_size"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ReadsLedger reports whether queries are answered by the local ledger that
// seals are written to. A graphql indexer reads a remote subgraph instead, so
// the app runs read-only.
func (c IndexerConfig) ReadsLedger() bool {
	return c.Type == "" || c.Type == "ledger"
}

// MediaConfig selects the file store for seal attachments.
type MediaConfig struct {
	Type        string `toml:"type"` // "memory", "filesystem" or "s3"
	MaxFileSize int64  `toml:"max_file_size"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	Root string `toml:"root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket       string `toml:"s3_bucket,omitempty"`
	S3Prefix       string `toml:"s3_prefix,omitempty"`
	S3Region       string `toml:"s3_region,omitempty"`
	S3Endpoint     string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID  string `toml:"s3_access_key_id,omitempty"` // static keys; empty uses the default AWS chain
	S3SecretKey    string `toml:"s3_secret_key,omitempty"`
	PresignMinutes int    `toml:"presign_minutes,omitempty"`
}

// NewConfig returns a Config with every non-path default set: an age wallet
// on the default chain, the ledger as indexer, and the default size and page
// limits. Backends that need locations (sqlite data_dir, filesystem root,
// age key_path) are left for the caller to fill in.
func NewConfig() *Config {
	cfg := &Config{
		Wallet:  WalletConfig{Type: "age"},
		Ledger:  LedgerConfig{Type: "memory"},
		Indexer: IndexerConfig{Type: "ledger"},
		Media:   MediaConfig{Type: "memory"},
	}
	cfg.applyDefaults()
	return cfg
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Wallet.Type == "" {
		c.Wallet.Type = "age"
	}
	if c.Wallet.ChainID == 0 {
		c.Wallet.ChainID = DefaultChainID
	}
	if c.Indexer.Type == "" {
		c.Indexer.Type = "ledger"
	}
	if c.Indexer.PageSize <= 0 {
		c.Indexer.PageSize = DefaultPageSize
	}
	if c.Indexer.TimeoutSeconds <= 0 {
		c.Indexer.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Media.MaxFileSize <= 0 {
		c.Media.MaxFileSize = DefaultMaxFileSize
	}
	if c.Media.Type == "s3" && c.Media.PresignMinutes <= 0 {
		c.Media.PresignMinutes = DefaultPresignMinutes
	}
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes a new config file at path. An existing file is never overwritten.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
