package app

import (
	"fmt"
	"os"
	"path/filepath"

	"chronovault/internal/config"
	"chronovault/internal/ledger"
)

// Environment overrides for the on-disk layout.
const (
	EnvConfigPath = "CHRONOVAULT_CONFIG_PATH"
	EnvHome       = "CHRONOVAULT_HOME"
)

// Paths locates everything chronovault keeps on disk. Only ConfigFile and
// BaseDir are chosen; the rest are derived from BaseDir.
type Paths struct {
	ConfigFile string
	BaseDir    string
	LogDir     string
	KeyFile    string // age-encrypted wallet identity
	LedgerDir  string // holds ledger.FileName
	MediaRoot  string
}

// PathsUnder lays out a data directory rooted at baseDir.
func PathsUnder(configFile, baseDir string) Paths {
	return Paths{
		ConfigFile: configFile,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		KeyFile:    filepath.Join(baseDir, "keys", "wallet.age"),
		LedgerDir:  filepath.Join(baseDir, "ledger"),
		MediaRoot:  filepath.Join(baseDir, "media"),
	}
}

// ResolvePaths picks the config file and data directory, in order of
// preference:
//
//	config: $CHRONOVAULT_CONFIG_PATH, $XDG_CONFIG_HOME/chronovault.toml, ~/.config/chronovault.toml
//	data:   $CHRONOVAULT_HOME, $XDG_DATA_HOME/chronovault, ~/.local/share/chronovault
func ResolvePaths() (Paths, error) {
	configFile, err := firstPath(EnvConfigPath, "XDG_CONFIG_HOME", "chronovault.toml", ".config")
	if err != nil {
		return Paths{}, err
	}
	baseDir, err := firstPath(EnvHome, "XDG_DATA_HOME", "chronovault", filepath.Join(".local", "share"))
	if err != nil {
		return Paths{}, err
	}
	return PathsUnder(configFile, baseDir), nil
}

func firstPath(override, xdgVar, name, homeRel string) (string, error) {
	if p := os.Getenv(override); p != "" {
		return p, nil
	}
	if dir := os.Getenv(xdgVar); filepath.IsAbs(dir) {
		return filepath.Join(dir, name), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, homeRel, name), nil
}

// NewConfig returns the default local setup stored under p: an age wallet,
// a SQLite ledger that is also the indexer, and filesystem media.
func (p Paths) NewConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.BaseDir = p.BaseDir
	cfg.LogDir = p.LogDir
	cfg.Wallet.Type = "age"
	cfg.Wallet.KeyPath = p.KeyFile
	cfg.Ledger.Type = "sqlite"
	cfg.Ledger.DataDir = p.LedgerDir
	cfg.Media.Type = "filesystem"
	cfg.Media.Root = p.MediaRoot
	return cfg
}

// LedgerFile is the SQLite database inside LedgerDir.
func (p Paths) LedgerFile() string {
	return filepath.Join(p.LedgerDir, ledger.FileName)
}

// Ensure creates the data directories. The key directory is private to the
// user.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.LogDir, p.LedgerDir, p.MediaRoot} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	keyDir := filepath.Dir(p.KeyFile)
	if err := os.MkdirAll(keyDir, 0700); err != nil {
		return fmt.Errorf("creating %s: %w", keyDir, err)
	}
	return nil
}
