package indexer

import (
	"fmt"
	"time"

	"chronovault/internal/chrono"
	"chronovault/internal/config"
)

// NewIndexerFromConfig creates the read side described by cfg. For type
// "ledger" the local ledger answers queries itself.
func NewIndexerFromConfig(cfg config.IndexerConfig, local chrono.Indexer, logger chrono.Logger) (chrono.Indexer, error) {
	switch cfg.Type {
	case "ledger", "":
		if local == nil {
			return nil, fmt.Errorf("ledger indexer requires a local ledger")
		}
		return local, nil
	case "graphql":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("endpoint required for graphql indexer")
		}
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = time.Duration(config.DefaultTimeoutSeconds) * time.Second
		}
		return NewGraphQLIndexer(cfg.Endpoint, nil, timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown indexer type: %s", cfg.Type)
	}
}
