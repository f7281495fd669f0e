// Package pipeline wires the deployment journal to its backends: Postgres
// and Redpanda when configured, in-memory otherwise.
package pipeline

import (
	"context"
	"fmt"

	"ci-deployer/src/broker"
	"ci-deployer/src/deploy"
	"ci-deployer/src/logger"
	"ci-deployer/src/metrics"
	"ci-deployer/src/store"
)

// Mode selects where deployment history and events go.
type Mode int

const (
	// LocalMode keeps history and events in memory for the life of the process.
	LocalMode Mode = iota
	// SharedMode records history in Postgres and/or publishes events to Redpanda.
	SharedMode
)

func (m Mode) String() string {
	switch m {
	case LocalMode:
		return "local"
	case SharedMode:
		return "shared"
	default:
		return "unknown"
	}
}

// Config holds the backend settings.
type Config struct {
	RedpandaBrokers []string
	PostgresDSN     string
	PushgatewayURL  string
}

// DetectMode returns SharedMode when any shared backend is configured.
func DetectMode(cfg *Config) Mode {
	if len(cfg.RedpandaBrokers) > 0 || cfg.PostgresDSN != "" {
		return SharedMode
	}
	return LocalMode
}

// Backends are the opened journal sinks.
type Backends struct {
	Mode    Mode
	Store   store.Store
	Broker  broker.Broker
	Metrics *metrics.Recorder

	// Persistent is true when Store outlives the process.
	Persistent bool
	log        logger.Logger
}

// Open connects to the configured backends, falling back to in-memory
// implementations for the ones that are not configured.
func Open(ctx context.Context, cfg *Config, log logger.Logger) (*Backends, error) {
	b := &Backends{Mode: DetectMode(cfg), log: log}

	if cfg.PostgresDSN != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres store: %w", err)
		}
		b.Store = pg
		b.Persistent = true
	} else {
		b.Store = store.NewMemoryStore()
	}

	if len(cfg.RedpandaBrokers) > 0 {
		rp, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers, log)
		if err != nil {
			b.Store.Close()
			return nil, fmt.Errorf("failed to create Redpanda broker: %w", err)
		}
		b.Broker = rp
	} else {
		b.Broker = broker.NewInMemoryBroker()
	}

	b.Metrics = metrics.NewRecorder(cfg.PushgatewayURL, log)
	log.Debug("Journal backends: mode=%s persistent=%t", b.Mode, b.Persistent)
	return b, nil
}

// Observers returns the deploy observers that feed these backends.
func (b *Backends) Observers() []deploy.Observer {
	return []deploy.Observer{
		deploy.NewJournal(b.Store, b.Broker, b.log),
		b.Metrics,
	}
}

// Close closes every backend, returning the first error.
func (b *Backends) Close() error {
	var first error
	if b.Broker != nil {
		if err := b.Broker.Close(); err != nil {
			first = err
		}
	}
	if b.Store != nil {
		if err := b.Store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
