package gossip

import (
	"time"

	"github.com/arya-analytics/beacon/internal/address"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

type Config struct {
	// Self is this server's own address within Peers; it is skipped when
	// fanning out.
	Self address.Address
	// Peers is the full, fixed server set, including Self.
	Peers []address.Address
	// Transport dispatches gossip payloads to peers.
	Transport Transport
	// Interval is the period between gossip ticks.
	Interval time.Duration
	// AttributesUpdatePeriod is the minimum interval between attribute
	// pushes for a single member. Revision and lease churn still propagate
	// every tick.
	AttributesUpdatePeriod time.Duration
	// RequestTimeout bounds each outbound dispatch. Zero means Interval.
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

func (cfg Config) Merge(def Config) Config {
	if cfg.Interval == 0 {
		cfg.Interval = def.Interval
	}
	if cfg.AttributesUpdatePeriod == 0 {
		cfg.AttributesUpdatePeriod = def.AttributesUpdatePeriod
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = cfg.Interval
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return cfg
}

func (cfg Config) Validate() error {
	if cfg.Transport == nil {
		return errors.New("gossip transport required")
	}
	if cfg.Self == "" {
		return errors.New("self address required")
	}
	return nil
}

func DefaultConfig() Config {
	return Config{
		Interval:               1 * time.Second,
		AttributesUpdatePeriod: 60 * time.Second,
		Logger:                 zap.NewNop(),
	}
}
