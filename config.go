package beacon

import (
	"time"

	"github.com/arya-analytics/beacon/internal/address"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

type Config struct {
	// Self is this server's identity among Peers.
	Self address.Address
	// Peers is the full fixed server set, including Self. The registry has
	// no dynamic reconfiguration; the list is set once at startup.
	Peers []address.Address
	// Transport moves client requests and peer gossip.
	Transport Transport
	// GossipPeriod is the interval between gossip fan-out ticks.
	GossipPeriod time.Duration
	// GossipBatchSize chunks inbound gossip on the receive side.
	GossipBatchSize int
	// AttributesUpdatePeriod throttles per-member attribute replication.
	AttributesUpdatePeriod time.Duration
	// RPCTimeout bounds each outbound gossip dispatch. Zero means
	// GossipPeriod.
	RPCTimeout time.Duration
	// MinLease and MaxLease bound client-requested lease durations.
	MinLease time.Duration
	MaxLease time.Duration
	Logger   *zap.Logger
}

func (cfg Config) Merge(def Config) Config {
	if cfg.GossipPeriod == 0 {
		cfg.GossipPeriod = def.GossipPeriod
	}
	if cfg.GossipBatchSize == 0 {
		cfg.GossipBatchSize = def.GossipBatchSize
	}
	if cfg.AttributesUpdatePeriod == 0 {
		cfg.AttributesUpdatePeriod = def.AttributesUpdatePeriod
	}
	if cfg.MinLease == 0 {
		cfg.MinLease = def.MinLease
	}
	if cfg.MaxLease == 0 {
		cfg.MaxLease = def.MaxLease
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return cfg
}

func (cfg Config) Validate() error {
	if cfg.Self == "" {
		return errors.New("self address required")
	}
	if cfg.Transport == nil {
		return errors.New("transport required")
	}
	return nil
}

func DefaultConfig() Config {
	return Config{
		GossipPeriod:           1 * time.Second,
		GossipBatchSize:        1000,
		AttributesUpdatePeriod: 60 * time.Second,
		MinLease:               1 * time.Second,
		MaxLease:               5 * time.Minute,
		Logger:                 zap.NewNop(),
	}
}
