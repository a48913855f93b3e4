package service

import (
	"time"

	"github.com/arya-analytics/beacon/internal/gossip"
	"go.uber.org/zap"
)

type Config struct {
	// MinLease and MaxLease bound the lease durations clients may request.
	MinLease time.Duration
	MaxLease time.Duration
	// GossipBatchSize chunks inbound gossip into sub-batches, bounding the
	// hold time of any single critical section.
	GossipBatchSize int

	Heartbeat    HeartbeatTransport
	ListMembers  ListMembersTransport
	GetGroupMeta GetGroupMetaTransport
	Gossip       gossip.Transport

	Logger *zap.Logger
}

func (cfg Config) Merge(def Config) Config {
	if cfg.MinLease == 0 {
		cfg.MinLease = def.MinLease
	}
	if cfg.MaxLease == 0 {
		cfg.MaxLease = def.MaxLease
	}
	if cfg.GossipBatchSize == 0 {
		cfg.GossipBatchSize = def.GossipBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return cfg
}

func DefaultConfig() Config {
	return Config{
		MinLease:        1 * time.Second,
		MaxLease:        5 * time.Minute,
		GossipBatchSize: 1000,
		Logger:          zap.NewNop(),
	}
}
