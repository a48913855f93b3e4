package beacon

import (
	"time"

	"go.uber.org/zap"
)

type Option func(*Config)

func WithLogger(logger *zap.Logger) Option {
	return func(cfg *Config) { cfg.Logger = logger }
}

func WithGossipPeriod(period time.Duration) Option {
	return func(cfg *Config) { cfg.GossipPeriod = period }
}

func WithGossipBatchSize(size int) Option {
	return func(cfg *Config) { cfg.GossipBatchSize = size }
}

func WithAttributesUpdatePeriod(period time.Duration) Option {
	return func(cfg *Config) { cfg.AttributesUpdatePeriod = period }
}

func WithLeaseBounds(min, max time.Duration) Option {
	return func(cfg *Config) { cfg.MinLease, cfg.MaxLease = min, max }
}

func WithRPCTimeout(timeout time.Duration) Option {
	return func(cfg *Config) { cfg.RPCTimeout = timeout }
}
