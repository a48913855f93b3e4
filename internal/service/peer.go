package service

import (
	"context"

	"github.com/arya-analytics/beacon/internal/gossip"
	"github.com/arya-analytics/beacon/internal/registry"
	"go.uber.org/zap"
)

// Peer is the RPC surface exposed to sibling servers. Inbound gossip is
// applied in sub-batches so a single large convergence storm never holds the
// registry's critical section for its full length.
type Peer struct {
	Config
	registry *registry.Manager
}

func NewPeer(reg *registry.Manager, cfg Config) *Peer {
	p := &Peer{Config: cfg.Merge(DefaultConfig()), registry: reg}
	if p.Gossip != nil {
		p.Gossip.Handle(p.ProcessGossip)
	}
	return p
}

func (p *Peer) ProcessGossip(ctx context.Context, msg gossip.Message) (gossip.Ack, error) {
	p.Logger.Debug("process gossip", zap.Int("memberCount", len(msg.Entries)))
	entries := msg.Entries
	for len(entries) > 0 {
		batch := entries
		if len(batch) > p.GossipBatchSize {
			batch = batch[:p.GossipBatchSize]
		}
		p.registry.ProcessGossip(batch)
		entries = entries[len(batch):]
	}
	return gossip.Ack{}, nil
}
