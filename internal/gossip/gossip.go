package gossip

import (
	"context"
	"time"

	"github.com/arya-analytics/beacon/internal/member"
	"github.com/arya-analytics/beacon/internal/registry"
	"github.com/arya-analytics/beacon/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Driver periodically drains the registry's change set and fans the pending
// member deltas out to every peer. Dispatches are fire-and-forget: failures
// are logged and dropped, and convergence relies on the next tick carrying
// newer state.
type Driver struct {
	Config
	registry *registry.Manager
}

func NewDriver(reg *registry.Manager, cfg Config) (*Driver, error) {
	cfg = cfg.Merge(DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Driver{Config: cfg, registry: reg}, nil
}

// Run ticks at Interval until ctx is done. A tick runs to completion before
// the next is taken, so overruns skip beats rather than queue.
func (d *Driver) Run(ctx context.Context) error {
	t := time.NewTicker(d.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			d.Tick(ctx)
		}
	}
}

// Tick performs one gossip round: drain the change set, build the payload,
// dispatch it to every peer but Self, then advance the attribute-push
// timestamps of the members whose attributes were attached.
func (d *Driver) Tick(ctx context.Context) {
	drained := d.registry.DrainModifiedMembers()
	d.Logger.Debug("gossip started", zap.Int("modifiedMembers", len(drained)))
	if len(drained) == 0 {
		return
	}

	tickStart := time.Now()
	entries := make([]member.GossipInfo, 0, len(drained))
	pushed := drained[:0]
	for _, mem := range drained {
		snap := mem.Snapshot()
		entry := member.GossipInfo{
			GroupID:       snap.GroupID,
			ID:            snap.ID,
			Priority:      snap.Priority,
			Revision:      snap.Revision,
			LeaseDeadline: snap.LeaseDeadline,
		}
		if tickStart.Sub(snap.AttributesPushedAt) >= d.AttributesUpdatePeriod {
			entry.Attributes = snap.Attributes
			pushed = append(pushed, mem)
		}
		entries = append(entries, entry)
	}

	wg := errgroup.Group{}
	for _, addr := range d.Peers {
		if addr == d.Self {
			continue
		}
		addr := addr
		wg.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, d.RequestTimeout)
			defer cancel()
			if _, err := d.Transport.Send(cctx, addr, Message{Entries: entries}); err != nil {
				telemetry.GossipBatchesSent.WithLabelValues("error").Inc()
				d.Logger.Debug("gossip failed",
					zap.String("peer", addr.String()),
					zap.Error(err),
				)
				return nil
			}
			telemetry.GossipBatchesSent.WithLabelValues("ok").Inc()
			d.Logger.Debug("gossip succeeded", zap.String("peer", addr.String()))
			return nil
		})
	}

	for _, mem := range pushed {
		mem.MarkAttributesPushed(tickStart)
	}
	_ = wg.Wait()
}
