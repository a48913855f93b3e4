package beacon

import (
	"context"

	"github.com/arya-analytics/beacon/internal/gossip"
	"github.com/arya-analytics/beacon/internal/registry"
	"github.com/arya-analytics/beacon/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DiscoveryServer composes the registry, the client and peer RPC services,
// and the gossip driver into one server process.
type DiscoveryServer struct {
	Config
	registry *registry.Manager
	client   *service.Client
	peer     *service.Peer
	driver   *gossip.Driver
	shutdown context.CancelFunc
	wg       *errgroup.Group
}

func New(cfg Config, opts ...Option) (*DiscoveryServer, error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.Merge(DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg := registry.NewManager(registry.Config{Logger: cfg.Logger.Named("registry")})
	return &DiscoveryServer{Config: cfg, registry: reg}, nil
}

// Start binds the transport at Self, registers the RPC handlers, and starts
// the gossip driver. It returns once the server is serving; Close stops it.
func (s *DiscoveryServer) Start(ctx context.Context) error {
	if err := s.Transport.Configure(ctx, s.Self); err != nil {
		return err
	}
	svcCfg := service.Config{
		MinLease:        s.MinLease,
		MaxLease:        s.MaxLease,
		GossipBatchSize: s.GossipBatchSize,
		Heartbeat:       s.Transport.Heartbeat(),
		ListMembers:     s.Transport.ListMembers(),
		GetGroupMeta:    s.Transport.GetGroupMeta(),
		Gossip:          s.Transport.Gossip(),
		Logger:          s.Logger.Named("service"),
	}
	s.client = service.NewClient(s.registry, svcCfg)
	s.peer = service.NewPeer(s.registry, svcCfg)
	driver, err := gossip.NewDriver(s.registry, gossip.Config{
		Self:                   s.Self,
		Peers:                  s.Peers,
		Transport:              s.Transport.Gossip(),
		Interval:               s.GossipPeriod,
		AttributesUpdatePeriod: s.AttributesUpdatePeriod,
		RequestTimeout:         s.RPCTimeout,
		Logger:                 s.Logger.Named("gossip"),
	})
	if err != nil {
		return err
	}
	s.driver = driver
	runCtx, cancel := context.WithCancel(ctx)
	s.shutdown = cancel
	wg, runCtx := errgroup.WithContext(runCtx)
	s.wg = wg
	wg.Go(func() error { return s.driver.Run(runCtx) })
	s.Logger.Info("server initialized",
		zap.String("self", s.Self.String()),
		zap.Int("peerCount", len(s.Peers)),
	)
	return nil
}

// Introspection returns the groups -> members tree for operators.
func (s *DiscoveryServer) Introspection() []registry.GroupView {
	return s.registry.IntrospectionView()
}

// Registry exposes the group manager. Intended for tests and embedding.
func (s *DiscoveryServer) Registry() *registry.Manager { return s.registry }

func (s *DiscoveryServer) Close() error {
	var err error
	if s.shutdown != nil {
		s.shutdown()
		err = s.wg.Wait()
	}
	s.registry.Close()
	s.Logger.Info("server finalized")
	return err
}
