package grpc

import (
	"sync"

	"github.com/arya-analytics/beacon/internal/address"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// pool caches one client connection per peer address. Connections are dialed
// lazily and reused across gossip ticks; the peer set is fixed, so there is
// no eviction.
type pool struct {
	mu    sync.Mutex
	conns map[address.Address]*grpc.ClientConn
}

func newPool() *pool {
	return &pool{conns: make(map[address.Address]*grpc.ClientConn)}
}

func (p *pool) acquire(addr address.Address) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.conns[addr]; ok {
		return conn, nil
	}
	conn, err := grpc.NewClient(addr.String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.ForceCodec(jsonCodec{}),
			grpc.CallContentSubtype("json"),
		),
	)
	if err != nil {
		return nil, err
	}
	p.conns[addr] = conn
	return conn, nil
}

func (p *pool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, conn := range p.conns {
		_ = conn.Close()
		delete(p.conns, addr)
	}
}
