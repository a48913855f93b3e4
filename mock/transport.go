package mock

import (
	"context"
	"sync"

	"github.com/arya-analytics/beacon"
	"github.com/arya-analytics/beacon/internal/address"
	"github.com/arya-analytics/beacon/internal/gossip"
	"github.com/arya-analytics/beacon/internal/service"
	"github.com/cockroachdb/errors"
)

// ErrAddressUnreachable is returned when a message is sent to an address no
// transport is bound at.
var ErrAddressUnreachable = errors.New("address unreachable")

// Network is an in-memory, synchronous fabric connecting beacon transports.
// Every server (and test client) joins via NewTransport; sends are delivered
// directly to the handler bound at the target address.
type Network struct {
	heartbeat    *hub[service.HeartbeatRequest, service.HeartbeatResponse]
	listMembers  *hub[service.ListMembersRequest, service.ListMembersResponse]
	getGroupMeta *hub[service.GetGroupMetaRequest, service.GetGroupMetaResponse]
	gossip       *hub[gossip.Message, gossip.Ack]
}

func NewNetwork() *Network {
	return &Network{
		heartbeat:    newHub[service.HeartbeatRequest, service.HeartbeatResponse](),
		listMembers:  newHub[service.ListMembersRequest, service.ListMembersResponse](),
		getGroupMeta: newHub[service.GetGroupMetaRequest, service.GetGroupMetaResponse](),
		gossip:       newHub[gossip.Message, gossip.Ack](),
	}
}

// NewTransport returns a transport that joins the network when Configure is
// called with its address.
func (n *Network) NewTransport() beacon.Transport { return &transport{net: n} }

type transport struct {
	net          *Network
	heartbeat    *unary[service.HeartbeatRequest, service.HeartbeatResponse]
	listMembers  *unary[service.ListMembersRequest, service.ListMembersResponse]
	getGroupMeta *unary[service.GetGroupMetaRequest, service.GetGroupMetaResponse]
	gossip       *unary[gossip.Message, gossip.Ack]
}

// Configure implements beacon.Transport.
func (t *transport) Configure(_ context.Context, addr address.Address) error {
	t.heartbeat = t.net.heartbeat.route(addr)
	t.listMembers = t.net.listMembers.route(addr)
	t.getGroupMeta = t.net.getGroupMeta.route(addr)
	t.gossip = t.net.gossip.route(addr)
	return nil
}

func (t *transport) Heartbeat() service.HeartbeatTransport { return t.heartbeat }

func (t *transport) ListMembers() service.ListMembersTransport { return t.listMembers }

func (t *transport) GetGroupMeta() service.GetGroupMetaTransport { return t.getGroupMeta }

func (t *transport) Gossip() gossip.Transport { return t.gossip }

type hub[RQ, RS any] struct {
	mu       sync.RWMutex
	handlers map[address.Address]func(ctx context.Context, req RQ) (RS, error)
}

func newHub[RQ, RS any]() *hub[RQ, RS] {
	return &hub[RQ, RS]{handlers: make(map[address.Address]func(ctx context.Context, req RQ) (RS, error))}
}

func (h *hub[RQ, RS]) route(addr address.Address) *unary[RQ, RS] {
	return &unary[RQ, RS]{addr: addr, hub: h}
}

type unary[RQ, RS any] struct {
	addr address.Address
	hub  *hub[RQ, RS]
}

func (u *unary[RQ, RS]) Send(ctx context.Context, target address.Address, req RQ) (res RS, err error) {
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	u.hub.mu.RLock()
	handle, ok := u.hub.handlers[target]
	u.hub.mu.RUnlock()
	if !ok {
		return res, errors.Wrapf(ErrAddressUnreachable, "address %s", target)
	}
	return handle(ctx, req)
}

func (u *unary[RQ, RS]) Handle(handle func(ctx context.Context, req RQ) (RS, error)) {
	u.hub.mu.Lock()
	defer u.hub.mu.Unlock()
	u.hub.handlers[u.addr] = handle
}
