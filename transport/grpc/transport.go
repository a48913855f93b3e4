package grpc

import (
	"context"
	"net"

	"github.com/arya-analytics/beacon/internal/address"
	"github.com/arya-analytics/beacon/internal/gossip"
	"github.com/arya-analytics/beacon/internal/service"
	"google.golang.org/grpc"
)

const (
	discoveryService = "beacon.v1.Discovery"
	peerService      = "beacon.v1.DiscoveryPeer"

	heartbeatMethod     = "/" + discoveryService + "/Heartbeat"
	listMembersMethod   = "/" + discoveryService + "/ListMembers"
	getGroupMetaMethod  = "/" + discoveryService + "/GetGroupMeta"
	processGossipMethod = "/" + peerService + "/ProcessGossip"
)

// New returns a gRPC implementation of beacon.Transport. Wire structs are
// JSON-encoded and the service descriptors are hand-written, so no protoc
// codegen is involved.
func New() *Transport {
	p := newPool()
	return &Transport{
		pool:         p,
		heartbeat:    &heartbeatTransport{pool: p},
		listMembers:  &listMembersTransport{pool: p},
		getGroupMeta: &getGroupMetaTransport{pool: p},
		gossip:       &gossipTransport{pool: p},
	}
}

type Transport struct {
	pool         *pool
	heartbeat    *heartbeatTransport
	listMembers  *listMembersTransport
	getGroupMeta *getGroupMetaTransport
	gossip       *gossipTransport
}

func (t *Transport) Heartbeat() service.HeartbeatTransport { return t.heartbeat }

func (t *Transport) ListMembers() service.ListMembersTransport { return t.listMembers }

func (t *Transport) GetGroupMeta() service.GetGroupMetaTransport { return t.getGroupMeta }

func (t *Transport) Gossip() gossip.Transport { return t.gossip }

// Configure starts a gRPC server listening at addr and registers both
// discovery services. The server stops gracefully when ctx is cancelled.
func (t *Transport) Configure(ctx context.Context, addr address.Address) error {
	lis, err := net.Listen("tcp", addr.String())
	if err != nil {
		return err
	}
	server := grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	server.RegisterService(&discoveryServiceDesc, t)
	server.RegisterService(&peerServiceDesc, t)
	go func() {
		<-ctx.Done()
		server.GracefulStop()
		t.pool.close()
	}()
	go func() { _ = server.Serve(lis) }()
	return nil
}

// |||||| CLIENT SURFACE ||||||

type heartbeatTransport struct {
	pool   *pool
	handle func(ctx context.Context, req service.HeartbeatRequest) (service.HeartbeatResponse, error)
}

func (h *heartbeatTransport) Send(
	ctx context.Context, addr address.Address, req service.HeartbeatRequest,
) (service.HeartbeatResponse, error) {
	conn, err := h.pool.acquire(addr)
	if err != nil {
		return service.HeartbeatResponse{}, err
	}
	res := new(wireHeartbeatResponse)
	if err := conn.Invoke(ctx, heartbeatMethod, heartbeatToWire(req), res); err != nil {
		return service.HeartbeatResponse{}, decodeError(err)
	}
	return service.HeartbeatResponse{}, nil
}

func (h *heartbeatTransport) Handle(
	handle func(ctx context.Context, req service.HeartbeatRequest) (service.HeartbeatResponse, error),
) {
	h.handle = handle
}

type listMembersTransport struct {
	pool   *pool
	handle func(ctx context.Context, req service.ListMembersRequest) (service.ListMembersResponse, error)
}

func (l *listMembersTransport) Send(
	ctx context.Context, addr address.Address, req service.ListMembersRequest,
) (service.ListMembersResponse, error) {
	conn, err := l.pool.acquire(addr)
	if err != nil {
		return service.ListMembersResponse{}, err
	}
	res := new(wireListMembersResponse)
	if err := conn.Invoke(ctx, listMembersMethod, listMembersToWire(req), res); err != nil {
		return service.ListMembersResponse{}, decodeError(err)
	}
	return membersFromWire(res), nil
}

func (l *listMembersTransport) Handle(
	handle func(ctx context.Context, req service.ListMembersRequest) (service.ListMembersResponse, error),
) {
	l.handle = handle
}

type getGroupMetaTransport struct {
	pool   *pool
	handle func(ctx context.Context, req service.GetGroupMetaRequest) (service.GetGroupMetaResponse, error)
}

func (g *getGroupMetaTransport) Send(
	ctx context.Context, addr address.Address, req service.GetGroupMetaRequest,
) (service.GetGroupMetaResponse, error) {
	conn, err := g.pool.acquire(addr)
	if err != nil {
		return service.GetGroupMetaResponse{}, err
	}
	res := new(wireGetGroupMetaResponse)
	wireReq := &wireGetGroupMetaRequest{GroupID: req.GroupID}
	if err := conn.Invoke(ctx, getGroupMetaMethod, wireReq, res); err != nil {
		return service.GetGroupMetaResponse{}, decodeError(err)
	}
	return service.GetGroupMetaResponse{Meta: service.GroupMeta{MemberCount: res.MemberCount}}, nil
}

func (g *getGroupMetaTransport) Handle(
	handle func(ctx context.Context, req service.GetGroupMetaRequest) (service.GetGroupMetaResponse, error),
) {
	g.handle = handle
}

// |||||| PEER SURFACE ||||||

type gossipTransport struct {
	pool   *pool
	handle func(ctx context.Context, msg gossip.Message) (gossip.Ack, error)
}

func (g *gossipTransport) Send(
	ctx context.Context, addr address.Address, msg gossip.Message,
) (gossip.Ack, error) {
	conn, err := g.pool.acquire(addr)
	if err != nil {
		return gossip.Ack{}, err
	}
	res := new(wireGossipResponse)
	if err := conn.Invoke(ctx, processGossipMethod, gossipToWire(msg), res); err != nil {
		return gossip.Ack{}, decodeError(err)
	}
	return gossip.Ack{}, nil
}

func (g *gossipTransport) Handle(handle func(ctx context.Context, msg gossip.Message) (gossip.Ack, error)) {
	g.handle = handle
}

// |||||| SERVICE DESCRIPTORS ||||||

type discoveryServer interface {
	heartbeatRPC(ctx context.Context, req *wireHeartbeatRequest) (*wireHeartbeatResponse, error)
	listMembersRPC(ctx context.Context, req *wireListMembersRequest) (*wireListMembersResponse, error)
	getGroupMetaRPC(ctx context.Context, req *wireGetGroupMetaRequest) (*wireGetGroupMetaResponse, error)
}

type peerServer interface {
	processGossipRPC(ctx context.Context, req *wireGossipRequest) (*wireGossipResponse, error)
}

func (t *Transport) heartbeatRPC(ctx context.Context, req *wireHeartbeatRequest) (*wireHeartbeatResponse, error) {
	if t.heartbeat.handle == nil {
		return nil, errUnavailable
	}
	_, err := t.heartbeat.handle(ctx, heartbeatFromWire(req))
	return &wireHeartbeatResponse{}, encodeError(err)
}

func (t *Transport) listMembersRPC(ctx context.Context, req *wireListMembersRequest) (*wireListMembersResponse, error) {
	if t.listMembers.handle == nil {
		return nil, errUnavailable
	}
	res, err := t.listMembers.handle(ctx, listMembersFromWire(req))
	if err != nil {
		return nil, encodeError(err)
	}
	return membersToWire(res), nil
}

func (t *Transport) getGroupMetaRPC(ctx context.Context, req *wireGetGroupMetaRequest) (*wireGetGroupMetaResponse, error) {
	if t.getGroupMeta.handle == nil {
		return nil, errUnavailable
	}
	res, err := t.getGroupMeta.handle(ctx, getGroupMetaFromWire(req))
	if err != nil {
		return nil, encodeError(err)
	}
	return &wireGetGroupMetaResponse{MemberCount: res.Meta.MemberCount}, nil
}

func (t *Transport) processGossipRPC(ctx context.Context, req *wireGossipRequest) (*wireGossipResponse, error) {
	if t.gossip.handle == nil {
		return nil, errUnavailable
	}
	if _, err := t.gossip.handle(ctx, gossipFromWire(req)); err != nil {
		return nil, encodeError(err)
	}
	return &wireGossipResponse{}, nil
}

var discoveryServiceDesc = grpc.ServiceDesc{
	ServiceName: discoveryService,
	HandlerType: (*discoveryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Heartbeat", Handler: heartbeatHandler},
		{MethodName: "ListMembers", Handler: listMembersHandler},
		{MethodName: "GetGroupMeta", Handler: getGroupMetaHandler},
	},
}

var peerServiceDesc = grpc.ServiceDesc{
	ServiceName: peerService,
	HandlerType: (*peerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ProcessGossip", Handler: processGossipHandler},
	},
}

func heartbeatHandler(
	srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor,
) (interface{}, error) {
	in := new(wireHeartbeatRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(discoveryServer).heartbeatRPC(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: heartbeatMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(discoveryServer).heartbeatRPC(ctx, req.(*wireHeartbeatRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listMembersHandler(
	srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor,
) (interface{}, error) {
	in := new(wireListMembersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(discoveryServer).listMembersRPC(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listMembersMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(discoveryServer).listMembersRPC(ctx, req.(*wireListMembersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getGroupMetaHandler(
	srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor,
) (interface{}, error) {
	in := new(wireGetGroupMetaRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(discoveryServer).getGroupMetaRPC(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getGroupMetaMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(discoveryServer).getGroupMetaRPC(ctx, req.(*wireGetGroupMetaRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func processGossipHandler(
	srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor,
) (interface{}, error) {
	in := new(wireGossipRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(peerServer).processGossipRPC(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: processGossipMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(peerServer).processGossipRPC(ctx, req.(*wireGossipRequest))
	}
	return interceptor(ctx, in, info, handler)
}
