package beacon

import (
	"context"

	"github.com/arya-analytics/beacon/internal/address"
	"github.com/arya-analytics/beacon/internal/gossip"
	"github.com/arya-analytics/beacon/internal/service"
)

// Transport bundles the unary transports a discovery server exchanges
// messages over. Configure binds the transport to the server's own address
// and must be called before any Send or Handle.
type Transport interface {
	Heartbeat() service.HeartbeatTransport
	ListMembers() service.ListMembersTransport
	GetGroupMeta() service.GetGroupMetaTransport
	Gossip() gossip.Transport
	Configure(ctx context.Context, addr address.Address) error
}
