package gossip

import (
	"github.com/arya-analytics/beacon/internal/member"
	"github.com/arya-analytics/beacon/internal/transport"
)

// Message carries the member deltas for one gossip dispatch. Attributes are
// attached per entry only when the sender's throttle window has elapsed.
type Message struct {
	Entries []member.GossipInfo
}

// Ack is the empty response to a gossip dispatch.
type Ack struct{}

type Transport = transport.Unary[Message, Ack]
