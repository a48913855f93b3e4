package transport

import (
	"context"

	"github.com/arya-analytics/beacon/internal/address"
)

// Unary is a bidirectional request/response transport. Send issues a request
// to the handler bound at addr and blocks until a response arrives or ctx is
// done. Handle binds the callback invoked for inbound requests; a transport
// carries at most one handler.
type Unary[RQ, RS any] interface {
	Send(ctx context.Context, addr address.Address, req RQ) (RS, error)
	Handle(handle func(ctx context.Context, req RQ) (RS, error))
}
