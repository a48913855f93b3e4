package grpc

import (
	"time"

	"github.com/arya-analytics/beacon/internal/gossip"
	"github.com/arya-analytics/beacon/internal/member"
	"github.com/arya-analytics/beacon/internal/registry"
	"github.com/arya-analytics/beacon/internal/service"
	"github.com/cockroachdb/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Wire structs. Durations and deadlines cross the wire as microseconds; a
// lease deadline is absolute microseconds since the Unix epoch. Attributes
// omitted from a gossip entry mean "unchanged" on the receiving side.

type wireMemberInfo struct {
	ID         string            `json:"id"`
	Priority   int64             `json:"priority"`
	Attributes map[string][]byte `json:"attributes,omitempty"`
}

type wireHeartbeatRequest struct {
	GroupID string         `json:"groupId"`
	Member  wireMemberInfo `json:"member"`
	LeaseUs int64          `json:"leaseUs"`
}

type wireHeartbeatResponse struct{}

type wireListMembersRequest struct {
	GroupID       string   `json:"groupId"`
	Limit         int      `json:"limit"`
	AttributeKeys []string `json:"attributeKeys,omitempty"`
}

type wireListMembersResponse struct {
	Members []wireMemberInfo `json:"members"`
}

type wireGetGroupMetaRequest struct {
	GroupID string `json:"groupId"`
}

type wireGetGroupMetaResponse struct {
	MemberCount int `json:"memberCount"`
}

type wireGossipEntry struct {
	GroupID         string         `json:"groupId"`
	Member          wireMemberInfo `json:"member"`
	Revision        int64          `json:"revision"`
	LeaseDeadlineUs int64          `json:"leaseDeadline"`
}

type wireGossipRequest struct {
	Members []wireGossipEntry `json:"members"`
}

type wireGossipResponse struct{}

func heartbeatToWire(req service.HeartbeatRequest) *wireHeartbeatRequest {
	return &wireHeartbeatRequest{
		GroupID: req.GroupID,
		Member: wireMemberInfo{
			ID:         req.Member.ID,
			Priority:   req.Member.Priority,
			Attributes: req.Member.Attributes,
		},
		LeaseUs: req.Lease.Microseconds(),
	}
}

func heartbeatFromWire(req *wireHeartbeatRequest) service.HeartbeatRequest {
	if req == nil {
		return service.HeartbeatRequest{}
	}
	return service.HeartbeatRequest{
		GroupID: req.GroupID,
		Member: member.Info{
			ID:         req.Member.ID,
			Priority:   req.Member.Priority,
			Attributes: req.Member.Attributes,
		},
		Lease: time.Duration(req.LeaseUs) * time.Microsecond,
	}
}

func listMembersToWire(req service.ListMembersRequest) *wireListMembersRequest {
	return &wireListMembersRequest{
		GroupID:       req.GroupID,
		Limit:         req.Limit,
		AttributeKeys: req.AttributeKeys,
	}
}

func listMembersFromWire(req *wireListMembersRequest) service.ListMembersRequest {
	if req == nil {
		return service.ListMembersRequest{}
	}
	return service.ListMembersRequest{
		GroupID:       req.GroupID,
		Limit:         req.Limit,
		AttributeKeys: req.AttributeKeys,
	}
}

func membersToWire(res service.ListMembersResponse) *wireListMembersResponse {
	out := &wireListMembersResponse{Members: make([]wireMemberInfo, 0, len(res.Members))}
	for _, view := range res.Members {
		out.Members = append(out.Members, wireMemberInfo{
			ID:         view.ID,
			Priority:   view.Priority,
			Attributes: view.Attributes,
		})
	}
	return out
}

func membersFromWire(res *wireListMembersResponse) (out service.ListMembersResponse) {
	if res == nil {
		return out
	}
	for _, info := range res.Members {
		out.Members = append(out.Members, service.MemberView{
			ID:         info.ID,
			Priority:   info.Priority,
			Attributes: info.Attributes,
		})
	}
	return out
}

func getGroupMetaFromWire(req *wireGetGroupMetaRequest) service.GetGroupMetaRequest {
	if req == nil {
		return service.GetGroupMetaRequest{}
	}
	return service.GetGroupMetaRequest{GroupID: req.GroupID}
}

func gossipToWire(msg gossip.Message) *wireGossipRequest {
	out := &wireGossipRequest{Members: make([]wireGossipEntry, 0, len(msg.Entries))}
	for _, entry := range msg.Entries {
		out.Members = append(out.Members, wireGossipEntry{
			GroupID: entry.GroupID,
			Member: wireMemberInfo{
				ID:         entry.ID,
				Priority:   entry.Priority,
				Attributes: entry.Attributes,
			},
			Revision:        entry.Revision,
			LeaseDeadlineUs: entry.LeaseDeadline.UnixMicro(),
		})
	}
	return out
}

func gossipFromWire(req *wireGossipRequest) (msg gossip.Message) {
	if req == nil {
		return msg
	}
	msg.Entries = make([]member.GossipInfo, 0, len(req.Members))
	for _, entry := range req.Members {
		msg.Entries = append(msg.Entries, member.GossipInfo{
			GroupID:       entry.GroupID,
			ID:            entry.Member.ID,
			Priority:      entry.Member.Priority,
			Revision:      entry.Revision,
			LeaseDeadline: time.UnixMicro(entry.LeaseDeadlineUs),
			Attributes:    entry.Member.Attributes,
		})
	}
	return msg
}

// errUnavailable is returned for RPCs that arrive before the owning service
// bound its handler.
var errUnavailable = status.Error(codes.Unavailable, "service not configured")

// encodeError maps registry sentinels to gRPC status codes at the handler
// boundary; everything unrecognized is Internal.
func encodeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, registry.ErrGroupNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// decodeError recovers the sentinel from a status so callers can errors.Is
// against the same values on both sides of the wire.
func decodeError(err error) error {
	if err == nil {
		return nil
	}
	s, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch s.Code() {
	case codes.InvalidArgument:
		return errors.Wrap(service.ErrInvalidArgument, s.Message())
	case codes.NotFound:
		return errors.Wrap(registry.ErrGroupNotFound, s.Message())
	default:
		return err
	}
}
