package service

import (
	"time"

	"github.com/arya-analytics/beacon/internal/member"
	"github.com/arya-analytics/beacon/internal/transport"
)

type HeartbeatRequest struct {
	GroupID string
	Member  member.Info
	Lease   time.Duration
}

type HeartbeatResponse struct{}

type ListMembersRequest struct {
	GroupID string
	Limit   int
	// AttributeKeys selects which attributes to project onto the returned
	// views. Keys a member does not carry are omitted, not errors.
	AttributeKeys []string
}

// MemberView is the client-facing projection of a member.
type MemberView struct {
	ID         string
	Priority   int64
	Attributes map[string][]byte
}

type ListMembersResponse struct {
	Members []MemberView
}

type GetGroupMetaRequest struct {
	GroupID string
}

type GroupMeta struct {
	MemberCount int
}

type GetGroupMetaResponse struct {
	Meta GroupMeta
}

type (
	HeartbeatTransport    = transport.Unary[HeartbeatRequest, HeartbeatResponse]
	ListMembersTransport  = transport.Unary[ListMembersRequest, ListMembersResponse]
	GetGroupMetaTransport = transport.Unary[GetGroupMetaRequest, GetGroupMetaResponse]
)
