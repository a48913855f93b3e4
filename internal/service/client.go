package service

import (
	"context"
	"time"

	"github.com/arya-analytics/beacon/internal/registry"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ErrInvalidArgument is returned for malformed client requests: empty ids,
// non-positive leases, or leases outside the configured bounds. No state is
// changed.
var ErrInvalidArgument = errors.New("invalid argument")

// Client is the RPC surface exposed to end clients: Heartbeat, ListMembers,
// and GetGroupMeta. Handlers are bound to the configured transports at
// construction.
type Client struct {
	Config
	registry *registry.Manager
}

func NewClient(reg *registry.Manager, cfg Config) *Client {
	c := &Client{Config: cfg.Merge(DefaultConfig()), registry: reg}
	if c.Heartbeat != nil {
		c.Heartbeat.Handle(c.ProcessHeartbeat)
	}
	if c.ListMembers != nil {
		c.ListMembers.Handle(c.ProcessListMembers)
	}
	if c.GetGroupMeta != nil {
		c.GetGroupMeta.Handle(c.ProcessGetGroupMeta)
	}
	return c
}

func (c *Client) ProcessHeartbeat(ctx context.Context, req HeartbeatRequest) (HeartbeatResponse, error) {
	if err := c.validateHeartbeat(req); err != nil {
		return HeartbeatResponse{}, err
	}
	c.Logger.Debug("heartbeat",
		zap.String("group", req.GroupID),
		zap.String("member", req.Member.ID),
		zap.Duration("lease", req.Lease),
	)
	c.registry.ProcessHeartbeat(req.GroupID, req.Member, req.Lease)
	return HeartbeatResponse{}, nil
}

func (c *Client) ProcessListMembers(ctx context.Context, req ListMembersRequest) (ListMembersResponse, error) {
	grp, err := c.registry.GetGroup(req.GroupID)
	if err != nil {
		return ListMembersResponse{}, err
	}
	snaps := grp.List(req.Limit, time.Now())
	views := make([]MemberView, 0, len(snaps))
	for _, snap := range snaps {
		view := MemberView{ID: snap.ID, Priority: snap.Priority}
		for _, key := range req.AttributeKeys {
			if value, ok := snap.Attributes[key]; ok {
				if view.Attributes == nil {
					view.Attributes = make(map[string][]byte, len(req.AttributeKeys))
				}
				view.Attributes[key] = value
			}
		}
		views = append(views, view)
	}
	c.Logger.Debug("list members",
		zap.String("group", req.GroupID),
		zap.Int("limit", req.Limit),
		zap.Int("memberCount", len(views)),
	)
	return ListMembersResponse{Members: views}, nil
}

func (c *Client) ProcessGetGroupMeta(ctx context.Context, req GetGroupMetaRequest) (GetGroupMetaResponse, error) {
	grp, err := c.registry.GetGroup(req.GroupID)
	if err != nil {
		return GetGroupMetaResponse{}, err
	}
	meta := GroupMeta{MemberCount: grp.Count(time.Now())}
	c.Logger.Debug("group meta",
		zap.String("group", req.GroupID),
		zap.Int("memberCount", meta.MemberCount),
	)
	return GetGroupMetaResponse{Meta: meta}, nil
}

func (c *Client) validateHeartbeat(req HeartbeatRequest) error {
	if req.GroupID == "" {
		return errors.Wrap(ErrInvalidArgument, "empty group id")
	}
	if req.Member.ID == "" {
		return errors.Wrap(ErrInvalidArgument, "empty member id")
	}
	if req.Lease <= 0 {
		return errors.Wrap(ErrInvalidArgument, "non-positive lease")
	}
	if req.Lease < c.MinLease || req.Lease > c.MaxLease {
		return errors.Wrapf(ErrInvalidArgument,
			"lease %s outside bounds [%s, %s]", req.Lease, c.MinLease, c.MaxLease)
	}
	return nil
}
