package service_test

import (
	"context"
	"time"

	"github.com/arya-analytics/beacon/internal/member"
	"github.com/arya-analytics/beacon/internal/registry"
	"github.com/arya-analytics/beacon/internal/service"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	var (
		ctx    context.Context
		mgr    *registry.Manager
		client *service.Client
	)
	BeforeEach(func() {
		ctx = context.Background()
		mgr = registry.NewManager(registry.Config{})
		client = service.NewClient(mgr, service.Config{})
	})
	AfterEach(func() { mgr.Close() })

	heartbeat := func(group, id string, priority int64, attrs map[string][]byte) {
		_, err := client.ProcessHeartbeat(ctx, service.HeartbeatRequest{
			GroupID: group,
			Member:  member.Info{ID: id, Priority: priority, Attributes: attrs},
			Lease:   30 * time.Second,
		})
		Expect(err).ToNot(HaveOccurred())
	}

	Describe("Heartbeat", func() {
		It("Should reject an empty group id", func() {
			_, err := client.ProcessHeartbeat(ctx, service.HeartbeatRequest{
				Member: member.Info{ID: "w1"},
				Lease:  30 * time.Second,
			})
			Expect(errors.Is(err, service.ErrInvalidArgument)).To(BeTrue())
		})
		It("Should reject an empty member id", func() {
			_, err := client.ProcessHeartbeat(ctx, service.HeartbeatRequest{
				GroupID: "workers",
				Lease:   30 * time.Second,
			})
			Expect(errors.Is(err, service.ErrInvalidArgument)).To(BeTrue())
		})
		It("Should reject a non-positive lease", func() {
			_, err := client.ProcessHeartbeat(ctx, service.HeartbeatRequest{
				GroupID: "workers",
				Member:  member.Info{ID: "w1"},
			})
			Expect(errors.Is(err, service.ErrInvalidArgument)).To(BeTrue())
		})
		It("Should reject a lease outside the configured bounds", func() {
			_, err := client.ProcessHeartbeat(ctx, service.HeartbeatRequest{
				GroupID: "workers",
				Member:  member.Info{ID: "w1"},
				Lease:   500 * time.Millisecond,
			})
			Expect(errors.Is(err, service.ErrInvalidArgument)).To(BeTrue())
			_, err = client.ProcessHeartbeat(ctx, service.HeartbeatRequest{
				GroupID: "workers",
				Member:  member.Info{ID: "w1"},
				Lease:   10 * time.Minute,
			})
			Expect(errors.Is(err, service.ErrInvalidArgument)).To(BeTrue())
		})
		It("Should leave the registry untouched on validation failure", func() {
			_, _ = client.ProcessHeartbeat(ctx, service.HeartbeatRequest{
				GroupID: "workers",
				Member:  member.Info{ID: "w1"},
				Lease:   -time.Second,
			})
			_, err := mgr.GetGroup("workers")
			Expect(errors.Is(err, registry.ErrGroupNotFound)).To(BeTrue())
		})
		It("Should register the member on success", func() {
			heartbeat("workers", "w1", 5, nil)
			_, err := mgr.GetGroup("workers")
			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("ListMembers", func() {
		It("Should fail with GroupNotFound for an unknown group", func() {
			_, err := client.ProcessListMembers(ctx, service.ListMembersRequest{GroupID: "nope", Limit: 10})
			Expect(errors.Is(err, registry.ErrGroupNotFound)).To(BeTrue())
		})
		It("Should project only the requested attribute keys", func() {
			heartbeat("workers", "w1", 5, map[string][]byte{
				"host": []byte("h1"),
				"rack": []byte("r7"),
			})
			res, err := client.ProcessListMembers(ctx, service.ListMembersRequest{
				GroupID:       "workers",
				Limit:         10,
				AttributeKeys: []string{"host"},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Members).To(HaveLen(1))
			Expect(res.Members[0].Attributes).To(HaveKeyWithValue("host", []byte("h1")))
			Expect(res.Members[0].Attributes).ToNot(HaveKey("rack"))
		})
		It("Should omit requested keys the member does not carry", func() {
			heartbeat("workers", "w1", 5, map[string][]byte{"host": []byte("h1")})
			res, err := client.ProcessListMembers(ctx, service.ListMembersRequest{
				GroupID:       "workers",
				Limit:         10,
				AttributeKeys: []string{"host", "missing"},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Members[0].Attributes).To(HaveLen(1))
		})
		It("Should order members by priority then id and honor the limit", func() {
			heartbeat("workers", "w2", 2, nil)
			heartbeat("workers", "w1", 5, nil)
			heartbeat("workers", "w3", 2, nil)
			res, err := client.ProcessListMembers(ctx, service.ListMembersRequest{GroupID: "workers", Limit: 2})
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Members).To(HaveLen(2))
			Expect(res.Members[0].ID).To(Equal("w2"))
			Expect(res.Members[1].ID).To(Equal("w3"))
		})
	})

	Describe("GetGroupMeta", func() {
		It("Should fail with GroupNotFound for an unknown group", func() {
			_, err := client.ProcessGetGroupMeta(ctx, service.GetGroupMetaRequest{GroupID: "nope"})
			Expect(errors.Is(err, registry.ErrGroupNotFound)).To(BeTrue())
		})
		It("Should return the live member count", func() {
			heartbeat("workers", "w1", 1, nil)
			heartbeat("workers", "w2", 2, nil)
			res, err := client.ProcessGetGroupMeta(ctx, service.GetGroupMetaRequest{GroupID: "workers"})
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Meta.MemberCount).To(Equal(2))
		})
	})
})
