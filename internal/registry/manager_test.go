package registry_test

import (
	"time"

	"github.com/arya-analytics/beacon/internal/member"
	"github.com/arya-analytics/beacon/internal/registry"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("Manager", func() {
	var mgr *registry.Manager
	BeforeEach(func() { mgr = registry.NewManager(registry.Config{}) })
	AfterEach(func() { mgr.Close() })

	Describe("ProcessHeartbeat", func() {
		It("Should create the group lazily on the first heartbeat", func() {
			_, err := mgr.GetGroup("workers")
			Expect(errors.Is(err, registry.ErrGroupNotFound)).To(BeTrue())
			mgr.ProcessHeartbeat("workers", member.Info{ID: "w1"}, 30*time.Second)
			_, err = mgr.GetGroup("workers")
			Expect(err).ToNot(HaveOccurred())
		})
		It("Should keep members of equal ids in distinct groups independent", func() {
			mgr.ProcessHeartbeat("g1", member.Info{ID: "w1", Priority: 1}, 30*time.Second)
			mgr.ProcessHeartbeat("g2", member.Info{ID: "w1", Priority: 2}, 30*time.Second)
			g1, err := mgr.GetGroup("g1")
			Expect(err).ToNot(HaveOccurred())
			g2, err := mgr.GetGroup("g2")
			Expect(err).ToNot(HaveOccurred())
			Expect(g1.List(10, time.Now())).To(HaveLen(1))
			Expect(g2.List(10, time.Now())).To(HaveLen(1))
			Expect(g1.List(10, time.Now())[0].Priority).To(Equal(int64(1)))
			Expect(g2.List(10, time.Now())[0].Priority).To(Equal(int64(2)))
		})
		It("Should never decrease the revision across heartbeats", func() {
			var prev int64
			for i := 0; i < 5; i++ {
				mgr.ProcessHeartbeat("workers", member.Info{ID: "w1"}, 30*time.Second)
				grp, err := mgr.GetGroup("workers")
				Expect(err).ToNot(HaveOccurred())
				rev := grp.List(1, time.Now())[0].Revision
				Expect(rev).To(BeNumerically(">", prev))
				prev = rev
			}
		})
	})

	Describe("ProcessGossip", func() {
		entry := func(rev int64, priority int64) member.GossipInfo {
			return member.GossipInfo{
				GroupID:       "workers",
				ID:            "w1",
				Priority:      priority,
				Revision:      rev,
				LeaseDeadline: time.Now().Add(30 * time.Second),
			}
		}
		It("Should create groups and members from remote entries", func() {
			mgr.ProcessGossip([]member.GossipInfo{entry(5, 9)})
			grp, err := mgr.GetGroup("workers")
			Expect(err).ToNot(HaveOccurred())
			snap := grp.List(1, time.Now())[0]
			Expect(snap.Revision).To(Equal(int64(5)))
			Expect(snap.Priority).To(Equal(int64(9)))
		})
		It("Should resolve conflicts by revision, keeping local state on ties", func() {
			mgr.ProcessGossip([]member.GossipInfo{entry(5, 9)})
			mgr.ProcessGossip([]member.GossipInfo{entry(7, 3)})
			mgr.ProcessGossip([]member.GossipInfo{entry(7, 1)})
			mgr.ProcessGossip([]member.GossipInfo{entry(6, 2)})
			grp, err := mgr.GetGroup("workers")
			Expect(err).ToNot(HaveOccurred())
			snap := grp.List(1, time.Now())[0]
			Expect(snap.Revision).To(Equal(int64(7)))
			Expect(snap.Priority).To(Equal(int64(3)))
		})
		It("Should apply the same batch idempotently", func() {
			batch := []member.GossipInfo{entry(5, 9)}
			mgr.ProcessGossip(batch)
			grp, err := mgr.GetGroup("workers")
			Expect(err).ToNot(HaveOccurred())
			first := grp.List(1, time.Now())
			mgr.ProcessGossip(batch)
			Expect(grp.List(1, time.Now())).To(Equal(first))
		})
		It("Should not re-mark unchanged members as modified", func() {
			mgr.ProcessGossip([]member.GossipInfo{entry(5, 9)})
			mgr.DrainModifiedMembers()
			mgr.ProcessGossip([]member.GossipInfo{entry(5, 9)})
			Expect(mgr.DrainModifiedMembers()).To(BeEmpty())
		})
	})

	Describe("DrainModifiedMembers", func() {
		It("Should return every member mutated since the last drain exactly once", func() {
			mgr.ProcessHeartbeat("workers", member.Info{ID: "w1"}, 30*time.Second)
			mgr.ProcessHeartbeat("workers", member.Info{ID: "w2"}, 30*time.Second)
			drained := mgr.DrainModifiedMembers()
			Expect(drained).To(HaveLen(2))
			Expect(mgr.DrainModifiedMembers()).To(BeEmpty())
		})
		It("Should coalesce repeated mutations to the latest state", func() {
			mgr.ProcessHeartbeat("workers", member.Info{ID: "w1", Priority: 5}, 30*time.Second)
			mgr.ProcessHeartbeat("workers", member.Info{ID: "w1", Priority: 3}, 30*time.Second)
			drained := mgr.DrainModifiedMembers()
			Expect(drained).To(HaveLen(1))
			Expect(drained[0].Snapshot().Priority).To(Equal(int64(3)))
			Expect(drained[0].Snapshot().Revision).To(Equal(int64(2)))
		})
		It("Should surface a re-mutated member on the next drain", func() {
			mgr.ProcessHeartbeat("workers", member.Info{ID: "w1"}, 30*time.Second)
			Expect(mgr.DrainModifiedMembers()).To(HaveLen(1))
			mgr.ProcessHeartbeat("workers", member.Info{ID: "w1"}, 30*time.Second)
			Expect(mgr.DrainModifiedMembers()).To(HaveLen(1))
		})
	})

	Describe("Lease expiry", func() {
		It("Should reap the member and then the empty group after the deadline", func() {
			mgr.ProcessHeartbeat("workers", member.Info{ID: "w1"}, 20*time.Millisecond)
			_, err := mgr.GetGroup("workers")
			Expect(err).ToNot(HaveOccurred())
			Eventually(func() bool {
				_, err := mgr.GetGroup("workers")
				return errors.Is(err, registry.ErrGroupNotFound)
			}, time.Second, 5*time.Millisecond).Should(BeTrue())
		})
		It("Should drop a reaped member from the pending change set", func() {
			core, logs := observer.New(zap.DebugLevel)
			mgr.Close()
			mgr = registry.NewManager(registry.Config{Logger: zap.New(core)})
			mgr.ProcessHeartbeat("workers", member.Info{ID: "w1"}, 20*time.Millisecond)
			Eventually(func() bool {
				_, err := mgr.GetGroup("workers")
				return errors.Is(err, registry.ErrGroupNotFound)
			}, time.Second, 5*time.Millisecond).Should(BeTrue())
			// GetGroup filters by deadline, so it reports the group gone before
			// the expiry timer has reaped the member; wait for the reap itself.
			Eventually(func() int {
				return logs.FilterMessage("member expired").Len()
			}, time.Second, 5*time.Millisecond).Should(Equal(1))
			Expect(mgr.DrainModifiedMembers()).To(BeEmpty())
		})
		It("Should keep a member alive across refreshing heartbeats", func() {
			mgr.ProcessHeartbeat("workers", member.Info{ID: "w1"}, 50*time.Millisecond)
			for i := 0; i < 5; i++ {
				time.Sleep(20 * time.Millisecond)
				mgr.ProcessHeartbeat("workers", member.Info{ID: "w1"}, 50*time.Millisecond)
			}
			_, err := mgr.GetGroup("workers")
			Expect(err).ToNot(HaveOccurred())
		})
		It("Should arm expiry for members adopted from gossip", func() {
			mgr.ProcessGossip([]member.GossipInfo{{
				GroupID:       "workers",
				ID:            "w1",
				Revision:      1,
				LeaseDeadline: time.Now().Add(20 * time.Millisecond),
			}})
			Eventually(func() bool {
				_, err := mgr.GetGroup("workers")
				return errors.Is(err, registry.ErrGroupNotFound)
			}, time.Second, 5*time.Millisecond).Should(BeTrue())
		})
	})

	Describe("IntrospectionView", func() {
		It("Should expose live members grouped and sorted", func() {
			mgr.ProcessHeartbeat("g2", member.Info{ID: "w1"}, 30*time.Second)
			mgr.ProcessHeartbeat("g1", member.Info{ID: "w2"}, 30*time.Second)
			mgr.ProcessHeartbeat("g1", member.Info{ID: "w1"}, 30*time.Second)
			views := mgr.IntrospectionView()
			Expect(views).To(HaveLen(2))
			Expect(views[0].ID).To(Equal("g1"))
			Expect(views[0].Members).To(HaveLen(2))
			Expect(views[1].ID).To(Equal("g2"))
		})
	})
})
