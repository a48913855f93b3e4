package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/arya-analytics/beacon/internal/member"
)

// Group owns the members registered under a single group id. Groups are
// created lazily on the first heartbeat or gossip entry referencing their id
// and removed by the Manager once their last member expires.
type Group struct {
	id      string
	mu      sync.RWMutex
	members map[string]*member.Member
}

func newGroup(id string) *Group {
	return &Group{id: id, members: make(map[string]*member.Member)}
}

func (g *Group) ID() string { return g.id }

// Upsert returns the member registered under id, creating an empty record if
// none exists. Reports whether the member was created.
func (g *Group) Upsert(id string) (*member.Member, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m, ok := g.members[id]; ok {
		return m, false
	}
	m := member.New(g.id, id)
	g.members[id] = m
	return m, true
}

// List returns up to limit live members sorted ascending by (priority, id).
// Members whose lease lapsed at or before now are filtered out.
func (g *Group) List(limit int, now time.Time) []member.Snapshot {
	live := g.live(now)
	sort.Slice(live, func(i, j int) bool {
		if live[i].Priority != live[j].Priority {
			return live[i].Priority < live[j].Priority
		}
		return live[i].ID < live[j].ID
	})
	if limit >= 0 && len(live) > limit {
		live = live[:limit]
	}
	return live
}

// Count returns the number of members live at now.
func (g *Group) Count(now time.Time) int { return len(g.live(now)) }

func (g *Group) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m, ok := g.members[id]; ok {
		m.StopExpiry()
		delete(g.members, id)
	}
}

// removeIfExpired deletes the member only if its lease is still lapsed at
// now, so a concurrent heartbeat that refreshed the lease wins over a stale
// expiry timer. Reports whether the member was removed.
func (g *Group) removeIfExpired(id string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.members[id]
	if !ok || !m.Expired(now) {
		return false
	}
	m.StopExpiry()
	delete(g.members, id)
	return true
}

// ensure re-registers a member that a concurrently firing expiry timer may
// have removed between Upsert and the heartbeat update. Both paths take the
// group lock, so after ensure the member is present iff its lease is fresh.
func (g *Group) ensure(m *member.Member) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.members[m.ID()]; !ok {
		g.members[m.ID()] = m
	}
}

func (g *Group) empty() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members) == 0
}

func (g *Group) live(now time.Time) []member.Snapshot {
	g.mu.RLock()
	members := make([]*member.Member, 0, len(g.members))
	for _, m := range g.members {
		members = append(members, m)
	}
	g.mu.RUnlock()
	snaps := make([]member.Snapshot, 0, len(members))
	for _, m := range members {
		if snap := m.Snapshot(); snap.LeaseDeadline.After(now) {
			snaps = append(snaps, snap)
		}
	}
	return snaps
}
