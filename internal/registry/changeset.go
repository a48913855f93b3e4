package registry

import (
	"sync"

	"github.com/arya-analytics/beacon/internal/member"
)

type changeKey struct{ group, member string }

// changeSet accumulates members mutated since the last gossip extraction.
// Entries are keyed by (group, member), so repeated mutations between drains
// coalesce to a single entry whose state is read at payload-build time.
type changeSet struct {
	mu      sync.Mutex
	members map[changeKey]*member.Member
}

func newChangeSet() *changeSet {
	return &changeSet{members: make(map[changeKey]*member.Member)}
}

func (c *changeSet) insert(m *member.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members[changeKey{m.GroupID(), m.ID()}] = m
}

// remove drops a pending entry. Used when a member is reaped: deletions
// propagate to peers by absence, never as explicit entries.
func (c *changeSet) remove(group, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.members, changeKey{group, id})
}

// drain atomically swaps the accumulated set for an empty one and returns
// the prior contents.
func (c *changeSet) drain() []*member.Member {
	c.mu.Lock()
	prev := c.members
	c.members = make(map[changeKey]*member.Member)
	c.mu.Unlock()
	out := make([]*member.Member, 0, len(prev))
	for _, m := range prev {
		out = append(out, m)
	}
	return out
}
