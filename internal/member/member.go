package member

import (
	"sync"
	"time"
)

// Info carries the client-supplied portion of a member: its identity within
// the group, its ranking priority, and an opaque set of attributes.
type Info struct {
	ID         string
	Priority   int64
	Attributes map[string][]byte
}

// GossipInfo is a member delta exchanged between servers. LeaseDeadline is
// the absolute deadline assigned by the member's home server and is adopted
// verbatim. A nil Attributes map means the sender withheld attributes for
// this round.
type GossipInfo struct {
	GroupID       string
	ID            string
	Priority      int64
	Revision      int64
	LeaseDeadline time.Time
	Attributes    map[string][]byte
}

// Snapshot is an immutable read view of a member, taken atomically with
// respect to concurrent updates.
type Snapshot struct {
	GroupID            string
	ID                 string
	Priority           int64
	Revision           int64
	Attributes         map[string][]byte
	LeaseDeadline      time.Time
	AttributesPushedAt time.Time
	LastHeartbeatAt    time.Time
}

// Member is the atomic replicated unit of the registry. A member is owned by
// exactly one Group; all state transitions go through UpdateFromHeartbeat
// (home-server path) or UpdateFromGossip (peer path).
type Member struct {
	mu sync.Mutex

	groupID  string
	id       string
	priority int64

	attributes map[string][]byte

	// revision is assigned by the home server and strictly increases on
	// every heartbeat. Remote state is only adopted from a strictly greater
	// revision.
	revision int64

	leaseDeadline   time.Time
	lastHeartbeatAt time.Time

	// attributesPushedAt throttles attribute replication: the gossip driver
	// only attaches attributes when enough time has elapsed since the last
	// push from this server.
	attributesPushedAt time.Time

	expiry *time.Timer
}

func New(groupID, id string) *Member {
	return &Member{groupID: groupID, id: id}
}

func (m *Member) GroupID() string { return m.groupID }

func (m *Member) ID() string { return m.id }

// UpdateFromHeartbeat applies a heartbeat received directly from the member.
// Only the home server calls this. The revision is bumped by one, priority is
// replaced, attributes are replaced only when the heartbeat carries any, and
// the lease is extended to now + lease.
func (m *Member) UpdateFromHeartbeat(info Info, lease time.Duration, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revision++
	m.priority = info.Priority
	if len(info.Attributes) > 0 {
		m.attributes = copyAttributes(info.Attributes)
	}
	m.leaseDeadline = now.Add(lease)
	m.lastHeartbeatAt = now
}

// UpdateFromGossip applies a delta received from a peer server. Entries at or
// below the local revision are ignored, keeping local state on ties. The
// peer-supplied deadline is adopted verbatim rather than recomputed, and
// attributes are only replaced when the entry carries them. Reports whether
// the member was mutated.
func (m *Member) UpdateFromGossip(info GossipInfo) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if info.Revision <= m.revision {
		return false
	}
	m.revision = info.Revision
	m.priority = info.Priority
	m.leaseDeadline = info.LeaseDeadline
	if info.Attributes != nil {
		m.attributes = copyAttributes(info.Attributes)
	}
	return true
}

func (m *Member) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		GroupID:            m.groupID,
		ID:                 m.id,
		Priority:           m.priority,
		Revision:           m.revision,
		Attributes:         copyAttributes(m.attributes),
		LeaseDeadline:      m.leaseDeadline,
		AttributesPushedAt: m.attributesPushedAt,
		LastHeartbeatAt:    m.lastHeartbeatAt,
	}
}

// Expired reports whether the member's lease has lapsed at now. A member
// that has never been updated has a zero deadline and is expired.
func (m *Member) Expired(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.leaseDeadline.After(now)
}

func (m *Member) Deadline() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaseDeadline
}

// MarkAttributesPushed records that this server attached the member's
// attributes to a gossip payload at t.
func (m *Member) MarkAttributesPushed(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attributesPushedAt = t
}

// ScheduleExpiry arms (or re-arms) the expiry timer to fire at the current
// lease deadline. The callback must re-check Expired: a heartbeat may refresh
// the lease between the timer firing and the callback running.
func (m *Member) ScheduleExpiry(now time.Time, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.leaseDeadline.Sub(now)
	if d < 0 {
		d = 0
	}
	if m.expiry == nil {
		m.expiry = time.AfterFunc(d, fn)
		return
	}
	m.expiry.Reset(d)
}

// StopExpiry stops the expiry timer. Called when the member is removed from
// its group.
func (m *Member) StopExpiry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expiry != nil {
		m.expiry.Stop()
	}
}

func copyAttributes(attrs map[string][]byte) map[string][]byte {
	if attrs == nil {
		return nil
	}
	out := make(map[string][]byte, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
