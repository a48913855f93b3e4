package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/arya-analytics/beacon/internal/member"
	"github.com/arya-analytics/beacon/internal/telemetry"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ErrGroupNotFound is returned for queries against a group that does not
// exist or has no live members.
var ErrGroupNotFound = errors.New("group not found")

type Config struct {
	Logger *zap.Logger
}

func (cfg Config) Merge(def Config) Config {
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return cfg
}

func DefaultConfig() Config { return Config{Logger: zap.NewNop()} }

// Manager is the process-wide registry of groups. It is the single ingestion
// point for heartbeats (home-server path) and peer gossip, and the extraction
// point for the change set the gossip driver fans out.
type Manager struct {
	Config
	mu      sync.RWMutex
	groups  map[string]*Group
	changes *changeSet
	closed  bool
}

func NewManager(cfg Config) *Manager {
	return &Manager{
		Config:  cfg.Merge(DefaultConfig()),
		groups:  make(map[string]*Group),
		changes: newChangeSet(),
	}
}

// ProcessHeartbeat applies a heartbeat on the home-server path: the member's
// revision is bumped, its lease extended, the change set updated, and the
// expiry timer re-armed at the new deadline.
func (m *Manager) ProcessHeartbeat(groupID string, info member.Info, lease time.Duration) {
	now := time.Now()
	grp := m.upsertGroup(groupID)
	mem, created := grp.Upsert(info.ID)
	mem.UpdateFromHeartbeat(info, lease, now)
	grp.ensure(mem)
	m.changes.insert(mem)
	m.scheduleExpiry(grp, mem)
	telemetry.HeartbeatsTotal.Inc()
	if created {
		m.Logger.Debug("member registered",
			zap.String("group", groupID),
			zap.String("member", info.ID),
		)
	}
}

// ProcessGossip applies a batch of member deltas received from a peer. Stale
// entries (revision at or below the local copy) are ignored; adopted entries
// enter the change set so this server re-advertises them on its own
// schedule, with the attribute-push timestamp left untouched.
func (m *Manager) ProcessGossip(entries []member.GossipInfo) {
	for _, entry := range entries {
		grp := m.upsertGroup(entry.GroupID)
		mem, _ := grp.Upsert(entry.ID)
		if mem.UpdateFromGossip(entry) {
			m.changes.insert(mem)
		}
		m.scheduleExpiry(grp, mem)
	}
	telemetry.GossipEntriesReceived.Add(float64(len(entries)))
}

// GetGroup returns the group registered under id, failing with
// ErrGroupNotFound when the group is unknown or holds no live members.
func (m *Manager) GetGroup(id string) (*Group, error) {
	m.mu.RLock()
	grp, ok := m.groups[id]
	m.mu.RUnlock()
	if !ok || grp.Count(time.Now()) == 0 {
		return nil, errors.Wrapf(ErrGroupNotFound, "group %q", id)
	}
	return grp, nil
}

// DrainModifiedMembers atomically swaps the change set with an empty one and
// returns the prior contents. Members re-mutated after a drain reappear on
// the next one.
func (m *Manager) DrainModifiedMembers() []*member.Member {
	return m.changes.drain()
}

// GroupView is a read-only projection of a group for operators.
type GroupView struct {
	ID      string            `json:"id"`
	Members []member.Snapshot `json:"members"`
}

// IntrospectionView returns the groups -> members tree, live members only,
// groups sorted by id and members by (priority, id).
func (m *Manager) IntrospectionView() []GroupView {
	now := time.Now()
	m.mu.RLock()
	groups := make([]*Group, 0, len(m.groups))
	for _, grp := range m.groups {
		groups = append(groups, grp)
	}
	m.mu.RUnlock()
	views := make([]GroupView, 0, len(groups))
	for _, grp := range groups {
		members := grp.List(-1, now)
		if len(members) == 0 {
			continue
		}
		views = append(views, GroupView{ID: grp.ID(), Members: members})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// Close stops every member's expiry timer. The manager must not be used
// afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for _, grp := range m.groups {
		grp.mu.Lock()
		for _, mem := range grp.members {
			mem.StopExpiry()
		}
		grp.mu.Unlock()
	}
}

func (m *Manager) upsertGroup(id string) *Group {
	m.mu.RLock()
	grp, ok := m.groups[id]
	m.mu.RUnlock()
	if ok {
		return grp
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if grp, ok = m.groups[id]; ok {
		return grp
	}
	grp = newGroup(id)
	m.groups[id] = grp
	m.Logger.Debug("group created", zap.String("group", id))
	return grp
}

func (m *Manager) scheduleExpiry(grp *Group, mem *member.Member) {
	mem.ScheduleExpiry(time.Now(), func() { m.expire(grp, mem) })
}

// expire runs on timer fire. The deadline is re-checked under the group
// lock: if a heartbeat refreshed the lease in the meantime the timer is
// simply re-armed at the new deadline.
func (m *Manager) expire(grp *Group, mem *member.Member) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return
	}
	now := time.Now()
	if !grp.removeIfExpired(mem.ID(), now) {
		if !mem.Expired(now) {
			mem.ScheduleExpiry(now, func() { m.expire(grp, mem) })
		}
		return
	}
	m.changes.remove(grp.ID(), mem.ID())
	m.removeGroupIfEmpty(grp)
	telemetry.MembersExpired.Inc()
	m.Logger.Debug("member expired",
		zap.String("group", grp.ID()),
		zap.String("member", mem.ID()),
	)
}

func (m *Manager) removeGroupIfEmpty(grp *Group) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if grp.empty() {
		delete(m.groups, grp.ID())
	}
}
