package groups

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ogglobi/audiolox/internal/models"
)

// Backend is the per-transport grouping operation a Coordinator drives.
// Each transport family (Snapcast, Sendspin, SlimProto, Sonos, AirPlay) implements
// this against its own output driver; the Coordinator itself only knows
// the generic register/elect/sync/detach algorithm of spec §4.5.
type Backend interface {
	// Name identifies the transport, matching models.GroupRecord.Backend.
	Name() string
	// SyncMembers pushes the authoritative {leader, members} set to the
	// transport. Called after every membership change.
	SyncMembers(ctx context.Context, leaderZoneID int, memberZoneIDs []int) error
	// Detach removes a single zone from whatever group it is in on this
	// transport, returning it to standalone playback.
	Detach(ctx context.Context, zoneID int) error
	// ReadyTimeout bounds how long the coordinator waits for every member
	// to report ready before declaring the group synced (spec §4.5's
	// ready-timeout barrier, grounded on Supervisor's sigtermTimeout
	// escalation idiom). Zero means no barrier is needed for this backend.
	ReadyTimeout() time.Duration
}

// Coordinator owns one Backend's grouping state machine: which zones are
// registered, who the current leader is, and keeping the Tracker and the
// live transport in sync. Grounded on the teacher's Controller.apply
// "mutate then recompute aggregates" shape, scoped to one transport.
type Coordinator struct {
	backend Backend
	tracker *Tracker

	mu       sync.Mutex
	groupID  string // stable ID for this backend's single active group; "" if none
	leader   int
	members  map[int]struct{}
	registry map[int]bool // zoneID -> registered (capable of joining this backend)
}

// NewCoordinator creates a Coordinator for backend, publishing membership
// changes to tracker.
func NewCoordinator(backend Backend, tracker *Tracker) *Coordinator {
	return &Coordinator{
		backend:  backend,
		tracker:  tracker,
		members:  make(map[int]struct{}),
		registry: make(map[int]bool),
	}
}

// Register marks zoneID as capable of joining this backend's groups (e.g.
// its ZoneConfig binds a Snapcast output). Unregister reverses this and
// detaches the zone from any active group.
func (c *Coordinator) Register(zoneID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry[zoneID] = true
}

func (c *Coordinator) Unregister(ctx context.Context, zoneID int) {
	c.mu.Lock()
	delete(c.registry, zoneID)
	_, isMember := c.members[zoneID]
	isLeader := c.leader == zoneID
	c.mu.Unlock()

	if isMember || isLeader {
		c.DetachMember(ctx, zoneID)
	}
}

// BuildPlan computes the {leader, members} set a group should converge to
// when zoneID asks to join leaderZoneID's group: leaderZoneID stays the
// leader, zoneID is added, and, if leaderZoneID already leads this
// coordinator's group, its current members are retained unless they have
// since unregistered.
func (c *Coordinator) BuildPlan(leaderZoneID, joiningZoneID int) (leader int, members []int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	memberSet := make(map[int]struct{}, len(c.members)+1)
	if c.leader == leaderZoneID {
		for m := range c.members {
			if c.registry[m] {
				memberSet[m] = struct{}{}
			}
		}
	}
	memberSet[joiningZoneID] = struct{}{}
	delete(memberSet, leaderZoneID)

	out := make([]int, 0, len(memberSet))
	for m := range memberSet {
		out = append(out, m)
	}
	return leaderZoneID, out
}

// TryJoinLeader attempts to add joiningZoneID to leaderZoneID's group on
// this backend. It computes the target plan, pushes it to the transport,
// and only commits the new leader/members state and notifies the Tracker
// once SyncMembers succeeds — so a failed join leaves prior state intact.
func (c *Coordinator) TryJoinLeader(ctx context.Context, leaderZoneID, joiningZoneID int) error {
	c.mu.Lock()
	if !c.registry[leaderZoneID] || !c.registry[joiningZoneID] {
		c.mu.Unlock()
		return fmt.Errorf("groups: zone not registered with backend %s", c.backend.Name())
	}
	c.mu.Unlock()

	leader, members := c.BuildPlan(leaderZoneID, joiningZoneID)

	syncCtx := ctx
	if c.backend.ReadyTimeout() > 0 {
		var cancel context.CancelFunc
		syncCtx, cancel = context.WithTimeout(ctx, c.backend.ReadyTimeout())
		defer cancel()
	}
	if err := c.backend.SyncMembers(syncCtx, leader, members); err != nil {
		return fmt.Errorf("groups: %s join leader %d: %w", c.backend.Name(), leaderZoneID, err)
	}

	c.mu.Lock()
	c.groupID = groupRecordID(c.backend.Name(), leader)
	c.leader = leader
	c.members = make(map[int]struct{}, len(members))
	for _, m := range members {
		c.members[m] = struct{}{}
	}
	rec := models.GroupRecord{
		ID:      c.groupID,
		Leader:  leader,
		Members: cloneMemberSet(c.members),
		Backend: c.backend.Name(),
		Source:  "user",
	}
	c.mu.Unlock()

	c.tracker.Upsert(rec)
	return nil
}

// SyncGroupMembers recomputes the current group's membership from the
// Tracker's stored record (which may have been updated by another path,
// e.g. a zone dropping offline) and re-pushes it to the transport if it
// has drifted — the diff-then-reconcile step of spec §4.5.
func (c *Coordinator) SyncGroupMembers(ctx context.Context) error {
	c.mu.Lock()
	groupID := c.groupID
	leader := c.leader
	c.mu.Unlock()
	if groupID == "" {
		return nil
	}

	rec, ok := c.tracker.Get(groupID)
	if !ok {
		return nil
	}

	members := make([]int, 0, len(rec.Members))
	for m := range rec.Members {
		if m != leader {
			members = append(members, m)
		}
	}
	if err := c.backend.SyncMembers(ctx, leader, members); err != nil {
		return fmt.Errorf("groups: %s resync: %w", c.backend.Name(), err)
	}

	c.mu.Lock()
	c.members = make(map[int]struct{}, len(members))
	for _, m := range members {
		c.members[m] = struct{}{}
	}
	c.mu.Unlock()
	return nil
}

// DetachMember removes zoneID from whatever group it currently belongs to
// on this backend. If zoneID was the leader, the whole group dissolves
// (spec §3: "removing the leader dissolves the group").
func (c *Coordinator) DetachMember(ctx context.Context, zoneID int) error {
	c.mu.Lock()
	groupID := c.groupID
	isLeader := c.leader == zoneID
	_, isMember := c.members[zoneID]
	c.mu.Unlock()

	if groupID == "" || (!isLeader && !isMember) {
		return nil
	}

	if err := c.backend.Detach(ctx, zoneID); err != nil {
		slog.Warn("groups: detach failed", "backend", c.backend.Name(), "zone", zoneID, "err", err)
	}

	if isLeader {
		c.mu.Lock()
		remaining := make([]int, 0, len(c.members))
		for m := range c.members {
			remaining = append(remaining, m)
		}
		c.groupID = ""
		c.leader = 0
		c.members = make(map[int]struct{})
		c.mu.Unlock()

		for _, m := range remaining {
			if derr := c.backend.Detach(ctx, m); derr != nil {
				slog.Warn("groups: dissolve detach failed", "backend", c.backend.Name(), "zone", m, "err", derr)
			}
		}
		c.tracker.Remove(groupID)
		return nil
	}

	c.mu.Lock()
	delete(c.members, zoneID)
	rec := models.GroupRecord{
		ID:      groupID,
		Leader:  c.leader,
		Members: cloneMemberSet(c.members),
		Backend: c.backend.Name(),
		Source:  "user",
	}
	c.mu.Unlock()
	c.tracker.Upsert(rec)
	return nil
}

func groupRecordID(backend string, leaderZoneID int) string {
	return fmt.Sprintf("%s:%d", backend, leaderZoneID)
}

func cloneMemberSet(m map[int]struct{}) map[int]struct{} {
	out := make(map[int]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}
