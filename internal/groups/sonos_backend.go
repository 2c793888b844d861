package groups

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ogglobi/audiolox/internal/outputs"
)

// SonosBackend groups zones via Sonos's native AVTransport grouping
// (x-rincon: URIs), delegating directly to SonosOutput's JoinGroup/
// LeaveGroup.
type SonosBackend struct {
	mu      sync.Mutex
	outputs map[int]*outputs.SonosOutput
	uuids   map[int]string // zoneID -> this zone's own player UUID
}

// NewSonosBackend creates a Sonos Backend adapter.
func NewSonosBackend() *SonosBackend {
	return &SonosBackend{
		outputs: make(map[int]*outputs.SonosOutput),
		uuids:   make(map[int]string),
	}
}

// RegisterZone binds zoneID's Sonos output (and its player UUID, used as
// the x-rincon target other zones join) to this backend.
func (b *SonosBackend) RegisterZone(zoneID int, out *outputs.SonosOutput, playerUUID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputs[zoneID] = out
	b.uuids[zoneID] = playerUUID
}

func (b *SonosBackend) Name() string { return "sonos" }

func (b *SonosBackend) SyncMembers(ctx context.Context, leaderZoneID int, memberZoneIDs []int) error {
	b.mu.Lock()
	leaderUUID, ok := b.uuids[leaderZoneID]
	members := make([]*outputs.SonosOutput, 0, len(memberZoneIDs))
	for _, m := range memberZoneIDs {
		if out, ok := b.outputs[m]; ok {
			members = append(members, out)
		}
	}
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("groups/sonos: leader zone %d has no registered player UUID", leaderZoneID)
	}

	for _, member := range members {
		if err := member.JoinGroup(ctx, leaderUUID); err != nil {
			return fmt.Errorf("groups/sonos: join: %w", err)
		}
	}
	return nil
}

func (b *SonosBackend) Detach(ctx context.Context, zoneID int) error {
	b.mu.Lock()
	out, ok := b.outputs[zoneID]
	b.mu.Unlock()
	if !ok {
		return nil
	}
	return out.LeaveGroup(ctx)
}

func (b *SonosBackend) ReadyTimeout() time.Duration { return 0 }
