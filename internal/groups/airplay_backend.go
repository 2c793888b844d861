package groups

import (
	"context"
	"sync"
	"time"

	"github.com/ogglobi/audiolox/internal/outputs"
)

// AirPlayBackend groups zones by adjusting each sender's start-NTP lead
// (FlowSession.setGroupSize) rather than folding connections the way
// SendspinBackend does: an AirPlay sender has no shared server for members
// to reconnect to, so every zone keeps running its own raop_play sender,
// just started with a lead proportional to group size (spec §4.4 AirPlay
// policy, scenario S6).
type AirPlayBackend struct {
	mu      sync.Mutex
	outputs map[int]*outputs.AirPlayOutput
}

// NewAirPlayBackend creates an AirPlay Backend adapter.
func NewAirPlayBackend() *AirPlayBackend {
	return &AirPlayBackend{outputs: make(map[int]*outputs.AirPlayOutput)}
}

// RegisterZone binds zoneID's AirPlay output to this backend.
func (b *AirPlayBackend) RegisterZone(zoneID int, out *outputs.AirPlayOutput) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputs[zoneID] = out
}

func (b *AirPlayBackend) Name() string { return "airplay" }

func (b *AirPlayBackend) SyncMembers(ctx context.Context, leaderZoneID int, memberZoneIDs []int) error {
	b.mu.Lock()
	leader, hasLeader := b.outputs[leaderZoneID]
	members := make([]*outputs.AirPlayOutput, 0, len(memberZoneIDs))
	for _, m := range memberZoneIDs {
		if out, ok := b.outputs[m]; ok {
			members = append(members, out)
		}
	}
	b.mu.Unlock()

	size := len(members) + 1
	if hasLeader {
		leader.NotifyGroupSize(size)
	}
	for _, member := range members {
		member.NotifyGroupSize(size)
	}
	return nil
}

func (b *AirPlayBackend) Detach(ctx context.Context, zoneID int) error {
	b.mu.Lock()
	out, ok := b.outputs[zoneID]
	b.mu.Unlock()
	if !ok {
		return nil
	}
	out.NotifyGroupSize(0)
	return nil
}

func (b *AirPlayBackend) ReadyTimeout() time.Duration { return 0 }
