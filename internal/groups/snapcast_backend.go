package groups

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ogglobi/audiolox/internal/outputs"
)

// SnapcastBackend groups zones by repointing a member zone's Snapcast
// clients at the leader zone's logical stream (spec §4.4's Snapcast
// policy): SyncMembers calls SetStreamID and Play on each member's output,
// so its clients play the leader's stream instead of the member's own.
type SnapcastBackend struct {
	mu        sync.Mutex
	outputs   map[int]*outputs.SnapcastOutput
	ownStream map[int]string // each zone's standalone stream id, for detach
}

// NewSnapcastBackend creates a Snapcast Backend adapter.
func NewSnapcastBackend() *SnapcastBackend {
	return &SnapcastBackend{
		outputs:   make(map[int]*outputs.SnapcastOutput),
		ownStream: make(map[int]string),
	}
}

// RegisterZone binds zoneID's Snapcast output to this backend so it can
// participate in groups.
func (b *SnapcastBackend) RegisterZone(zoneID int, out *outputs.SnapcastOutput) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputs[zoneID] = out
	b.ownStream[zoneID] = out.StreamID()
}

func (b *SnapcastBackend) Name() string { return "snapcast" }

func (b *SnapcastBackend) SyncMembers(ctx context.Context, leaderZoneID int, memberZoneIDs []int) error {
	b.mu.Lock()
	leaderOut, ok := b.outputs[leaderZoneID]
	members := make([]*outputs.SnapcastOutput, 0, len(memberZoneIDs))
	for _, m := range memberZoneIDs {
		if out, ok := b.outputs[m]; ok {
			members = append(members, out)
		}
	}
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("groups/snapcast: leader zone %d has no registered output", leaderZoneID)
	}

	leaderStream := leaderOut.StreamID()
	for _, member := range members {
		member.SetStreamID(leaderStream)
		if err := member.Play(ctx, nil); err != nil {
			return fmt.Errorf("groups/snapcast: repoint member: %w", err)
		}
	}
	return nil
}

func (b *SnapcastBackend) Detach(ctx context.Context, zoneID int) error {
	b.mu.Lock()
	out, ok := b.outputs[zoneID]
	own := b.ownStream[zoneID]
	b.mu.Unlock()
	if !ok {
		return nil
	}
	out.SetStreamID(own)
	return out.Play(ctx, nil)
}

func (b *SnapcastBackend) ReadyTimeout() time.Duration { return 0 }
