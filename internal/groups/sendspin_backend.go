package groups

import (
	"context"
	"sync"
	"time"

	"github.com/ogglobi/audiolox/internal/outputs"
)

// SendspinBackend groups zones by folding a member's Sendspin clients into
// the leader's fan-out server: each zone normally runs its own Sendspin
// websocket server, so joining a group means stopping the member's own
// server (its speakers are expected to reconnect to the leader's address
// via the same discovery mechanism used to find it originally) and
// restarting it standalone on detach.
type SendspinBackend struct {
	mu      sync.Mutex
	outputs map[int]*outputs.SendspinOutput
}

// NewSendspinBackend creates a Sendspin Backend adapter.
func NewSendspinBackend() *SendspinBackend {
	return &SendspinBackend{outputs: make(map[int]*outputs.SendspinOutput)}
}

// RegisterZone binds zoneID's Sendspin output to this backend.
func (b *SendspinBackend) RegisterZone(zoneID int, out *outputs.SendspinOutput) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputs[zoneID] = out
}

func (b *SendspinBackend) Name() string { return "sendspin" }

func (b *SendspinBackend) SyncMembers(ctx context.Context, leaderZoneID int, memberZoneIDs []int) error {
	b.mu.Lock()
	members := make([]*outputs.SendspinOutput, 0, len(memberZoneIDs))
	for _, m := range memberZoneIDs {
		if out, ok := b.outputs[m]; ok {
			members = append(members, out)
		}
	}
	b.mu.Unlock()

	for _, member := range members {
		if err := member.Dispose(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (b *SendspinBackend) Detach(ctx context.Context, zoneID int) error {
	b.mu.Lock()
	out, ok := b.outputs[zoneID]
	b.mu.Unlock()
	if !ok {
		return nil
	}
	return out.Play(ctx, nil)
}

func (b *SendspinBackend) ReadyTimeout() time.Duration { return 0 }
