package groups

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ogglobi/audiolox/internal/outputs"
)

// SlimProtoBackend groups zones through LMS's own server-side sync-group
// mechanism. LMS exposes that over its JSON-RPC control API
// ("players/sync"), which this module does not implement — there is no
// LMS control-plane client in the corpus to ground one on, only the
// squeezelite subprocess driver. SyncMembers therefore only logs the gap
// rather than silently pretending to group, and Detach does nothing.
type SlimProtoBackend struct {
	mu      sync.Mutex
	outputs map[int]*outputs.SlimProtoOutput
}

// NewSlimProtoBackend creates a SlimProto Backend adapter.
func NewSlimProtoBackend() *SlimProtoBackend {
	return &SlimProtoBackend{outputs: make(map[int]*outputs.SlimProtoOutput)}
}

// RegisterZone binds zoneID's SlimProto output to this backend.
func (b *SlimProtoBackend) RegisterZone(zoneID int, out *outputs.SlimProtoOutput) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputs[zoneID] = out
}

func (b *SlimProtoBackend) Name() string { return "slimproto" }

func (b *SlimProtoBackend) SyncMembers(ctx context.Context, leaderZoneID int, memberZoneIDs []int) error {
	slog.Warn("groups/slimproto: LMS server-side sync groups not implemented; squeezelite players remain independently synced to LMS only",
		"leader", leaderZoneID, "members", memberZoneIDs)
	return nil
}

func (b *SlimProtoBackend) Detach(ctx context.Context, zoneID int) error { return nil }

// ReadyTimeout returns the widest ready-timeout barrier across registered
// players (10s when none is wider). The Coordinator uses it only as the
// deadline of SyncMembers, which returns at once here: a join does not wait
// for squeezelite players to report buffer-ready, and no synchronized
// unpause is sent to the group.
func (b *SlimProtoBackend) ReadyTimeout() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	max := 10 * time.Second
	for _, out := range b.outputs {
		if d := out.ReadyTimeoutBarrier(); d > max {
			max = d
		}
	}
	return max
}
