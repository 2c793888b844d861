package outputs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ogglobi/audiolox/internal/engine"
	"github.com/ogglobi/audiolox/internal/models"
)

// FlowSession tracks one AirPlay sender's leader-zone playback: a
// sub-second rolling backlog of recent chunks, and the start-NTP lead
// (proportional to group size) applied on the next start. The backlog is
// only recorded; nothing replays it to a member that joins mid-stream.
type FlowSession struct {
	mu          sync.Mutex
	backlog     [][]byte
	groupSize   int
	leadSamples int
}

const flowBacklogMaxChunks = 32 // keeps roughly <1s of encoded audio

func (f *FlowSession) record(chunk []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backlog = append(f.backlog, chunk)
	if len(f.backlog) > flowBacklogMaxChunks {
		f.backlog = f.backlog[len(f.backlog)-flowBacklogMaxChunks:]
	}
}

// setGroupSize adjusts the start-NTP lead: more members means more time
// for the last one to receive streamStart before audio begins.
func (f *FlowSession) setGroupSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupSize = n
	f.leadSamples = n * 200 // ~200ms lead per zone in the group, leader included
}

// startDelay returns the current start-NTP lead as a duration, applied
// before a (re)start so late-joining group members have time to receive
// streamStart before this sender's audio begins.
func (f *FlowSession) startDelay() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return time.Duration(f.leadSamples) * time.Millisecond
}

// AirPlayOutput sends a zone's encoded audio to an AirPlay renderer via a
// supervised sender subprocess, reworking the teacher's
// shairport-sync-based AirPlayStream (a *receiver*) into a *sender* that
// targets an external RAOP/AirPlay 2 device. Grounded on the same
// Supervisor-managed-subprocess shape; `godbus/dbus/v5` MPRIS polling is
// not needed on the send side.
type AirPlayOutput struct {
	name   string
	target string // AirPlay renderer hostname or mDNS service instance
	sup    *engine.Supervisor
	flow   FlowSession
	stdin  atomic.Pointer[io.WriteCloser]

	mu      sync.Mutex
	running bool
}

// NewAirPlayOutput creates an AirPlay output driver addressed at target
// (an AirPlay renderer's hostname/IP).
func NewAirPlayOutput(name, target string) *AirPlayOutput {
	return &AirPlayOutput{name: name, target: target}
}

func (a *AirPlayOutput) Type() string { return "airplay" }

func (a *AirPlayOutput) Play(ctx context.Context, session *models.PlaybackSession) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil
	}
	if delay := a.flow.startDelay(); delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	target := a.target
	a.sup = engine.NewSupervisor("airplay-output/"+a.name, func() *exec.Cmd {
		cmd := exec.Command(findBinary("raop_play"), "-t", "10", target, "-")
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		w, err := cmd.StdinPipe()
		if err != nil {
			slog.Error("outputs/airplay: StdinPipe failed", "name", a.name, "err", err)
			return nil
		}
		var wc io.WriteCloser = w
		a.stdin.Store(&wc)
		return cmd
	})
	if err := a.sup.Start(ctx); err != nil {
		return fmt.Errorf("outputs/airplay: start: %w", err)
	}
	a.running = true
	return nil
}

func (a *AirPlayOutput) SinkProfile() models.Profile { return models.ProfilePCM }

// WriteChunk feeds one PCM chunk to the running raop_play sender's stdin
// and records it in the FlowSession backlog (spec §4.4 AirPlay policy);
// the backlog is not read back, so a mid-stream group join is not primed
// from it. A chunk
// arriving before the sender has an open stdin (startup race, or a
// momentary supervisor restart) is recorded but otherwise dropped — the
// next attempt picks up from the live stream rather than blocking it.
func (a *AirPlayOutput) WriteChunk(ctx context.Context, chunk []byte) error {
	a.flow.record(chunk)
	wp := a.stdin.Load()
	if wp == nil {
		return nil
	}
	_, err := (*wp).Write(chunk)
	return err
}

func (a *AirPlayOutput) Pause(ctx context.Context, session *models.PlaybackSession) error {
	return a.Stop(ctx, session)
}

func (a *AirPlayOutput) Resume(ctx context.Context, session *models.PlaybackSession) error {
	return a.Play(ctx, session)
}

func (a *AirPlayOutput) Stop(ctx context.Context, session *models.PlaybackSession) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running || a.sup == nil {
		return nil
	}
	err := a.sup.Stop()
	a.running = false
	a.stdin.Store(nil)
	return err
}

// SetVolume has no in-band equivalent for a plain RAOP sender in this
// driver; AirPlay 2 renderers with volume control would receive it over
// the same control channel the sender opens, which is left as a TODO for
// a full AirPlay 2 implementation.
func (a *AirPlayOutput) SetVolume(ctx context.Context, level int) error {
	slog.Debug("outputs/airplay: set volume (not wired to renderer)", "name", a.name, "level", level)
	return nil
}

func (a *AirPlayOutput) Dispose(ctx context.Context) error {
	return a.Stop(ctx, nil)
}

// GetLatencyMs reports AirPlay's typical ~2s buffering latency
// (models.LatencyReporter). The group coordinators do not read it.
func (a *AirPlayOutput) GetLatencyMs() int { return 2000 }

// NotifyGroupSize lets the AirPlay group coordinator (§4.5) adjust this
// sender's start-NTP lead when group membership changes.
func (a *AirPlayOutput) NotifyGroupSize(n int) { a.flow.setGroupSize(n) }

var _ models.PCMSink = (*AirPlayOutput)(nil)
