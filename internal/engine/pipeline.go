package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ogglobi/audiolox/internal/models"
)

const readChunkSize = 4096

// profileStream is one encoded sub-stream of a pipeline: a supervised
// subprocess (e.g. an ffmpeg-style transcode) whose stdout is chunked and
// fanned out to subscribers, mirroring SubprocStream's
// supervisor+reader-loop pairing generalized from one ALSA loop to N
// encoded profiles.
type profileStream struct {
	profile models.Profile
	sup     *Supervisor
	prime   *primeBuffer

	mu          sync.Mutex
	subscribers map[string]*Subscriber
	totalBytes  int64

	firstChunkOnce sync.Once
	firstChunkCh   chan struct{}
}

func newProfileStream(profile models.Profile, buildCmd func() *exec.Cmd, stdout io.ReadCloser) *profileStream {
	ps := &profileStream{
		profile:      profile,
		prime:        newPrimeBuffer(),
		subscribers:  make(map[string]*Subscriber),
		firstChunkCh: make(chan struct{}),
	}
	ps.sup = NewSupervisor(fmt.Sprintf("engine-profile-%s", profile), buildCmd)
	return ps
}

func (ps *profileStream) fanOut(chunk []byte) {
	ps.prime.record(chunk)
	ps.mu.Lock()
	ps.totalBytes += int64(len(chunk))
	subs := make([]*Subscriber, 0, len(ps.subscribers))
	for _, s := range ps.subscribers {
		subs = append(subs, s)
	}
	ps.mu.Unlock()

	for _, s := range subs {
		s.deliver(chunk)
	}

	ps.firstChunkOnce.Do(func() { close(ps.firstChunkCh) })
}

func (ps *profileStream) attach(sub *Subscriber, primeWithBuffer bool) {
	if primeWithBuffer {
		for _, chunk := range ps.prime.snapshot() {
			sub.deliver(chunk)
		}
	}
	ps.mu.Lock()
	ps.subscribers[sub.ID] = sub
	ps.mu.Unlock()
}

func (ps *profileStream) detach(id string) {
	ps.mu.Lock()
	sub, ok := ps.subscribers[id]
	delete(ps.subscribers, id)
	ps.mu.Unlock()
	if ok {
		sub.close()
	}
}

func (ps *profileStream) subscriberCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.subscribers)
}

func (ps *profileStream) totalDrops() int64 {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	var total int64
	for _, s := range ps.subscribers {
		total += s.dropCount()
	}
	return total
}

// pipeline is one zone's active Audio Engine session: a playback source
// feeding one or more profileStreams (spec §4.3). At most one pipeline is
// active per zone except during a handoff's overlap window.
type pipeline struct {
	zoneID  int
	session *models.PlaybackSession

	mu       sync.Mutex
	profiles map[models.Profile]*profileStream
	retired  bool

	cancel context.CancelFunc
}

func newPipeline(zoneID int, session *models.PlaybackSession) *pipeline {
	return &pipeline{
		zoneID:   zoneID,
		session:  session,
		profiles: make(map[models.Profile]*profileStream),
	}
}

// start launches one Supervisor-managed subprocess per requested profile.
// buildCmd constructs the subprocess for a given profile reading from
// source; its stdout is chunked and fanned out to subscribers of that
// profile.
func (p *pipeline) start(ctx context.Context, profiles []models.Profile, buildCmd func(models.Profile) (*exec.Cmd, error)) error {
	pctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for _, profile := range profiles {
		var stdoutBox atomic.Pointer[io.ReadCloser]
		build := func() *exec.Cmd {
			cmd, err := buildCmd(profile)
			if err != nil {
				slog.Error("engine: buildCmd failed", "zone", p.zoneID, "profile", profile, "err", err)
				return nil
			}
			r, err := cmd.StdoutPipe()
			if err != nil {
				slog.Error("engine: StdoutPipe failed", "zone", p.zoneID, "profile", profile, "err", err)
				return nil
			}
			stdoutBox.Store(&r)
			return cmd
		}

		ps := newProfileStream(profile, build, nil)
		p.mu.Lock()
		p.profiles[profile] = ps
		p.mu.Unlock()

		if err := ps.sup.Start(pctx); err != nil {
			cancel()
			return fmt.Errorf("pipeline start profile %s: %w", profile, err)
		}

		go p.readLoop(pctx, ps, &stdoutBox)
	}
	return nil
}

// readLoop reads from stdoutBox until ctx is cancelled, re-fetching the pipe
// each time the Supervisor restarts the subprocess (stdoutBox is updated
// from the buildCmd closure on every restart).
func (p *pipeline) readLoop(ctx context.Context, ps *profileStream, stdoutBox *atomic.Pointer[io.ReadCloser]) {
	buf := make([]byte, readChunkSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		rp := stdoutBox.Load()
		if rp == nil {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		n, err := (*rp).Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			ps.fanOut(chunk)
		}
		if err != nil {
			if err == io.EOF {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// waitForFirstChunk blocks until profile has produced at least one chunk,
// ctx is cancelled, or timeout elapses.
func (p *pipeline) waitForFirstChunk(ctx context.Context, profile models.Profile, timeout time.Duration) error {
	p.mu.Lock()
	ps, ok := p.profiles[profile]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("pipeline: no such profile %s", profile)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ps.firstChunkCh:
		return nil
	case <-timer.C:
		return fmt.Errorf("pipeline: timed out waiting for first chunk of profile %s", profile)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stop tears down every profile's supervisor and closes subscribers.
func (p *pipeline) stop(discardSubscribers bool) {
	p.mu.Lock()
	if p.retired {
		p.mu.Unlock()
		return
	}
	p.retired = true
	if p.cancel != nil {
		p.cancel()
	}
	profiles := make([]*profileStream, 0, len(p.profiles))
	for _, ps := range p.profiles {
		profiles = append(profiles, ps)
	}
	p.mu.Unlock()

	for _, ps := range profiles {
		ps.sup.Stop()
		if discardSubscribers {
			ps.mu.Lock()
			ids := make([]string, 0, len(ps.subscribers))
			for id := range ps.subscribers {
				ids = append(ids, id)
			}
			ps.mu.Unlock()
			for _, id := range ids {
				ps.detach(id)
			}
		}
	}
}

// stats aggregates SessionStats across every profile in the pipeline.
func (p *pipeline) stats() SessionStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out SessionStats
	for _, ps := range p.profiles {
		restarts, lastErr, lastStderr := ps.sup.Stats()
		out.TotalBytes += ps.totalBytes
		out.Subscribers += ps.subscriberCount()
		out.Restarts += restarts
		out.SubscriberDrops += ps.totalDrops()
		if lastErr != "" {
			out.LastError = lastErr
		}
		if lastStderr != "" {
			out.LastStderr = lastStderr
		}
	}
	return out
}
