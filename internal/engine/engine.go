// Package engine implements the Audio Engine (spec §4.3): it spawns
// supervised transcode pipelines per zone, exposes their encoded output to
// subscribers, and supports a handoff mode where a new pipeline must prove
// it has produced audio before the old one is torn down. Grounded on the
// teacher's internal/streams package (Supervisor, SubprocStream).
package engine

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ogglobi/audiolox/internal/models"
)

// SessionStats mirrors spec §4.3's getSessionStats contract: buffered
// bytes, total bytes, subscriber count, restarts, last error/stderr,
// subscriber drops.
type SessionStats struct {
	BufferedBytes   int64
	TotalBytes      int64
	Subscribers     int
	Restarts        int
	LastError       string
	LastStderr      string
	SubscriberDrops int64
}

// StartOptions configures a new pipeline.
type StartOptions struct {
	ZoneID         int
	Source         models.PlaybackSource
	Profiles       []models.Profile
	OutputSettings models.PreferredOutput
	BuildCmd       func(models.Profile) (*exec.Cmd, error)
}

// HandoffOptions configures startWithHandoff's barrier.
type HandoffOptions struct {
	Timeout time.Duration
}

// SubscribeOptions configures CreateStream.
type SubscribeOptions struct {
	PrimeWithBuffer bool
	Label           string
}

// StopOptions configures Stop.
type StopOptions struct {
	DiscardSubscribers bool
}

const defaultHandoffTimeout = 5 * time.Second

// Engine is the Audio Engine capability (spec §4.3). Contracts: a zone has
// at most one active pipeline except during a handoff's overlap window;
// subscriber stream failures must not propagate to sibling subscribers or
// the pipeline.
type Engine interface {
	Start(ctx context.Context, opts StartOptions) (*models.PlaybackSession, error)
	StartWithHandoff(ctx context.Context, opts StartOptions, handoff *HandoffOptions) (*models.PlaybackSession, error)
	CreateStream(ctx context.Context, zoneID int, profile models.Profile, opts SubscribeOptions) (*Subscriber, error)
	DetachStream(zoneID int, profile models.Profile, sub *Subscriber)
	Stop(ctx context.Context, zoneID int, reason string, opts StopOptions) error
	WaitForFirstChunk(ctx context.Context, zoneID int, profile models.Profile, timeout time.Duration) error
	HasSession(zoneID int) bool
	GetSessionStats(zoneID int) (SessionStats, bool)
}

// ProcessEngine is the default Engine implementation: each pipeline is one
// or more supervised subprocesses, one per requested encode profile.
type ProcessEngine struct {
	mu        sync.Mutex
	pipelines map[int]*pipeline
}

// NewProcessEngine returns an empty ProcessEngine.
func NewProcessEngine() *ProcessEngine {
	return &ProcessEngine{pipelines: make(map[int]*pipeline)}
}

// Start spawns a new pipeline for opts.ZoneID, replacing any existing one
// immediately (no handoff overlap).
func (e *ProcessEngine) Start(ctx context.Context, opts StartOptions) (*models.PlaybackSession, error) {
	e.mu.Lock()
	old, hadOld := e.pipelines[opts.ZoneID]
	e.mu.Unlock()

	session := newSession(opts)
	pl := newPipeline(opts.ZoneID, session)
	if err := pl.start(ctx, opts.Profiles, opts.BuildCmd); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.pipelines[opts.ZoneID] = pl
	e.mu.Unlock()

	if hadOld {
		old.stop(false)
	}
	return session, nil
}

// StartWithHandoff starts a new pipeline, then blocks until it reaches
// "first encoded chunk available" on the first requested profile before
// retiring the old pipeline — the handoff-as-single-completion-future
// pattern of spec §4.3/§9. On timeout, the new pipeline is retired as
// failed and the old pipeline is preserved untouched.
func (e *ProcessEngine) StartWithHandoff(ctx context.Context, opts StartOptions, handoff *HandoffOptions) (*models.PlaybackSession, error) {
	timeout := defaultHandoffTimeout
	if handoff != nil && handoff.Timeout > 0 {
		timeout = handoff.Timeout
	}
	if len(opts.Profiles) == 0 {
		return nil, fmt.Errorf("engine: StartWithHandoff requires at least one profile")
	}

	e.mu.Lock()
	old, hadOld := e.pipelines[opts.ZoneID]
	e.mu.Unlock()

	if !hadOld {
		return e.Start(ctx, opts)
	}

	session := newSession(opts)
	next := newPipeline(opts.ZoneID, session)
	if err := next.start(ctx, opts.Profiles, opts.BuildCmd); err != nil {
		return nil, err
	}

	if err := performHandoff(ctx, next, opts.Profiles[0], timeout); err != nil {
		return nil, fmt.Errorf("engine: handoff failed, keeping prior pipeline: %w", err)
	}

	e.mu.Lock()
	e.pipelines[opts.ZoneID] = next
	e.mu.Unlock()

	old.stop(false)
	return session, nil
}

// CreateStream attaches a new subscriber to zoneID's pipeline.
func (e *ProcessEngine) CreateStream(ctx context.Context, zoneID int, profile models.Profile, opts SubscribeOptions) (*Subscriber, error) {
	e.mu.Lock()
	pl, ok := e.pipelines[zoneID]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("engine: no active session for zone %d", zoneID)
	}

	pl.mu.Lock()
	ps, ok := pl.profiles[profile]
	pl.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("engine: zone %d has no profile %s", zoneID, profile)
	}

	sub := newSubscriber(uuid.NewString(), string(profile), opts.Label)
	ps.attach(sub, opts.PrimeWithBuffer)
	return sub, nil
}

// DetachStream removes sub from zoneID's profile stream, if both still
// exist (a stale detach after the pipeline already stopped is a no-op).
func (e *ProcessEngine) DetachStream(zoneID int, profile models.Profile, sub *Subscriber) {
	if sub == nil {
		return
	}
	e.mu.Lock()
	pl, ok := e.pipelines[zoneID]
	e.mu.Unlock()
	if !ok {
		return
	}
	pl.mu.Lock()
	ps, ok := pl.profiles[profile]
	pl.mu.Unlock()
	if !ok {
		return
	}
	ps.detach(sub.ID)
}

// Stop tears down zoneID's pipeline, if any.
func (e *ProcessEngine) Stop(ctx context.Context, zoneID int, reason string, opts StopOptions) error {
	e.mu.Lock()
	pl, ok := e.pipelines[zoneID]
	delete(e.pipelines, zoneID)
	e.mu.Unlock()
	if !ok {
		return nil
	}
	pl.stop(opts.DiscardSubscribers)
	return nil
}

// WaitForFirstChunk blocks until zoneID's pipeline has produced at least
// one chunk on profile.
func (e *ProcessEngine) WaitForFirstChunk(ctx context.Context, zoneID int, profile models.Profile, timeout time.Duration) error {
	e.mu.Lock()
	pl, ok := e.pipelines[zoneID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("engine: no active session for zone %d", zoneID)
	}
	return pl.waitForFirstChunk(ctx, profile, timeout)
}

// HasSession reports whether zoneID has an active pipeline.
func (e *ProcessEngine) HasSession(zoneID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pipelines[zoneID]
	return ok
}

// GetSessionStats returns zoneID's pipeline statistics.
func (e *ProcessEngine) GetSessionStats(zoneID int) (SessionStats, bool) {
	e.mu.Lock()
	pl, ok := e.pipelines[zoneID]
	e.mu.Unlock()
	if !ok {
		return SessionStats{}, false
	}
	return pl.stats(), true
}

func newSession(opts StartOptions) *models.PlaybackSession {
	return &models.PlaybackSession{
		ZoneID:         opts.ZoneID,
		PlaybackSource: opts.Source,
		State:          models.SessionPlaying,
	}
}
