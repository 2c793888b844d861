package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ogglobi/audiolox/internal/engine"
	"github.com/ogglobi/audiolox/internal/inputs"
	"github.com/ogglobi/audiolox/internal/models"
	"github.com/ogglobi/audiolox/internal/ports"
	"github.com/ogglobi/audiolox/internal/queue"
	"github.com/ogglobi/audiolox/internal/router"
	"github.com/ogglobi/audiolox/internal/zonerepo"
)

// fakeEngine is a minimal ports.EnginePort double — no subprocesses.
type fakeEngine struct {
	mu           sync.Mutex
	handoffCalls int
	stopCalls    int
	failStart    bool
}

func (f *fakeEngine) Start(ctx context.Context, opts engine.StartOptions) (*models.PlaybackSession, error) {
	return &models.PlaybackSession{ZoneID: opts.ZoneID, State: models.SessionPlaying}, nil
}

func (f *fakeEngine) StartWithHandoff(ctx context.Context, opts engine.StartOptions, handoff *engine.HandoffOptions) (*models.PlaybackSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handoffCalls++
	if f.failStart {
		return nil, errors.New("engine boom")
	}
	return &models.PlaybackSession{ZoneID: opts.ZoneID, State: models.SessionPlaying, PlaybackSource: opts.Source}, nil
}

func (f *fakeEngine) CreateStream(ctx context.Context, zoneID int, profile models.Profile, opts engine.SubscribeOptions) (*engine.Subscriber, error) {
	return nil, nil
}

func (f *fakeEngine) DetachStream(zoneID int, profile models.Profile, sub *engine.Subscriber) {}

func (f *fakeEngine) Stop(ctx context.Context, zoneID int, reason string, opts engine.StopOptions) error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) WaitForFirstChunk(ctx context.Context, zoneID int, profile models.Profile, timeout time.Duration) error {
	return nil
}
func (f *fakeEngine) HasSession(zoneID int) bool { return false }
func (f *fakeEngine) GetSessionStats(zoneID int) (engine.SessionStats, bool) {
	return engine.SessionStats{}, false
}

// fakeContent is a ports.ContentPort double.
type fakeContent struct {
	mu          sync.Mutex
	buildCalls  int
	queueItems  []models.QueueItem
	sourceValid bool
}

func (f *fakeContent) ResolveMetadata(ctx context.Context, audiopath string) (*ports.TrackInfo, error) {
	return nil, nil
}

func (f *fakeContent) ResolvePlaybackSource(ctx context.Context, opts ports.ResolveSourceOptions) (ports.ResolveSourceResult, error) {
	if !f.sourceValid {
		return ports.ResolveSourceResult{}, nil
	}
	return ports.ResolveSourceResult{Source: &models.PlaybackSource{Kind: "http", URL: "http://example/stream"}, Provider: "library"}, nil
}

func (f *fakeContent) BuildQueueForUri(ctx context.Context, uri, zoneName, station, rawAudiopath string, opts ports.BuildQueueOptions) ([]models.QueueItem, error) {
	f.mu.Lock()
	f.buildCalls++
	f.mu.Unlock()
	return f.queueItems, nil
}

func (f *fakeContent) GetMediaFolder(ctx context.Context, folderID string, offset, limit int) ([]models.QueueItem, error) {
	return nil, nil
}
func (f *fakeContent) GetServiceTrack(ctx context.Context, service, user, trackID string) (*ports.TrackInfo, error) {
	return nil, nil
}
func (f *fakeContent) GetServiceFolder(ctx context.Context, service, user, folderID string, offset, limit int) ([]models.QueueItem, error) {
	return nil, nil
}
func (f *fakeContent) IsAppleMusicProvider(id string) bool { return false }
func (f *fakeContent) IsDeezerProvider(id string) bool     { return false }
func (f *fakeContent) IsTidalProvider(id string) bool      { return false }

// fakeInputs is a ports.InputsPort double.
type fakeInputs struct {
	mu       sync.Mutex
	forwards []string
}

func (f *fakeInputs) StartInputSession(ctx context.Context, zoneID int, label string, opts inputs.ActivateOptions) error {
	return nil
}
func (f *fakeInputs) StopInputSession(ctx context.Context, zoneID int, label string) error { return nil }
func (f *fakeInputs) RenameZone(ctx context.Context, zoneID int, label, name string) error  { return nil }
func (f *fakeInputs) SyncZone(ctx context.Context, zoneID int, label string) error          { return nil }
func (f *fakeInputs) ResolvePlaybackSource(ctx context.Context, label, uri string) (ports.ResolveSourceResult, error) {
	return ports.ResolveSourceResult{Source: &models.PlaybackSource{Kind: "pipe"}, Provider: label}, nil
}
func (f *fakeInputs) ForwardCommand(ctx context.Context, zoneID int, label, cmd string) error {
	f.mu.Lock()
	f.forwards = append(f.forwards, cmd)
	f.mu.Unlock()
	return nil
}
func (f *fakeInputs) RequestLineInControl(ctx context.Context, zoneID int) error { return nil }

// fakeNotifier is a ports.NotifierPort double.
type fakeNotifier struct {
	mu     sync.Mutex
	states []models.ZoneState
}

func (f *fakeNotifier) ZoneStateChanged(zoneID int, state models.ZoneState) {
	f.mu.Lock()
	f.states = append(f.states, state)
	f.mu.Unlock()
}
func (f *fakeNotifier) QueueUpdated(zoneID int, queue models.QueueState)                    {}
func (f *fakeNotifier) FavoritesChanged(zoneID int)                                         {}
func (f *fakeNotifier) RecentsChanged(zoneID int)                                           {}
func (f *fakeNotifier) RescanProgress(percent int, message string)                          {}
func (f *fakeNotifier) StorageListUpdated()                                                 {}
func (f *fakeNotifier) ReloadMusicApp()                                                     {}
func (f *fakeNotifier) GlobalSearchResult(query string, results []ports.TrackInfo)          {}
func (f *fakeNotifier) GlobalSearchError(query string, err error)                           {}
func (f *fakeNotifier) AudioSyncGroupEvent(event models.GroupChangeEvent)                   {}

func (f *fakeNotifier) last() models.ZoneState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		return models.ZoneState{}
	}
	return f.states[len(f.states)-1]
}

// fakeOutput is a models.ZoneOutput double.
type fakeOutput struct {
	mu      sync.Mutex
	plays   int
	pauses  int
	resumes int
	stops   int
	volumes []int
}

func (f *fakeOutput) Type() string { return "fake" }
func (f *fakeOutput) Play(ctx context.Context, s *models.PlaybackSession) error {
	f.mu.Lock()
	f.plays++
	f.mu.Unlock()
	return nil
}
func (f *fakeOutput) Pause(ctx context.Context, s *models.PlaybackSession) error {
	f.mu.Lock()
	f.pauses++
	f.mu.Unlock()
	return nil
}
func (f *fakeOutput) Resume(ctx context.Context, s *models.PlaybackSession) error {
	f.mu.Lock()
	f.resumes++
	f.mu.Unlock()
	return nil
}
func (f *fakeOutput) Stop(ctx context.Context, s *models.PlaybackSession) error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	return nil
}
func (f *fakeOutput) SetVolume(ctx context.Context, level int) error {
	f.mu.Lock()
	f.volumes = append(f.volumes, level)
	f.mu.Unlock()
	return nil
}
func (f *fakeOutput) Dispose(ctx context.Context) error { return nil }

func newTestCoordinator(t *testing.T) (*Coordinator, *zonerepo.Repository, *fakeEngine, *fakeContent, *fakeInputs, *fakeNotifier, *fakeOutput) {
	t.Helper()
	repo := zonerepo.New()
	qc := queue.New(repo)
	eng := &fakeEngine{}
	content := &fakeContent{sourceValid: true}
	in := &fakeInputs{}
	notify := &fakeNotifier{}
	covers := NewCoverStore("/covers/")
	rt := router.New()
	coord := New(repo, qc, eng, rt, content, in, notify, covers, nil)

	out := &fakeOutput{}
	repo.Register(models.ZoneContext{
		ID:     1,
		Name:   "Living Room",
		Config: models.ZoneConfig{Volume: models.VolumePolicy{Default: 50, Step: 5, Max: 100}},
		Outputs: []models.OutputBinding{{Type: "fake", Driver: out}},
	}, nil)

	return coord, repo, eng, content, in, notify, out
}

func TestPlayContentRebuildsQueueAndStartsPlayback(t *testing.T) {
	coord, repo, eng, content, _, _, out := newTestCoordinator(t)
	content.queueItems = []models.QueueItem{
		{Title: "Track One", Audiopath: "library:track:1", UniqueID: "1"},
		{Title: "Track Two", Audiopath: "library:track:2", UniqueID: "2"},
	}

	if err := coord.PlayContent(context.Background(), 1, "library:track:1", "track", PlayOptions{}); err != nil {
		t.Fatalf("PlayContent: %v", err)
	}

	if content.buildCalls != 1 {
		t.Fatalf("expected 1 BuildQueueForUri call, got %d", content.buildCalls)
	}
	if eng.handoffCalls != 1 {
		t.Fatalf("expected 1 engine handoff call, got %d", eng.handoffCalls)
	}
	out.mu.Lock()
	plays := out.plays
	out.mu.Unlock()
	if plays != 1 {
		t.Fatalf("expected output Play called once, got %d", plays)
	}

	zc, _ := repo.Snapshot(1)
	if zc.State.Mode != models.ModePlay {
		t.Fatalf("expected mode=play, got %v", zc.State.Mode)
	}
	if zc.State.Track.Title != "Track One" {
		t.Fatalf("expected track title propagated, got %q", zc.State.Track.Title)
	}
}

func TestPlayContentFastPathSeeksWithoutRebuild(t *testing.T) {
	coord, repo, _, content, _, _, _ := newTestCoordinator(t)
	content.queueItems = []models.QueueItem{
		{Title: "A", Audiopath: "library:track:a", UniqueID: "a"},
		{Title: "B", Audiopath: "library:track:b", UniqueID: "b"},
	}
	if err := coord.PlayContent(context.Background(), 1, "library:track:a", "track", PlayOptions{}); err != nil {
		t.Fatalf("initial PlayContent: %v", err)
	}
	if content.buildCalls != 1 {
		t.Fatalf("expected 1 build call after initial play, got %d", content.buildCalls)
	}

	if err := coord.PlayContent(context.Background(), 1, "library:track:b", "track", PlayOptions{}); err != nil {
		t.Fatalf("fast-path PlayContent: %v", err)
	}
	if content.buildCalls != 1 {
		t.Fatalf("expected fast path to skip rebuild, build calls = %d", content.buildCalls)
	}

	zc, _ := repo.Snapshot(1)
	if zc.Queue.CurrentIndex != 1 {
		t.Fatalf("expected CurrentIndex=1 after fast-path seek, got %d", zc.Queue.CurrentIndex)
	}
}

func TestHandleCommandVolumeClampsAndDispatches(t *testing.T) {
	coord, repo, _, _, _, _, out := newTestCoordinator(t)
	if err := coord.HandleCommand(context.Background(), 1, "volume_set", "500"); err != nil {
		t.Fatalf("HandleCommand volume: %v", err)
	}
	zc, _ := repo.Snapshot(1)
	if zc.State.Volume != 100 {
		t.Fatalf("expected volume clamped to 100, got %d", zc.State.Volume)
	}
	out.mu.Lock()
	defer out.mu.Unlock()
	if len(out.volumes) != 1 || out.volumes[0] != 100 {
		t.Fatalf("expected output to receive clamped volume, got %v", out.volumes)
	}
}

func TestHandleCommandShuffleToggle(t *testing.T) {
	coord, repo, _, content, _, _, _ := newTestCoordinator(t)
	content.queueItems = []models.QueueItem{
		{Audiopath: "library:track:1", UniqueID: "1"},
		{Audiopath: "library:track:2", UniqueID: "2"},
		{Audiopath: "library:track:3", UniqueID: "3"},
	}
	if err := coord.PlayContent(context.Background(), 1, "library:track:1", "track", PlayOptions{}); err != nil {
		t.Fatalf("PlayContent: %v", err)
	}
	if err := coord.HandleCommand(context.Background(), 1, "shuffle", "on"); err != nil {
		t.Fatalf("HandleCommand shuffle: %v", err)
	}
	zc, _ := repo.Snapshot(1)
	if !zc.Queue.Shuffle {
		t.Fatal("expected shuffle enabled")
	}
}

func TestInputCallbackGatedByActiveInput(t *testing.T) {
	coord, repo, _, _, _, notify, _ := newTestCoordinator(t)
	coord.StartPlayback(1, "airplay", models.PlaybackSource{}, &models.TrackMetadata{Title: "Live"})

	coord.UpdateMetadata(1, "spotify", models.TrackMetadata{Title: "Intruder"})

	zc, _ := repo.Snapshot(1)
	if zc.State.Track.Title != "Live" {
		t.Fatalf("expected stale-adapter callback to be dropped, got title %q", zc.State.Track.Title)
	}

	coord.UpdateMetadata(1, "airplay", models.TrackMetadata{Title: "Updated"})
	zc, _ = repo.Snapshot(1)
	if zc.State.Track.Title != "Updated" {
		t.Fatalf("expected active-adapter callback to apply, got %q", zc.State.Track.Title)
	}
	_ = notify
}

func TestNotifyEndOfTrackAdvancesLocalQueue(t *testing.T) {
	coord, repo, _, content, _, _, _ := newTestCoordinator(t)
	content.queueItems = []models.QueueItem{
		{Audiopath: "library:track:1", UniqueID: "1"},
		{Audiopath: "library:track:2", UniqueID: "2"},
	}
	if err := coord.PlayContent(context.Background(), 1, "library:track:1", "track", PlayOptions{}); err != nil {
		t.Fatalf("PlayContent: %v", err)
	}

	coord.NotifyEndOfTrack(context.Background(), 1, "")

	zc, _ := repo.Snapshot(1)
	if zc.Queue.CurrentIndex != 1 {
		t.Fatalf("expected queue to advance to index 1, got %d", zc.Queue.CurrentIndex)
	}
}
