package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ogglobi/audiolox/internal/api"
	"github.com/ogglobi/audiolox/internal/auth"
	"github.com/ogglobi/audiolox/internal/config"
	"github.com/ogglobi/audiolox/internal/engine"
	"github.com/ogglobi/audiolox/internal/inputs"
	"github.com/ogglobi/audiolox/internal/models"
	"github.com/ogglobi/audiolox/internal/playback"
	"github.com/ogglobi/audiolox/internal/ports"
	"github.com/ogglobi/audiolox/internal/queue"
	"github.com/ogglobi/audiolox/internal/router"
	"github.com/ogglobi/audiolox/internal/sysinfo"
	"github.com/ogglobi/audiolox/internal/zonerepo"
)

// --- minimal port fakes, mirroring internal/playback's test fakes ---

type fakeEngine struct{}

func (f *fakeEngine) Start(ctx context.Context, opts engine.StartOptions) (*models.PlaybackSession, error) {
	return &models.PlaybackSession{ZoneID: opts.ZoneID}, nil
}
func (f *fakeEngine) StartWithHandoff(ctx context.Context, opts engine.StartOptions, h *engine.HandoffOptions) (*models.PlaybackSession, error) {
	return &models.PlaybackSession{ZoneID: opts.ZoneID}, nil
}
func (f *fakeEngine) CreateStream(ctx context.Context, zoneID int, profile models.Profile, opts engine.SubscribeOptions) (*engine.Subscriber, error) {
	return nil, nil
}
func (f *fakeEngine) DetachStream(zoneID int, profile models.Profile, sub *engine.Subscriber) {}
func (f *fakeEngine) Stop(ctx context.Context, zoneID int, reason string, opts engine.StopOptions) error {
	return nil
}
func (f *fakeEngine) WaitForFirstChunk(ctx context.Context, zoneID int, profile models.Profile, timeout time.Duration) error {
	return nil
}
func (f *fakeEngine) HasSession(zoneID int) bool { return false }
func (f *fakeEngine) GetSessionStats(zoneID int) (engine.SessionStats, bool) {
	return engine.SessionStats{}, false
}

type fakeContent struct{}

func (f *fakeContent) ResolveMetadata(ctx context.Context, audiopath string) (*ports.TrackInfo, error) {
	return &ports.TrackInfo{Title: "Test Track"}, nil
}
func (f *fakeContent) ResolvePlaybackSource(ctx context.Context, opts ports.ResolveSourceOptions) (ports.ResolveSourceResult, error) {
	return ports.ResolveSourceResult{Source: &models.PlaybackSource{URL: "http://example.com/stream"}}, nil
}
func (f *fakeContent) BuildQueueForUri(ctx context.Context, uri, zoneName, station, rawAudiopath string, opts ports.BuildQueueOptions) ([]models.QueueItem, error) {
	return []models.QueueItem{{Audiopath: rawAudiopath, UniqueID: "u1"}}, nil
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

type fakeInputs struct{}

func (f *fakeInputs) StartInputSession(ctx context.Context, zoneID int, label string, opts inputs.ActivateOptions) error {
	return nil
}
func (f *fakeInputs) StopInputSession(ctx context.Context, zoneID int, label string) error { return nil }
func (f *fakeInputs) RenameZone(ctx context.Context, zoneID int, label, name string) error { return nil }
func (f *fakeInputs) SyncZone(ctx context.Context, zoneID int, label string) error         { return nil }
func (f *fakeInputs) ResolvePlaybackSource(ctx context.Context, label, uri string) (ports.ResolveSourceResult, error) {
	return ports.ResolveSourceResult{}, nil
}
func (f *fakeInputs) ForwardCommand(ctx context.Context, zoneID int, label, cmd string) error { return nil }
func (f *fakeInputs) RequestLineInControl(ctx context.Context, zoneID int) error               { return nil }

type fakeOutput struct{}

func (f *fakeOutput) Type() string                                                     { return "fake" }
func (f *fakeOutput) Play(ctx context.Context, session *models.PlaybackSession) error   { return nil }
func (f *fakeOutput) Pause(ctx context.Context, session *models.PlaybackSession) error  { return nil }
func (f *fakeOutput) Resume(ctx context.Context, session *models.PlaybackSession) error { return nil }
func (f *fakeOutput) Stop(ctx context.Context, session *models.PlaybackSession) error   { return nil }
func (f *fakeOutput) SetVolume(ctx context.Context, level int) error                    { return nil }
func (f *fakeOutput) Dispose(ctx context.Context) error                                 { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *zonerepo.Repository) {
	t.Helper()
	repo := zonerepo.New()
	repo.Register(models.ZoneContext{
		ID:   1,
		Name: "Living Room",
		Config: models.ZoneConfig{
			Volume: models.VolumePolicy{Default: 50, Step: 5, Max: 100},
		},
		Outputs: []models.OutputBinding{{Type: "fake", Driver: &fakeOutput{}}},
	}, nil)

	qc := queue.New(repo)
	rt := router.New()
	hub := api.NewHub()
	coord := playback.New(repo, qc, &fakeEngine{}, rt, &fakeContent{}, &fakeInputs{}, hub, playback.NewCoverStore("/covers/"), nil)

	storage, err := config.NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage() error = %v", err)
	}
	t.Cleanup(storage.Close)

	authSvc, err := auth.NewService(t.TempDir())
	if err != nil {
		t.Fatalf("auth.NewService() error = %v", err)
	}
	t.Cleanup(authSvc.Close)

	h := api.NewHandlers(repo, coord, storage, hub, sysinfo.Info{Hostname: "test", Version: "test"})
	srv := httptest.NewServer(api.NewRouter(h, authSvc))
	t.Cleanup(srv.Close)
	return srv, repo
}

func TestGetZones(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/zones")
	if err != nil {
		t.Fatalf("GET /api/zones: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Zones []models.ZoneContext `json:"zones"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Zones) != 1 || body.Zones[0].Name != "Living Room" {
		t.Errorf("zones = %+v, want one Living Room entry", body.Zones)
	}
}

func TestGetZone_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/zones/99")
	if err != nil {
		t.Fatalf("GET /api/zones/99: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPlayZone_StartsQueuePlayback(t *testing.T) {
	srv, repo := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{"uri": "library:track:1", "type": "play"})
	resp, err := http.Post(srv.URL+"/api/zones/1/play", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST play: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	zc, aerr := repo.Snapshot(1)
	if aerr != nil {
		t.Fatalf("Snapshot: %v", aerr)
	}
	if zc.State.Mode != models.ModePlay {
		t.Errorf("zone mode = %q, want play", zc.State.Mode)
	}
}

func TestCommandZone_VolumeClamped(t *testing.T) {
	srv, repo := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"command": "volume", "payload": "500"})
	resp, err := http.Post(srv.URL+"/api/zones/1/command", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST command: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	zc, aerr := repo.Snapshot(1)
	if aerr != nil {
		t.Fatalf("Snapshot: %v", aerr)
	}
	if zc.State.Volume != 100 {
		t.Errorf("volume = %d, want clamped to 100", zc.State.Volume)
	}
}

func TestFavoritesRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	favs := []ports.FavoriteEntry{{Audiopath: "library:album:1", Title: "Kid A"}}
	body, _ := json.Marshal(favs)
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/zones/1/favorites", bytes.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT favorites: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/zones/1/favorites")
	if err != nil {
		t.Fatalf("GET favorites: %v", err)
	}
	defer resp.Body.Close()

	var got struct {
		Favorites []ports.FavoriteEntry `json:"favorites"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Favorites) != 1 || got.Favorites[0].Title != "Kid A" {
		t.Errorf("favorites = %+v, want one Kid A entry", got.Favorites)
	}
}

func TestGetInfo(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/info")
	if err != nil {
		t.Fatalf("GET /api/info: %v", err)
	}
	defer resp.Body.Close()

	var info sysinfo.Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Hostname != "test" {
		t.Errorf("Hostname = %q, want %q", info.Hostname, "test")
	}
}
