package inputs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"
	"syscall"
	"sync"
	"time"

	"github.com/ogglobi/audiolox/internal/engine"
	"github.com/ogglobi/audiolox/internal/models"
)

// goLibrespotConfig is go-librespot's YAML config template, carried over
// unchanged from the teacher's SpotifyStream.
const goLibrespotConfig = `device_name: "%s"
device_type: "stb"
audio_device: "%s"
external_volume: true
server:
  enabled: true
  port: %d
credentials:
  type: zeroconf
`

// SpotifyInput receives Spotify Connect audio via a supervised
// go-librespot subprocess and polls its HTTP status API. Grounded
// near-verbatim on the teacher's SpotifyStream.
type SpotifyInput struct {
	zoneID  int
	apiPort int
	sup     *engine.Supervisor
	cb      Callbacks

	monCancel context.CancelFunc
	monWg     sync.WaitGroup
}

// NewSpotifyInput creates a Spotify Connect input adapter reporting
// through cb.
func NewSpotifyInput(cb Callbacks) *SpotifyInput {
	return &SpotifyInput{cb: cb}
}

func (s *SpotifyInput) Label() string { return "spotify" }

func (s *SpotifyInput) Activate(ctx context.Context, opts ActivateOptions) error {
	slog.Info("inputs/spotify: activating", "zone", opts.ZoneID, "name", opts.Name)
	s.zoneID = opts.ZoneID
	s.apiPort = 3678 + opts.ZoneID

	cfgContent := fmt.Sprintf(goLibrespotConfig, opts.Name, opts.PCMDevice, s.apiPort)
	if err := writeFileAtomic(opts.ConfigDir+"/config.yml", []byte(cfgContent)); err != nil {
		return fmt.Errorf("inputs/spotify: write config.yml: %w", err)
	}

	cfgDir := opts.ConfigDir
	s.sup = engine.NewSupervisor(fmt.Sprintf("spotify-input/%d", opts.ZoneID), func() *exec.Cmd {
		cmd := exec.Command(findBinary("go-librespot", cfgDir), "--config_dir", cfgDir)
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		return cmd
	})
	if err := s.sup.Start(ctx); err != nil {
		return fmt.Errorf("inputs/spotify: supervisor start: %w", err)
	}

	monCtx, cancel := context.WithCancel(context.Background())
	s.monCancel = cancel
	s.monWg.Add(1)
	go s.pollMetadata(monCtx)
	return nil
}

func (s *SpotifyInput) Deactivate(ctx context.Context) error {
	slog.Info("inputs/spotify: deactivating", "zone", s.zoneID)
	if s.monCancel != nil {
		s.monCancel()
	}
	s.monWg.Wait()
	if s.sup != nil {
		return s.sup.Stop()
	}
	return nil
}

// SendCmd forwards playback controls to go-librespot's HTTP API.
func (s *SpotifyInput) SendCmd(ctx context.Context, cmd string) error {
	var path string
	var body io.Reader
	switch cmd {
	case "play":
		path = "/player/resume"
	case "pause":
		path = "/player/pause"
	case "next":
		path, body = "/player/next", strings.NewReader("{}")
	case "prev":
		path = "/player/prev"
	default:
		slog.Debug("inputs/spotify: unknown command", "cmd", cmd)
		return nil
	}

	url := fmt.Sprintf("http://localhost:%d%s", s.apiPort, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("inputs/spotify: command %s: %w", cmd, err)
	}
	resp.Body.Close()
	return nil
}

type spotifyStatus struct {
	PlayerState struct {
		IsPlaying bool `json:"is_playing"`
		IsPaused  bool `json:"is_paused"`
	} `json:"player_state"`
	Track struct {
		Name        string   `json:"name"`
		AlbumName   string   `json:"album_name"`
		ArtistNames []string `json:"artist_names"`
		AlbumCover  string   `json:"album_cover_url"`
		DurationMs  int      `json:"duration_ms"`
	} `json:"track"`
	PositionMs int  `json:"position_ms"`
	Stopped    bool `json:"stopped"`
	Paused     bool `json:"paused"`
}

func (s *SpotifyInput) pollMetadata(ctx context.Context) {
	defer s.monWg.Done()

	select {
	case <-ctx.Done():
		return
	case <-time.After(5 * time.Second):
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *SpotifyInput) pollOnce(ctx context.Context) {
	url := fmt.Sprintf("http://localhost:%d/status", s.apiPort)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return
	}
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		slog.Debug("inputs/spotify: status fetch failed", "err", err)
		return
	}
	defer resp.Body.Close()

	var status spotifyStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return
	}

	partial := models.TrackMetadata{
		Title:    status.Track.Name,
		Album:    status.Track.AlbumName,
		Cover:    status.Track.AlbumCover,
		Duration: float64(status.Track.DurationMs) / 1000,
	}
	if len(status.Track.ArtistNames) > 0 {
		partial.Artist = strings.Join(status.Track.ArtistNames, ", ")
	}
	s.cb.UpdateMetadata(s.zoneID, s.Label(), partial)
	s.cb.UpdateTiming(s.zoneID, s.Label(), float64(status.PositionMs)/1000, partial.Duration)

	switch {
	case status.Stopped:
		s.cb.StopPlayback(s.zoneID, s.Label())
	case status.Paused || status.PlayerState.IsPaused:
		s.cb.PausePlayback(s.zoneID, s.Label())
	case status.PlayerState.IsPlaying:
		s.cb.ResumePlayback(s.zoneID, s.Label())
	}
}
