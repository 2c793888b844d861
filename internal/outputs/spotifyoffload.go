package outputs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ogglobi/audiolox/internal/models"
)

// SpotifyOffloadOutput proxies transport control to a Spotify Connect
// device via Spotify's Web API rather than rendering audio locally — it
// asserts ControllerOnly so selectPlayOutputs (spec §4.4) excludes it from
// the set of drivers the Audio Engine streams PCM/encoded audio to. Call
// shape ported from the teacher's SpotifyStream.SendCmd (path-per-command
// HTTP POST), retargeted at the Web API's /me/player endpoints instead of
// go-librespot's local HTTP API since there is no local process to talk to.
type SpotifyOffloadOutput struct {
	deviceID string
	tokenFn  func(ctx context.Context) (string, error) // OAuth bearer token source
	client   *http.Client
}

// NewSpotifyOffloadOutput creates a Spotify Connect offload output bound
// to deviceID, using tokenFn to obtain a fresh bearer token per call (spec
// §4.6 token refresh is owned by the input adapter side; this driver only
// consumes it).
func NewSpotifyOffloadOutput(deviceID string, tokenFn func(ctx context.Context) (string, error)) *SpotifyOffloadOutput {
	return &SpotifyOffloadOutput{
		deviceID: deviceID,
		tokenFn:  tokenFn,
		client:   newHTTPClient(defaultHTTPTimeout),
	}
}

func (s *SpotifyOffloadOutput) Type() string { return "spotify_offload" }

// ControllerOnly marks this driver as non-renderable (spec §4.4).
func (s *SpotifyOffloadOutput) ControllerOnly() bool { return true }

func (s *SpotifyOffloadOutput) call(ctx context.Context, method, path string, body string) error {
	token, err := s.tokenFn(ctx)
	if err != nil {
		return fmt.Errorf("outputs/spotify_offload: token: %w", err)
	}

	url := "https://api.spotify.com/v1/me/player" + path
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("outputs/spotify_offload: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("outputs/spotify_offload: %s %s: status %d", method, path, resp.StatusCode)
	}
	return nil
}

func (s *SpotifyOffloadOutput) Play(ctx context.Context, session *models.PlaybackSession) error {
	body, _ := json.Marshal(struct {
		DeviceIDs []string `json:"device_ids"`
		Play      bool     `json:"play"`
	}{DeviceIDs: []string{s.deviceID}, Play: true})
	return s.call(ctx, http.MethodPut, "", string(body))
}

func (s *SpotifyOffloadOutput) Pause(ctx context.Context, session *models.PlaybackSession) error {
	return s.call(ctx, http.MethodPut, "/pause?device_id="+s.deviceID, "")
}

func (s *SpotifyOffloadOutput) Resume(ctx context.Context, session *models.PlaybackSession) error {
	return s.call(ctx, http.MethodPut, "/play?device_id="+s.deviceID, "")
}

func (s *SpotifyOffloadOutput) Stop(ctx context.Context, session *models.PlaybackSession) error {
	return s.call(ctx, http.MethodPut, "/pause?device_id="+s.deviceID, "")
}

func (s *SpotifyOffloadOutput) SetVolume(ctx context.Context, level int) error {
	return s.call(ctx, http.MethodPut, fmt.Sprintf("/volume?volume_percent=%d&device_id=%s", level, s.deviceID), "")
}

func (s *SpotifyOffloadOutput) Dispose(ctx context.Context) error { return nil }

// StepQueue claims next/previous-track stepping via the Web API, since the
// Spotify Connect device owns its own play queue (spec §4.4 dispatchQueueStep).
func (s *SpotifyOffloadOutput) StepQueue(ctx context.Context, delta int) (bool, error) {
	path := "/next"
	if delta < 0 {
		path = "/previous"
	}
	if err := s.call(ctx, http.MethodPost, path+"?device_id="+s.deviceID, ""); err != nil {
		return true, err
	}
	return true, nil
}
