package outputs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ogglobi/audiolox/internal/models"
)

// MusicAssistantOutput drives a Music Assistant player over MA's HTTP REST
// API (POST /api/players/cmd/<command>), distinct from the websocket event
// feed internal/inputs/musicassistant.go consumes for the reverse
// direction. Request shape follows go-librespot's path-per-command POST
// idiom already used in internal/inputs/spotify.go.
type MusicAssistantOutput struct {
	baseURL  string // e.g. "http://ma.local:8095"
	playerID string
	client   *http.Client
}

// NewMusicAssistantOutput creates a Music Assistant output driver targeting
// the player identified by playerID on the MA server at baseURL.
func NewMusicAssistantOutput(baseURL, playerID string) *MusicAssistantOutput {
	return &MusicAssistantOutput{baseURL: baseURL, playerID: playerID, client: newHTTPClient(defaultHTTPTimeout)}
}

func (m *MusicAssistantOutput) Type() string { return "musicassistant" }

type maCmdRequest struct {
	PlayerID string `json:"player_id"`
}

func (m *MusicAssistantOutput) cmd(ctx context.Context, command string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/players/cmd/%s", m.baseURL, command)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("outputs/musicassistant: %s: %w", command, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("outputs/musicassistant: %s: status %d", command, resp.StatusCode)
	}
	return nil
}

func (m *MusicAssistantOutput) Play(ctx context.Context, session *models.PlaybackSession) error {
	if session != nil {
		var url string
		for _, sd := range session.Streams {
			url = sd.URL
			break
		}
		if url != "" {
			return m.cmd(ctx, "play_media", struct {
				PlayerID string `json:"player_id"`
				Media    string `json:"media"`
			}{PlayerID: m.playerID, Media: url})
		}
	}
	return m.cmd(ctx, "play", maCmdRequest{PlayerID: m.playerID})
}

func (m *MusicAssistantOutput) Pause(ctx context.Context, session *models.PlaybackSession) error {
	return m.cmd(ctx, "pause", maCmdRequest{PlayerID: m.playerID})
}

func (m *MusicAssistantOutput) Resume(ctx context.Context, session *models.PlaybackSession) error {
	return m.cmd(ctx, "play", maCmdRequest{PlayerID: m.playerID})
}

func (m *MusicAssistantOutput) Stop(ctx context.Context, session *models.PlaybackSession) error {
	return m.cmd(ctx, "stop", maCmdRequest{PlayerID: m.playerID})
}

func (m *MusicAssistantOutput) SetVolume(ctx context.Context, level int) error {
	return m.cmd(ctx, "volume_set", struct {
		PlayerID string `json:"player_id"`
		Volume   int    `json:"volume_level"`
	}{PlayerID: m.playerID, Volume: level})
}

func (m *MusicAssistantOutput) Dispose(ctx context.Context) error { return nil }

// StepQueue steps the MA player's own queue directly (spec §4.4
// dispatchQueueStep) since MA owns a server-side play queue per player.
func (m *MusicAssistantOutput) StepQueue(ctx context.Context, delta int) (bool, error) {
	command := "next"
	if delta < 0 {
		command = "previous"
	}
	if err := m.cmd(ctx, command, maCmdRequest{PlayerID: m.playerID}); err != nil {
		return true, err
	}
	return true, nil
}
