package inputs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ogglobi/audiolox/internal/models"
)

// maPlayerUpdate is the subset of a Music Assistant "player_updated"
// websocket event this adapter cares about.
type maPlayerUpdate struct {
	Event string `json:"event"`
	Data  struct {
		PlayerID     string  `json:"player_id"`
		State        string  `json:"state"`
		Volume       int     `json:"volume_level"`
		ElapsedTime  float64 `json:"elapsed_time"`
		CurrentMedia struct {
			Title    string `json:"title"`
			Artist   string `json:"artist"`
			Album    string `json:"album"`
			ImageURL string `json:"image_url"`
			Duration float64 `json:"duration"`
		} `json:"current_media"`
	} `json:"data"`
}

// MusicAssistantInput proxies a Music Assistant player's state into a
// zone over MA's websocket event stream. New adapter modeled on the
// AirPlay/Spotify Activate/Deactivate/SendCmd shape, since MA is consumed
// purely as a network peer rather than a supervised subprocess.
type MusicAssistantInput struct {
	zoneID   int
	playerID string
	wsURL    string
	cb       Callbacks

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMusicAssistantInput creates a Music Assistant input adapter. wsURL is
// the MA server's websocket endpoint (e.g. "ws://ma.local:8095/ws") and
// playerID identifies the MA player bound to this zone.
func NewMusicAssistantInput(cb Callbacks, wsURL, playerID string) *MusicAssistantInput {
	return &MusicAssistantInput{cb: cb, wsURL: wsURL, playerID: playerID}
}

func (m *MusicAssistantInput) Label() string { return "musicassistant" }

func (m *MusicAssistantInput) Activate(ctx context.Context, opts ActivateOptions) error {
	slog.Info("inputs/musicassistant: activating", "zone", opts.ZoneID, "player", m.playerID)
	m.zoneID = opts.ZoneID

	dialCtx, dialCancel := context.WithTimeout(ctx, 4*time.Second)
	defer dialCancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, m.wsURL, nil)
	if err != nil {
		return fmt.Errorf("inputs/musicassistant: dial %s: %w", m.wsURL, err)
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	monCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go m.readLoop(monCtx)
	return nil
}

func (m *MusicAssistantInput) Deactivate(ctx context.Context) error {
	slog.Info("inputs/musicassistant: deactivating", "zone", m.zoneID)
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	m.wg.Wait()
	return nil
}

// SendCmd sends a play/pause/next/prev command over the websocket
// connection, addressed to m.playerID.
func (m *MusicAssistantInput) SendCmd(_ context.Context, cmd string) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("inputs/musicassistant: not connected")
	}
	msg := map[string]any{
		"command":   "players/cmd/" + cmd,
		"player_id": m.playerID,
	}
	return conn.WriteJSON(msg)
}

func (m *MusicAssistantInput) readLoop(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		m.mu.Lock()
		conn := m.conn
		m.mu.Unlock()
		if conn == nil {
			return
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			slog.Debug("inputs/musicassistant: read failed", "err", err)
			return
		}
		var update maPlayerUpdate
		if err := json.Unmarshal(raw, &update); err != nil {
			continue
		}
		if update.Event != "player_updated" || update.Data.PlayerID != m.playerID {
			continue
		}

		partial := models.TrackMetadata{
			Title:    update.Data.CurrentMedia.Title,
			Artist:   update.Data.CurrentMedia.Artist,
			Album:    update.Data.CurrentMedia.Album,
			Cover:    update.Data.CurrentMedia.ImageURL,
			Duration: update.Data.CurrentMedia.Duration,
		}
		m.cb.UpdateMetadata(m.zoneID, m.Label(), partial)
		m.cb.UpdateTiming(m.zoneID, m.Label(), update.Data.ElapsedTime, partial.Duration)
		m.cb.UpdateVolume(m.zoneID, m.Label(), update.Data.Volume)

		switch update.Data.State {
		case "playing":
			m.cb.ResumePlayback(m.zoneID, m.Label())
		case "paused":
			m.cb.PausePlayback(m.zoneID, m.Label())
		case "idle", "off":
			m.cb.StopPlayback(m.zoneID, m.Label())
		}
	}
}
