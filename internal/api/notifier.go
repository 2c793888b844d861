package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ogglobi/audiolox/internal/models"
	"github.com/ogglobi/audiolox/internal/ports"
)

// event is the envelope every Hub broadcast is wrapped in, so admin UI
// clients can dispatch on Type without separate channels per event kind.
type event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type hubClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub implements ports.NotifierPort as a websocket broadcast fan-out (spec
// §1 "WebSocket notifier — thin transport glue"), ported from the same
// upgrader/per-client-send-channel idiom as outputs.SendspinOutput.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*hubClient
}

// NewHub creates an empty notifier hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*hubClient)}
}

var hubUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024 * 4,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request to a websocket connection and registers it
// as a broadcast subscriber until the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := hubUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("api: websocket upgrade failed", "err", err)
		return
	}
	c := &hubClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, 64)}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) writeLoop(c *hubClient) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()
		c.conn.Close()
	}()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readLoop drains and discards client frames purely to detect disconnects
// (the notifier is one-way; admin commands go through the REST surface).
func (h *Hub) readLoop(c *hubClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.mu.Lock()
			if cl, ok := h.clients[c.id]; ok && cl == c {
				close(cl.send)
				delete(h.clients, c.id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// broadcast fans an event out to every connected client. A client whose
// send buffer is full is dropped rather than blocking the core — spec §6
// "must never block the core longer than an enqueue".
func (h *Hub) broadcast(evt event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- data:
		default:
			close(c.send)
			delete(h.clients, id)
		}
	}
}

func (h *Hub) ZoneStateChanged(zoneID int, state models.ZoneState) {
	h.broadcast(event{Type: "zone_state", Data: map[string]interface{}{"zone_id": zoneID, "state": state}})
}

func (h *Hub) QueueUpdated(zoneID int, queue models.QueueState) {
	h.broadcast(event{Type: "queue_updated", Data: map[string]interface{}{"zone_id": zoneID, "queue": queue}})
}

func (h *Hub) FavoritesChanged(zoneID int) {
	h.broadcast(event{Type: "favorites_changed", Data: map[string]interface{}{"zone_id": zoneID}})
}

func (h *Hub) RecentsChanged(zoneID int) {
	h.broadcast(event{Type: "recents_changed", Data: map[string]interface{}{"zone_id": zoneID}})
}

func (h *Hub) RescanProgress(percent int, message string) {
	h.broadcast(event{Type: "rescan_progress", Data: map[string]interface{}{"percent": percent, "message": message}})
}

func (h *Hub) StorageListUpdated() {
	h.broadcast(event{Type: "storage_list_updated"})
}

func (h *Hub) ReloadMusicApp() {
	h.broadcast(event{Type: "reload_music_app"})
}

func (h *Hub) GlobalSearchResult(query string, results []ports.TrackInfo) {
	h.broadcast(event{Type: "search_result", Data: map[string]interface{}{"query": query, "results": results}})
}

func (h *Hub) GlobalSearchError(query string, err error) {
	h.broadcast(event{Type: "search_error", Data: map[string]interface{}{"query": query, "error": err.Error()}})
}

func (h *Hub) AudioSyncGroupEvent(event2 models.GroupChangeEvent) {
	h.broadcast(event{Type: "group_event", Data: event2})
}

var _ ports.NotifierPort = (*Hub)(nil)
