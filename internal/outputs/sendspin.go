package outputs

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ogglobi/audiolox/internal/models"
)

// sendspinAudioChunkType and sendspinBufferAheadMs mirror the Sendspin
// protocol constants from other_examples' harperreed-resonate-go Sendspin
// server: binary message type 4 carries an audio chunk, and chunks are
// sent bufferAheadMs ahead of their playback time so clients can buffer.
const (
	sendspinAudioChunkType = byte(4)
	sendspinBufferAheadMs  = 500
)

type sendspinClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// SendspinOutput is a PCM-multicast renderer: it runs a small websocket
// server that Sendspin clients (speakers) connect to, and fans encoded
// frames out to every connected client with server-time timestamps.
// Ported from other_examples' harperreed-resonate-go sendspin server
// (`github.com/gorilla/websocket`, `github.com/google/uuid` for per-client
// IDs), trimmed to the framing and lead-window-replay behavior spec §4.4
// calls out.
type SendspinOutput struct {
	addr string

	mu         sync.Mutex
	clients    map[string]*sendspinClient
	server     *http.Server
	leadFrames [][]byte // buffered future frames, replayed to late joiners
}

// NewSendspinOutput creates a Sendspin output driver listening on addr
// (e.g. ":7788") for client websocket connections.
func NewSendspinOutput(addr string) *SendspinOutput {
	return &SendspinOutput{addr: addr, clients: make(map[string]*sendspinClient)}
}

func (s *SendspinOutput) Type() string { return "sendspin" }

var sendspinUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024 * 16,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *SendspinOutput) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := sendspinUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("outputs/sendspin: upgrade failed", "err", err)
		return
	}
	c := &sendspinClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, 64)}

	s.mu.Lock()
	s.clients[c.id] = c
	backlog := append([][]byte(nil), s.leadFrames...)
	s.mu.Unlock()

	// Replay the buffered lead window to the late joiner so its audio
	// aligns with already-connected clients (spec §4.4 Sendspin policy).
	for _, frame := range backlog {
		c.send <- frame
	}

	go s.writeLoop(c)
}

func (s *SendspinOutput) writeLoop(c *sendspinClient) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, c.id)
		s.mu.Unlock()
		c.conn.Close()
	}()
	for chunk := range c.send {
		if err := c.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			return
		}
	}
}

// FanOut broadcasts an encoded audio chunk to every connected client,
// framed with the Sendspin binary chunk type and a server-clock
// timestamp bufferAheadMs in the future. Called by the router/engine
// subscriber wiring with each decoded chunk from the zone's pipeline.
func (s *SendspinOutput) FanOut(chunk []byte) {
	frame := encodeSendspinChunk(chunk)

	s.mu.Lock()
	s.leadFrames = append(s.leadFrames, frame)
	if len(s.leadFrames) > 32 {
		s.leadFrames = s.leadFrames[len(s.leadFrames)-32:]
	}
	clients := make([]*sendspinClient, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		select {
		case c.send <- frame:
		default:
			// slow client, drop rather than block the producer (spec §5)
		}
	}
}

func (s *SendspinOutput) SinkProfile() models.Profile { return models.ProfilePCM }

// WriteChunk satisfies models.PCMSink by feeding each engine-delivered
// chunk into FanOut, making Sendspin a live subscriber of the zone's Audio
// Engine pipeline rather than a broadcaster with nothing producing frames.
func (s *SendspinOutput) WriteChunk(ctx context.Context, chunk []byte) error {
	s.FanOut(chunk)
	return nil
}

var _ models.PCMSink = (*SendspinOutput)(nil)

func encodeSendspinChunk(audio []byte) []byte {
	timestampUs := time.Now().Add(sendspinBufferAheadMs * time.Millisecond).UnixMicro()
	frame := make([]byte, 1+8+len(audio))
	frame[0] = sendspinAudioChunkType
	for i := 0; i < 8; i++ {
		frame[1+i] = byte(timestampUs >> (56 - 8*i))
	}
	copy(frame[9:], audio)
	return frame
}

func (s *SendspinOutput) Play(ctx context.Context, session *models.PlaybackSession) error {
	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		return nil
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleConn)
	s.server = &http.Server{Addr: s.addr, Handler: mux}
	srv := s.server
	s.mu.Unlock()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Warn("outputs/sendspin: server error", "err", err)
		}
	}()
	return nil
}

func (s *SendspinOutput) Pause(ctx context.Context, session *models.PlaybackSession) error {
	return nil
}

func (s *SendspinOutput) Resume(ctx context.Context, session *models.PlaybackSession) error {
	return s.Play(ctx, session)
}

func (s *SendspinOutput) Stop(ctx context.Context, session *models.PlaybackSession) error {
	return s.Dispose(ctx)
}

func (s *SendspinOutput) SetVolume(ctx context.Context, level int) error {
	s.mu.Lock()
	clients := make([]*sendspinClient, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	msg := []byte{1, byte(level)} // message type 1: volume control (simplified framing)
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
		}
	}
	return nil
}

func (s *SendspinOutput) Dispose(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	clients := s.clients
	s.clients = make(map[string]*sendspinClient)
	s.mu.Unlock()

	for _, c := range clients {
		close(c.send)
	}
	if srv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ClientCount reports the number of connected Sendspin clients.
func (s *SendspinOutput) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
