package inputs

import (
	"context"
	"fmt"
	"sync"

	"github.com/ogglobi/audiolox/internal/models"
	"github.com/ogglobi/audiolox/internal/ports"
)

// sessionKey identifies one zone's instance of one input label, since each
// adapter (spec §4.6) is a single-zone subprocess/proxy rather than a
// shared multi-tenant service.
type sessionKey struct {
	zoneID int
	label  string
}

// Manager implements ports.InputsPort, owning the set of live adapter
// instances and routing calls to the one matching (zoneID, label).
// Grounded on the teacher's streams.Manager (a map of live per-stream
// subprocess handles keyed by source ID), generalized to key by zone+label
// instead of a single global source ID.
type Manager struct {
	mu         sync.Mutex
	sessions   map[sessionKey]InputSession
	pcmDevice  map[sessionKey]string
	activeZone map[string]int // label -> zone ID of its most recently started session
}

// NewManager creates an empty input session manager. Adapters are created
// by Bind, and nothing is spawned until StartInputSession activates a bound
// adapter, so an unused input family never spawns a subprocess or opens a
// socket.
func NewManager() *Manager {
	return &Manager{
		sessions:   make(map[sessionKey]InputSession),
		pcmDevice:  make(map[sessionKey]string),
		activeZone: make(map[string]int),
	}
}

func (m *Manager) newAdapter(label string, cb Callbacks, opts ActivateOptions) (InputSession, error) {
	switch label {
	case "airplay":
		return NewAirPlayInput(cb), nil
	case "linein":
		return NewLineInInput(cb), nil
	case "spotify":
		return NewSpotifyInput(cb), nil
	case "musicassistant":
		if opts.Endpoint == "" || opts.PlayerID == "" {
			return nil, fmt.Errorf("inputs: musicassistant requires Endpoint and PlayerID")
		}
		return NewMusicAssistantInput(cb, opts.Endpoint, opts.PlayerID), nil
	default:
		return nil, fmt.Errorf("inputs: unknown input label %q", label)
	}
}

// StartInputSession implements ports.InputsPort, activating (creating if
// necessary) the zone's adapter instance for label.
func (m *Manager) StartInputSession(ctx context.Context, zoneID int, label string, opts ActivateOptions) error {
	key := sessionKey{zoneID: zoneID, label: label}
	opts.ZoneID = zoneID

	m.mu.Lock()
	sess, ok := m.sessions[key]
	if ok {
		m.pcmDevice[key] = opts.PCMDevice
		m.activeZone[label] = zoneID
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("inputs: no callbacks bound for zone %d label %q; call Bind first", zoneID, label)
	}
	return sess.Activate(ctx, opts)
}

// Bind installs the adapter instance a zone should use for label, built
// via newAdapter with cb as its Callbacks surface. Call once per
// (zone, label) before the first StartInputSession, typically when wiring
// the zone's EnabledInputs at startup.
func (m *Manager) Bind(zoneID int, label string, cb Callbacks, opts ActivateOptions) error {
	sess, err := m.newAdapter(label, cb, opts)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[sessionKey{zoneID: zoneID, label: label}] = sess
	m.mu.Unlock()
	return nil
}

// StopInputSession implements ports.InputsPort.
func (m *Manager) StopInputSession(ctx context.Context, zoneID int, label string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionKey{zoneID: zoneID, label: label}]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return sess.Deactivate(ctx)
}

// ForwardCommand implements ports.InputsPort, passing a remote-control
// command through to the zone's active adapter unmodified.
func (m *Manager) ForwardCommand(ctx context.Context, zoneID int, label, cmd string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionKey{zoneID: zoneID, label: label}]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("inputs: no active session for zone %d label %q", zoneID, label)
	}
	return sess.SendCmd(ctx, cmd)
}

// RenameZone implements ports.InputsPort. Only network-advertised adapters
// (AirPlay's Bonjour name, Music Assistant's player label) care about a
// zone's display name; others ignore it.
func (m *Manager) RenameZone(ctx context.Context, zoneID int, label, name string) error {
	switch label {
	case "airplay", "musicassistant":
		return m.ForwardCommand(ctx, zoneID, label, "rename:"+name)
	default:
		return nil
	}
}

// SyncZone implements ports.InputsPort, requesting the adapter re-pull its
// upstream state (used after a reconnect or missed event).
func (m *Manager) SyncZone(ctx context.Context, zoneID int, label string) error {
	return m.ForwardCommand(ctx, zoneID, label, "sync")
}

// RequestLineInControl implements ports.InputsPort: line-in has no
// transport state of its own to resync, so this starts it directly.
func (m *Manager) RequestLineInControl(ctx context.Context, zoneID int) error {
	return m.StartInputSession(ctx, zoneID, "linein", ActivateOptions{ZoneID: zoneID})
}

// ResolvePlaybackSource implements ports.InputsPort. A Spotify/Music
// Assistant offload session's audio is already flowing into the PCM
// device its StartInputSession call bound (spec §4.6); this just reports
// that device as a pipe source for the engine to read from. The interface
// carries no zoneID, so this resolves against the label's most recently
// started session — correct as long as at most one zone offloads a given
// provider at a time, which the single-subprocess adapter shape already
// assumes.
func (m *Manager) ResolvePlaybackSource(ctx context.Context, label, uri string) (ports.ResolveSourceResult, error) {
	m.mu.Lock()
	zoneID, ok := m.activeZone[label]
	var device string
	if ok {
		device, ok = m.pcmDevice[sessionKey{zoneID: zoneID, label: label}]
	}
	m.mu.Unlock()
	if !ok || device == "" {
		return ports.ResolveSourceResult{}, fmt.Errorf("inputs: no active %q session to resolve a source from", label)
	}
	return ports.ResolveSourceResult{
		Source:   &models.PlaybackSource{Kind: "pipe", Path: device},
		Provider: label,
	}, nil
}

var _ ports.InputsPort = (*Manager)(nil)
