// Package inputs implements the Input Adapters (spec §4.6): one InputSession
// per external input family (AirPlay receiver, Spotify Connect receiver,
// Music Assistant proxy, line-in). Grounded on the teacher's persistent
// subprocess+metadata-polling drivers (internal/streams/airplay.go,
// internal/streams/spotify.go), generalized from hardware ALSA routing to
// a named PCM sink device and from a single onChange callback field to a
// shared Callbacks surface implemented by the Playback Coordinator.
package inputs

import (
	"context"

	"github.com/ogglobi/audiolox/internal/models"
)

// ActivateOptions parameterizes an InputSession's Activate call. PCMDevice
// replaces the teacher's hardware vsrc/ALSA virtual-output pairing: it
// names the sink the Audio Engine reads the adapter's decoded audio from,
// since this domain has no physical amplifier card (see DESIGN.md).
type ActivateOptions struct {
	ZoneID    int
	Name      string
	ConfigDir string
	PCMDevice string

	// Endpoint and PlayerID carry the network peer a proxying adapter
	// (Music Assistant) needs to dial; unused by subprocess/local adapters.
	Endpoint string
	PlayerID string
}

// CoverArtPayload carries raw cover-art bytes ingested from an input
// adapter (spec §4.6 "Cover delivery"). The Coordinator stores it behind
// an internal HTTP URL and returns that URL from Callbacks.UpdateCover.
type CoverArtPayload struct {
	Data []byte
	MIME string
}

// InputSession is implemented by each external input family's adapter.
type InputSession interface {
	Label() string
	Activate(ctx context.Context, opts ActivateOptions) error
	Deactivate(ctx context.Context) error
	SendCmd(ctx context.Context, cmd string) error
}

// Callbacks is the thin zone-mutation surface an adapter calls into (spec
// §4.6). It is implemented by the Playback Coordinator, which is
// responsible for the activeInput gate: "any input-side callback first
// checks activeInput and silently drops if it does not match" (spec §3
// invariant 2). Adapters call these unconditionally; gating is the
// Coordinator's job, not the adapter's.
type Callbacks interface {
	StartPlayback(zoneID int, label string, source models.PlaybackSource, metadata *models.TrackMetadata)
	UpdateMetadata(zoneID int, label string, partial models.TrackMetadata)
	UpdateCover(zoneID int, label string, payload CoverArtPayload) string
	UpdateVolume(zoneID int, label string, vol int)
	UpdateTiming(zoneID int, label string, elapsed, duration float64)
	PausePlayback(zoneID int, label string)
	ResumePlayback(zoneID int, label string)
	StopPlayback(zoneID int, label string)
}
