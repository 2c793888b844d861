package models

import "time"

// Mode is the zone's transport state.
type Mode string

const (
	ModeStop  Mode = "stop"
	ModePlay  Mode = "play"
	ModePause Mode = "pause"
)

// InputMode gates which callbacks may mutate a zone's state. Only a
// matching input session (see activeInput) may mutate state while a
// non-null InputMode is set.
type InputMode string

const (
	InputModeNone            InputMode = ""
	InputModeQueue            InputMode = "queue"
	InputModeSpotify           InputMode = "spotify"
	InputModeAirPlay          InputMode = "airplay"
	InputModeMusicAssistant   InputMode = "musicassistant"
	InputModeLineIn           InputMode = "linein"
	InputModeMixedGroup       InputMode = "mixedgroup"
	InputModeAlert            InputMode = "alert"
)

// VolumePolicy is the immutable per-zone volume configuration snapshot.
type VolumePolicy struct {
	Default int // percent, 0..100
	Step    int // percent per volume/volume_set "step" nudge
	Max     int // percent ceiling, 0..100
}

// ClampVolume clamps a 0..100 percent volume level to this policy's max.
func (p VolumePolicy) ClampVolume(level int) int {
	if level < 0 {
		return 0
	}
	if level > p.Max {
		return p.Max
	}
	return level
}

// OutputDef is an immutable configuration entry describing one of the
// zone's bound output driver instances (the config snapshot; the live
// driver instance itself lives in ZoneContext.Outputs).
type OutputDef struct {
	Type   string
	Name   string
	Config map[string]string
}

// ZoneConfig is the immutable configuration snapshot for a zone — the part
// that does not change while the zone is running (spec §3 "Immutable
// config snapshot").
type ZoneConfig struct {
	Volume        VolumePolicy
	EnabledInputs []InputMode
	Outputs       []OutputDef
}

// TrackMetadata is the currently-playing track's descriptive metadata.
type TrackMetadata struct {
	Title    string
	Artist   string
	Album    string
	Cover    string
	Duration float64 // seconds; 0 for unknown/radio
}

// ZoneState is the observable, frequently-changing part of a zone (spec §3
// "Observable state").
type ZoneState struct {
	Mode          Mode
	Track         TrackMetadata
	Elapsed       float64
	Audiopath     string
	Station       string
	QIndex        int
	QID           string
	Shuffle       bool
	Repeat        RepeatMode
	QueueAuthority string
	Volume        int // percent, 0..100
	Power         string // "on" | "off"
	ClientState   string
	AudioType     string // provider/classification label, e.g. "radio", "queue"
	IsRadio       bool
}

// AlertSnapshot preserves a zone's state across an interrupting alert
// sound so it can be restored afterward.
type AlertSnapshot struct {
	State ZoneState
	Queue QueueState
}

// ZoneContext is the unit of state for one zone (spec §3). All mutation
// happens through the owning zone's actor (internal/zonerepo) to preserve
// the per-zone total order required by spec §5.
type ZoneContext struct {
	ID        int
	Name      string
	SourceMac string

	Config ZoneConfig
	State  ZoneState
	Queue  QueueState

	// Outputs is the ordered list of bound output driver instances. Owned
	// exclusively by the zone; replaced wholesale via a reconfigure
	// operation (internal/zonerepo.ReplaceOutputs) that stops the old set
	// before installing the new one.
	Outputs []OutputBinding

	// Session is a reference to the zone's currently active playback
	// session, or nil if no pipeline/offload stream is active. Populated
	// by the Audio Engine (or the offloading input adapter) and cleared on
	// stop.
	Session *PlaybackSession

	InputMode    InputMode
	ActiveInput  string // tag of the input adapter currently allowed to mutate state
	ActiveOutput string // at most one "primary" output type

	// Throttling timestamps, read/written only by the zone's actor.
	LastBroadcast    time.Time
	LastPositionAt   time.Time
	LastPositionSec  float64
	LastMetadataAt   time.Time

	// QueueFillToken is the monotonic token guarding a background queue
	// fill (spec §4.2); a rebuild increments it, invalidating any fill in
	// flight.
	QueueFillToken int64

	Alert *AlertSnapshot
}

// OutputBinding pairs a live output driver instance with its configured
// type name, so the router and group coordinators can select by type
// without a capability probe.
type OutputBinding struct {
	Type   string
	Driver ZoneOutput
}

// ActiveOutputDriver returns the driver bound to ctx.ActiveOutput, or nil.
func (z *ZoneContext) ActiveOutputDriver() ZoneOutput {
	for _, b := range z.Outputs {
		if b.Type == z.ActiveOutput {
			return b.Driver
		}
	}
	return nil
}

// HasOutputType reports whether the zone has an output of the given type.
func (z *ZoneContext) HasOutputType(t string) bool {
	for _, b := range z.Outputs {
		if b.Type == t {
			return true
		}
	}
	return false
}
