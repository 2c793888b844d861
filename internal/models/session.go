package models

import (
	"io"
	"time"
)

// SessionState is a playback session's engine-side transport state.
type SessionState string

const (
	SessionPlaying SessionState = "playing"
	SessionPaused  SessionState = "paused"
	SessionStopped SessionState = "stopped"
)

// Profile identifies an encoded sub-stream format produced by the Audio
// Engine (spec §4.3).
type Profile string

const (
	ProfileMP3  Profile = "mp3"
	ProfileAAC  Profile = "aac"
	ProfilePCM  Profile = "pcm"
	ProfileOpus Profile = "opus"
	ProfileFLAC Profile = "flac"
)

// PlaybackSource describes what the Audio Engine (or an offloading input
// adapter) should read: a file path, an http(s) URL with optional headers
// and a decryption hint, or a pipe of raw PCM.
type PlaybackSource struct {
	Kind           string // "file" | "http" | "pipe"
	Path           string
	URL            string
	Headers        map[string]string
	DecryptionHint string
	Pipe           io.Reader
}

// StreamDescriptor identifies one encoded sub-stream of a session.
type StreamDescriptor struct {
	ID        string
	Profile   Profile
	URL       string
	CreatedAt time.Time
}

// PlaybackSession is created by the Audio Engine when a pipeline is active,
// or by an offloading input adapter (Spotify Connect) that streams without
// a local pipeline (spec §3). Never revived once destroyed; a handoff
// produces a new session and retires the old one only after the new one
// reaches first-chunk.
type PlaybackSession struct {
	ID             string
	ZoneID         int
	Source         string // label, e.g. "library", "spotify", "airplay-input"
	Metadata       TrackMetadata
	Streams        []StreamDescriptor
	PCMSubscriber  string // subscriber id, if a raw-PCM subscriber is attached
	State          SessionState
	Elapsed        float64
	Duration       float64
	StartedAt      time.Time
	UpdatedAt      time.Time
	PlaybackSource PlaybackSource
}

// PreferredOutput is the audio format an output driver prefers, used to
// size the Audio Engine's encode profile and prebuffer (spec §4.1).
type PreferredOutput struct {
	Profile      Profile
	SampleRate   int
	Channels     int
	BitDepth     int
	PrebufferBytes int
}

// RadioPrebufferBytes is the clamped prebuffer for radio/local-queue HTTP
// sources, used to reduce startup latency (spec §4.1 step 2).
const RadioPrebufferBytes = 8 * 1024
