package models

import "context"

// ZoneOutput is the capability interface every output driver implements
// (spec §4.4). Replaces duck-typed "anything with getPreferredOutput" with
// an explicit interface plus optional sub-capabilities exposed via
// interface assertions (PreferredOutputProvider, LatencyProvider) rather
// than a discriminated "has-method" probe — see spec §9.
type ZoneOutput interface {
	Type() string
	Play(ctx context.Context, session *PlaybackSession) error
	Pause(ctx context.Context, session *PlaybackSession) error
	Resume(ctx context.Context, session *PlaybackSession) error
	Stop(ctx context.Context, session *PlaybackSession) error
	SetVolume(ctx context.Context, level int) error
	Dispose(ctx context.Context) error
}

// MetadataUpdater is an optional ZoneOutput sub-capability for drivers that
// can push metadata updates independent of play/pause/resume/stop.
type MetadataUpdater interface {
	UpdateMetadata(ctx context.Context, session *PlaybackSession) error
}

// PreferredOutputProvider is an optional ZoneOutput sub-capability for
// drivers with an audio format preference (spec §4.1 step 2).
type PreferredOutputProvider interface {
	GetPreferredOutput() PreferredOutput
}

// LatencyReporter is an optional ZoneOutput sub-capability for drivers that
// can report output latency. The group coordinators do not consult it, so
// starts are not aligned by reported latency.
type LatencyReporter interface {
	GetLatencyMs() int
}

// QueueStepper is an optional ZoneOutput sub-capability for drivers whose
// renderer owns a remote queue and can step it directly (spec §4.4
// dispatchQueueStep): the driver claims ownership of the step by returning
// true, in which case the Coordinator does not also step its local queue.
type QueueStepper interface {
	StepQueue(ctx context.Context, delta int) (claimed bool, err error)
}

// Controller-style outputs (e.g. Spotify Connect offload, a pure remote
// control surface with no local audio sink) implement this marker so
// selectPlayOutputs (spec §4.4) can exclude them from the renderable set.
type ControllerOnly interface {
	ControllerOnly() bool
}

// PCMSink is an optional ZoneOutput sub-capability for drivers that render
// raw PCM chunks pulled directly from the Audio Engine rather than pointing
// a renderer at a URL/device (spec §2 "fanning PCM/encoded subscribers out
// to multiple outputs", §4.3 createStream). The Playback Coordinator
// attaches an engine.Subscriber to any bound output implementing this and
// feeds it WriteChunk as chunks arrive.
type PCMSink interface {
	// SinkProfile is the encode profile this sink wants its subscriber
	// stream produced in.
	SinkProfile() Profile
	// WriteChunk delivers one chunk of SinkProfile-encoded audio. Called
	// from a single per-sink goroutine, so implementations need not be
	// safe for concurrent WriteChunk calls from multiple callers.
	WriteChunk(ctx context.Context, chunk []byte) error
}
