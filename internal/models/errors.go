// Package models defines the data structures shared by every layer of the
// playback core — zones, queues, sessions, groups, and the error taxonomy
// used to report failures back through the Notifier.
package models

// AppError is a structured application error with an HTTP status code,
// used at the admin-API boundary. Kept separate from Kind (below), which
// classifies core playback failures per spec §7.
type AppError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

// Error constructors.
var (
	ErrNotFound = func(msg string) *AppError {
		return &AppError{Code: "NOT_FOUND", Message: msg, Status: 404}
	}
	ErrBadRequest = func(msg string) *AppError {
		return &AppError{Code: "BAD_REQUEST", Message: msg, Status: 400}
	}
	ErrUnauthorized = &AppError{Code: "UNAUTHORIZED", Message: "authentication required", Status: 401}
	ErrInternal     = func(msg string) *AppError {
		return &AppError{Code: "INTERNAL", Message: msg, Status: 500}
	}
	ErrConflict = func(msg string) *AppError {
		return &AppError{Code: "CONFLICT", Message: msg, Status: 409}
	}
)

// Kind classifies a core playback failure per spec §7. Unlike AppError
// (an admin-boundary HTTP error), a PlaybackError never reaches the admin
// API directly — it is reported to the Notifier and drives zone state
// transitions.
type Kind string

const (
	KindNoOutputConfigured Kind = "no-output-configured"
	KindEngineStartFailed  Kind = "engine-start-failed"
	KindStreamUnavailable  Kind = "stream-unavailable"
	KindOutputError        Kind = "output-error"
	KindEndOfTrackLocal    Kind = "end-of-track-local"
	KindEndOfTrackRemote   Kind = "end-of-track-remote"
	KindQueueEnd           Kind = "queue-end"
	KindQueueInvalidNext   Kind = "queue-invalid-next"
	KindQueueNextFailed    Kind = "queue-next-failed"
	KindGroupBroadcastFail Kind = "group-broadcast-failed"
)

// PlaybackError is the structured failure type passed to handlePlaybackError
// and onward to the Notifier. Provider and OutputType are optional context
// depending on Kind (e.g. stream-unavailable carries Provider, output-error
// carries OutputType and Reason).
type PlaybackError struct {
	Kind       Kind
	ZoneID     int
	Provider   string
	OutputType string
	Reason     string
	Err        error
}

func (e *PlaybackError) Error() string {
	msg := string(e.Kind)
	if e.Provider != "" {
		msg += " provider=" + e.Provider
	}
	if e.OutputType != "" {
		msg += " output=" + e.OutputType
	}
	if e.Reason != "" {
		msg += " reason=" + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PlaybackError) Unwrap() error { return e.Err }

// Fatal reports whether this error kind should stop the zone (mode=stop)
// per the disposition table in spec §7.
func (e *PlaybackError) Fatal() bool {
	switch e.Kind {
	case KindNoOutputConfigured, KindStreamUnavailable, KindQueueEnd,
		KindQueueInvalidNext, KindQueueNextFailed:
		return true
	default:
		return false
	}
}

// StaysReachable reports whether, on a fatal error, the zone's
// power/clientState should remain "on" rather than flip to "off" — true
// for providers that should stay reachable even when stopped (Music
// Assistant, Spotify, Apple Music), per spec §7.
func StaysReachable(provider string) bool {
	switch provider {
	case "musicassistant", "spotify", "applemusic":
		return true
	default:
		return false
	}
}
