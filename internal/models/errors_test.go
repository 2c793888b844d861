package models_test

import (
	"errors"
	"testing"

	"github.com/ogglobi/audiolox/internal/models"
)

func TestAppErrorConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *models.AppError
		status int
		code   string
	}{
		{"not found", models.ErrNotFound("missing zone"), 404, "NOT_FOUND"},
		{"bad request", models.ErrBadRequest("bad volume"), 400, "BAD_REQUEST"},
		{"unauthorized", models.ErrUnauthorized, 401, "UNAUTHORIZED"},
		{"internal", models.ErrInternal("boom"), 500, "INTERNAL"},
		{"conflict", models.ErrConflict("already playing"), 409, "CONFLICT"},
	}
	for _, tc := range tests {
		if tc.err.Status != tc.status {
			t.Errorf("%s: Status = %d, want %d", tc.name, tc.err.Status, tc.status)
		}
		if tc.err.Code != tc.code {
			t.Errorf("%s: Code = %q, want %q", tc.name, tc.err.Code, tc.code)
		}
	}
}

func TestPlaybackErrorFatal(t *testing.T) {
	tests := []struct {
		kind  models.Kind
		fatal bool
	}{
		{models.KindNoOutputConfigured, true},
		{models.KindStreamUnavailable, true},
		{models.KindQueueEnd, true},
		{models.KindQueueInvalidNext, true},
		{models.KindQueueNextFailed, true},
		{models.KindEngineStartFailed, false},
		{models.KindOutputError, false},
		{models.KindEndOfTrackLocal, false},
		{models.KindEndOfTrackRemote, false},
		{models.KindGroupBroadcastFail, false},
	}
	for _, tc := range tests {
		e := &models.PlaybackError{Kind: tc.kind}
		if got := e.Fatal(); got != tc.fatal {
			t.Errorf("PlaybackError{Kind: %s}.Fatal() = %v, want %v", tc.kind, got, tc.fatal)
		}
	}
}

func TestPlaybackErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	e := &models.PlaybackError{Kind: models.KindOutputError, Err: inner}
	if !errors.Is(e, inner) {
		t.Error("expected errors.Is to unwrap to the inner error")
	}
}

func TestPlaybackErrorMessage(t *testing.T) {
	e := &models.PlaybackError{
		Kind:       models.KindOutputError,
		OutputType: "airplay",
		Reason:     "timeout",
	}
	msg := e.Error()
	if msg == "" {
		t.Fatal("expected non-empty error message")
	}
}

func TestStaysReachable(t *testing.T) {
	tests := []struct {
		provider string
		want     bool
	}{
		{"musicassistant", true},
		{"spotify", true},
		{"applemusic", true},
		{"airplay", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := models.StaysReachable(tc.provider); got != tc.want {
			t.Errorf("StaysReachable(%q) = %v, want %v", tc.provider, got, tc.want)
		}
	}
}
