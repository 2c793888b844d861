package inputs

import (
	"context"
	"testing"

	"github.com/ogglobi/audiolox/internal/models"
)

type noopCallbacks struct{}

func (noopCallbacks) StartPlayback(zoneID int, label string, source models.PlaybackSource, metadata *models.TrackMetadata) {
}
func (noopCallbacks) UpdateMetadata(zoneID int, label string, partial models.TrackMetadata) {}
func (noopCallbacks) UpdateCover(zoneID int, label string, payload CoverArtPayload) string {
	return ""
}
func (noopCallbacks) UpdateVolume(zoneID int, label string, vol int)               {}
func (noopCallbacks) UpdateTiming(zoneID int, label string, elapsed, duration float64) {}
func (noopCallbacks) PausePlayback(zoneID int, label string)                        {}
func (noopCallbacks) ResumePlayback(zoneID int, label string)                       {}
func (noopCallbacks) StopPlayback(zoneID int, label string)                         {}

func TestManager_LineInRoundTrip(t *testing.T) {
	m := NewManager()
	if err := m.Bind(1, "linein", noopCallbacks{}, ActivateOptions{}); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if err := m.StartInputSession(context.Background(), 1, "linein", ActivateOptions{PCMDevice: "hw:loop0"}); err != nil {
		t.Fatalf("StartInputSession() error = %v", err)
	}
	if err := m.StopInputSession(context.Background(), 1, "linein"); err != nil {
		t.Fatalf("StopInputSession() error = %v", err)
	}
}

func TestManager_ForwardCommand_NoSession(t *testing.T) {
	m := NewManager()
	if err := m.ForwardCommand(context.Background(), 9, "airplay", "pause"); err == nil {
		t.Error("ForwardCommand() with no bound session = nil error, want error")
	}
}

func TestManager_ResolvePlaybackSource_UsesLastActiveZone(t *testing.T) {
	m := NewManager()
	if err := m.Bind(2, "linein", noopCallbacks{}, ActivateOptions{}); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if err := m.StartInputSession(context.Background(), 2, "linein", ActivateOptions{PCMDevice: "hw:loop1"}); err != nil {
		t.Fatalf("StartInputSession() error = %v", err)
	}
	res, err := m.ResolvePlaybackSource(context.Background(), "linein", "linein:zone:2")
	if err != nil {
		t.Fatalf("ResolvePlaybackSource() error = %v", err)
	}
	if res.Source == nil || res.Source.Path != "hw:loop1" {
		t.Errorf("Source = %+v, want path hw:loop1", res.Source)
	}
}
