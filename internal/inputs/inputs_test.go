package inputs

import (
	"context"
	"testing"

	"github.com/ogglobi/audiolox/internal/models"
)

type fakeCallbacks struct {
	started  []string
	metadata []models.TrackMetadata
	paused   []string
	resumed  []string
	stopped  []string
	volumes  []int
	timings  [][2]float64
}

func (f *fakeCallbacks) StartPlayback(zoneID int, label string, source models.PlaybackSource, metadata *models.TrackMetadata) {
	f.started = append(f.started, label)
}
func (f *fakeCallbacks) UpdateMetadata(zoneID int, label string, partial models.TrackMetadata) {
	f.metadata = append(f.metadata, partial)
}
func (f *fakeCallbacks) UpdateCover(zoneID int, label string, payload CoverArtPayload) string {
	return "http://internal/cover/" + label
}
func (f *fakeCallbacks) UpdateVolume(zoneID int, label string, vol int) {
	f.volumes = append(f.volumes, vol)
}
func (f *fakeCallbacks) UpdateTiming(zoneID int, label string, elapsed, duration float64) {
	f.timings = append(f.timings, [2]float64{elapsed, duration})
}
func (f *fakeCallbacks) PausePlayback(zoneID int, label string)  { f.paused = append(f.paused, label) }
func (f *fakeCallbacks) ResumePlayback(zoneID int, label string) { f.resumed = append(f.resumed, label) }
func (f *fakeCallbacks) StopPlayback(zoneID int, label string)   { f.stopped = append(f.stopped, label) }

func TestLineInInputLifecycle(t *testing.T) {
	cb := &fakeCallbacks{}
	li := NewLineInInput(cb)
	ctx := context.Background()

	if err := li.Activate(ctx, ActivateOptions{ZoneID: 7, PCMDevice: "hw:loop0"}); err != nil {
		t.Fatalf("Activate error: %v", err)
	}
	if len(cb.started) != 1 || cb.started[0] != "linein" {
		t.Errorf("expected StartPlayback(linein), got %v", cb.started)
	}
	if len(cb.resumed) != 1 {
		t.Errorf("expected ResumePlayback called once, got %v", cb.resumed)
	}

	if err := li.SendCmd(ctx, "anything"); err != nil {
		t.Errorf("SendCmd should be a no-op, got error: %v", err)
	}

	if err := li.Deactivate(ctx); err != nil {
		t.Fatalf("Deactivate error: %v", err)
	}
	if len(cb.stopped) != 1 || cb.stopped[0] != "linein" {
		t.Errorf("expected StopPlayback(linein), got %v", cb.stopped)
	}
}

func TestAirPlayInputSendCmdIsNoop(t *testing.T) {
	cb := &fakeCallbacks{}
	a := NewAirPlayInput(cb)
	if err := a.SendCmd(context.Background(), "play"); err != nil {
		t.Errorf("SendCmd should always be a no-op, got: %v", err)
	}
}

func TestSpotifyInputSendCmdUnknownIsNoop(t *testing.T) {
	cb := &fakeCallbacks{}
	s := NewSpotifyInput(cb)
	if err := s.SendCmd(context.Background(), "no-such-command"); err != nil {
		t.Errorf("unknown command should be a no-op, got: %v", err)
	}
}

func TestMusicAssistantInputSendCmdNotConnected(t *testing.T) {
	cb := &fakeCallbacks{}
	m := NewMusicAssistantInput(cb, "ws://127.0.0.1:1/ws", "player-1")
	if err := m.SendCmd(context.Background(), "play"); err == nil {
		t.Error("expected error sending command without an active connection")
	}
}

func TestMusicAssistantInputActivateDialFailure(t *testing.T) {
	cb := &fakeCallbacks{}
	m := NewMusicAssistantInput(cb, "ws://127.0.0.1:1/ws", "player-1")
	if err := m.Activate(context.Background(), ActivateOptions{ZoneID: 1}); err == nil {
		t.Error("expected dial failure against an unreachable websocket endpoint")
	}
}

func TestLabels(t *testing.T) {
	cb := &fakeCallbacks{}
	cases := []struct {
		session InputSession
		want    string
	}{
		{NewAirPlayInput(cb), "airplay"},
		{NewSpotifyInput(cb), "spotify"},
		{NewMusicAssistantInput(cb, "", ""), "musicassistant"},
		{NewLineInInput(cb), "linein"},
	}
	for _, c := range cases {
		if got := c.session.Label(); got != c.want {
			t.Errorf("Label() = %q, want %q", got, c.want)
		}
	}
}
