package engine

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/ogglobi/audiolox/internal/models"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func longRunningBuildCmd(script string) func(models.Profile) (*exec.Cmd, error) {
	return func(profile models.Profile) (*exec.Cmd, error) {
		return exec.Command("sh", "-c", script), nil
	}
}

func TestProcessEngineStartProducesChunks(t *testing.T) {
	requireSh(t)

	e := NewProcessEngine()
	ctx := context.Background()

	session, err := e.Start(ctx, StartOptions{
		ZoneID:   1,
		Profiles: []models.Profile{models.ProfileMP3},
		BuildCmd: longRunningBuildCmd("while true; do printf hello; sleep 0.05; done"),
	})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if session.ZoneID != 1 {
		t.Errorf("session.ZoneID = %d, want 1", session.ZoneID)
	}
	defer e.Stop(ctx, 1, "test cleanup", StopOptions{})

	if !e.HasSession(1) {
		t.Error("expected HasSession(1) = true after Start")
	}

	if err := e.WaitForFirstChunk(ctx, 1, models.ProfileMP3, 3*time.Second); err != nil {
		t.Fatalf("WaitForFirstChunk error: %v", err)
	}
}

func TestProcessEngineCreateStreamDelivers(t *testing.T) {
	requireSh(t)

	e := NewProcessEngine()
	ctx := context.Background()

	_, err := e.Start(ctx, StartOptions{
		ZoneID:   2,
		Profiles: []models.Profile{models.ProfileMP3},
		BuildCmd: longRunningBuildCmd("while true; do printf chunk; sleep 0.05; done"),
	})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer e.Stop(ctx, 2, "test cleanup", StopOptions{})

	if err := e.WaitForFirstChunk(ctx, 2, models.ProfileMP3, 3*time.Second); err != nil {
		t.Fatalf("WaitForFirstChunk error: %v", err)
	}

	sub, err := e.CreateStream(ctx, 2, models.ProfileMP3, SubscribeOptions{Label: "test"})
	if err != nil {
		t.Fatalf("CreateStream error: %v", err)
	}

	select {
	case chunk := <-sub.Chan():
		if len(chunk) == 0 {
			t.Error("expected non-empty chunk")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for chunk delivery")
	}
}

func TestProcessEngineCreateStreamNoSession(t *testing.T) {
	e := NewProcessEngine()
	if _, err := e.CreateStream(context.Background(), 99, models.ProfileMP3, SubscribeOptions{}); err == nil {
		t.Error("expected error creating stream for zone with no session")
	}
}

func TestProcessEngineStopRemovesSession(t *testing.T) {
	requireSh(t)
	e := NewProcessEngine()
	ctx := context.Background()

	e.Start(ctx, StartOptions{
		ZoneID:   3,
		Profiles: []models.Profile{models.ProfileMP3},
		BuildCmd: longRunningBuildCmd("while true; do printf x; sleep 0.05; done"),
	})

	if err := e.Stop(ctx, 3, "done", StopOptions{}); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if e.HasSession(3) {
		t.Error("expected HasSession(3) = false after Stop")
	}
}

func TestProcessEngineStartWithHandoffSucceeds(t *testing.T) {
	requireSh(t)
	e := NewProcessEngine()
	ctx := context.Background()

	_, err := e.Start(ctx, StartOptions{
		ZoneID:   4,
		Profiles: []models.Profile{models.ProfileMP3},
		BuildCmd: longRunningBuildCmd("while true; do printf old; sleep 0.05; done"),
	})
	if err != nil {
		t.Fatalf("initial Start() error: %v", err)
	}
	if err := e.WaitForFirstChunk(ctx, 4, models.ProfileMP3, 3*time.Second); err != nil {
		t.Fatalf("WaitForFirstChunk on initial pipeline: %v", err)
	}

	session, err := e.StartWithHandoff(ctx, StartOptions{
		ZoneID:   4,
		Profiles: []models.Profile{models.ProfileMP3},
		BuildCmd: longRunningBuildCmd("while true; do printf new; sleep 0.05; done"),
	}, &HandoffOptions{Timeout: 3 * time.Second})
	if err != nil {
		t.Fatalf("StartWithHandoff error: %v", err)
	}
	if session.ZoneID != 4 {
		t.Errorf("session.ZoneID = %d, want 4", session.ZoneID)
	}
	defer e.Stop(ctx, 4, "test cleanup", StopOptions{})

	if !e.HasSession(4) {
		t.Error("expected HasSession(4) = true after handoff")
	}
}

func TestProcessEngineStartWithHandoffFailureKeepsOldPipeline(t *testing.T) {
	requireSh(t)
	e := NewProcessEngine()
	ctx := context.Background()

	_, err := e.Start(ctx, StartOptions{
		ZoneID:   5,
		Profiles: []models.Profile{models.ProfileMP3},
		BuildCmd: longRunningBuildCmd("while true; do printf old; sleep 0.05; done"),
	})
	if err != nil {
		t.Fatalf("initial Start() error: %v", err)
	}
	if err := e.WaitForFirstChunk(ctx, 5, models.ProfileMP3, 3*time.Second); err != nil {
		t.Fatalf("WaitForFirstChunk on initial pipeline: %v", err)
	}
	defer e.Stop(ctx, 5, "test cleanup", StopOptions{})

	// sleep-only command never writes to stdout, so the handoff barrier
	// will time out.
	_, err = e.StartWithHandoff(ctx, StartOptions{
		ZoneID:   5,
		Profiles: []models.Profile{models.ProfileMP3},
		BuildCmd: longRunningBuildCmd("sleep 5"),
	}, &HandoffOptions{Timeout: 300 * time.Millisecond})
	if err == nil {
		t.Fatal("expected handoff to fail when new pipeline never produces a chunk")
	}

	if !e.HasSession(5) {
		t.Error("expected old pipeline to remain active after failed handoff")
	}
}
