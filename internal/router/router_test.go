package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ogglobi/audiolox/internal/models"
)

type fakeOutput struct {
	typ            string
	playErr        error
	stopErr        error
	controllerOnly bool
	stepClaims     bool
	stepErr        error

	mu       sync.Mutex
	played   int
	volumes  []int
	stepped  []int
}

func (f *fakeOutput) Type() string { return f.typ }
func (f *fakeOutput) Play(ctx context.Context, s *models.PlaybackSession) error {
	f.mu.Lock()
	f.played++
	f.mu.Unlock()
	return f.playErr
}
func (f *fakeOutput) Pause(ctx context.Context, s *models.PlaybackSession) error  { return nil }
func (f *fakeOutput) Resume(ctx context.Context, s *models.PlaybackSession) error { return nil }
func (f *fakeOutput) Stop(ctx context.Context, s *models.PlaybackSession) error   { return f.stopErr }
func (f *fakeOutput) SetVolume(ctx context.Context, level int) error {
	f.mu.Lock()
	f.volumes = append(f.volumes, level)
	f.mu.Unlock()
	return nil
}
func (f *fakeOutput) Dispose(ctx context.Context) error { return nil }
func (f *fakeOutput) ControllerOnly() bool              { return f.controllerOnly }
func (f *fakeOutput) StepQueue(ctx context.Context, delta int) (bool, error) {
	f.mu.Lock()
	f.stepped = append(f.stepped, delta)
	f.mu.Unlock()
	return f.stepClaims, f.stepErr
}

type slowOutput struct {
	fakeOutput
	delay time.Duration
}

func (s *slowOutput) Play(ctx context.Context, sess *models.PlaybackSession) error {
	select {
	case <-time.After(s.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestDispatchOutputsOrderAndErrorIsolation(t *testing.T) {
	ok1 := &fakeOutput{typ: "a"}
	bad := &fakeOutput{typ: "b", playErr: errors.New("boom")}
	ok2 := &fakeOutput{typ: "c"}

	var failedTypes []string
	r := New()
	failures := r.DispatchOutputs(context.Background(), 1, []models.OutputBinding{
		{Type: "a", Driver: ok1},
		{Type: "b", Driver: bad},
		{Type: "c", Driver: ok2},
	}, ActionPlay, nil, func(zoneID int, outputType, reason string) {
		failedTypes = append(failedTypes, outputType)
	})

	if ok1.played != 1 || ok2.played != 1 {
		t.Errorf("expected both healthy outputs to be dispatched to, got a=%d c=%d", ok1.played, ok2.played)
	}
	if len(failures) != 1 || failures[0].Type != "b" {
		t.Errorf("expected one failure for output b, got %v", failures)
	}
	if len(failedTypes) != 1 || failedTypes[0] != "b" {
		t.Errorf("expected onErr called once for b, got %v", failedTypes)
	}
}

func TestDispatchOutputsStopErrorsDoNotPropagate(t *testing.T) {
	bad := &fakeOutput{typ: "b", stopErr: errors.New("boom")}
	r := New()
	called := false
	failures := r.DispatchOutputs(context.Background(), 1, []models.OutputBinding{
		{Type: "b", Driver: bad},
	}, ActionStop, nil, func(int, string, string) { called = true })

	if len(failures) != 0 {
		t.Errorf("stop errors should not be reported as failures, got %v", failures)
	}
	if called {
		t.Error("onErr must not be called for stop errors")
	}
}

func TestDispatchOutputsTimeoutBoundsSlowOutput(t *testing.T) {
	slow := &slowOutput{fakeOutput: fakeOutput{typ: "slow"}, delay: 500 * time.Millisecond}
	fast := &fakeOutput{typ: "fast"}

	r := WithTimeout(50 * time.Millisecond)
	start := time.Now()
	failures := r.DispatchOutputs(context.Background(), 1, []models.OutputBinding{
		{Type: "slow", Driver: slow},
		{Type: "fast", Driver: fast},
	}, ActionPlay, nil, nil)
	elapsed := time.Since(start)

	if elapsed > 400*time.Millisecond {
		t.Errorf("expected slow output to be bounded by the per-output timeout, took %v", elapsed)
	}
	if len(failures) != 1 || failures[0].Type != "slow" {
		t.Errorf("expected the slow output to be reported as a timeout failure, got %v", failures)
	}
	if fast.played != 1 {
		t.Error("expected the fast output to still be dispatched to")
	}
}

func TestDispatchVolumeClampsToPolicy(t *testing.T) {
	out := &fakeOutput{typ: "a"}
	r := New()
	r.DispatchVolume(context.Background(), 1, []models.OutputBinding{{Type: "a", Driver: out}},
		models.VolumePolicy{Max: 80}, 95)

	if len(out.volumes) != 1 || out.volumes[0] != 80 {
		t.Errorf("expected clamped volume 80, got %v", out.volumes)
	}
}

func TestDispatchQueueStepStopsAtFirstClaim(t *testing.T) {
	noClaim := &fakeOutput{typ: "a", stepClaims: false}
	claims := &fakeOutput{typ: "b", stepClaims: true}
	neverCalled := &fakeOutput{typ: "c", stepClaims: true}

	r := New()
	claimed := r.DispatchQueueStep(context.Background(), 1, []models.OutputBinding{
		{Type: "a", Driver: noClaim},
		{Type: "b", Driver: claims},
		{Type: "c", Driver: neverCalled},
	}, 1)

	if !claimed {
		t.Fatal("expected DispatchQueueStep to report a claim")
	}
	if len(neverCalled.stepped) != 0 {
		t.Error("expected dispatch to stop at the first claiming output")
	}
}

func TestDispatchQueueStepNoClaims(t *testing.T) {
	noClaim := &fakeOutput{typ: "a", stepClaims: false}
	r := New()
	claimed := r.DispatchQueueStep(context.Background(), 1, []models.OutputBinding{{Type: "a", Driver: noClaim}}, 1)
	if claimed {
		t.Error("expected no claim when no output claims the step")
	}
}

func TestSelectPlayOutputsExcludesControllerOnly(t *testing.T) {
	renderer := &fakeOutput{typ: "snapcast"}
	controller := &fakeOutput{typ: "spotifyoffload", controllerOnly: true}

	out := SelectPlayOutputs([]models.OutputBinding{
		{Type: "snapcast", Driver: renderer},
		{Type: "spotifyoffload", Driver: controller},
	})

	if len(out) != 1 || out[0].Type != "snapcast" {
		t.Errorf("expected only the renderer output to survive, got %v", out)
	}
}
