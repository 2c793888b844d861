// Package router implements the Output Router (spec §4.4): fan-out of
// lifecycle actions to a zone's bound outputs, with per-output error
// isolation and a bounded wall-clock per call. Grounded on the teacher's
// streams.Manager.Sync reconciliation loop — iterate a caller-supplied
// list, isolate per-item errors, never abort the loop on one failure — and
// on Supervisor's SIGTERM-escalation timeout-bound idiom for the per-output
// wall-clock cutoff.
package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/ogglobi/audiolox/internal/models"
)

// Action identifies a lifecycle call dispatched to an output.
type Action string

const (
	ActionPlay   Action = "play"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionStop   Action = "stop"
)

// DefaultOutputTimeout bounds a single output's blocking call (spec §5:
// "one output's blocking call must not be allowed to block another
// output's response").
const DefaultOutputTimeout = 2 * time.Second

// OutputError reports a single output's dispatch failure; the Router
// collects these rather than aborting the remaining dispatch.
type OutputError struct {
	Type   string
	Reason string
	Err    error
}

// OnOutputError is invoked once per failed output during dispatchOutputs,
// mirroring spec §4.4's onOutputError(zoneId, reason) hook.
type OnOutputError func(zoneID int, outputType, reason string)

// Router dispatches lifecycle/volume/queue-step actions to a zone's
// outputs, isolating each output's failure from its siblings.
type Router struct {
	timeout time.Duration
}

// New returns a Router using DefaultOutputTimeout as its per-output bound.
func New() *Router {
	return &Router{timeout: DefaultOutputTimeout}
}

// WithTimeout returns a Router using the given per-output wall-clock bound.
func WithTimeout(timeout time.Duration) *Router {
	return &Router{timeout: timeout}
}

func (r *Router) boundedCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = DefaultOutputTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// DispatchOutputs sequentially calls action(session) on each output in
// list order. Any error is reported via onErr and does not abort the
// dispatch; on ActionStop, errors are logged only (spec §4.4).
func (r *Router) DispatchOutputs(ctx context.Context, zoneID int, outputs []models.OutputBinding, action Action, session *models.PlaybackSession, onErr OnOutputError) []OutputError {
	var failures []OutputError
	for _, b := range outputs {
		callCtx, cancel := r.boundedCtx(ctx)
		err := dispatchOne(callCtx, b.Driver, action, session)
		cancel()
		if err == nil {
			continue
		}
		reason := err.Error()
		if action == ActionStop {
			slog.Warn("router: stop error", "zone", zoneID, "output", b.Type, "err", err)
			continue
		}
		slog.Warn("router: dispatch error", "zone", zoneID, "output", b.Type, "action", action, "err", err)
		failures = append(failures, OutputError{Type: b.Type, Reason: reason, Err: err})
		if onErr != nil {
			onErr(zoneID, b.Type, reason)
		}
	}
	return failures
}

func dispatchOne(ctx context.Context, d models.ZoneOutput, action Action, session *models.PlaybackSession) error {
	switch action {
	case ActionPlay:
		return d.Play(ctx, session)
	case ActionPause:
		return d.Pause(ctx, session)
	case ActionResume:
		return d.Resume(ctx, session)
	case ActionStop:
		return d.Stop(ctx, session)
	default:
		return nil
	}
}

// DispatchVolume clamps level to policy and calls SetVolume on every
// output, isolating per-output failures exactly like DispatchOutputs.
func (r *Router) DispatchVolume(ctx context.Context, zoneID int, outputs []models.OutputBinding, policy models.VolumePolicy, level int) []OutputError {
	clamped := policy.ClampVolume(level)
	var failures []OutputError
	for _, b := range outputs {
		callCtx, cancel := r.boundedCtx(ctx)
		err := b.Driver.SetVolume(callCtx, clamped)
		cancel()
		if err != nil {
			slog.Warn("router: set volume error", "zone", zoneID, "output", b.Type, "err", err)
			failures = append(failures, OutputError{Type: b.Type, Reason: err.Error(), Err: err})
		}
	}
	return failures
}

// DispatchQueueStep offers delta to every QueueStepper-capable output in
// list order, stopping at the first claim. It reports true iff some
// output claimed ownership of the step, meaning the Coordinator must NOT
// also step its local queue.
func (r *Router) DispatchQueueStep(ctx context.Context, zoneID int, outputs []models.OutputBinding, delta int) (claimed bool) {
	for _, b := range outputs {
		stepper, ok := b.Driver.(models.QueueStepper)
		if !ok {
			continue
		}
		callCtx, cancel := r.boundedCtx(ctx)
		ok2, err := stepper.StepQueue(callCtx, delta)
		cancel()
		if err != nil {
			slog.Warn("router: queue step error", "zone", zoneID, "output", b.Type, "err", err)
			continue
		}
		if ok2 {
			return true
		}
	}
	return false
}

// SelectPlayOutputs filters outputs to the renderable subset, excluding
// pure controller-style outputs (e.g. a Spotify Connect offload output
// that controls playback on a remote device rather than rendering audio
// locally) per spec §4.4.
func SelectPlayOutputs(outputs []models.OutputBinding) []models.OutputBinding {
	var out []models.OutputBinding
	for _, b := range outputs {
		if co, ok := b.Driver.(models.ControllerOnly); ok && co.ControllerOnly() {
			continue
		}
		out = append(out, b)
	}
	return out
}
