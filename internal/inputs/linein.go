package inputs

import (
	"context"
	"log/slog"

	"github.com/ogglobi/audiolox/internal/models"
)

// LineInInput binds a zone directly to a local analog/line-level source.
// It has no subprocess or metadata of its own — it exists so line-in has
// the same Activate/Deactivate/SendCmd shape as every other input, and so
// the Coordinator's activeInput gate treats it uniformly.
type LineInInput struct {
	zoneID int
	cb     Callbacks
}

// NewLineInInput creates a line-in input adapter reporting through cb.
func NewLineInInput(cb Callbacks) *LineInInput {
	return &LineInInput{cb: cb}
}

func (l *LineInInput) Label() string { return "linein" }

func (l *LineInInput) Activate(ctx context.Context, opts ActivateOptions) error {
	slog.Info("inputs/linein: activating", "zone", opts.ZoneID, "device", opts.PCMDevice)
	l.zoneID = opts.ZoneID
	l.cb.StartPlayback(opts.ZoneID, l.Label(), models.PlaybackSource{
		Kind: "pipe",
		Path: opts.PCMDevice,
	}, &models.TrackMetadata{Title: "Line In"})
	l.cb.ResumePlayback(opts.ZoneID, l.Label())
	return nil
}

func (l *LineInInput) Deactivate(ctx context.Context) error {
	slog.Info("inputs/linein: deactivating", "zone", l.zoneID)
	l.cb.StopPlayback(l.zoneID, l.Label())
	return nil
}

// SendCmd is a no-op: a line-in source has no transport controls.
func (l *LineInInput) SendCmd(_ context.Context, cmd string) error {
	slog.Debug("inputs/linein: command ignored", "zone", l.zoneID, "cmd", cmd)
	return nil
}
