package playback

import (
	"context"
	"log/slog"

	"github.com/ogglobi/audiolox/internal/models"
)

// HandlePlaybackError applies the disposition table of spec §7. Fatal
// kinds (no-output-configured, stream-unavailable,
// queue-end/invalid-next/next-failed) stop the zone; clientState/power
// flip to "off" except for providers that should stay reachable (Music
// Assistant, Spotify, Apple Music). Every other kind, engine-start-failed
// included, is non-fatal (see PlaybackError.Fatal) and is logged and
// reported without a state transition — per-output/per-member isolation,
// or keeping the prior pipeline after a failed handoff, already happened
// upstream.
func (c *Coordinator) HandlePlaybackError(ctx context.Context, zoneID int, perr *models.PlaybackError) {
	slog.Warn("playback: error", "zone", zoneID, "kind", perr.Kind, "provider", perr.Provider, "output", perr.OutputType, "reason", perr.Reason, "err", perr.Err)

	if !perr.Fatal() {
		c.notify.ZoneStateChanged(zoneID, c.viewState(zoneID))
		return
	}

	zc, aerr := c.repo.Mutate(zoneID, func(z *models.ZoneContext) error {
		z.State.Mode = models.ModeStop
		z.Session = nil
		if !models.StaysReachable(perr.Provider) && !models.StaysReachable(z.State.QueueAuthority) {
			z.State.Power = "off"
			z.State.ClientState = "off"
		}
		return nil
	})
	if aerr != nil {
		return
	}
	c.notify.ZoneStateChanged(zoneID, zc.State)
}

func (c *Coordinator) viewState(zoneID int) models.ZoneState {
	a, ok := c.repo.Actor(zoneID)
	if !ok {
		return models.ZoneState{}
	}
	return a.View().State
}

// NotifyEndOfTrack is called when an input adapter or output echo reports
// end_of_track (spec §4.1 "handlePlaybackError" special case / spec §7
// "end-of-track"). If the zone's queue authority is local, this advances
// the queue exactly like a queueplus command; if authority is remote, it
// is an echo only and does not touch the local queue.
func (c *Coordinator) NotifyEndOfTrack(ctx context.Context, zoneID int, label string) {
	zc, err := c.repo.Snapshot(zoneID)
	if err != nil {
		return
	}
	if label != "" && zc.ActiveInput != "" && zc.ActiveInput != label {
		return
	}
	if zc.Queue.Authority != models.QueueAuthorityLocal {
		return
	}
	if aerr := c.advanceLocalQueue(ctx, zoneID, 1); aerr != nil {
		slog.Warn("playback: end-of-track advance failed", "zone", zoneID, "err", aerr)
	}
}
