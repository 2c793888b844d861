package playback

import (
	"log/slog"

	"github.com/ogglobi/audiolox/internal/inputs"
	"github.com/ogglobi/audiolox/internal/models"
)

// StartPlayback enters inputMode=label and sets the zone to playing with
// the adapter-provided metadata (spec §4.6 startPlayback). Unlike the
// other callbacks this one is not gated — it is how a label *becomes* the
// active input in the first place.
func (c *Coordinator) StartPlayback(zoneID int, label string, source models.PlaybackSource, metadata *models.TrackMetadata) {
	_, err := c.repo.Mutate(zoneID, func(z *models.ZoneContext) error {
		z.ActiveInput = label
		z.InputMode = models.InputMode(label)
		z.ActiveOutput = primaryOutputType(z.Outputs)
		z.State.Mode = models.ModePlay
		z.State.Audiopath = label + ":external"
		z.State.QueueAuthority = label
		z.State.IsRadio = false
		if metadata != nil {
			z.State.Track = *metadata
		}
		return nil
	})
	if err != nil {
		slog.Warn("playback: StartPlayback failed", "zone", zoneID, "label", label, "err", err)
		return
	}
	c.notifyZoneState(zoneID, false)
}

// gatedMutate runs fn only if label is the zone's current activeInput,
// atomically with the check (spec §3 invariant 2 / §8 property 4: "a
// callback from a non-active adapter produces no state mutation").
// Grounded on zonerepo.Actor.Do's copy-mutate-publish cycle: returning a
// sentinel error on mismatch leaves the zone untouched and skips onChange.
func (c *Coordinator) gatedMutate(zoneID int, label string, fn func(*models.ZoneContext)) bool {
	a, ok := c.repo.Actor(zoneID)
	if !ok {
		return false
	}
	applied := false
	a.Do(func(z *models.ZoneContext) error {
		if z.ActiveInput != label {
			return errInputNotActive
		}
		fn(z)
		applied = true
		return nil
	})
	return applied
}

var errInputNotActive = &models.AppError{Code: "INPUT_NOT_ACTIVE", Message: "callback from a non-active input adapter", Status: 409}

func (c *Coordinator) UpdateMetadata(zoneID int, label string, partial models.TrackMetadata) {
	if c.gatedMutate(zoneID, label, func(z *models.ZoneContext) {
		mergeMetadata(&z.State.Track, partial)
	}) {
		c.notifyZoneState(zoneID, true)
	}
}

// UpdateCover ingests a cover payload, stores it behind an internal URL,
// and — if this adapter is still the active input — attaches that URL to
// the zone's current track metadata (spec §4.6 "Cover delivery").
func (c *Coordinator) UpdateCover(zoneID int, label string, payload inputs.CoverArtPayload) string {
	url := c.covers.Put(payload)
	if c.gatedMutate(zoneID, label, func(z *models.ZoneContext) {
		z.State.Track.Cover = url
	}) {
		c.notifyZoneState(zoneID, true)
	}
	return url
}

func (c *Coordinator) UpdateVolume(zoneID int, label string, vol int) {
	if c.gatedMutate(zoneID, label, func(z *models.ZoneContext) {
		z.State.Volume = z.Config.Volume.ClampVolume(vol)
	}) {
		c.notifyZoneState(zoneID, true)
	}
}

// UpdateTiming echoes an external input's elapsed/duration. Radio sessions
// always report time=0,duration=0 regardless of what the adapter sends
// (spec §4.1 "Radio classification").
func (c *Coordinator) UpdateTiming(zoneID int, label string, elapsed, duration float64) {
	if c.gatedMutate(zoneID, label, func(z *models.ZoneContext) {
		if z.State.IsRadio {
			elapsed, duration = 0, 0
		}
		z.State.Elapsed = elapsed
		z.State.Track.Duration = duration
		z.LastPositionAt = timeNow()
		z.LastPositionSec = elapsed
	}) {
		c.notifyZoneState(zoneID, true)
	}
}

func (c *Coordinator) PausePlayback(zoneID int, label string) {
	if c.gatedMutate(zoneID, label, func(z *models.ZoneContext) {
		z.State.Mode = models.ModePause
	}) {
		c.notifyZoneState(zoneID, false)
	}
}

func (c *Coordinator) ResumePlayback(zoneID int, label string) {
	if c.gatedMutate(zoneID, label, func(z *models.ZoneContext) {
		z.State.Mode = models.ModePlay
	}) {
		c.notifyZoneState(zoneID, false)
	}
}

// StopPlayback transitions the zone to stop and clears activeInput, unless
// another adapter has since taken over (spec §4.6 stopPlayback). end of
// track on a local-authority queue is handled separately by
// NotifyEndOfTrack, not here.
func (c *Coordinator) StopPlayback(zoneID int, label string) {
	if c.gatedMutate(zoneID, label, func(z *models.ZoneContext) {
		z.State.Mode = models.ModeStop
		z.ActiveInput = ""
		z.InputMode = models.InputModeNone
		z.Session = nil
	}) {
		c.notifyZoneState(zoneID, false)
	}
}

func mergeMetadata(dst *models.TrackMetadata, partial models.TrackMetadata) {
	if partial.Title != "" {
		dst.Title = partial.Title
	}
	if partial.Artist != "" {
		dst.Artist = partial.Artist
	}
	if partial.Album != "" {
		dst.Album = partial.Album
	}
	if partial.Cover != "" {
		dst.Cover = partial.Cover
	}
	if partial.Duration != 0 {
		dst.Duration = partial.Duration
	}
}
