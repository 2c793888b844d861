package playback

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ogglobi/audiolox/internal/engine"
	"github.com/ogglobi/audiolox/internal/models"
	"github.com/ogglobi/audiolox/internal/router"
)

// HandleCommand is the zone command surface (spec §4.1 handleCommand):
// play/pause/stop/queueplus/queueminus/position/volume/volume_set/
// shuffle/repeat.
func (c *Coordinator) HandleCommand(ctx context.Context, zoneID int, command string, payload string) error {
	switch {
	case command == "play":
		return c.cmdPlay(ctx, zoneID)
	case command == "pause":
		return c.cmdPause(ctx, zoneID)
	case command == "stop":
		return c.cmdStop(ctx, zoneID, "user_request")
	case command == "queueplus":
		return c.cmdQueueStep(ctx, zoneID, 1)
	case command == "queueminus":
		return c.cmdQueueStep(ctx, zoneID, -1)
	case command == "position":
		sec, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return models.ErrBadRequest("position requires a numeric seconds payload")
		}
		return c.cmdPosition(ctx, zoneID, sec)
	case command == "volume" || command == "volume_set":
		level, err := strconv.Atoi(payload)
		if err != nil {
			return models.ErrBadRequest("volume requires an integer payload")
		}
		return c.cmdVolume(ctx, zoneID, level)
	case command == "shuffle":
		return c.cmdShuffle(zoneID, payload)
	case command == "repeat":
		return c.cmdRepeat(zoneID)
	default:
		return models.ErrBadRequest(fmt.Sprintf("unknown command %q", command))
	}
}

// cmdPlay resumes from pause, or starts the head of the current queue
// item from stop. Resume is never seek-restored unless the caller already
// requested a position (spec §4.1 "State machine").
func (c *Coordinator) cmdPlay(ctx context.Context, zoneID int) error {
	zc, aerr := c.repo.Snapshot(zoneID)
	if aerr != nil {
		return aerr
	}

	playable := router.SelectPlayOutputs(zc.Outputs)

	switch zc.State.Mode {
	case models.ModePause:
		c.router.DispatchOutputs(ctx, zoneID, playable, router.ActionResume, zc.Session, c.onOutputError(zoneID))
		if zc.ActiveInput != "" {
			_ = c.inputs.ForwardCommand(ctx, zoneID, zc.ActiveInput, "resume")
		}
		_, aerr = c.repo.Mutate(zoneID, func(z *models.ZoneContext) error {
			z.State.Mode = models.ModePlay
			return nil
		})
		c.notifyZoneState(zoneID, false)
		return aerr
	case models.ModeStop:
		item := zc.Queue.Current()
		if item == nil {
			return &models.PlaybackError{Kind: models.KindQueueInvalidNext, ZoneID: zoneID}
		}
		ap := models.ParseAudiopath(item.Audiopath)
		return c.startQueuePlayback(ctx, zoneID, ap, *item, PlayOptions{})
	default:
		return nil
	}
}

// cmdPause pauses the active output and, if one is driving playback, the
// active external input (spec §4.1 "pause: pause active output and
// input").
func (c *Coordinator) cmdPause(ctx context.Context, zoneID int) error {
	zc, aerr := c.repo.Snapshot(zoneID)
	if aerr != nil {
		return aerr
	}
	if zc.State.Mode != models.ModePlay {
		return nil
	}
	playable := router.SelectPlayOutputs(zc.Outputs)
	c.router.DispatchOutputs(ctx, zoneID, playable, router.ActionPause, zc.Session, c.onOutputError(zoneID))
	if zc.ActiveInput != "" {
		_ = c.inputs.ForwardCommand(ctx, zoneID, zc.ActiveInput, "pause")
	}
	_, aerr = c.repo.Mutate(zoneID, func(z *models.ZoneContext) error {
		z.State.Mode = models.ModePause
		return nil
	})
	c.notifyZoneState(zoneID, false)
	return aerr
}

// cmdStop stops the output, tears down the Audio Engine session, and sets
// mode=stop (spec §4.1 "stop: stop output, clear session, set mode=stop").
func (c *Coordinator) cmdStop(ctx context.Context, zoneID int, reason string) error {
	zc, aerr := c.repo.Snapshot(zoneID)
	if aerr != nil {
		return aerr
	}
	c.router.DispatchOutputs(ctx, zoneID, zc.Outputs, router.ActionStop, zc.Session, c.onOutputError(zoneID))
	if zc.ActiveInput != "" {
		_ = c.inputs.ForwardCommand(ctx, zoneID, zc.ActiveInput, "stop")
	}
	_ = c.engine.Stop(ctx, zoneID, reason, engine.StopOptions{DiscardSubscribers: true})
	c.clearPCMSubs(zoneID)

	_, aerr = c.repo.Mutate(zoneID, func(z *models.ZoneContext) error {
		z.State.Mode = models.ModeStop
		z.Session = nil
		z.ActiveInput = ""
		z.InputMode = models.InputModeNone
		if !models.StaysReachable(z.State.QueueAuthority) {
			z.State.Power = "off"
			z.State.ClientState = "off"
		}
		return nil
	})
	c.notifyZoneState(zoneID, false)
	return aerr
}

// cmdQueueStep offers the step to the zone's outputs first (spec §4.4
// dispatchQueueStep); if none claim it, the local queue is stepped and the
// new item started.
func (c *Coordinator) cmdQueueStep(ctx context.Context, zoneID int, delta int) error {
	zc, aerr := c.repo.Snapshot(zoneID)
	if aerr != nil {
		return aerr
	}
	if c.router.DispatchQueueStep(ctx, zoneID, zc.Outputs, delta) {
		return nil
	}
	return c.advanceLocalQueue(ctx, zoneID, delta)
}

// advanceLocalQueue computes the next index under shuffle+repeat and
// starts it, or stops with the matching end-of-track disposition (spec
// §4.1 "End-of-track handling").
func (c *Coordinator) advanceLocalQueue(ctx context.Context, zoneID int, delta int) error {
	zc, aerr := c.repo.Snapshot(zoneID)
	if aerr != nil {
		return aerr
	}
	next, ok := nextQueueIndex(zc.Queue, delta)
	if !ok {
		perr := &models.PlaybackError{Kind: models.KindQueueEnd, ZoneID: zoneID}
		c.HandlePlaybackError(ctx, zoneID, perr)
		return perr
	}
	if _, aerr = c.repo.Mutate(zoneID, func(z *models.ZoneContext) error {
		z.Queue.CurrentIndex = next
		z.Queue.Clamp()
		return nil
	}); aerr != nil {
		return aerr
	}

	zc, aerr = c.repo.Snapshot(zoneID)
	if aerr != nil {
		return aerr
	}
	item := zc.Queue.Current()
	if item == nil {
		perr := &models.PlaybackError{Kind: models.KindQueueInvalidNext, ZoneID: zoneID}
		c.HandlePlaybackError(ctx, zoneID, perr)
		return perr
	}
	// startQueuePlayback already calls HandlePlaybackError with its own
	// failure kind (no-output-configured/stream-unavailable/
	// engine-start-failed) on error, so queue-next-failed is implied by
	// that disposition rather than layered on top of it here.
	ap := models.ParseAudiopath(item.Audiopath)
	return c.startQueuePlayback(ctx, zoneID, ap, *item, PlayOptions{})
}

// nextQueueIndex computes the next index honoring repeat mode: RepeatOne
// replays the current item, RepeatAll wraps to 0 at the end, RepeatOff
// reports no next item past the last.
func nextQueueIndex(q models.QueueState, delta int) (int, bool) {
	if len(q.Items) == 0 {
		return 0, false
	}
	if q.Repeat == models.RepeatOne {
		return q.CurrentIndex, true
	}
	next := q.CurrentIndex + delta
	if next >= 0 && next < len(q.Items) {
		return next, true
	}
	if q.Repeat == models.RepeatAll {
		if next < 0 {
			return len(q.Items) - 1, true
		}
		return 0, true
	}
	return 0, false
}

// cmdPosition seeks: forwarded to the external input when queue authority
// is remote, else restarts the current item at the given offset (spec
// §4.1 "position <sec>").
func (c *Coordinator) cmdPosition(ctx context.Context, zoneID int, sec float64) error {
	zc, aerr := c.repo.Snapshot(zoneID)
	if aerr != nil {
		return aerr
	}
	if zc.Queue.Authority != models.QueueAuthorityLocal && zc.Queue.Authority != "" {
		if zc.ActiveInput != "" {
			return c.inputs.ForwardCommand(ctx, zoneID, zc.ActiveInput, fmt.Sprintf("position:%v", sec))
		}
		return nil
	}
	item := zc.Queue.Current()
	if item == nil {
		return &models.PlaybackError{Kind: models.KindQueueInvalidNext, ZoneID: zoneID}
	}
	ap := models.ParseAudiopath(item.Audiopath)
	return c.startQueuePlayback(ctx, zoneID, ap, *item, PlayOptions{SeekMs: int(sec * 1000)})
}

// cmdVolume clamps to zone policy, fans the level to outputs, and notifies
// the active input adapter (spec §4.1 "volume <value>").
func (c *Coordinator) cmdVolume(ctx context.Context, zoneID int, level int) error {
	zc, aerr := c.repo.Snapshot(zoneID)
	if aerr != nil {
		return aerr
	}
	clamped := zc.Config.Volume.ClampVolume(level)
	c.router.DispatchVolume(ctx, zoneID, zc.Outputs, zc.Config.Volume, clamped)
	if zc.ActiveInput != "" {
		_ = c.inputs.ForwardCommand(ctx, zoneID, zc.ActiveInput, fmt.Sprintf("volume:%d", clamped))
	}
	_, aerr = c.repo.Mutate(zoneID, func(z *models.ZoneContext) error {
		z.State.Volume = clamped
		return nil
	})
	c.notifyZoneState(zoneID, false)
	return aerr
}

// cmdShuffle enables/disables/toggles shuffle (spec §4.1 "shuffle
// on/off/toggle").
func (c *Coordinator) cmdShuffle(zoneID int, payload string) error {
	zc, aerr := c.repo.Snapshot(zoneID)
	if aerr != nil {
		return aerr
	}
	enable := !zc.Queue.Shuffle
	switch strings.ToLower(payload) {
	case "on":
		enable = true
	case "off":
		enable = false
	case "toggle", "":
		// already computed above
	}
	_, aerr = c.queue.SetShuffle(zoneID, enable)
	c.notifyZoneState(zoneID, false)
	return aerr
}

// cmdRepeat cycles off -> all -> one -> off (spec §4.1 "repeat").
func (c *Coordinator) cmdRepeat(zoneID int) error {
	zc, aerr := c.repo.Snapshot(zoneID)
	if aerr != nil {
		return aerr
	}
	var next models.RepeatMode
	switch zc.Queue.Repeat {
	case models.RepeatOff:
		next = models.RepeatAll
	case models.RepeatAll:
		next = models.RepeatOne
	default:
		next = models.RepeatOff
	}
	_, aerr = c.queue.SetRepeat(zoneID, next)
	c.notifyZoneState(zoneID, false)
	return aerr
}
