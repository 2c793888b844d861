// Package playback implements the Playback Coordinator (spec §4.1): the
// zone state machine driving playContent, startQueuePlayback,
// handleCommand, the updateInput* callbacks, updateOutputState, and
// handlePlaybackError, plus the audiopath parent-context/radio-
// classification/queue-authority algorithms. Grounded on the teacher's
// Controller.apply mutate-copy-publish cycle (here scoped per-zone via the
// Zone Repository's actor) and its SetZone/SetGroup "validate → mutate →
// recompute aggregates → notify" shape.
package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ogglobi/audiolox/internal/engine"
	"github.com/ogglobi/audiolox/internal/groups"
	"github.com/ogglobi/audiolox/internal/inputs"
	"github.com/ogglobi/audiolox/internal/models"
	"github.com/ogglobi/audiolox/internal/ports"
	"github.com/ogglobi/audiolox/internal/queue"
	"github.com/ogglobi/audiolox/internal/router"
	"github.com/ogglobi/audiolox/internal/zonerepo"
)

// metadataThrottle bounds how often metadata/position-only updates reach
// the Notifier (spec §4.1 "Metadata dispatch throttling": once per second
// per zone).
const metadataThrottle = time.Second

// PlayOptions parameterizes PlayContent.
type PlayOptions struct {
	Metadata *models.TrackMetadata
	SeekMs   int
}

// Coordinator is the Playback Coordinator for every zone. It holds no
// per-zone lock of its own — all serialization is delegated to the owning
// zone's zonerepo.Actor, matching spec §5's per-zone total order.
type Coordinator struct {
	repo    *zonerepo.Repository
	queue   *queue.Controller
	engine  ports.EnginePort
	router  *router.Router
	content ports.ContentPort
	inputs  ports.InputsPort
	notify  ports.NotifierPort
	covers  *CoverStore

	// groupCoords is keyed by transport backend name ("snapcast",
	// "sonos", ...); a zone's group membership only exists within the
	// Coordinator matching its bound output's transport.
	groupCoords map[string]*groups.Coordinator

	// pcmMu guards pcmSubs: zoneID -> output type -> the engine subscriber
	// currently feeding that output's models.PCMSink (spec §2's PCM
	// fan-out from the Audio Engine to output drivers). Tracked here
	// rather than on the binding itself so a repeated startQueuePlayback
	// call can detach the previous subscription before attaching a new
	// one.
	pcmMu   sync.Mutex
	pcmSubs map[int]map[string]*engine.Subscriber
}

// New returns a Coordinator wiring the four ports it uses (engine, content,
// inputs, notifier) plus the zone repository, queue controller, router, and
// per-transport group coordinators.
func New(repo *zonerepo.Repository, qc *queue.Controller, eng ports.EnginePort, rt *router.Router, content ports.ContentPort, in ports.InputsPort, notify ports.NotifierPort, covers *CoverStore, groupCoords map[string]*groups.Coordinator) *Coordinator {
	return &Coordinator{
		repo:        repo,
		queue:       qc,
		engine:      eng,
		router:      rt,
		content:     content,
		inputs:      in,
		notify:      notify,
		covers:      covers,
		groupCoords: groupCoords,
		pcmSubs:     make(map[int]map[string]*engine.Subscriber),
	}
}

// PlayContent is the main entry point (spec §4.1 playContent).
func (c *Coordinator) PlayContent(ctx context.Context, zoneID int, uri, reqType string, opts PlayOptions) error {
	decoded := models.DecodePercent(uri)
	startItem, parent := models.SplitParentPath(decoded)
	ap := models.ParseAudiopath(startItem)

	zc, aerr := c.repo.Snapshot(zoneID)
	if aerr != nil {
		return aerr
	}

	// Fast path: seek within the existing queue (spec §4.1 step 2).
	if parent == nil && zc.State.Mode != models.ModeStop {
		if idx := zc.Queue.IndexOf(startItem); idx >= 0 {
			if _, err := c.queue.SeekInQueue(zoneID, startItem); err != nil {
				return err
			}
			item := zc.Queue.Items[idx]
			return c.startQueuePlayback(ctx, zoneID, ap, item, opts)
		}
	}

	// Slow path: rebuild the queue from Content.
	buildOpts := ports.BuildQueueOptions{}
	if parent != nil {
		buildOpts.StartItem = parent.StartItem
		buildOpts.StartIndex = parent.StartIndex
		buildOpts.HasStartIndex = parent.HasIndex
		buildOpts.NoShuffle = parent.NoShuffle
	}
	items, err := c.content.BuildQueueForUri(ctx, startItem, zc.Name, "", decoded, buildOpts)
	if err != nil {
		return &models.PlaybackError{Kind: models.KindStreamUnavailable, ZoneID: zoneID, Provider: ap.Provider, Err: err}
	}

	startIndex := 0
	switch {
	case buildOpts.HasStartIndex:
		startIndex = buildOpts.StartIndex
	default:
		if idx := indexOfAny(items, startItem); idx >= 0 {
			startIndex = idx
		}
	}

	shuffle := zc.Queue.Shuffle && !buildOpts.NoShuffle
	newQueue, _, aerr := c.queue.BuildQueueForUri(zoneID, items, startIndex, shuffle)
	if aerr != nil {
		return aerr
	}
	if len(newQueue.Items) == 0 {
		return &models.PlaybackError{Kind: models.KindQueueInvalidNext, ZoneID: zoneID, Provider: ap.Provider}
	}
	item := newQueue.Items[newQueue.CurrentIndex]
	return c.startQueuePlayback(ctx, zoneID, ap, item, opts)
}

func indexOfAny(items []models.QueueItem, target string) int {
	for i, it := range items {
		if it.Audiopath == target || it.UniqueID == target {
			return i
		}
	}
	return -1
}

// startQueuePlayback resolves a PlaybackSource for item and starts the
// Audio Engine (with handoff) or, for Spotify/Music Assistant, the Inputs
// port (spec §4.1 startQueuePlayback).
func (c *Coordinator) startQueuePlayback(ctx context.Context, zoneID int, ap models.Audiopath, item models.QueueItem, opts PlayOptions) error {
	zc, aerr := c.repo.Snapshot(zoneID)
	if aerr != nil {
		return aerr
	}

	playable := router.SelectPlayOutputs(zc.Outputs)
	if len(playable) == 0 && !models.HasRemoteQueue(ap.Provider) {
		perr := &models.PlaybackError{Kind: models.KindNoOutputConfigured, ZoneID: zoneID}
		c.HandlePlaybackError(ctx, zoneID, perr)
		return perr
	}

	preferred := models.PreferredOutput{Profile: models.ProfileMP3}
	for _, b := range playable {
		if p, ok := b.Driver.(models.PreferredOutputProvider); ok {
			preferred = p.GetPreferredOutput()
			break
		}
	}

	meta := models.TrackMetadata{
		Title:    item.Title,
		Artist:   item.Artist,
		Album:    item.Album,
		Cover:    item.Cover,
		Duration: item.Duration,
	}
	if opts.Metadata != nil {
		meta = *opts.Metadata
	}

	isRadio := models.ClassifyRadio(ap, meta.Duration, true)
	if isRadio || ap.IsURL {
		preferred.PrebufferBytes = models.RadioPrebufferBytes
	}

	authority := queueAuthority(ap)

	// Resolve a PlaybackSource: Content for local/queue-authority-local
	// content, Inputs for an offloaded Spotify/Music Assistant session
	// (spec §4.1: "ask the Content port (or the Inputs port for
	// Spotify/MA)").
	var res ports.ResolveSourceResult
	var rerr error
	switch ap.Provider {
	case "spotify", "musicassistant":
		res, rerr = c.inputs.ResolvePlaybackSource(ctx, ap.Provider, item.Audiopath)
	default:
		res, rerr = c.content.ResolvePlaybackSource(ctx, ports.ResolveSourceOptions{
			Audiopath:       item.Audiopath,
			SeekMs:          opts.SeekMs,
			PreferredOutput: preferred,
		})
	}
	if rerr != nil || res.Source == nil {
		perr := &models.PlaybackError{Kind: models.KindStreamUnavailable, ZoneID: zoneID, Provider: ap.Provider, Err: rerr}
		c.HandlePlaybackError(ctx, zoneID, perr)
		return perr
	}

	session, serr := c.engine.StartWithHandoff(ctx, engine.StartOptions{
		ZoneID:         zoneID,
		Source:         *res.Source,
		Profiles:       []models.Profile{preferred.Profile},
		OutputSettings: preferred,
	}, nil)
	if serr != nil {
		perr := &models.PlaybackError{Kind: models.KindEngineStartFailed, ZoneID: zoneID, Provider: ap.Provider, Err: serr}
		c.HandlePlaybackError(ctx, zoneID, perr)
		return perr
	}
	session.Metadata = meta

	station := models.SanitizeStationLabel(item.Station, item.Audiopath)

	_, aerr = c.repo.Mutate(zoneID, func(z *models.ZoneContext) error {
		z.Session = session
		z.State.Mode = models.ModePlay
		z.State.Track = meta
		z.State.Audiopath = item.Audiopath
		z.State.Station = station
		z.State.IsRadio = isRadio
		z.State.AudioType = classificationLabel(ap, isRadio)
		z.State.QueueAuthority = authority
		z.State.Elapsed = 0
		if isRadio {
			z.State.Elapsed = 0
		}
		z.Queue.Authority = authority
		z.ActiveOutput = primaryOutputType(playable)
		z.InputMode = models.InputModeQueue
		z.ActiveInput = ""
		return nil
	})
	if aerr != nil {
		return aerr
	}

	failures := c.router.DispatchOutputs(ctx, zoneID, playable, router.ActionPlay, session, c.onOutputError(zoneID))
	for _, f := range failures {
		slog.Warn("playback: output play failed", "zone", zoneID, "output", f.Type, "reason", f.Reason)
	}

	c.attachPCMSinks(ctx, zoneID, playable)

	c.notifyZoneState(zoneID, false)
	return nil
}

// attachPCMSinks attaches an Audio Engine subscriber to every playable
// output that implements models.PCMSink (spec §2's "fanning PCM/encoded
// subscribers out to multiple outputs"): AirPlay and Sendspin render raw
// chunks pulled from the engine rather than pointing a renderer at a
// URL/device, so they need a subscriber wired up after the pipeline starts.
// Any previous subscription for the same zone/output is detached first so
// repeated calls (e.g. on track advance) don't leak or duplicate audio.
func (c *Coordinator) attachPCMSinks(ctx context.Context, zoneID int, playable []models.OutputBinding) {
	for _, b := range playable {
		sink, ok := b.Driver.(models.PCMSink)
		if !ok {
			continue
		}
		c.detachPCMSink(zoneID, b.Type)

		sub, err := c.engine.CreateStream(ctx, zoneID, sink.SinkProfile(), engine.SubscribeOptions{
			PrimeWithBuffer: true,
			Label:           b.Type,
		})
		if err != nil {
			slog.Warn("playback: attach pcm sink failed", "zone", zoneID, "output", b.Type, "err", err)
			continue
		}
		if sub == nil {
			continue
		}

		c.pcmMu.Lock()
		if c.pcmSubs[zoneID] == nil {
			c.pcmSubs[zoneID] = make(map[string]*engine.Subscriber)
		}
		c.pcmSubs[zoneID][b.Type] = sub
		c.pcmMu.Unlock()

		go feedPCMSink(zoneID, b.Type, sink, sub)
	}
}

// detachPCMSink tears down zoneID's current PCM subscription for
// outputType, if any.
func (c *Coordinator) detachPCMSink(zoneID int, outputType string) {
	c.pcmMu.Lock()
	sub, ok := c.pcmSubs[zoneID][outputType]
	if ok {
		delete(c.pcmSubs[zoneID], outputType)
	}
	c.pcmMu.Unlock()
	if ok {
		c.engine.DetachStream(zoneID, models.Profile(sub.Profile), sub)
	}
}

// clearPCMSubs drops zoneID's PCM subscription bookkeeping after
// engine.Stop(DiscardSubscribers: true) has already closed the underlying
// subscribers and torn down the pipeline.
func (c *Coordinator) clearPCMSubs(zoneID int) {
	c.pcmMu.Lock()
	delete(c.pcmSubs, zoneID)
	c.pcmMu.Unlock()
}

// feedPCMSink drains sub's channel into sink.WriteChunk until the engine
// closes it (pipeline stopped or detached). It runs detached from the
// request-scoped context that started playback: the channel's own close is
// the shutdown signal, not ctx cancellation.
func feedPCMSink(zoneID int, outputType string, sink models.PCMSink, sub *engine.Subscriber) {
	ctx := context.Background()
	for chunk := range sub.Chan() {
		if err := sink.WriteChunk(ctx, chunk); err != nil {
			slog.Warn("playback: pcm sink write failed", "zone", zoneID, "output", outputType, "err", err)
		}
	}
}

func classificationLabel(ap models.Audiopath, isRadio bool) string {
	if isRadio {
		return "radio"
	}
	if ap.Provider != "" {
		return ap.Provider
	}
	return "queue"
}

func queueAuthority(ap models.Audiopath) string {
	if models.HasRemoteQueue(ap.Provider) {
		return ap.Provider
	}
	return models.QueueAuthorityLocal
}

func primaryOutputType(outputs []models.OutputBinding) string {
	if len(outputs) == 0 {
		return ""
	}
	return outputs[0].Type
}

// onOutputError builds the onOutputError(zoneId, reason) hook the Router
// calls per failed output (spec §4.4); per §7 "output-error" is not fatal
// to other outputs, so this only logs and does not mutate zone state.
func (c *Coordinator) onOutputError(zoneID int) router.OnOutputError {
	return func(_ int, outputType, reason string) {
		slog.Warn("playback: output error", "zone", zoneID, "output", outputType, "reason", reason)
	}
}

// UpdateOutputState applies an output-side echo (spec §4.1
// updateOutputState): playing/paused/stopped, position, duration, uri.
func (c *Coordinator) UpdateOutputState(zoneID int, state models.SessionState, elapsed, duration float64, uri string) {
	zc, err := c.repo.Mutate(zoneID, func(z *models.ZoneContext) error {
		switch state {
		case models.SessionPlaying:
			z.State.Mode = models.ModePlay
		case models.SessionPaused:
			z.State.Mode = models.ModePause
		case models.SessionStopped:
			z.State.Mode = models.ModeStop
		}
		if z.State.IsRadio {
			elapsed, duration = 0, 0
		}
		z.State.Elapsed = elapsed
		if uri != "" {
			z.State.Audiopath = uri
		}
		z.LastPositionAt = timeNow()
		z.LastPositionSec = elapsed
		return nil
	})
	if err != nil {
		return
	}
	_ = zc
	c.notifyZoneState(zoneID, true)
}

// timeNow is a seam so tests don't need to stub time.Now via an interface;
// kept as a var for symmetry with the rest of the codebase's test doubles.
var timeNow = time.Now

// notifyZoneState pushes the zone's current state to the Notifier,
// throttling metadata/position-only updates to once per second per zone
// (spec §4.1 "Metadata dispatch throttling"). positionOnly marks calls that
// only changed Elapsed/position, which are subject to the throttle; state
// transitions (mode changes) always go through immediately.
func (c *Coordinator) notifyZoneState(zoneID int, positionOnly bool) {
	a, ok := c.repo.Actor(zoneID)
	if !ok {
		return
	}
	zc := a.View()

	if positionOnly {
		if timeNow().Sub(zc.LastBroadcast) < metadataThrottle {
			return
		}
	}

	a.Do(func(z *models.ZoneContext) error {
		z.LastBroadcast = timeNow()
		return nil
	})

	c.notify.ZoneStateChanged(zoneID, zc.State)
}

// Assert Coordinator implements inputs.Callbacks (wired in callbacks.go).
var _ inputs.Callbacks = (*Coordinator)(nil)
