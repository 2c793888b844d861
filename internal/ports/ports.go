// Package ports defines the Playback Coordinator's external interfaces
// (spec §6): ContentPort, InputsPort, NotifierPort, ConfigPort,
// StoragePort, EnginePort. Concrete implementations live in
// internal/config (ConfigPort/StoragePort), internal/content (ContentPort),
// internal/inputs (InputsPort), and internal/api (NotifierPort); only
// EnginePort has no production-process-spanning implementation to root
// this package's import graph in beyond internal/engine itself.
package ports

import (
	"context"

	"github.com/ogglobi/audiolox/internal/engine"
	"github.com/ogglobi/audiolox/internal/inputs"
	"github.com/ogglobi/audiolox/internal/models"
)

// TrackInfo is ContentPort's resolved metadata for an audiopath (spec §6
// resolveMetadata).
type TrackInfo struct {
	Title     string
	Artist    string
	Album     string
	CoverURL  string
	Duration  float64
	Audiopath string
	TrackID   string
}

// ResolveSourceOptions parameterizes ContentPort/InputsPort's
// ResolvePlaybackSource (spec §6 resolvePlaybackSource).
type ResolveSourceOptions struct {
	Audiopath       string
	SeekMs          int
	AccountID       string
	PreferredOutput models.PreferredOutput
}

// ResolveSourceResult pairs a resolved PlaybackSource (nil if the content
// is unavailable) with the provider tag that produced it.
type ResolveSourceResult struct {
	Source   *models.PlaybackSource
	Provider string
}

// BuildQueueOptions parameterizes ContentPort.BuildQueueForUri with the
// parent-context hints extracted by models.SplitParentPath.
type BuildQueueOptions struct {
	StartItem     string
	StartIndex    int
	HasStartIndex bool
	NoShuffle     bool
}

// ContentPort is the Playback Coordinator and Queue Controller's interface
// to library/streaming content resolution (spec §6).
type ContentPort interface {
	ResolveMetadata(ctx context.Context, audiopath string) (*TrackInfo, error)
	ResolvePlaybackSource(ctx context.Context, opts ResolveSourceOptions) (ResolveSourceResult, error)
	BuildQueueForUri(ctx context.Context, uri, zoneName, station, rawAudiopath string, opts BuildQueueOptions) ([]models.QueueItem, error)
	GetMediaFolder(ctx context.Context, folderID string, offset, limit int) ([]models.QueueItem, error)
	GetServiceTrack(ctx context.Context, service, user, trackID string) (*TrackInfo, error)
	GetServiceFolder(ctx context.Context, service, user, folderID string, offset, limit int) ([]models.QueueItem, error)
	IsAppleMusicProvider(id string) bool
	IsDeezerProvider(id string) bool
	IsTidalProvider(id string) bool
}

// InputsPort is the Playback Coordinator's interface to external input
// sessions: start/stop, rename/sync per zone, resolve a PlaybackSource for
// a URI, forward remote-control commands, request line-in control (spec
// §6).
type InputsPort interface {
	StartInputSession(ctx context.Context, zoneID int, label string, opts inputs.ActivateOptions) error
	StopInputSession(ctx context.Context, zoneID int, label string) error
	RenameZone(ctx context.Context, zoneID int, label, name string) error
	SyncZone(ctx context.Context, zoneID int, label string) error
	ResolvePlaybackSource(ctx context.Context, label, uri string) (ResolveSourceResult, error)
	ForwardCommand(ctx context.Context, zoneID int, label, cmd string) error
	RequestLineInControl(ctx context.Context, zoneID int) error
}

// NotifierPort is the one-way observable-change feed out of the core
// (spec §6). Implementations must never block the core longer than an
// enqueue.
type NotifierPort interface {
	ZoneStateChanged(zoneID int, state models.ZoneState)
	QueueUpdated(zoneID int, queue models.QueueState)
	FavoritesChanged(zoneID int)
	RecentsChanged(zoneID int)
	RescanProgress(percent int, message string)
	StorageListUpdated()
	ReloadMusicApp()
	GlobalSearchResult(query string, results []TrackInfo)
	GlobalSearchError(query string, err error)
	AudioSyncGroupEvent(event models.GroupChangeEvent)
}

// ConfigPort persists each zone's immutable configuration snapshot (spec
// §6; concretely internal/config).
type ConfigPort interface {
	LoadZoneConfig(zoneID int) (models.ZoneConfig, error)
	SaveZoneConfig(zoneID int, cfg models.ZoneConfig) error
}

// FavoriteEntry is a per-zone favorited audiopath (spec §6 "Persisted
// state").
type FavoriteEntry struct {
	Audiopath string
	Title     string
	Artist    string
	Cover     string
}

// RecentEntry is a per-zone recently-played audiopath, capped and
// deduplicated by StoragePort's implementation (spec §6: "recents ≤5
// entries, dedup by canonical audiopath").
type RecentEntry struct {
	Audiopath string
	Title     string
	Artist    string
	Cover     string
	PlayedAt  int64
}

// StoragePort persists per-zone favorites/recents (spec §6 "Persisted
// state").
type StoragePort interface {
	LoadFavorites(zoneID int) ([]FavoriteEntry, error)
	SaveFavorites(zoneID int, entries []FavoriteEntry) error
	LoadRecents(zoneID int) ([]RecentEntry, error)
	PushRecent(zoneID int, entry RecentEntry) error
}

// EnginePort is the Audio Engine capability as consumed by the Playback
// Coordinator (spec §6); internal/engine.Engine satisfies it directly.
type EnginePort = engine.Engine
