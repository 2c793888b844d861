// Package content implements ports.ContentPort: local library scanning plus
// thin resolution glue for the streaming providers enumerated by the
// audiopath grammar (spec §6). Provider-specific authentication flows are
// an explicit spec Non-goal, so remote providers other than the local
// library resolve metadata/queues but decline to mint a playback session
// directly — their sessions arrive through internal/inputs instead.
package content

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dhowden/tag"
	"github.com/ogglobi/audiolox/internal/models"
	"github.com/ogglobi/audiolox/internal/ports"
)

// SupportedExtensions lists the audio file extensions the library scanner
// recognizes, ported from the teacher pack's playlist scanner.
var SupportedExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".wav":  true,
	".aac":  true,
}

// track is one scanned library entry, keyed by a stable ID derived from its
// path so audiopaths survive rescans as long as the file doesn't move.
type track struct {
	id       string
	path     string
	title    string
	artist   string
	album    string
	cover    string
	duration float64
}

// Library is the local-filesystem ContentPort provider. It walks root once
// at construction and on Rescan, indexing tracks by ID for O(1) lookup.
type Library struct {
	root string

	mu     sync.RWMutex
	tracks map[string]*track
	order  []string // stable ID order, used for folder pagination
}

// NewLibrary scans root for audio files and returns a populated Library.
// A scan error for an individual file is logged and the file skipped; only
// a failure to walk root itself is returned.
func NewLibrary(root string) (*Library, error) {
	l := &Library{root: root, tracks: make(map[string]*track)}
	if err := l.Rescan(); err != nil {
		return nil, err
	}
	return l, nil
}

// Rescan re-walks the library root, replacing the in-memory index.
func (l *Library) Rescan() error {
	tracks := make(map[string]*track)
	var order []string

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !SupportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		t := newTrackFromFile(path)
		tracks[t.id] = t
		order = append(order, t.id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("content: scan %s: %w", l.root, err)
	}

	sort.Strings(order)

	l.mu.Lock()
	l.tracks = tracks
	l.order = order
	l.mu.Unlock()
	return nil
}

// newTrackFromFile builds a track from filesystem path and tag metadata,
// falling back to filename-derived defaults when tags are unreadable.
func newTrackFromFile(path string) *track {
	t := &track{
		id:    trackID(path),
		path:  path,
		title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	f, err := os.Open(path)
	if err != nil {
		return t
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		slog.Debug("content: could not read tags", "path", path, "err", err)
		return t
	}
	if m.Title() != "" {
		t.title = m.Title()
	}
	t.artist = m.Artist()
	t.album = m.Album()
	if pic := m.Picture(); pic != nil {
		t.cover = fmt.Sprintf("data:%s;base64,embedded", pic.MIMEType)
	}
	return t
}

// trackID derives a stable library track ID from its path, so an audiopath
// like "library:track:<id>" survives process restarts.
func trackID(path string) string {
	sum := sha1.Sum([]byte(path))
	return fmt.Sprintf("%x", sum[:8])
}

func (l *Library) lookup(id string) (*track, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tracks[id]
	return t, ok
}

func (t *track) toTrackInfo() *ports.TrackInfo {
	return &ports.TrackInfo{
		Title:     t.title,
		Artist:    t.artist,
		Album:     t.album,
		CoverURL:  t.cover,
		Duration:  t.duration,
		Audiopath: "library:track:" + t.id,
		TrackID:   t.id,
	}
}

func (t *track) toQueueItem() models.QueueItem {
	return models.QueueItem{
		Title:     t.title,
		Artist:    t.artist,
		Album:     t.album,
		Cover:     t.cover,
		Duration:  t.duration,
		Audiopath: "library:track:" + t.id,
		Audiotype: "track",
		UniqueID:  "library-" + t.id,
	}
}

// ResolveMetadata implements ports.ContentPort.
func (l *Library) ResolveMetadata(ctx context.Context, audiopath string) (*ports.TrackInfo, error) {
	ap := models.ParseAudiopath(audiopath)
	if ap.Provider != "library" {
		return nil, fmt.Errorf("content: not a library audiopath: %s", audiopath)
	}
	t, ok := l.lookup(ap.ID)
	if !ok {
		return nil, fmt.Errorf("content: track %s not found", ap.ID)
	}
	return t.toTrackInfo(), nil
}

// ResolvePlaybackSource implements ports.ContentPort. Only the local
// library provider resolves directly to a file source here; other
// providers' sessions are established through internal/inputs.
func (l *Library) ResolvePlaybackSource(ctx context.Context, opts ports.ResolveSourceOptions) (ports.ResolveSourceResult, error) {
	ap := models.ParseAudiopath(opts.Audiopath)
	switch {
	case ap.Provider == "library":
		t, ok := l.lookup(ap.ID)
		if !ok {
			return ports.ResolveSourceResult{}, fmt.Errorf("content: track %s not found", ap.ID)
		}
		return ports.ResolveSourceResult{
			Source:   &models.PlaybackSource{Kind: "file", Path: t.path},
			Provider: "library",
		}, nil
	case ap.IsURL, ap.Provider == "tunein", ap.Provider == "radio":
		return ports.ResolveSourceResult{
			Source:   &models.PlaybackSource{Kind: "http", URL: resolveURL(ap)},
			Provider: ap.Provider,
		}, nil
	default:
		return ports.ResolveSourceResult{}, fmt.Errorf("content: provider %q requires an input session, not direct resolution", ap.Provider)
	}
}

func resolveURL(ap models.Audiopath) string {
	if ap.IsURL {
		return ap.Provider
	}
	return models.DecodePercent(ap.ID)
}

// BuildQueueForUri implements ports.ContentPort. For the library provider
// a folder or album URI expands into every scanned track (the URI's ID does
// not narrow the set) and a track URI into a one-item queue of that track;
// for everything else it returns a single-item queue so callers degrade
// gracefully to an unshuffled solo play.
func (l *Library) BuildQueueForUri(ctx context.Context, uri, zoneName, station, rawAudiopath string, opts ports.BuildQueueOptions) ([]models.QueueItem, error) {
	ap := models.ParseAudiopath(uri)
	if ap.Provider != "library" {
		return []models.QueueItem{{
			Audiopath: rawAudiopath,
			Audiotype: ap.Type,
			Station:   station,
			UniqueID:  "solo-" + rawAudiopath,
		}}, nil
	}

	switch ap.Type {
	case "folder", "album":
		items, _, err := l.listFolder(ap.ID, 0, 0)
		return items, err
	default:
		t, ok := l.lookup(ap.ID)
		if !ok {
			return nil, fmt.Errorf("content: track %s not found", ap.ID)
		}
		return []models.QueueItem{t.toQueueItem()}, nil
	}
}

// GetMediaFolder implements ports.ContentPort, returning a paginated slice
// of the whole scanned library (the library has no real folder hierarchy
// of its own, so "" is treated as the root folder).
func (l *Library) GetMediaFolder(ctx context.Context, folderID string, offset, limit int) ([]models.QueueItem, error) {
	items, _, err := l.listFolder(folderID, offset, limit)
	return items, err
}

func (l *Library) listFolder(folderID string, offset, limit int) ([]models.QueueItem, int, error) {
	l.mu.RLock()
	order := l.order
	l.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if offset > len(order) {
		offset = len(order)
	}
	end := len(order)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	items := make([]models.QueueItem, 0, end-offset)
	for _, id := range order[offset:end] {
		if t, ok := l.lookup(id); ok {
			items = append(items, t.toQueueItem())
		}
	}
	return items, len(order), nil
}

// GetServiceTrack implements ports.ContentPort. Only the local library
// services direct track lookups; remote services resolve through
// internal/inputs once authenticated there.
func (l *Library) GetServiceTrack(ctx context.Context, service, user, trackID string) (*ports.TrackInfo, error) {
	if service != "library" {
		return nil, fmt.Errorf("content: service %q not resolvable without an input session", service)
	}
	t, ok := l.lookup(trackID)
	if !ok {
		return nil, fmt.Errorf("content: track %s not found", trackID)
	}
	return t.toTrackInfo(), nil
}

// GetServiceFolder implements ports.ContentPort, see GetServiceTrack.
func (l *Library) GetServiceFolder(ctx context.Context, service, user, folderID string, offset, limit int) ([]models.QueueItem, error) {
	if service != "library" {
		return nil, fmt.Errorf("content: service %q not resolvable without an input session", service)
	}
	return l.GetMediaFolder(ctx, folderID, offset, limit)
}

func (l *Library) IsAppleMusicProvider(id string) bool { return strings.HasPrefix(id, "applemusic") }
func (l *Library) IsDeezerProvider(id string) bool     { return strings.HasPrefix(id, "deezer") }
func (l *Library) IsTidalProvider(id string) bool      { return strings.HasPrefix(id, "tidal") }

// TrackCount returns the number of tracks currently indexed; cmd/audiolox
// logs it at startup.
func (l *Library) TrackCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

var _ ports.ContentPort = (*Library)(nil)
