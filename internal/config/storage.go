package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/ogglobi/audiolox/internal/ports"
)

// CustomRadioStation is a user-added radio stream (spec §6 "Persisted
// state" supplement — not part of ports.StoragePort since the distilled
// spec only names it, not a schema, but carried as cheap JSON persistence
// in its own custom_radio.json file beside favorites/recents).
type CustomRadioStation struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Logo string `json:"logo,omitempty"`
}

// Storage implements ports.StoragePort (favorites/recents, capped and
// deduplicated by canonical audiopath) plus custom-radio stations, as one
// JSON file per blob under configDir, hot-reloaded via fsnotify the same
// way the teacher's auth.Service reloads users.json.
type Storage struct {
	mu         sync.RWMutex
	dir        string
	favorites  map[int][]ports.FavoriteEntry
	recents    map[int][]ports.RecentEntry
	customRadio []CustomRadioStation
	watcher    *fsnotify.Watcher
}

// NewStorage loads the favorites/recents/custom-radio files from configDir
// and starts watching them for external edits.
func NewStorage(configDir string) (*Storage, error) {
	s := &Storage{
		dir:       configDir,
		favorites: make(map[int][]ports.FavoriteEntry),
		recents:   make(map[int][]ports.RecentEntry),
	}

	if err := s.reloadFavorites(); err != nil {
		return nil, err
	}
	if err := s.reloadRecents(); err != nil {
		return nil, err
	}
	if err := s.reloadCustomRadio(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("config: could not create fsnotify watcher", "err", err)
		return s, nil
	}
	s.watcher = watcher
	if err := watcher.Add(configDir); err != nil {
		slog.Warn("config: could not watch config dir", "dir", configDir, "err", err)
	}
	go s.watchLoop()
	return s, nil
}

// Close stops the file watcher.
func (s *Storage) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}

func (s *Storage) favoritesPath() string   { return filepath.Join(s.dir, favoritesFileName) }
func (s *Storage) recentsPath() string     { return filepath.Join(s.dir, recentsFileName) }
func (s *Storage) customRadioPath() string { return filepath.Join(s.dir, customRadioFile) }

func (s *Storage) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			switch event.Name {
			case s.favoritesPath():
				if err := s.reloadFavorites(); err != nil {
					slog.Warn("config: failed to reload favorites", "err", err)
				}
			case s.recentsPath():
				if err := s.reloadRecents(); err != nil {
					slog.Warn("config: failed to reload recents", "err", err)
				}
			case s.customRadioPath():
				if err := s.reloadCustomRadio(); err != nil {
					slog.Warn("config: failed to reload custom radio", "err", err)
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config: watcher error", "err", err)
		}
	}
}

func (s *Storage) reloadFavorites() error {
	var m map[int][]ports.FavoriteEntry
	if err := readJSON(s.favoritesPath(), &m); err != nil {
		return err
	}
	s.mu.Lock()
	s.favorites = m
	s.mu.Unlock()
	return nil
}

func (s *Storage) reloadRecents() error {
	var m map[int][]ports.RecentEntry
	if err := readJSON(s.recentsPath(), &m); err != nil {
		return err
	}
	s.mu.Lock()
	s.recents = m
	s.mu.Unlock()
	return nil
}

func (s *Storage) reloadCustomRadio() error {
	var list []CustomRadioStation
	if err := readJSON(s.customRadioPath(), &list); err != nil {
		return err
	}
	s.mu.Lock()
	s.customRadio = list
	s.mu.Unlock()
	return nil
}

// readJSON unmarshals a JSON file into dst, leaving dst as its zero value
// (not an error) if the file does not exist yet.
func readJSON(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

func writeAtomicJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Storage) LoadFavorites(zoneID int) ([]ports.FavoriteEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ports.FavoriteEntry, len(s.favorites[zoneID]))
	copy(out, s.favorites[zoneID])
	return out, nil
}

func (s *Storage) SaveFavorites(zoneID int, entries []ports.FavoriteEntry) error {
	s.mu.Lock()
	if s.favorites == nil {
		s.favorites = make(map[int][]ports.FavoriteEntry)
	}
	s.favorites[zoneID] = entries
	snapshot := make(map[int][]ports.FavoriteEntry, len(s.favorites))
	for k, v := range s.favorites {
		snapshot[k] = v
	}
	s.mu.Unlock()
	return writeAtomicJSON(s.favoritesPath(), snapshot)
}

func (s *Storage) LoadRecents(zoneID int) ([]ports.RecentEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ports.RecentEntry, len(s.recents[zoneID]))
	copy(out, s.recents[zoneID])
	return out, nil
}

// PushRecent inserts entry at the head of the zone's recents ring,
// deduplicating by canonical audiopath and capping at maxRecents (spec §6
// "Persisted state": "recents ≤5 entries, dedup by canonical audiopath").
func (s *Storage) PushRecent(zoneID int, entry ports.RecentEntry) error {
	s.mu.Lock()
	if s.recents == nil {
		s.recents = make(map[int][]ports.RecentEntry)
	}
	existing := s.recents[zoneID]
	deduped := make([]ports.RecentEntry, 0, len(existing)+1)
	deduped = append(deduped, entry)
	for _, e := range existing {
		if e.Audiopath == entry.Audiopath {
			continue
		}
		deduped = append(deduped, e)
	}
	if len(deduped) > maxRecents {
		deduped = deduped[:maxRecents]
	}
	s.recents[zoneID] = deduped
	snapshot := make(map[int][]ports.RecentEntry, len(s.recents))
	for k, v := range s.recents {
		snapshot[k] = v
	}
	s.mu.Unlock()
	return writeAtomicJSON(s.recentsPath(), snapshot)
}

// CustomRadioStations returns the currently loaded custom radio list.
func (s *Storage) CustomRadioStations() []CustomRadioStation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CustomRadioStation, len(s.customRadio))
	copy(out, s.customRadio)
	return out
}

// SaveCustomRadioStations persists the custom radio list.
func (s *Storage) SaveCustomRadioStations(stations []CustomRadioStation) error {
	s.mu.Lock()
	s.customRadio = stations
	s.mu.Unlock()
	return writeAtomicJSON(s.customRadioPath(), stations)
}

var _ ports.StoragePort = (*Storage)(nil)
