package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ogglobi/audiolox/internal/models"
)

// zoneConfigFile is the on-disk shape of a zone's immutable configuration
// snapshot. Kept distinct from models.ZoneConfig so the wire format can
// evolve (added fields, renamed JSON keys) without touching the in-memory
// type the rest of the core consumes.
type zoneConfigFile struct {
	Volume        models.VolumePolicy `json:"volume"`
	EnabledInputs []models.InputMode  `json:"enabled_inputs"`
	Outputs       []models.OutputDef  `json:"outputs"`
}

// ZoneConfigStore implements ports.ConfigPort as one JSON file per zone
// under <configDir>/zones/zone-<id>.json, atomic write + debounce ported
// from the teacher's JSONStore.
type ZoneConfigStore struct {
	mu      sync.Mutex
	dir     string
	timers  map[int]*time.Timer
	pending map[int]models.ZoneConfig
}

// NewZoneConfigStore creates a store rooted at <configDir>/zones.
func NewZoneConfigStore(configDir string) *ZoneConfigStore {
	return &ZoneConfigStore{
		dir:     filepath.Join(configDir, zoneConfigDirName),
		timers:  make(map[int]*time.Timer),
		pending: make(map[int]models.ZoneConfig),
	}
}

func (s *ZoneConfigStore) path(zoneID int) string {
	return filepath.Join(s.dir, fmt.Sprintf("zone-%d.json", zoneID))
}

// LoadZoneConfig reads a zone's configuration file, returning a default
// config (VolumePolicy Default 50, Step 5, Max 100) if the file does not
// exist yet (a freshly registered zone with no saved config) or cannot be
// parsed.
func (s *ZoneConfigStore) LoadZoneConfig(zoneID int) (models.ZoneConfig, error) {
	data, err := os.ReadFile(s.path(zoneID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultZoneConfig(), nil
		}
		return models.ZoneConfig{}, err
	}

	var f zoneConfigFile
	if err := json.Unmarshal(data, &f); err != nil {
		slog.Warn("config: corrupt zone config, using defaults", "zone", zoneID, "err", err)
		return defaultZoneConfig(), nil
	}
	return models.ZoneConfig{
		Volume:        f.Volume,
		EnabledInputs: f.EnabledInputs,
		Outputs:       f.Outputs,
	}, nil
}

// SaveZoneConfig schedules a debounced atomic write of the zone's config.
func (s *ZoneConfigStore) SaveZoneConfig(zoneID int, cfg models.ZoneConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[zoneID] = cfg
	if t, ok := s.timers[zoneID]; ok {
		t.Stop()
	}
	s.timers[zoneID] = time.AfterFunc(debounceDelay, func() {
		s.mu.Lock()
		pending, ok := s.pending[zoneID]
		s.mu.Unlock()
		if !ok {
			return
		}
		if err := s.writeAtomic(zoneID, pending); err != nil {
			slog.Error("config: failed to write zone config", "zone", zoneID, "err", err)
		}
	})
	return nil
}

// Flush forces an immediate write of a zone's pending config, if any.
func (s *ZoneConfigStore) Flush(zoneID int) error {
	s.mu.Lock()
	if t, ok := s.timers[zoneID]; ok {
		t.Stop()
		delete(s.timers, zoneID)
	}
	cfg, ok := s.pending[zoneID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.writeAtomic(zoneID, cfg)
}

func (s *ZoneConfigStore) writeAtomic(zoneID int, cfg models.ZoneConfig) error {
	f := zoneConfigFile{Volume: cfg.Volume, EnabledInputs: cfg.EnabledInputs, Outputs: cfg.Outputs}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	path := s.path(zoneID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ZoneIDs lists the zone IDs with a persisted configuration file, sorted
// ascending, so a caller can bootstrap a Repository from what's on disk.
// Returns an empty slice (not an error) if the zones directory doesn't
// exist yet.
func (s *ZoneConfigStore) ZoneIDs() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ids []int
	for _, e := range entries {
		var id int
		if _, err := fmt.Sscanf(e.Name(), "zone-%d.json", &id); err != nil {
			continue
		}
		// Sscanf doesn't require consuming the whole string, so a leftover
		// "zone-1.json.tmp" from an interrupted write would otherwise parse
		// as zone 1 too; reject anything that isn't an exact match.
		if e.Name() != fmt.Sprintf("zone-%d.json", id) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func defaultZoneConfig() models.ZoneConfig {
	return models.ZoneConfig{
		Volume: models.VolumePolicy{Default: 50, Step: 5, Max: 100},
	}
}
