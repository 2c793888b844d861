package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/ogglobi/audiolox/internal/config"
	"github.com/ogglobi/audiolox/internal/models"
	"github.com/ogglobi/audiolox/internal/ports"
)

func newTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "audiolox-config-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestZoneConfigStore_LoadMissing_ReturnsDefault(t *testing.T) {
	store := config.NewZoneConfigStore(newTempDir(t))

	cfg, err := store.LoadZoneConfig(1)
	if err != nil {
		t.Fatalf("LoadZoneConfig() error = %v", err)
	}
	if cfg.Volume.Max != 100 {
		t.Errorf("default Volume.Max = %d, want 100", cfg.Volume.Max)
	}
}

func TestZoneConfigStore_SaveLoadRoundTrip(t *testing.T) {
	store := config.NewZoneConfigStore(newTempDir(t))

	cfg := models.ZoneConfig{
		Volume:        models.VolumePolicy{Default: 40, Step: 10, Max: 80},
		EnabledInputs: []models.InputMode{models.InputModeSpotify, models.InputModeLineIn},
		Outputs:       []models.OutputDef{{Type: "snapcast", Name: "living-room"}},
	}
	if err := store.SaveZoneConfig(2, cfg); err != nil {
		t.Fatalf("SaveZoneConfig() error = %v", err)
	}
	if err := store.Flush(2); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	loaded, err := store.LoadZoneConfig(2)
	if err != nil {
		t.Fatalf("LoadZoneConfig() error = %v", err)
	}
	if loaded.Volume.Max != 80 || loaded.Volume.Default != 40 {
		t.Errorf("Volume = %+v, want Default=40 Max=80", loaded.Volume)
	}
	if len(loaded.EnabledInputs) != 2 {
		t.Errorf("EnabledInputs = %v, want 2 entries", loaded.EnabledInputs)
	}
	if len(loaded.Outputs) != 1 || loaded.Outputs[0].Type != "snapcast" {
		t.Errorf("Outputs = %+v, want one snapcast entry", loaded.Outputs)
	}
}

func TestZoneConfigStore_CorruptJSON_ReturnsDefault(t *testing.T) {
	dir := newTempDir(t)
	store := config.NewZoneConfigStore(dir)

	if err := os.MkdirAll(dir+"/zones", 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(dir+"/zones/zone-3.json", []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := store.LoadZoneConfig(3)
	if err != nil {
		t.Fatalf("LoadZoneConfig() error = %v", err)
	}
	if cfg.Volume.Max != 100 {
		t.Errorf("corrupt file should fall back to default, got Volume.Max=%d", cfg.Volume.Max)
	}
}

func TestStorage_FavoritesRoundTrip(t *testing.T) {
	store, err := config.NewStorage(newTempDir(t))
	if err != nil {
		t.Fatalf("NewStorage() error = %v", err)
	}
	defer store.Close()

	favs := []ports.FavoriteEntry{{Audiopath: "library:album:1", Title: "Kid A"}}
	if err := store.SaveFavorites(5, favs); err != nil {
		t.Fatalf("SaveFavorites() error = %v", err)
	}

	loaded, err := store.LoadFavorites(5)
	if err != nil {
		t.Fatalf("LoadFavorites() error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].Title != "Kid A" {
		t.Errorf("LoadFavorites() = %+v, want one Kid A entry", loaded)
	}
}

func TestStorage_PushRecent_DedupsAndCaps(t *testing.T) {
	store, err := config.NewStorage(newTempDir(t))
	if err != nil {
		t.Fatalf("NewStorage() error = %v", err)
	}
	defer store.Close()

	for i := 0; i < 7; i++ {
		entry := ports.RecentEntry{Audiopath: "library:track:dup", Title: "replayed", PlayedAt: time.Now().Unix()}
		if err := store.PushRecent(9, entry); err != nil {
			t.Fatalf("PushRecent() error = %v", err)
		}
	}
	// A distinct audiopath should not evict the dup via dedup, only via cap.
	for i := 0; i < 3; i++ {
		entry := ports.RecentEntry{Audiopath: "library:track:unique", Title: "new track"}
		if err := store.PushRecent(9, entry); err != nil {
			t.Fatalf("PushRecent() error = %v", err)
		}
	}

	recents, err := store.LoadRecents(9)
	if err != nil {
		t.Fatalf("LoadRecents() error = %v", err)
	}
	if len(recents) > 5 {
		t.Errorf("LoadRecents() len = %d, want <= 5", len(recents))
	}

	seen := make(map[string]int)
	for _, r := range recents {
		seen[r.Audiopath]++
	}
	for ap, count := range seen {
		if count > 1 {
			t.Errorf("audiopath %q appeared %d times, want at most once", ap, count)
		}
	}
}

func TestStorage_CustomRadioRoundTrip(t *testing.T) {
	store, err := config.NewStorage(newTempDir(t))
	if err != nil {
		t.Fatalf("NewStorage() error = %v", err)
	}
	defer store.Close()

	stations := []config.CustomRadioStation{{Name: "KEXP", URL: "https://kexp.stream/live"}}
	if err := store.SaveCustomRadioStations(stations); err != nil {
		t.Fatalf("SaveCustomRadioStations() error = %v", err)
	}
	got := store.CustomRadioStations()
	if len(got) != 1 || got[0].Name != "KEXP" {
		t.Errorf("CustomRadioStations() = %+v, want one KEXP entry", got)
	}
}
