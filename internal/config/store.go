// Package config persists the zone configuration snapshots and the
// favorites/recents/custom-radio JSON blobs that back ports.ConfigPort and
// ports.StoragePort. It is ported from the teacher's debounced,
// atomic-write JSONStore (temp-file + rename) and from internal/auth's
// fsnotify reload pattern.
package config

import "time"

const (
	zoneConfigDirName = "zones"
	favoritesFileName = "favorites.json"
	recentsFileName   = "recents.json"
	customRadioFile   = "custom_radio.json"

	debounceDelay = 500 * time.Millisecond
	maxRecents    = 5
)
