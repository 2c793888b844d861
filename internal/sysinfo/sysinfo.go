// Package sysinfo provides system identity information for the admin API
// and Notifier "system" event, trimmed from the teacher's internal/identity
// (hostname/version/serial) down to the parts that still apply once the
// EEPROM-backed serial number is gone (§1: no physical amplifier board).
package sysinfo

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DefaultVersion is the fallback version string when metadata.json is not found.
const DefaultVersion = "0.1.0-go"

// Info holds system identity information surfaced by the admin API.
type Info struct {
	Hostname string
	Version  string
	Offline  bool // populated by internal/health
}

// GetHostname returns the system hostname.
func GetHostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "audiolox"
	}
	return h
}

// GetVersion reads the version from <configDir>/metadata.json, falling back
// to DefaultVersion if the file is missing or unreadable.
func GetVersion(configDir string) string {
	data, err := os.ReadFile(filepath.Join(configDir, "metadata.json"))
	if err != nil {
		return DefaultVersion
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return DefaultVersion
	}

	if v, ok := meta["version"].(string); ok && v != "" {
		return v
	}
	return DefaultVersion
}
