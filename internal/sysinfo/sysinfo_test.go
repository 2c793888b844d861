package sysinfo_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ogglobi/audiolox/internal/sysinfo"
)

func TestGetVersion_Fallback(t *testing.T) {
	dir := t.TempDir()
	got := sysinfo.GetVersion(dir)
	if got != sysinfo.DefaultVersion {
		t.Errorf("GetVersion(%q) = %q; want %q", dir, got, sysinfo.DefaultVersion)
	}
}

func TestGetVersion_FromFile(t *testing.T) {
	dir := t.TempDir()
	want := "0.2.0"
	meta := map[string]interface{}{"version": want}
	data, _ := json.Marshal(meta)
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), data, 0644); err != nil {
		t.Fatal(err)
	}

	got := sysinfo.GetVersion(dir)
	if got != want {
		t.Errorf("GetVersion(%q) = %q; want %q", dir, got, want)
	}
}

func TestGetVersion_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	got := sysinfo.GetVersion(dir)
	if got != sysinfo.DefaultVersion {
		t.Errorf("GetVersion with invalid JSON = %q; want %q", got, sysinfo.DefaultVersion)
	}
}

func TestGetHostname(t *testing.T) {
	h := sysinfo.GetHostname()
	if h == "" {
		t.Error("GetHostname() returned empty string")
	}
}
