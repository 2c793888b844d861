package models_test

import (
	"encoding/base64"
	"testing"

	"github.com/ogglobi/audiolox/internal/models"
)

func TestParseAudiopath(t *testing.T) {
	tests := []struct {
		raw      string
		provider string
		account  string
		typ      string
		id       string
	}{
		{"spotify:track:abc123", "spotify", "", "track", "abc123"},
		{"spotify@user1:track:abc123", "spotify", "user1", "track", "abc123"},
		{"tunein:station:s1234", "tunein", "", "station", "s1234"},
		{"library:track:42", "library", "", "track", "42"},
		{"musicassistant@home:playlist:xyz", "musicassistant", "home", "playlist", "xyz"},
	}
	for _, tc := range tests {
		ap := models.ParseAudiopath(tc.raw)
		if ap.Provider != tc.provider {
			t.Errorf("ParseAudiopath(%q).Provider = %q, want %q", tc.raw, ap.Provider, tc.provider)
		}
		if ap.AccountID != tc.account {
			t.Errorf("ParseAudiopath(%q).AccountID = %q, want %q", tc.raw, ap.AccountID, tc.account)
		}
		if ap.Type != tc.typ {
			t.Errorf("ParseAudiopath(%q).Type = %q, want %q", tc.raw, ap.Type, tc.typ)
		}
		if ap.ID != tc.id {
			t.Errorf("ParseAudiopath(%q).ID = %q, want %q", tc.raw, ap.ID, tc.id)
		}
	}
}

func TestParseAudiopathURL(t *testing.T) {
	ap := models.ParseAudiopath("http://example.com/stream.mp3")
	if !ap.IsURL {
		t.Error("expected IsURL = true for http:// audiopath")
	}
	if ap.Provider != "http://example.com/stream.mp3" {
		t.Errorf("Provider = %q, want full URL", ap.Provider)
	}
}

func TestParseAudiopathBase64Wrapped(t *testing.T) {
	inner := "spotify:track:wrapped123"
	wrapped := "b64_" + base64.StdEncoding.EncodeToString([]byte(inner))

	ap := models.ParseAudiopath(wrapped)
	if ap.Provider != "spotify" || ap.Type != "track" || ap.ID != "wrapped123" {
		t.Errorf("ParseAudiopath(wrapped) = %+v, want spotify:track:wrapped123", ap)
	}
}

func TestParseAudiopathBase64WrappedNested(t *testing.T) {
	inner := "spotify:track:doublewrapped"
	once := "b64_" + base64.StdEncoding.EncodeToString([]byte(inner))
	twice := "b64_" + base64.StdEncoding.EncodeToString([]byte(once))

	ap := models.ParseAudiopath(twice)
	if ap.Provider != "spotify" || ap.ID != "doublewrapped" {
		t.Errorf("ParseAudiopath(doubly wrapped) = %+v, want spotify:track:doublewrapped", ap)
	}
}

func TestParseAudiopathBase64WrappedMalformedStopsCleanly(t *testing.T) {
	malformed := "b64_not-valid-base64!!!"
	ap := models.ParseAudiopath(malformed)
	if ap.Raw != malformed {
		t.Errorf("malformed base64 should be left unchanged, got %q", ap.Raw)
	}
}

func TestSplitParentPathNoSeparator(t *testing.T) {
	item, parent := models.SplitParentPath("spotify:track:abc")
	if item != "spotify:track:abc" {
		t.Errorf("startItem = %q, want unchanged raw", item)
	}
	if parent != nil {
		t.Error("expected nil ParentContext when no /parentpath/ separator present")
	}
}

func TestSplitParentPathWithIndex(t *testing.T) {
	raw := "spotify:track:abc/parentpath/spotify:playlist:xyz/7"
	item, parent := models.SplitParentPath(raw)
	if item != "spotify:track:abc" {
		t.Errorf("startItem = %q, want spotify:track:abc", item)
	}
	if parent == nil {
		t.Fatal("expected non-nil ParentContext")
	}
	if parent.ParentURI != "spotify:playlist:xyz" {
		t.Errorf("ParentURI = %q, want spotify:playlist:xyz", parent.ParentURI)
	}
	if !parent.HasIndex || parent.StartIndex != 7 {
		t.Errorf("StartIndex = %d (HasIndex=%v), want 7", parent.StartIndex, parent.HasIndex)
	}
	if parent.NoShuffle {
		t.Error("NoShuffle should be false")
	}
}

func TestSplitParentPathNoShuffle(t *testing.T) {
	raw := "spotify:track:abc/parentpath/spotify:playlist:xyz/3/noshuffle"
	_, parent := models.SplitParentPath(raw)
	if parent == nil {
		t.Fatal("expected non-nil ParentContext")
	}
	if !parent.NoShuffle {
		t.Error("expected NoShuffle = true")
	}
	if parent.ParentURI != "spotify:playlist:xyz" {
		t.Errorf("ParentURI = %q, want spotify:playlist:xyz", parent.ParentURI)
	}
	if !parent.HasIndex || parent.StartIndex != 3 {
		t.Errorf("StartIndex = %d (HasIndex=%v), want 3", parent.StartIndex, parent.HasIndex)
	}
}

func TestSplitParentPathNoTrailingIndex(t *testing.T) {
	raw := "spotify:track:abc/parentpath/spotify:playlist:xyz"
	_, parent := models.SplitParentPath(raw)
	if parent == nil {
		t.Fatal("expected non-nil ParentContext")
	}
	if parent.HasIndex {
		t.Error("expected HasIndex = false when no trailing numeric segment")
	}
	if parent.ParentURI != "spotify:playlist:xyz" {
		t.Errorf("ParentURI = %q, want spotify:playlist:xyz", parent.ParentURI)
	}
}

func TestIsRadioAudiopath(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"tunein:station:s1", true},
		{"radio:station:s2", true},
		{"spotify:station:abc", true},
		{"spotify:track:abc", false},
		{"library:track:42", false},
	}
	for _, tc := range tests {
		ap := models.ParseAudiopath(tc.raw)
		if got := models.IsRadioAudiopath(ap); got != tc.want {
			t.Errorf("IsRadioAudiopath(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestClassifyRadio(t *testing.T) {
	urlAp := models.ParseAudiopath("http://example.com/stream.mp3")
	if !models.ClassifyRadio(urlAp, 0, true) {
		t.Error("expected http URL with zero-duration metadata to classify as radio")
	}
	if models.ClassifyRadio(urlAp, 180, true) {
		t.Error("expected http URL with positive-duration metadata to not classify as radio")
	}

	trackAp := models.ParseAudiopath("library:track:42")
	if models.ClassifyRadio(trackAp, 0, true) {
		t.Error("library track should never classify as radio regardless of duration")
	}
}

func TestSanitizeStationLabel(t *testing.T) {
	tests := []struct {
		station   string
		audiopath string
		want      string
	}{
		{"", "spotify:track:abc", ""},
		{"spotify:track:abc", "spotify:track:abc", ""},
		{"tunein:station:abc", "library:track:x", ""},
		{"deadbeefcafe01", "library:track:x", ""},
		{"KEXP 90.3 FM", "tunein:station:kexp", "KEXP 90.3 FM"},
	}
	for _, tc := range tests {
		if got := models.SanitizeStationLabel(tc.station, tc.audiopath); got != tc.want {
			t.Errorf("SanitizeStationLabel(%q, %q) = %q, want %q", tc.station, tc.audiopath, got, tc.want)
		}
	}
}

func TestHasRemoteQueue(t *testing.T) {
	if !models.HasRemoteQueue("spotify") {
		t.Error("expected spotify to have a remote queue")
	}
	if models.HasRemoteQueue("library") {
		t.Error("expected library to not have a remote queue")
	}
}
