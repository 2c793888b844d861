package models

import (
	"encoding/base64"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Audiopath is the parsed form of the §6 grammar:
//
//	audiopath := provider ':' type ':' id [ ':' subfield ... ]
//	provider  := 'spotify' | 'spotify@' accountId | 'tunein' | 'radio' |
//	             'library' | 'applemusic[@user]' | 'deezer[@user]' |
//	             'tidal[@user]' | 'musicassistant[@user]' | 'linein' |
//	             'airplay' | … | http(s) URL
type Audiopath struct {
	Raw       string
	Provider  string // bare provider tag, account suffix stripped
	AccountID string // from "provider@accountId"; "" if none
	Type      string
	ID        string
	Subfields []string
	IsURL     bool
}

var maxBase64Depth = 4

// ParseAudiopath decodes a raw audiopath string, recursively unwrapping
// base64-wrapped forms ("…b64_<base64>") up to maxBase64Depth, then splits
// it on ':' per the grammar. An http(s) URL is returned with IsURL=true and
// Provider set to the full URL.
func ParseAudiopath(raw string) Audiopath {
	decoded := decodeBase64Wrapped(raw, 0)

	if strings.HasPrefix(decoded, "http://") || strings.HasPrefix(decoded, "https://") {
		return Audiopath{Raw: decoded, Provider: decoded, IsURL: true}
	}

	parts := strings.Split(decoded, ":")
	ap := Audiopath{Raw: decoded}
	if len(parts) > 0 {
		provider, account := splitAccount(parts[0])
		ap.Provider = provider
		ap.AccountID = account
	}
	if len(parts) > 1 {
		ap.Type = parts[1]
	}
	if len(parts) > 2 {
		ap.ID = parts[2]
	}
	if len(parts) > 3 {
		ap.Subfields = parts[3:]
	}
	return ap
}

// splitAccount splits "provider@accountId" into its parts; returns
// (provider, "") if there is no '@'.
func splitAccount(providerField string) (string, string) {
	if i := strings.IndexByte(providerField, '@'); i >= 0 {
		return providerField[:i], providerField[i+1:]
	}
	return providerField, ""
}

const base64WrappedMarker = "b64_"

// decodeBase64Wrapped recursively unwraps "…b64_<base64>" suffixes, bounded
// by maxBase64Depth to guard against malformed or adversarial input.
func decodeBase64Wrapped(s string, depth int) string {
	if depth >= maxBase64Depth {
		return s
	}
	idx := strings.Index(s, base64WrappedMarker)
	if idx < 0 {
		return s
	}
	payload := s[idx+len(base64WrappedMarker):]
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Try URL-safe and unpadded variants before giving up.
		data, err = base64.RawURLEncoding.DecodeString(payload)
		if err != nil {
			return s
		}
	}
	return decodeBase64Wrapped(string(data), depth+1)
}

// DecodePercent percent-decodes a URI component, accepting the input
// unchanged if it isn't validly percent-encoded.
func DecodePercent(raw string) string {
	if decoded, err := url.QueryUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// ParentContext conveys queue context appended to a URI as
// "…/parentpath/<parent>/<index>[/noshuffle]" (spec §6).
type ParentContext struct {
	ParentURI  string
	StartItem  string
	StartIndex int
	HasIndex   bool
	NoShuffle  bool
}

const parentPathSeparator = "/parentpath/"

var startIndexPattern = regexp.MustCompile(`^\d+$`)

// SplitParentPath extracts an optional ParentContext from a raw request
// URI, per spec §4.1 "Parent-context parsing":
//
//	split the raw URI on '/parentpath/'; strip known trailing control
//	tokens ('/noshuffle', opaque base64 tails); the last '/' segment
//	before control tokens is the numeric start-index when it matches
//	'^\d+$'; the remainder is the parent URI; the pre-separator prefix is
//	the explicit start item.
func SplitParentPath(raw string) (startItem string, parent *ParentContext) {
	idx := strings.Index(raw, parentPathSeparator)
	if idx < 0 {
		return raw, nil
	}

	startItem = raw[:idx]
	rest := raw[idx+len(parentPathSeparator):]

	pc := &ParentContext{}

	if strings.HasSuffix(rest, "/noshuffle") {
		pc.NoShuffle = true
		rest = strings.TrimSuffix(rest, "/noshuffle")
	}
	// Strip an opaque base64 tail segment (one that isn't a plain integer
	// and isn't the parent path itself) — conservative: only strip a
	// trailing segment that decodes as base64 and isn't numeric.
	if segs := strings.Split(rest, "/"); len(segs) > 1 {
		last := segs[len(segs)-1]
		if !startIndexPattern.MatchString(last) {
			if _, err := base64.StdEncoding.DecodeString(last); err == nil {
				rest = strings.Join(segs[:len(segs)-1], "/")
			}
		}
	}

	segs := strings.Split(rest, "/")
	if n := len(segs); n > 0 && startIndexPattern.MatchString(segs[n-1]) {
		idx, _ := strconv.Atoi(segs[n-1])
		pc.StartIndex = idx
		pc.HasIndex = true
		pc.ParentURI = strings.Join(segs[:n-1], "/")
	} else {
		pc.ParentURI = rest
	}
	pc.StartItem = startItem

	return startItem, pc
}

// remoteQueueProviders is the set of bare provider tags that own a remote
// queue, used for queue-authority resolution (spec §4.1 "Queue authority
// resolution").
var remoteQueueProviders = map[string]bool{
	"spotify":        true,
	"musicassistant": true,
	"applemusic":     true,
	"deezer":         true,
	"tidal":          true,
}

// HasRemoteQueue reports whether a provider tag exposes a remote queue
// that the core should mirror rather than drive (spec §3 invariant 1).
func HasRemoteQueue(provider string) bool {
	return remoteQueueProviders[provider]
}

// radioProviders are provider tags that always classify as radio.
var radioProviders = map[string]bool{
	"tunein": true,
	"radio":  true,
}

// IsRadioAudiopath reports whether an audiopath's provider/type marks it
// as radio content (station-style, no seekable timeline).
func IsRadioAudiopath(ap Audiopath) bool {
	if radioProviders[ap.Provider] {
		return true
	}
	return ap.Type == "station"
}

// ClassifyRadio implements spec §4.1 step 4: true if the audiopath detects
// as radio, OR the URI is http(s) and incoming metadata has no positive
// duration.
func ClassifyRadio(ap Audiopath, metaDuration float64, hasMetadata bool) bool {
	if IsRadioAudiopath(ap) {
		return true
	}
	if ap.IsURL && hasMetadata && metaDuration <= 0 {
		return true
	}
	return false
}

// SanitizeStationLabel strips a station label that is uninformative: equal
// to the audiopath, starting with a provider prefix, or looking like a
// bare track id (spec §4.1 "Radio classification").
func SanitizeStationLabel(station, audiopath string) string {
	if station == "" {
		return ""
	}
	if station == audiopath {
		return ""
	}
	for provider := range radioProviders {
		if strings.HasPrefix(station, provider+":") {
			return ""
		}
	}
	if looksLikeBareTrackID(station) {
		return ""
	}
	return station
}

var bareTrackIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8,}$`)

func looksLikeBareTrackID(s string) bool {
	return bareTrackIDPattern.MatchString(s)
}
