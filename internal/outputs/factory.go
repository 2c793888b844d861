package outputs

import (
	"fmt"
	"strings"

	"github.com/ogglobi/audiolox/internal/models"
)

// Build constructs a ZoneOutput driver from a configured OutputDef (spec §3
// "Immutable config snapshot" — Outputs). Drivers that need live network
// discovery rather than static config (Sonos device handles from SSDP,
// Spotify Connect offload tokens from an OAuth flow) are not buildable here;
// those are wired by a discovery loop or an input adapter instead, which is
// why Build returns an error naming the caller that should own them rather
// than silently skipping the zone.
func Build(def models.OutputDef) (models.ZoneOutput, error) {
	cfg := def.Config
	switch strings.ToLower(def.Type) {
	case "airplay":
		return NewAirPlayOutput(def.Name, cfg["target"]), nil
	case "cast", "chromecast":
		return NewCastOutput(cfg["addr"]), nil
	case "dlna":
		return NewDLNAOutput(def.Name, cfg["device"]), nil
	case "musicassistant":
		return NewMusicAssistantOutput(cfg["base_url"], cfg["player_id"]), nil
	case "sendspin":
		return NewSendspinOutput(cfg["addr"]), nil
	case "slimproto", "squeezelite":
		return NewSlimProtoOutput(def.Name, cfg["server"]), nil
	case "snapcast":
		var clientIDs []string
		if raw := cfg["client_ids"]; raw != "" {
			clientIDs = strings.Split(raw, ",")
		}
		return NewSnapcastOutput(cfg["addr"], cfg["stream_id"], clientIDs), nil
	case "sonos":
		return nil, fmt.Errorf("outputs: sonos requires a discovered *goupnp.Device, not static config — wire via a discovery loop calling NewSonosOutput directly")
	case "spotifyoffload":
		return nil, fmt.Errorf("outputs: spotifyoffload requires a live OAuth token function — wire via internal/inputs, not Build")
	default:
		return nil, fmt.Errorf("outputs: unknown output type %q", def.Type)
	}
}
