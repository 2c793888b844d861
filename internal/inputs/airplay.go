package inputs

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/ogglobi/audiolox/internal/engine"
	"github.com/ogglobi/audiolox/internal/models"
)

// shairportConfTemplate is the shairport-sync config file format, carried
// over from the teacher's AirPlayStream with the MPRIS title renamed.
const shairportConfTemplate = `general = {
    name = "%s";
    port = %d;
    udp_port_base = %d;
};
alsa = {
    output_device = "%s";
};
mpris = {
    enabled = "yes";
    title = "audiolox - %s";
};
`

// AirPlayInput receives AirPlay audio via a supervised shairport-sync
// subprocess and polls its MPRIS D-Bus interface for metadata. Grounded
// near-verbatim on the teacher's AirPlayStream, generalized from an
// onChange field to the shared Callbacks surface and from a hardware vsrc
// to opts.PCMDevice.
type AirPlayInput struct {
	zoneID int
	name   string
	sup    *engine.Supervisor
	cb     Callbacks

	monCancel context.CancelFunc
	monWg     sync.WaitGroup
}

// NewAirPlayInput creates an AirPlay input adapter reporting through cb.
func NewAirPlayInput(cb Callbacks) *AirPlayInput {
	return &AirPlayInput{cb: cb}
}

func (a *AirPlayInput) Label() string { return "airplay" }

// Activate writes the shairport-sync config and starts the supervised
// subprocess, then begins MPRIS metadata polling.
func (a *AirPlayInput) Activate(ctx context.Context, opts ActivateOptions) error {
	slog.Info("inputs/airplay: activating", "zone", opts.ZoneID, "name", opts.Name)
	a.zoneID = opts.ZoneID
	a.name = opts.Name

	port := 5100 + 100*opts.ZoneID
	udpBase := 6101 + 100*opts.ZoneID
	confPath := opts.ConfigDir + "/shairport.conf"
	cfgContent := fmt.Sprintf(shairportConfTemplate, opts.Name, port, udpBase, opts.PCMDevice, opts.Name)
	if err := writeFileAtomic(confPath, []byte(cfgContent)); err != nil {
		return fmt.Errorf("inputs/airplay: write shairport.conf: %w", err)
	}

	a.sup = engine.NewSupervisor(fmt.Sprintf("airplay-input/%d", opts.ZoneID), func() *exec.Cmd {
		cmd := exec.Command(findBinary("shairport-sync", opts.ConfigDir), "-c", confPath)
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		return cmd
	})
	if err := a.sup.Start(ctx); err != nil {
		return fmt.Errorf("inputs/airplay: supervisor start: %w", err)
	}

	monCtx, cancel := context.WithCancel(context.Background())
	a.monCancel = cancel
	a.monWg.Add(1)
	go a.pollMPRIS(monCtx)
	return nil
}

func (a *AirPlayInput) Deactivate(ctx context.Context) error {
	slog.Info("inputs/airplay: deactivating", "zone", a.zoneID)
	if a.monCancel != nil {
		a.monCancel()
	}
	a.monWg.Wait()
	if a.sup != nil {
		return a.sup.Stop()
	}
	return nil
}

// SendCmd is a no-op: shairport-sync exposes no remote-control surface
// beyond MPRIS metadata, which this adapter only reads.
func (a *AirPlayInput) SendCmd(_ context.Context, cmd string) error {
	slog.Debug("inputs/airplay: command ignored", "zone", a.zoneID, "cmd", cmd)
	return nil
}

func (a *AirPlayInput) pollMPRIS(ctx context.Context) {
	defer a.monWg.Done()

	select {
	case <-ctx.Done():
		return
	case <-time.After(5 * time.Second):
	}

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.pollOnce()
		}
	}
}

func (a *AirPlayInput) pollOnce() {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		slog.Debug("inputs/airplay: dbus connect failed", "err", err)
		return
	}
	defer conn.Close()

	obj := conn.Object("org.mpris.MediaPlayer2.shairport_sync", "/org/mpris/MediaPlayer2")

	playbackStatus, err := obj.GetProperty("org.mpris.MediaPlayer2.Player.PlaybackStatus")
	if err != nil {
		a.cb.PausePlayback(a.zoneID, a.Label())
		return
	}

	metadataVariant, err := obj.GetProperty("org.mpris.MediaPlayer2.Player.Metadata")
	if err != nil {
		return
	}
	metadata, ok := metadataVariant.Value().(map[string]dbus.Variant)
	if !ok {
		return
	}

	partial := models.TrackMetadata{}
	if title, ok := metadata["xesam:title"]; ok {
		if s, ok := title.Value().(string); ok {
			partial.Title = s
		}
	}
	if artist, ok := metadata["xesam:artist"]; ok {
		if arr, ok := artist.Value().([]string); ok && len(arr) > 0 {
			partial.Artist = arr[0]
		}
	}
	if album, ok := metadata["xesam:album"]; ok {
		if s, ok := album.Value().(string); ok {
			partial.Album = s
		}
	}
	if art, ok := metadata["mpris:artUrl"]; ok {
		if s, ok := art.Value().(string); ok {
			partial.Cover = s
		}
	}
	a.cb.UpdateMetadata(a.zoneID, a.Label(), partial)

	switch fmt.Sprint(playbackStatus.Value()) {
	case "Playing":
		a.cb.ResumePlayback(a.zoneID, a.Label())
	case "Paused":
		a.cb.PausePlayback(a.zoneID, a.Label())
	case "Stopped":
		a.cb.StopPlayback(a.zoneID, a.Label())
	}
}
