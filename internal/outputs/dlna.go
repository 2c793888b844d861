package outputs

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/huin/goupnp"
	"github.com/huin/goupnp/dcps/av1"
	"github.com/ogglobi/audiolox/internal/engine"
	"github.com/ogglobi/audiolox/internal/models"
)

// dlnaMediaRendererService is the UPnP service type gmrender-resurrect
// advertises over SSDP; used to discover the renderer this output just
// spawned so it can be driven over AVTransport, grounded on the
// devPropertiesService lookup other_examples' dsymonds-sonos client uses
// for Sonos's own DeviceProperties service.
const dlnaMediaRendererService = "urn:schemas-upnp-org:device:MediaRenderer:1"

// dlnaDiscoverAttempts/dlnaDiscoverInterval bound how long Play waits for
// the just-spawned gmrender-resurrect process to announce itself over
// SSDP before giving up on issuing SetAVTransportURI.
const (
	dlnaDiscoverAttempts = 10
	dlnaDiscoverInterval = 500 * time.Millisecond
)

// DLNAOutput is a DLNA/UPnP audio renderer backed by a supervised
// gmrender-resurrect subprocess. Reworked from the teacher's DLNAStream —
// there it was an *input* stream (Connect/Disconnect to ALSA); here it is
// an *output* renderer (Play/Pause/Resume/Stop) since gmrender-resurrect
// already receives audio over the network rather than reading a local
// ALSA capture, so dropping Connect/Disconnect loses nothing. Once the
// subprocess announces itself over SSDP, it's driven the same way
// SonosOutput drives a Sonos player: AVTransport SOAP actions through
// goupnp's generic client.
type DLNAOutput struct {
	name   string
	device string // ALSA sink gmrender-resurrect writes to
	sup    *engine.Supervisor

	mu      sync.Mutex
	running bool
	dev     *goupnp.Device
}

// NewDLNAOutput creates a DLNA output driver.
func NewDLNAOutput(name, device string) *DLNAOutput {
	return &DLNAOutput{name: name, device: device}
}

func (d *DLNAOutput) Type() string { return "dlna" }

func (d *DLNAOutput) Play(ctx context.Context, session *models.PlaybackSession) error {
	d.mu.Lock()
	starting := !d.running
	if starting {
		deviceUUID := uuid.NewString()
		name, device := d.name, d.device
		d.sup = engine.NewSupervisor("dlna/"+d.name, func() *exec.Cmd {
			cmd := exec.Command(findBinary("gmrender-resurrect"),
				"-u", deviceUUID,
				"-f", name,
				"--gstout-audiosink=alsasink",
				"--gstout-audiodevice="+device,
			)
			cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
			return cmd
		})
		if err := d.sup.Start(ctx); err != nil {
			d.mu.Unlock()
			return fmt.Errorf("outputs/dlna: start: %w", err)
		}
		d.running = true
	}
	d.mu.Unlock()

	dev := d.dev
	if dev == nil {
		var err error
		dev, err = d.discover(ctx)
		if err != nil {
			return fmt.Errorf("outputs/dlna: discover: %w", err)
		}
		d.mu.Lock()
		d.dev = dev
		d.mu.Unlock()
	}

	if session == nil {
		return nil
	}
	var uri string
	for _, sd := range session.Streams {
		uri = sd.URL
		break
	}
	if uri == "" {
		return nil
	}
	if err := d.soap(ctx, "SetAVTransportURI", struct {
		InstanceID         string
		CurrentURI         string
		CurrentURIMetaData string
	}{InstanceID: "0", CurrentURI: uri}, &struct{}{}); err != nil {
		return fmt.Errorf("outputs/dlna: SetAVTransportURI: %w", err)
	}
	if err := d.soap(ctx, "Play", struct {
		InstanceID string
		Speed      string
	}{InstanceID: "0", Speed: "1"}, &struct{}{}); err != nil {
		return fmt.Errorf("outputs/dlna: Play: %w", err)
	}
	return nil
}

// discover polls SSDP for the gmrender-resurrect instance this output just
// spawned, matching by friendly name (the "-f name" argument passed at
// startup) since gmrender-resurrect's UUID isn't otherwise observable from
// the SOAP-client side. The announce happens asynchronously after the
// subprocess starts, so this retries on a bounded interval rather than
// discovering once.
func (d *DLNAOutput) discover(ctx context.Context) (*goupnp.Device, error) {
	for attempt := 0; attempt < dlnaDiscoverAttempts; attempt++ {
		mrds, err := goupnp.DiscoverDevices(dlnaMediaRendererService)
		if err == nil {
			for _, mrd := range mrds {
				if mrd.Err != nil {
					continue
				}
				dev := &mrd.Root.Device
				if strings.EqualFold(dev.FriendlyName, d.name) {
					return dev, nil
				}
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dlnaDiscoverInterval):
		}
	}
	return nil, fmt.Errorf("renderer %q not found via SSDP after %d attempts", d.name, dlnaDiscoverAttempts)
}

func (d *DLNAOutput) soap(ctx context.Context, action string, in, out any) error {
	d.mu.Lock()
	dev := d.dev
	d.mu.Unlock()
	if dev == nil {
		return fmt.Errorf("outputs/dlna: no renderer discovered yet")
	}
	svcs := dev.FindService(av1.URN_AVTransport_1)
	if len(svcs) == 0 {
		return fmt.Errorf("outputs/dlna: no AVTransport service on device")
	}
	return svcs[0].NewSOAPClient().PerformActionCtx(ctx, av1.URN_AVTransport_1, action, in, out)
}

func (d *DLNAOutput) Pause(ctx context.Context, session *models.PlaybackSession) error {
	if err := d.soap(ctx, "Pause", struct {
		InstanceID string
	}{InstanceID: "0"}, &struct{}{}); err != nil {
		slog.Warn("outputs/dlna: pause failed", "name", d.name, "err", err)
		return err
	}
	return nil
}

func (d *DLNAOutput) Resume(ctx context.Context, session *models.PlaybackSession) error {
	return d.Play(ctx, session)
}

func (d *DLNAOutput) Stop(ctx context.Context, session *models.PlaybackSession) error {
	if d.dev != nil {
		if err := d.soap(ctx, "Stop", struct {
			InstanceID string
		}{InstanceID: "0"}, &struct{}{}); err != nil {
			slog.Warn("outputs/dlna: stop transport failed", "name", d.name, "err", err)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.dev = nil
	if !d.running || d.sup == nil {
		return nil
	}
	err := d.sup.Stop()
	d.running = false
	return err
}

func (d *DLNAOutput) SetVolume(ctx context.Context, level int) error {
	slog.Debug("outputs/dlna: set volume (not implemented in v1)", "name", d.name, "level", level)
	return nil
}

func (d *DLNAOutput) Dispose(ctx context.Context) error {
	return d.Stop(ctx, nil)
}
