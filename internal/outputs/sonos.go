package outputs

import (
	"context"
	"fmt"
	"sync"

	"github.com/huin/goupnp"
	"github.com/huin/goupnp/dcps/av1"
	"github.com/ogglobi/audiolox/internal/models"
)

// SonosOutput controls a Sonos player via UPnP/AVTransport SOAP actions.
// Ported from other_examples' dsymonds-sonos client: rather than the
// generated av1 client wrappers, that file drives AVTransport/
// RenderingControl directly through goupnp's generic SOAP client
// (dev.FindService(serviceType).NewSOAPClient().PerformActionCtx with a
// plain argument struct) — the same pattern is used here.
type SonosOutput struct {
	dev *goupnp.Device

	mu              sync.Mutex
	cachedMembers   map[string]bool // diff-style membership cache (spec §4.5)
	coordinatorUUID string
}

// NewSonosOutput wraps an already-discovered Sonos device. This package
// does no Sonos device discovery or GetZoneAttributes lookup; grouping is
// done by internal/groups's SonosBackend through JoinGroup/LeaveGroup.
func NewSonosOutput(dev *goupnp.Device) *SonosOutput {
	return &SonosOutput{dev: dev, cachedMembers: make(map[string]bool)}
}

func (s *SonosOutput) Type() string { return "sonos" }

func (s *SonosOutput) soap(ctx context.Context, serviceType, action string, in, out any) error {
	svcs := s.dev.FindService(serviceType)
	if len(svcs) == 0 {
		return fmt.Errorf("outputs/sonos: no %s service on device", serviceType)
	}
	return svcs[0].NewSOAPClient().PerformActionCtx(ctx, serviceType, action, in, out)
}

func (s *SonosOutput) Play(ctx context.Context, session *models.PlaybackSession) error {
	if session != nil {
		var uri string
		for _, sd := range session.Streams {
			uri = sd.URL
			break
		}
		if uri != "" {
			err := s.soap(ctx, av1.URN_AVTransport_1, "SetAVTransportURI", struct {
				InstanceID         string
				CurrentURI         string
				CurrentURIMetaData string
			}{InstanceID: "0", CurrentURI: uri}, &struct{}{})
			if err != nil {
				return fmt.Errorf("outputs/sonos: SetAVTransportURI: %w", err)
			}
		}
	}
	err := s.soap(ctx, av1.URN_AVTransport_1, "Play", struct {
		InstanceID string
		Speed      string
	}{InstanceID: "0", Speed: "1"}, &struct{}{})
	if err != nil {
		return fmt.Errorf("outputs/sonos: Play: %w", err)
	}
	return nil
}

func (s *SonosOutput) Pause(ctx context.Context, session *models.PlaybackSession) error {
	err := s.soap(ctx, av1.URN_AVTransport_1, "Pause", struct {
		InstanceID string
	}{InstanceID: "0"}, &struct{}{})
	if err != nil {
		return fmt.Errorf("outputs/sonos: Pause: %w", err)
	}
	return nil
}

func (s *SonosOutput) Resume(ctx context.Context, session *models.PlaybackSession) error {
	return s.Play(ctx, session)
}

func (s *SonosOutput) Stop(ctx context.Context, session *models.PlaybackSession) error {
	err := s.soap(ctx, av1.URN_AVTransport_1, "Stop", struct {
		InstanceID string
	}{InstanceID: "0"}, &struct{}{})
	if err != nil {
		return fmt.Errorf("outputs/sonos: Stop: %w", err)
	}
	return nil
}

func (s *SonosOutput) SetVolume(ctx context.Context, level int) error {
	err := s.soap(ctx, "urn:schemas-upnp-org:service:RenderingControl:1", "SetVolume", struct {
		InstanceID    string
		Channel       string
		DesiredVolume string
	}{InstanceID: "0", Channel: "Master", DesiredVolume: fmt.Sprint(level)}, &struct{}{})
	if err != nil {
		return fmt.Errorf("outputs/sonos: SetVolume: %w", err)
	}
	return nil
}

func (s *SonosOutput) Dispose(ctx context.Context) error { return nil }

// JoinGroup links this player to the leader's Sonos group via
// SetAVTransportURI("x-rincon:<leaderUUID>"), the standard Sonos grouping
// mechanism. LeaveGroup calls BecomeCoordinatorOfStandaloneGroup.
func (s *SonosOutput) JoinGroup(ctx context.Context, leaderUUID string) error {
	err := s.soap(ctx, av1.URN_AVTransport_1, "SetAVTransportURI", struct {
		InstanceID         string
		CurrentURI         string
		CurrentURIMetaData string
	}{InstanceID: "0", CurrentURI: "x-rincon:" + leaderUUID}, &struct{}{})
	if err != nil {
		return fmt.Errorf("outputs/sonos: join group: %w", err)
	}
	s.mu.Lock()
	s.coordinatorUUID = leaderUUID
	s.mu.Unlock()
	return nil
}

func (s *SonosOutput) LeaveGroup(ctx context.Context) error {
	err := s.soap(ctx, av1.URN_AVTransport_1, "BecomeCoordinatorOfStandaloneGroup", struct {
		InstanceID string
	}{InstanceID: "0"}, &struct{}{})
	if err != nil {
		return fmt.Errorf("outputs/sonos: leave group: %w", err)
	}
	s.mu.Lock()
	s.coordinatorUUID = ""
	s.mu.Unlock()
	return nil
}

// DiffMembers compares the observed member UUID set against the cached
// one and returns additions/removals — the diff-style recomputation the
// Sonos group coordinator applies on each onGroupChanged event, grounded
// on the teacher's updateGroupAggregates idiom.
func (s *SonosOutput) DiffMembers(observed []string) (added, removed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	observedSet := make(map[string]bool, len(observed))
	for _, m := range observed {
		observedSet[m] = true
		if !s.cachedMembers[m] {
			added = append(added, m)
		}
	}
	for m := range s.cachedMembers {
		if !observedSet[m] {
			removed = append(removed, m)
		}
	}
	s.cachedMembers = observedSet
	return added, removed
}
