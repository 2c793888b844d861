package outputs

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ogglobi/audiolox/internal/engine"
	"github.com/ogglobi/audiolox/internal/models"
)

// SlimProtoOutput renders via a supervised squeezelite subprocess
// connected to a Logitech Media Server, ported near-verbatim from the
// teacher's LMSStream — the closest 1:1 match in the whole corpus for a
// persistent network-player renderer.
type SlimProtoOutput struct {
	name   string
	server string // LMS server IP, empty = auto-discover
	sup    *engine.Supervisor

	mu      sync.Mutex
	running bool

	readyTimeout time.Duration // ready-timeout barrier for grouped starts (§4.4)
}

// NewSlimProtoOutput creates a SlimProto output driver. server is the LMS
// host; empty auto-discovers one.
func NewSlimProtoOutput(name, server string) *SlimProtoOutput {
	return &SlimProtoOutput{name: name, server: server, readyTimeout: 10 * time.Second}
}

func (s *SlimProtoOutput) Type() string { return "slimproto" }

// macAddress derives a stable MAC from the player name, matching the
// teacher's lmsMACAddress helper so squeezelite re-identifies as the same
// player across restarts.
func macAddress(name string) string {
	hash := md5.Sum([]byte(name))
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		hash[0], hash[1], hash[2], hash[3], hash[4], hash[5])
}

func discoverLMSServer() string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, findBinary("find_lms_server")).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func (s *SlimProtoOutput) Play(ctx context.Context, session *models.PlaybackSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	server := s.server
	if server == "" {
		server = discoverLMSServer()
	}
	mac := macAddress(s.name)
	name := s.name

	s.sup = engine.NewSupervisor("slimproto/"+s.name, func() *exec.Cmd {
		args := []string{"-n", name, "-m", mac}
		if server != "" {
			args = append(args, "-s", server)
		}
		cmd := exec.Command(findBinary("squeezelite"), args...)
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		return cmd
	})
	if err := s.sup.Start(ctx); err != nil {
		return fmt.Errorf("outputs/slimproto: start: %w", err)
	}
	s.running = true
	return nil
}

func (s *SlimProtoOutput) Pause(ctx context.Context, session *models.PlaybackSession) error {
	slog.Debug("outputs/slimproto: pause command (not relayed; squeezelite driven by LMS)", "name", s.name)
	return nil
}

func (s *SlimProtoOutput) Resume(ctx context.Context, session *models.PlaybackSession) error {
	return s.Play(ctx, session)
}

func (s *SlimProtoOutput) Stop(ctx context.Context, session *models.PlaybackSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.sup == nil {
		return nil
	}
	err := s.sup.Stop()
	s.running = false
	return err
}

func (s *SlimProtoOutput) SetVolume(ctx context.Context, level int) error {
	slog.Debug("outputs/slimproto: set volume (LMS-managed in v1)", "name", s.name, "level", level)
	return nil
}

func (s *SlimProtoOutput) Dispose(ctx context.Context) error {
	return s.Stop(ctx, nil)
}

// ReadyTimeoutBarrier returns this player's configured ready-timeout.
// internal/groups's SlimProtoBackend reports the widest of these as its
// ReadyTimeout; no buffer-ready wait or unpauseAt is issued with it.
func (s *SlimProtoOutput) ReadyTimeoutBarrier() time.Duration { return s.readyTimeout }
