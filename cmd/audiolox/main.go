// Command audiolox is the zone-based audio playback daemon.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ogglobi/audiolox/internal/api"
	"github.com/ogglobi/audiolox/internal/auth"
	"github.com/ogglobi/audiolox/internal/config"
	"github.com/ogglobi/audiolox/internal/content"
	"github.com/ogglobi/audiolox/internal/engine"
	"github.com/ogglobi/audiolox/internal/groups"
	"github.com/ogglobi/audiolox/internal/health"
	"github.com/ogglobi/audiolox/internal/inputs"
	"github.com/ogglobi/audiolox/internal/models"
	"github.com/ogglobi/audiolox/internal/outputs"
	"github.com/ogglobi/audiolox/internal/playback"
	"github.com/ogglobi/audiolox/internal/queue"
	"github.com/ogglobi/audiolox/internal/router"
	"github.com/ogglobi/audiolox/internal/sysinfo"
	"github.com/ogglobi/audiolox/internal/zeroconf"
	"github.com/ogglobi/audiolox/internal/zonerepo"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "HTTP listen address")
		cfgDir     = flag.String("config-dir", "", "config directory (default: ~/.config/audiolox)")
		libraryDir = flag.String("library-dir", "", "local media library directory (default: <config-dir>/library)")
		coversDir  = flag.String("covers-dir", "", "ingested cover art directory (default: <config-dir>/covers)")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if *cfgDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgDir = filepath.Join(home, ".config", "audiolox")
	}
	if err := os.MkdirAll(*cfgDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", *cfgDir, "err", err)
		os.Exit(1)
	}
	if *libraryDir == "" {
		*libraryDir = filepath.Join(*cfgDir, "library")
	}
	if err := os.MkdirAll(*libraryDir, 0755); err != nil {
		slog.Error("cannot create library directory", "path", *libraryDir, "err", err)
		os.Exit(1)
	}
	if *coversDir == "" {
		*coversDir = filepath.Join(*cfgDir, "covers")
	}
	if err := os.MkdirAll(*coversDir, 0755); err != nil {
		slog.Error("cannot create covers directory", "path", *coversDir, "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	zoneCfgStore := config.NewZoneConfigStore(*cfgDir)
	storage, err := config.NewStorage(*cfgDir)
	if err != nil {
		slog.Error("storage initialization failed", "err", err)
		os.Exit(1)
	}
	defer storage.Close()

	authSvc, err := auth.NewService(*cfgDir)
	if err != nil {
		slog.Error("auth service initialization failed", "err", err)
		os.Exit(1)
	}
	defer authSvc.Close()

	library, err := content.NewLibrary(*libraryDir)
	if err != nil {
		slog.Error("library scan failed", "err", err)
		os.Exit(1)
	}
	slog.Info("library scanned", "tracks", library.TrackCount(), "root", *libraryDir)

	repo := zonerepo.New()
	qc := queue.New(repo)
	rt := router.New()
	eng := engine.NewProcessEngine()
	inputMgr := inputs.NewManager()
	hub := api.NewHub()
	covers := playback.NewCoverStore(*coversDir)

	snapcastBackend := groups.NewSnapcastBackend()
	sendspinBackend := groups.NewSendspinBackend()
	slimprotoBackend := groups.NewSlimProtoBackend()
	sonosBackend := groups.NewSonosBackend()
	airplayBackend := groups.NewAirPlayBackend()

	groupCoords := map[string]*groups.Coordinator{
		"snapcast":  groups.NewCoordinator(snapcastBackend, groups.NewTracker()),
		"sendspin":  groups.NewCoordinator(sendspinBackend, groups.NewTracker()),
		"slimproto": groups.NewCoordinator(slimprotoBackend, groups.NewTracker()),
		"sonos":     groups.NewCoordinator(sonosBackend, groups.NewTracker()),
		"airplay":   groups.NewCoordinator(airplayBackend, groups.NewTracker()),
	}

	coord := playback.New(repo, qc, eng, rt, library, inputMgr, hub, covers, groupCoords)

	if err := bootstrapZones(*cfgDir, repo, zoneCfgStore, inputMgr, coord, groupCoords, snapcastBackend, sendspinBackend, slimprotoBackend, airplayBackend); err != nil {
		slog.Error("zone bootstrap failed", "err", err)
		os.Exit(1)
	}

	hostname, _ := os.Hostname()
	ver := sysinfo.GetVersion(*cfgDir)

	monitor := health.NewMonitor(30*time.Second, func(online bool) {
		slog.Info("connectivity changed", "online", online)
	})
	go monitor.Run(ctx)
	info := sysinfo.Info{Hostname: hostname, Version: ver, Offline: !monitor.Online()}

	port := 8080
	if parts := strings.SplitN(*addr, ":", 2); len(parts) == 2 && parts[1] != "" {
		if p, err := strconv.Atoi(parts[1]); err == nil {
			port = p
		}
	}
	zc := zeroconf.New(hostname, port)
	go func() {
		if err := zc.Start(ctx); err != nil {
			slog.Warn("zeroconf failed", "err", err)
		}
	}()

	handlers := api.NewHandlers(repo, coord, storage, hub, info)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.NewRouter(handlers, authSvc),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("audiolox listening", "addr", *addr, "config", *cfgDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()

	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}

// bootstrapZones loads every persisted zone configuration, registers it in
// repo with its output drivers built, and binds any enabled input adapters
// so StartInputSession can activate them later.
func bootstrapZones(
	cfgDir string,
	repo *zonerepo.Repository,
	store *config.ZoneConfigStore,
	inputMgr *inputs.Manager,
	coord *playback.Coordinator,
	groupCoords map[string]*groups.Coordinator,
	snapcastBackend *groups.SnapcastBackend,
	sendspinBackend *groups.SendspinBackend,
	slimprotoBackend *groups.SlimProtoBackend,
	airplayBackend *groups.AirPlayBackend,
) error {
	ids, err := store.ZoneIDs()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		slog.Warn("no persisted zone configuration found; registering a single default zone")
		ids = []int{1}
	}

	for _, id := range ids {
		cfg, err := store.LoadZoneConfig(id)
		if err != nil {
			return err
		}

		var bindings []models.OutputBinding
		for _, def := range cfg.Outputs {
			drv, err := outputs.Build(def)
			if err != nil {
				slog.Warn("skipping output binding", "zone", id, "type", def.Type, "err", err)
				continue
			}
			bindings = append(bindings, models.OutputBinding{Type: def.Type, Driver: drv})

			switch out := drv.(type) {
			case *outputs.SnapcastOutput:
				snapcastBackend.RegisterZone(id, out)
				groupCoords["snapcast"].Register(id)
			case *outputs.SendspinOutput:
				sendspinBackend.RegisterZone(id, out)
				groupCoords["sendspin"].Register(id)
			case *outputs.SlimProtoOutput:
				slimprotoBackend.RegisterZone(id, out)
				groupCoords["slimproto"].Register(id)
			case *outputs.AirPlayOutput:
				airplayBackend.RegisterZone(id, out)
				groupCoords["airplay"].Register(id)
			}
		}

		repo.Register(models.ZoneContext{
			ID:      id,
			Name:    zoneName(id),
			Config:  cfg,
			Outputs: bindings,
		}, nil)

		for _, mode := range cfg.EnabledInputs {
			label := string(mode)
			if err := inputMgr.Bind(id, label, coord, inputs.ActivateOptions{
				ZoneID:    id,
				ConfigDir: filepath.Join(cfgDir, "inputs", strconv.Itoa(id)),
				PCMDevice: "hw:" + label + strconv.Itoa(id),
			}); err != nil {
				slog.Warn("skipping input binding", "zone", id, "label", label, "err", err)
			}
		}
	}
	return nil
}

func zoneName(id int) string {
	return "Zone " + strconv.Itoa(id)
}
