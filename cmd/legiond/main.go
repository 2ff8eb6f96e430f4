// Command legiond is the coordination core's demonstration harness: it
// wires the router, bus, claim resolver, death-safety tracker, and the
// three domain coordinators (arena, battleground, dungeon) together, then
// drives them with a synthetic event feed standing in for a real game
// simulator. It exists so the module can be exercised end-to-end without a
// live client connection.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/ashgrove/legion/internal/arena"
	"github.com/ashgrove/legion/internal/battleground"
	"github.com/ashgrove/legion/internal/claims"
	"github.com/ashgrove/legion/internal/config"
	"github.com/ashgrove/legion/internal/deathsafety"
	"github.com/ashgrove/legion/internal/dungeon"
	"github.com/ashgrove/legion/internal/maintenance"
	"github.com/ashgrove/legion/internal/router"
	"github.com/ashgrove/legion/internal/spectator"
	"github.com/ashgrove/legion/internal/swarmbus"
	"github.com/ashgrove/legion/internal/telemetry"
)

// Version is set via ldflags at build time: -ldflags "-X main.Version=..."
var Version = "v0.1-dev"

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage of %s:

  %s                    Run the demo with the spectator TUI (default in a terminal)
  %s -headless          Run the demo headless, logging to stdout and serving
                        the spectator websocket feed instead of the TUI
  %s -bind :8090        Change the spectator feed's listen address (headless only)

FLAGS:
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
	flag.PrintDefaults()
}

func main() {
	interactive := isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("LEGIOND_NO_TUI") == ""

	headless := flag.Bool("headless", false, "run without the spectator TUI, serving the websocket feed instead")
	homeDir := flag.String("home", defaultHomeDir(), "directory for logs and config.yaml")
	bindAddr := flag.String("bind", ":8090", "listen address for the spectator websocket feed (headless only)")
	flag.Usage = printUsage
	flag.Parse()

	if *headless {
		interactive = false
	}
	quietLogs := interactive

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(*homeDir, 0o755); err != nil {
		fatalStartup(nil, err)
	}

	cfg := config.Load(filepath.Join(*homeDir, "config.yaml"), nil)

	logger, closer, err := telemetry.NewLogger(*homeDir, cfg.LogLevel, quietLogs)
	if err != nil {
		fatalStartup(nil, err)
	}
	defer closer.Close()
	slog.SetDefault(logger)
	telemetry.StartupEntry(logger, Version, time.Now())

	otelProvider, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		fatalStartup(logger, err)
	}
	defer otelProvider.Shutdown(ctx)

	metrics, err := telemetry.NewMetrics(otelProvider.Meter)
	if err != nil {
		fatalStartup(logger, err)
	}

	watcher := config.NewWatcher(filepath.Join(*homeDir, "config.yaml"), logger)
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("config watcher failed to start, continuing without hot reload", "error", err)
	} else {
		go logConfigReloads(ctx, watcher, logger)
	}

	rtr := router.New(append(routerOptionsFrom(cfg.Router), router.WithLogger(logger))...)
	resolver := claims.New(logger)
	resolver.SetWindow(time.Duration(cfg.Resolver.ClaimWindowMs) * time.Millisecond)
	bus := swarmbus.New(resolver, logger, swarmbus.WithMaxQueuePerGroup(cfg.Bus.MaxQueuePerGroup))
	corpses := deathsafety.New()

	arenaCoord := arena.NewCoordinator(arenaConfigFrom(cfg.Arena))

	bgRegistry := battleground.NewRegistry()
	battleground.RegisterBuiltins(bgRegistry)
	bgScript, err := bgRegistry.Create(battleground.MapWarsongGulch)
	if err != nil {
		fatalStartup(logger, err)
	}
	bgCoord := battleground.NewCoordinator(bgScript, 15*time.Minute)
	dungeonCoord := dungeon.NewCoordinator(dungeonConfigFrom(cfg.Dungeon))

	scheduler := maintenance.NewScheduler(maintenance.Config{
		Logger:   logger,
		Interval: 5 * time.Second,
		Affixes:  maintenance.NewAffixSchedule(time.Now(), seasonalAffix),
		Targets: maintenance.Targets{
			ReapCorpses:                   corpses.CleanupExpired,
			ReapGroups:                    bus.CleanupInactive,
			ReapClaims:                    resolver.CleanupExpired,
			InactiveGroupThresholdSeconds: cfg.Bus.InactiveGroupThresholdSeconds,
		},
	})
	scheduler.Start(ctx)
	defer scheduler.Stop()

	var lastErrMu sync.Mutex
	var lastErr string
	setLastErr := func(err error) {
		lastErrMu.Lock()
		defer lastErrMu.Unlock()
		if err != nil {
			lastErr = err.Error()
		}
	}
	provider := spectator.NewProvider(spectator.Sources{
		Router:       rtr,
		Bus:          bus,
		Resolver:     resolver,
		Corpses:      corpses,
		Arena:        arenaCoord,
		Battleground: bgCoord,
		Dungeon:      dungeonCoord,
		BusGroupID:   demoGroup,
	}, func() string {
		lastErrMu.Lock()
		defer lastErrMu.Unlock()
		return lastErr
	})

	go recordMetrics(ctx, metrics, rtr, bus, resolver, corpses)

	deps := &demoDeps{
		logger:     logger,
		rtr:        rtr,
		bus:        bus,
		resolver:   resolver,
		corpses:    corpses,
		arenaCoord: arenaCoord,
		bgCoord:    bgCoord,
		dungeonRun: dungeonCoord,
	}

	go func() {
		runDemo(ctx, deps)
	}()

	if interactive {
		if err := spectator.Run(ctx, provider); err != nil && ctx.Err() == nil {
			setLastErr(err)
			logger.Error("spectator tui exited", "error", err)
		}
		stop()
		return
	}

	feed := spectator.NewFeed(provider, []string{"*"}, logger, 500*time.Millisecond)
	go feed.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/spectator", feed.Handler())
	server := &http.Server{Addr: *bindAddr, Handler: mux}
	go func() {
		logger.Info("spectator feed listening", "addr", *bindAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			setLastErr(err)
			logger.Error("spectator feed server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("legiond shutting down")
}

func defaultHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".legiond")
	}
	return ".legiond"
}

// recordMetrics periodically copies the router/bus/resolver/corpse
// counters into the OTel instruments. The coordinators themselves stay
// free of telemetry imports; only this polling loop (and the spectator
// provider, for the TUI/feed) reads their stats surface.
func recordMetrics(ctx context.Context, m *telemetry.Metrics, rtr *router.Router, bus *swarmbus.Bus, resolver *claims.Resolver, corpses *deathsafety.Tracker) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var prevGranted, prevDenied, prevDropped, prevDepth, prevCorpses int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := rtr.Stats()
			depth := int64(rtr.QueueDepth())
			m.RouterQueueDepth.Add(ctx, depth-prevDepth)
			prevDepth = depth
			dropped := stats.TotalDropped + bus.DroppedMessageCount()
			if delta := dropped - prevDropped; delta > 0 {
				m.MessagesDropped.Add(ctx, delta)
			}
			prevDropped = dropped

			claimStats := resolver.GetStatistics()
			if delta := claimStats.TotalGranted - prevGranted; delta > 0 {
				m.ClaimsGranted.Add(ctx, delta)
			}
			if delta := claimStats.TotalDenied - prevDenied; delta > 0 {
				m.ClaimsDenied.Add(ctx, delta)
			}
			prevGranted, prevDenied = claimStats.TotalGranted, claimStats.TotalDenied

			corpseCount := int64(corpses.TrackedCount())
			m.CorpsesTracked.Add(ctx, corpseCount-prevCorpses)
			prevCorpses = corpseCount
		}
	}
}

func logConfigReloads(ctx context.Context, w *config.Watcher, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			logger.Info("legiond: config changed on disk, restart to apply", "path", ev.Path)
		}
	}
}

func fatalStartup(logger *slog.Logger, err error) {
	if logger != nil {
		logger.Error("startup failure", "error", err)
	} else {
		fmt.Fprintf(os.Stderr, "legiond: startup failure: %v\n", err)
	}
	os.Exit(1)
}
