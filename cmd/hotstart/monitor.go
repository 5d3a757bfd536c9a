package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hotstart/hotstart/internal/apps"
	"github.com/hotstart/hotstart/internal/config"
	"github.com/hotstart/hotstart/internal/daemon"
	"github.com/hotstart/hotstart/internal/database"
	"github.com/hotstart/hotstart/internal/history"
	"github.com/hotstart/hotstart/internal/logging"
	"github.com/hotstart/hotstart/internal/metrics"
	"github.com/hotstart/hotstart/internal/monitor"
	"github.com/hotstart/hotstart/internal/preload"
	"github.com/hotstart/hotstart/internal/web"
	"github.com/hotstart/hotstart/pkg/detector"
	"github.com/hotstart/hotstart/pkg/process"
)

// History older than this is pruned when the monitor starts
const historyRetention = 90 * 24 * time.Hour

func loadConfig(opts *options) *config.Config {
	path := opts.configPath
	if path == "" {
		path = config.DefaultFilePath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if opts.serve {
		cfg.Web.Enabled = true
	}
	if opts.port != 0 {
		if err := cfg.SetWebPort(opts.port); err != nil {
			log.Fatalf("Invalid port: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func startMonitor(opts *options) {
	cfg := loadConfig(opts)

	dm := daemon.New(cfg.Daemon.PIDFile)
	if running, pid, _ := dm.IsRunning(); running {
		fmt.Printf("Monitor is already running (PID: %d)\n", pid)
		os.Exit(1)
	}

	if opts.detach && os.Getenv(childEnv) != "1" {
		pid, err := detach(monitorArgs(opts))
		if err != nil {
			log.Fatalf("Failed to start monitor process: %v", err)
		}
		fmt.Printf("Monitor started successfully (PID: %d)\n", pid)
		if cfg.Web.Enabled {
			fmt.Printf("Web API available at: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
		}
		fmt.Printf("Logs: %s\n", detachedLogFile(cfg))
		return
	}

	if os.Getenv(childEnv) == "1" && cfg.Logging.File == "" {
		cfg.Logging.File = detachedLogFile(cfg)
	}

	if err := runMonitor(cfg, dm); err != nil {
		log.Fatalf("Monitor failed: %v", err)
	}
}

// monitorArgs rebuilds the command line for a detached monitor
func monitorArgs(opts *options) []string {
	var args []string
	if opts.configPath != "" {
		args = append(args, "--config", opts.configPath)
	}
	if opts.serve {
		args = append(args, "--serve")
	}
	if opts.port != 0 {
		args = append(args, "--port", fmt.Sprint(opts.port))
	}
	return args
}

func detachedLogFile(cfg *config.Config) string {
	if cfg.Logging.File != "" {
		return cfg.Logging.File
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("hotstart-%d.log", os.Getuid()))
}

func runMonitor(cfg *config.Config, dm *daemon.Daemon) error {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := dm.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := dm.RemovePID(); err != nil {
			logger.Warn("Failed to remove PID file", zap.Error(err))
		}
	}()

	logger.Info("Starting hotstart",
		zap.String("version", version),
		zap.Int("pid", os.Getpid()),
		zap.String("apps_dir", cfg.Apps.Dir))

	backend, err := detector.New()
	if err != nil {
		return err
	}
	defer backend.Close()
	logger.Info("Using window backend", zap.String("backend", backend.Name()))

	m := metrics.New()
	observers := []preload.Observer{m, debugObserver(logger)}

	var repo *database.Repository
	if cfg.Database.Enabled {
		db, err := database.Connect(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Initialize(); err != nil {
			return err
		}

		repo = database.NewRepository(db)
		if n, err := repo.DeleteOldEvents(time.Now().Add(-historyRetention)); err != nil {
			logger.Warn("Failed to prune history", zap.Error(err))
		} else if n > 0 {
			logger.Info("Pruned old history", zap.Int64("events", n))
		}

		recorder := history.NewRecorder(repo, 0, logger)
		defer func() {
			recorder.Close()
			if n := recorder.Dropped(); n > 0 {
				logger.Warn("History events dropped", zap.Int64("count", n))
			}
		}()
		observers = append(observers, recorder)
	}

	ctrl := preload.NewController(backend, process.NewExecLauncher(), cfg.PreloadOptions(), logger, preload.Observers(observers...))

	loader := apps.NewLoader(cfg.Apps.Dir, logger)
	records, err := loader.Load()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		logger.Warn("No apps configured, run hotstart --new to add one", zap.String("dir", loader.Dir()))
	}

	onCapture := captureListener(m, logger)
	for _, r := range records {
		r.OnCaptureChanged(onCapture)
	}

	svc := monitor.NewService(cfg.Monitor.PollInterval, ctrl, records, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup

	watcher := apps.NewWatcher(loader.Dir(), 0, func() {
		reloadApps(loader, svc, m, onCapture, logger)
	}, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("App config watcher stopped", zap.Error(err))
		}
	}()

	var server *web.Server
	if cfg.Web.Enabled {
		server = web.NewServer(ctx, cfg, svc, repo, m, logger)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("Web server failed", zap.Error(err))
				cancel()
			}
		}()
	}

	if err := svc.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("Shutting down")

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Web server shutdown failed", zap.Error(err))
		}
		shutdownCancel()
	}

	ctrl.Wait()
	wg.Wait()

	if cfg.Monitor.ShowAllOnExit {
		ctrl.ShowAll(svc.Records())
	}

	logger.Info("Monitor stopped")
	return nil
}

// reloadApps swaps in the records from disk, keeping the hot instances
// already captured for apps whose config is still present.
func reloadApps(loader *apps.Loader, svc *monitor.Service, m *metrics.Metrics, onCapture func(*preload.Record), logger *zap.Logger) {
	records, err := loader.Load()
	if err != nil {
		logger.Warn("Failed to reload apps", zap.Error(err))
		return
	}

	removed := apps.AdoptState(svc.Records(), records)
	for _, r := range records {
		r.OnCaptureChanged(onCapture)
	}
	for _, r := range removed {
		r.OnCaptureChanged(nil)
		m.Forget(r.Name)
	}

	svc.SetRecords(records)
	logger.Info("Apps reloaded", zap.Int("apps", len(records)), zap.Int("removed", len(removed)))
}

func captureListener(m *metrics.Metrics, logger *zap.Logger) func(*preload.Record) {
	return func(r *preload.Record) {
		m.CaptureChanged(r)
		logger.Debug("Hot instance changed",
			zap.String("app", r.Name),
			zap.Bool("captured", r.Captured()))
	}
}

func debugObserver(logger *zap.Logger) preload.Observer {
	return preload.ObserverFunc(func(e preload.Event) {
		if !logger.Core().Enabled(zap.DebugLevel) {
			return
		}
		fields := []zap.Field{zap.String("kind", string(e.Kind)), zap.String("pass", e.PassID)}
		if e.App != "" {
			fields = append(fields, zap.String("app", e.App))
		}
		if e.Handle.IsValid() {
			fields = append(fields, zap.Uint64("handle", uint64(e.Handle)))
		}
		if e.Duration > 0 {
			fields = append(fields, zap.Duration("duration", e.Duration))
		}
		if e.Err != nil {
			fields = append(fields, zap.Error(e.Err))
		}
		logger.Debug("Preload event", fields...)
	})
}
