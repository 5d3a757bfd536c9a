package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hotstart/hotstart/internal/apps"
	"github.com/hotstart/hotstart/internal/config"
	"github.com/hotstart/hotstart/internal/daemon"
	"github.com/hotstart/hotstart/internal/database"
	"github.com/hotstart/hotstart/internal/logging"
	"github.com/hotstart/hotstart/internal/preload"
	"github.com/hotstart/hotstart/internal/reporter"
	"github.com/hotstart/hotstart/pkg/detector"
	"github.com/hotstart/hotstart/pkg/process"
	"github.com/hotstart/hotstart/pkg/utils"
)

// cliLogger keeps one-shot commands quiet unless debug logging is on
func cliLogger(cfg *config.Config) *zap.Logger {
	lc := cfg.Logging
	if lc.Level == "" || strings.EqualFold(lc.Level, "info") {
		lc.Level = "warn"
	}
	lc.File = ""
	return logging.NewOrNop(lc)
}

func activateApp(opts *options) {
	cfg := loadConfig(opts)
	logger := cliLogger(cfg)
	defer logger.Sync()

	records, err := apps.NewLoader(cfg.Apps.Dir, logger).Load()
	if err != nil {
		log.Fatalf("Failed to load apps: %v", err)
	}

	r, err := apps.Find(records, opts.app)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if s := apps.Suggest(records, opts.app); len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Did you mean: %s?\n", strings.Join(s, ", "))
		}
		os.Exit(1)
	}

	backend, err := detector.New()
	if err != nil {
		log.Fatalf("Failed to initialize window backend: %v", err)
	}
	defer backend.Close()

	ctrl := preload.NewController(backend, process.NewExecLauncher(), cfg.PreloadOptions(), logger, nil)
	res, err := ctrl.Activate(context.Background(), r, opts.args)
	if err != nil {
		backend.Close()
		log.Fatalf("%v", err)
	}
	logger.Debug("Activated",
		zap.String("app", r.Name),
		zap.Bool("shown", res.Shown.IsValid()),
		zap.Bool("launched", res.Launched))

	// The first activation also brings up the monitor that keeps the next
	// instance hot.
	dm := daemon.New(cfg.Daemon.PIDFile)
	if running, _, _ := dm.IsRunning(); running {
		return
	}
	if _, err := detach(monitorArgs(opts)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to start monitor: %v\n", err)
	}
}

func newApp(opts *options) {
	cfg := loadConfig(opts)

	path, err := apps.Scaffold(cfg.Apps.Dir)
	if err != nil {
		log.Fatalf("Failed to create app config: %v", err)
	}
	fmt.Printf("Created %s\n", path)

	if cfg.Apps.Editor == "" {
		return
	}
	if _, err := process.NewExecLauncher().Launch(cfg.Apps.Editor, []string{path}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to open editor: %v\n", err)
	}
}

func showStatus(opts *options) {
	cfg := loadConfig(opts)
	logger := cliLogger(cfg)
	defer logger.Sync()

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}

	if running {
		fmt.Printf("Status: Running (PID: %d)\n", pid)
	} else {
		fmt.Println("Status: Not running")
	}
	fmt.Printf("Display server: %s\n", detector.DetectDisplayServer())
	fmt.Printf("Apps directory: %s\n", cfg.Apps.Dir)

	records, err := apps.NewLoader(cfg.Apps.Dir, logger).Load()
	if err != nil {
		log.Fatalf("Failed to load apps: %v", err)
	}
	if len(records) == 0 {
		fmt.Println("\nNo apps configured. Run 'hotstart --new' to add one.")
		return
	}

	var finder *preload.Finder
	backend, err := detector.New()
	if err != nil {
		fmt.Printf("Window backend: unavailable (%v)\n", err)
	} else {
		defer backend.Close()
		fmt.Printf("Window backend: %s\n", backend.Name())
		finder = preload.NewFinder(backend)
	}

	fmt.Printf("\nApps (%d):\n", len(records))
	for _, r := range records {
		fmt.Println(statusLine(r, finder))
	}
}

// statusLine describes one app. Without a finder the hot state is unknown.
func statusLine(r *preload.Record, finder *preload.Finder) string {
	state := "-"
	switch {
	case !r.Enabled:
		state = "disabled"
	case finder == nil:
		state = "unknown"
	case finder.FindHidden(r).IsValid():
		state = "hot"
	case r.AutoPreload:
		state = "cold"
	}

	pattern := ""
	if r.Matcher != nil {
		pattern = r.Matcher.String()
	}
	return fmt.Sprintf("  %-20s %-9s %s  [%s]", utils.Truncate(r.ConfigName, 20), state, utils.Truncate(r.Name, 30), pattern)
}

func stopMonitor(opts *options) {
	cfg := loadConfig(opts)

	dm := daemon.New(cfg.Daemon.PIDFile)
	if err := dm.Stop(); err != nil {
		if errors.Is(err, daemon.ErrNotRunning) {
			fmt.Println("Monitor is not running")
			os.Exit(1)
		}
		log.Fatalf("Failed to stop monitor: %v", err)
	}

	fmt.Println("Monitor stopped successfully")
}

func generateReport(opts *options) {
	cfg := loadConfig(opts)

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rep := reporter.New(database.NewRepository(db))
	report, err := rep.GenerateReport(opts.report)
	if err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}

	if opts.json {
		out, err := rep.FormatReportJSON(report)
		if err != nil {
			log.Fatalf("Failed to format report: %v", err)
		}
		fmt.Println(out)
		return
	}
	fmt.Print(rep.FormatReportText(report))
}

func clearHistory(opts *options) {
	cfg := loadConfig(opts)

	fmt.Print("This will delete all recorded history. Are you sure? (yes/no): ")
	response, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	response = strings.ToLower(strings.TrimSpace(response))

	if response != "yes" && response != "y" {
		fmt.Println("Operation cancelled")
		return
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := database.NewRepository(db).Clear(); err != nil {
		log.Fatalf("Failed to clear database: %v", err)
	}

	fmt.Println("History cleared successfully")
}
