package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

const appName = "hotstart"

// childEnv marks a process started by detach
const childEnv = "HOTSTART_DAEMON_CHILD"

type options struct {
	newApp     bool
	status     bool
	stop       bool
	report     string
	json       bool
	serve      bool
	detach     bool
	clear      bool
	version    bool
	help       bool
	configPath string
	port       int

	// app and args are set when the first positional argument names an app
	app  string
	args []string
}

func parseArgs(argv []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.Usage = func() {}

	fs.BoolVar(&opts.newApp, "new", false, "create a new app config and open it in the editor")
	fs.BoolVar(&opts.status, "status", false, "show monitor status and apps")
	fs.BoolVar(&opts.stop, "stop", false, "stop the running monitor")
	fs.StringVar(&opts.report, "report", "", "print a report for day, week or month")
	fs.BoolVar(&opts.json, "json", false, "print the report as JSON")
	fs.BoolVar(&opts.serve, "serve", false, "run the monitor with the HTTP API")
	fs.BoolVarP(&opts.detach, "detach", "d", false, "run the monitor in the background")
	fs.BoolVar(&opts.clear, "clear", false, "delete all recorded history")
	fs.BoolVar(&opts.version, "version", false, "show version information")
	fs.BoolVarP(&opts.help, "help", "h", false, "show this help message")
	fs.StringVarP(&opts.configPath, "config", "c", "", "settings file (default "+defaultConfigHint()+")")
	fs.IntVar(&opts.port, "port", 0, "HTTP API port, implies --serve")

	if err := fs.Parse(legacyFlags(argv)); err != nil {
		return nil, err
	}

	if rest := fs.Args(); len(rest) > 0 {
		opts.app = rest[0]
		opts.args = rest[1:]
	}
	if opts.port != 0 {
		opts.serve = true
	}

	if opts.json && opts.report == "" {
		return nil, errors.New("--json only applies to --report")
	}
	if opts.app != "" && (opts.newApp || opts.status || opts.stop || opts.report != "" || opts.clear) {
		return nil, errors.Errorf("unexpected argument %q", opts.app)
	}

	return opts, nil
}

// legacyFlags accepts the single-dash spelling of older command lines
// ("-new"), which pflag would otherwise read as shorthand flags.
func legacyFlags(argv []string) []string {
	out := make([]string, len(argv))
	copy(out, argv)
	for i, a := range out {
		if a == "--" || !strings.HasPrefix(a, "-") {
			break
		}
		switch a {
		case "-new", "-status", "-stop", "-serve", "-report", "-json", "-clear", "-version":
			out[i] = "-" + a
		}
	}
	return out
}

func defaultConfigHint() string {
	return "$HOTSTART_CONFIG or ~/.config/hotstart/hotstart.yaml"
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		}
		printUsage()
		os.Exit(2)
	}

	switch {
	case opts.help:
		printUsage()
	case opts.version:
		fmt.Printf("hotstart version %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	case opts.newApp:
		newApp(opts)
	case opts.status:
		showStatus(opts)
	case opts.stop:
		stopMonitor(opts)
	case opts.report != "":
		generateReport(opts)
	case opts.clear:
		clearHistory(opts)
	case opts.app != "":
		activateApp(opts)
	default:
		startMonitor(opts)
	}
}

func printUsage() {
	fmt.Printf(`hotstart - keeps hidden, pre-started instances of your apps ready

Usage:
  hotstart [options]                 Run the monitor
  hotstart <app> [args...]           Show the hot instance of <app>, or start it
  hotstart <command>

Commands:
  --new              Create a new app config and open it in the editor
  --status           Show monitor status and configured apps
  --stop             Stop the running monitor
  --report PERIOD    Print a report (day, week, month), add --json for JSON
  --clear            Delete all recorded history
  --version          Show version information
  --help             Show this help message

Options:
  -c, --config FILE  Settings file (default %s)
  -d, --detach       Run the monitor in the background
  --serve            Run the monitor with the HTTP API enabled
  --port PORT        HTTP API port, implies --serve

Examples:
  hotstart --new                   # Add an app
  hotstart -d                      # Start the monitor in the background
  hotstart code ~/notes.md         # Open notes.md in the code app config
  hotstart --report week --json    # Weekly report as JSON

App configs live in the apps directory (see apps.dir in the settings file).
Each .toml or .json file there describes one app.
`, defaultConfigHint())
}
