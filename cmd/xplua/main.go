// Package main runs the xplua bridge against the simulated host.
//
// It starts the bridge, enables it, drives a number of flight-loop frames
// (camera callbacks and pending auto reloads), optionally broadcasts a
// message and runs the reload command, then disables and stops.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshills/xplua/internal/bridge"
	"github.com/dshills/xplua/internal/config"
	"github.com/dshills/xplua/internal/xplm"
	"github.com/dshills/xplua/internal/xplm/sim"
)

// Version information (set via ldflags during build).
var (
	commit = "unknown"
	date   = "unknown"
)

type options struct {
	configPath  string
	logLevel    string
	frames      int
	interval    time.Duration
	message     int
	reload      bool
	showVersion bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "XPLua %s\nCommit: %s\nBuilt: %s\n", bridge.Version, commit, date)
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	host := sim.New()
	b, err := bridge.New(host, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	if _, err := b.XPluginStart(); err != nil {
		fmt.Fprintf(stderr, "Error: failed to start: %v\n", err)
		b.XPluginStop()
		return 1
	}
	b.XPluginEnable()

	frames := 0
	for frames < opts.frames {
		if ctx.Err() != nil {
			break
		}
		b.FlightLoop()
		host.CameraFrame()
		frames++

		if frames == opts.frames/2+1 {
			if opts.message != 0 {
				b.XPluginReceiveMessage(host.GetMyID(), opts.message, nil)
			}
			if opts.reload {
				if err := host.RunCommand(bridge.CommandReload); err != nil {
					fmt.Fprintf(stderr, "Error: %v\n", err)
				}
			}
		}
		if opts.interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(opts.interval):
			}
		}
	}

	modules := len(b.Controller().Modules())
	b.XPluginDisable()
	b.XPluginStop()

	fmt.Fprintf(stdout, "frames: %d\nmodules: %d\nerrors: %d\n", frames, modules, b.Faults())
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("xplua", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file (default $XPLUA_CONFIG)")
	fs.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	fs.IntVar(&opts.frames, "frames", 10, "Number of flight-loop frames to run")
	fs.DurationVar(&opts.interval, "interval", 0, "Delay between frames")
	fs.IntVar(&opts.message, "message", 0, fmt.Sprintf("Message ID to broadcast mid-run (e.g. %d)", xplm.MsgPlaneLoaded))
	fs.BoolVar(&opts.reload, "reload", false, "Run the reload command mid-run")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	fs.BoolVar(&opts.showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "xplua - Lua plugin bridge, run against a simulated host\n\n")
		fmt.Fprintf(stderr, "Usage: xplua [options]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  xplua -frames 100                 Run 100 frames\n")
		fmt.Fprintf(stderr, "  xplua -c xplua.toml -reload       Reload scripts halfway\n")
		fmt.Fprintf(stderr, "  xplua -message 102 -interval 16ms Broadcast plane-loaded\n")
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.frames < 0 {
		fmt.Fprintf(stderr, "Error: -frames must not be negative\n")
		return opts, errors.New("negative frames")
	}
	return opts, nil
}
