// Command srcsim is a host-side simulator/debug harness for the
// Security Recovery Core: it constructs a statecore.Core over the
// in-memory simulated platform and drives Tick() manually or in a
// loop. It is tooling around the core (spec.md §1 explicitly puts
// "the tiny main that drives the state machine" out of scope), not a
// core feature.
//
// Grounded on cmd/cli/main.go's flag-driven host tool (here using
// go-flags instead of the standard flag package — the same library
// go-exfat's own cmd/ tools use) and on console.go's authenticated
// command dispatch.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/jessevdk/go-flags"
	"golang.org/x/term"

	"openenterprise/srccore/boardprofile"
	"openenterprise/srccore/logging"
	"openenterprise/srccore/platform"
	"openenterprise/srccore/platform/exfat"
	"openenterprise/srccore/platform/simulated"
	"openenterprise/srccore/statecore"
)

type options struct {
	Command  string `short:"c" long:"cmd" description:"status|step|run|schedule-removal|disable|logs|logs-clear" default:"status"`
	Ticks    int    `short:"n" long:"ticks" description:"number of ticks for 'run'" default:"50"`
	Seed     bool   `long:"seed-good-boot" description:"pre-seed GPIO sensor so the simulated boot succeeds"`
	USBImage string `long:"usb-image" description:"path to a real exFAT-formatted image to serve the recovery tree from, instead of the in-memory USB fake"`
}

const consolePassword = "srcsim" // demo-only console password, see requireAuth

// logRingCapacity mirrors telemetry.go's LogQueue [8]LogEntry.
const logRingCapacity = 8

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}

	ctx := context.Background()
	profile := boardprofile.Resolve()

	flash := simulated.NewFlash(profile.FlashSize, profile.SectorSize)
	usb, err := openUSB(opts.USBImage)
	if err != nil {
		fmt.Fprintln(os.Stderr, "srcsim: usb init:", err)
		os.Exit(1)
	}
	crypto, err := simulated.NewCrypto()
	if err != nil {
		fmt.Fprintln(os.Stderr, "srcsim: crypto init:", err)
		os.Exit(1)
	}
	sensors := simulated.NewSensors()
	sys := simulated.NewSystem()

	if opts.Seed {
		sensors.SetGPIO(true)
	}

	ring := logging.NewFromSystem(logRingCapacity, sys)
	logger := slog.New(logging.NewHandler(slog.NewTextHandler(os.Stderr, nil), ring))

	core := statecore.New(flash, usb, crypto, sensors, sys, profile, func(msg string) {
		logger.Info(msg)
	})

	switch opts.Command {
	case "status":
		runTicks(ctx, core, 1)
		printStatus(ctx, core)
	case "step":
		runTicks(ctx, core, 1)
		printStatus(ctx, core)
	case "run":
		runTicks(ctx, core, opts.Ticks)
		printStatus(ctx, core)
	case "schedule-removal":
		if !requireAuth() {
			fmt.Fprintln(os.Stderr, "srcsim: authentication failed")
			os.Exit(1)
		}
		runTicks(ctx, core, 1)
		if err := core.ScheduleRemoval(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "srcsim: schedule-removal:", err)
			os.Exit(1)
		}
		fmt.Println("removal scheduled; it takes effect on the next Init")
	case "disable":
		runTicks(ctx, core, 1)
		if err := core.DisableTemporary(ctx, uint32(platform.MaxDisableDuration.Milliseconds())); err != nil {
			fmt.Fprintln(os.Stderr, "srcsim: disable:", err)
			os.Exit(1)
		}
		fmt.Println("disabled for the maximum allowed duration")
	case "logs":
		for _, e := range ring.Entries() {
			fmt.Printf("%10d  %s\n", e.TimestampMS, e.Message)
		}
	case "logs-clear":
		if !requireAuth() {
			fmt.Fprintln(os.Stderr, "srcsim: authentication failed")
			os.Exit(1)
		}
		if !ring.Clear(ctx) {
			fmt.Fprintln(os.Stderr, "srcsim: logs-clear: platform authentication refused")
			os.Exit(1)
		}
		fmt.Println("log ring cleared")
	default:
		fmt.Fprintf(os.Stderr, "srcsim: unknown command %q\n", opts.Command)
		os.Exit(1)
	}
}

// openUSB returns the in-memory USB fake by default, or — when
// --usb-image names a file — a read-only platform.USB backed by a real
// exFAT image, for exercising the Recovery Engine against an actual
// filesystem image rather than a fake.
func openUSB(imagePath string) (platform.USB, error) {
	if imagePath == "" {
		return simulated.NewUSB(), nil
	}
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, err
	}
	return exfat.Open(f)
}

func runTicks(ctx context.Context, core *statecore.Core, n int) {
	for i := 0; i < n; i++ {
		if err := core.Tick(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "srcsim: tick:", err)
		}
		if core.IsSafeMode() {
			break
		}
	}
}

func printStatus(ctx context.Context, core *statecore.Core) {
	fmt.Println("state:", core.State())
	status, err := core.Status(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "srcsim: status:", err)
		return
	}
	fmt.Println(status)
}

// requireAuth prompts for the console password without echoing it,
// exactly as cmd/cli/main.go does before issuing privileged commands.
func requireAuth() bool {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return true // non-interactive (e.g. scripted test run)
	}
	fmt.Print("console password: ")
	pass, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return false
	}
	return string(pass) == consolePassword
}
