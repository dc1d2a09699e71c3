package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/akhdanfadh/urlkeep/internal/cli"
	"github.com/akhdanfadh/urlkeep/internal/extstore"
)

// version and commit are set during build time using -ldflags.
var (
	version = "dev"
	commit  = "none"
)

// Exit codes besides 0 and 1.
const (
	exitUsage       = 2
	exitTempFail    = 75  // EX_TEMPFAIL from sysexits.h, the operator can retry
	exitInterrupted = 130 // 128 + SIGINT(2), standard exit code for Ctrl+C
)

// getVersion returns the application version.
func getVersion() string {
	if version != "dev" {
		return version
	}
	// go install ...@v1.0.0 records the module version
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return version
}

// getCommit returns the commit hash from build info if available.
func getCommit() string {
	if commit != "none" {
		return commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}
	return "unknown"
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case errors.Is(err, cli.ErrUsage):
		return exitUsage
	case errors.Is(err, extstore.ErrLocked):
		return exitTempFail
	default:
		return 1
	}
}

func main() {
	// graceful shutdown: cancels context on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli.Version, cli.Commit = getVersion(), getCommit()
	if err := cli.Run(ctx, os.Args[1:]); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "\nInterrupted")
			os.Exit(exitInterrupted)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
