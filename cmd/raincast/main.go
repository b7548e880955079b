package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Exit codes. Every failure kind maps to 1: usage errors, missing
// configuration, and stage failures are deliberately indistinguishable
// at the exit-code level.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("raincast %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	args := flag.Args()
	if len(args) != 1 {
		usage()
		return ExitFailure
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitFailure
	}

	logger := SetupLogger(cfg)

	// An interrupt cancels the context mid-stage; the pipeline still
	// runs its workspace cleanup on the way out.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "deploy":
		return runDeploy(ctx, cfg, logger)
	case "local":
		return runLocal(ctx, cfg, logger)
	default:
		usage()
		return ExitFailure
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: raincast [flags] <command>

Commands:
  deploy    Build, push, and deploy the stack to the managed platform
  local     Run the stack locally in Docker until interrupted

Flags:
  -config string
        Path to config file
  -version
        Print version and exit
`)
}
