package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"notionclone/client/internal/cli"
)

// These are variables so that they can be set during the build time.
var (
	BuildDate    = "unknown"
	BuildVersion = "0.0.0"
	Commit       = "unknown"
)

func root() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	version := fmt.Sprintf("%s (%s) on %s", BuildVersion, Commit, BuildDate)
	return cli.Execute(ctx, version, os.Args[1:])
}

func main() {
	os.Exit(root())
}
