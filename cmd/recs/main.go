// Command recs is a terminal client for the recs social network.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recs/internal/bootstrap"
	"recs/internal/config"
	"recs/internal/observability"

	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	c := &cli{out: os.Stdout, open: openRuntime, now: time.Now}
	err := c.rootCmd().ExecuteContext(ctx)
	stop()

	// The snapshot is saved even when the command failed.
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if cerr := c.close(closeCtx); cerr != nil && err == nil {
		err = cerr
	}
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func openRuntime(ctx context.Context) (*bootstrap.Runtime, error) {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		observability.GlobalLogger.Debug("no .env file found, using environment")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{Version: version})
}
