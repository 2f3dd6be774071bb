// Command cinemoa-devapi serves the fixture listing API for local runs of
// the cinemoa client.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daeyeon-lee/cinemoa/internal/devserver"
	"github.com/daeyeon-lee/cinemoa/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:8080", "listen address")
	latency := flag.Duration("latency", 150*time.Millisecond, "delay added to every API response")
	pageSize := flag.Int("page-size", 0, "default page size (optional)")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := logging.New(*level, os.Stderr)
	srv := devserver.New(devserver.Options{
		Latency:  *latency,
		PageSize: *pageSize,
		Logger:   log,
	})
	if err := srv.ListenAndServe(ctx, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "cinemoa-devapi: %v\n", err)
		return 1
	}
	return 0
}
