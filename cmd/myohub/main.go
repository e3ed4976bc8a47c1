package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"myohub/internal/config"
	"myohub/internal/web"
)

func main() {
	var configPath string
	var summaryPath string
	flag.StringVar(&configPath, "config", "./myohub.yaml", "Path to YAML config")
	flag.StringVar(&summaryPath, "summary", "", "Print a summary of a session log and exit")
	flag.Parse()

	if summaryPath != "" {
		if err := printSessionSummary(summaryPath); err != nil {
			log.Fatalf("summary failed: %v", err)
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	// Tee the log into the ring the web API serves, so /api/logs shows
	// everything from bring-up on.
	logs := web.NewLogRing(1000)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("myohub starting")

	d, err := newDaemon(ctx, cfg, logs)
	if err != nil {
		log.Fatalf("daemon init failed: %v", err)
	}
	defer d.Close()

	<-ctx.Done()
	log.Printf("myohub stopping")
}
