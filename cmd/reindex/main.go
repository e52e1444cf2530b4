// Command reindex rebuilds partition indices from their record stores. It is
// the manual repair tool for lost or diverged index files.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shehbaz-7/Learnwave/internal/bootstrap"
	"github.com/shehbaz-7/Learnwave/internal/config"
)

func main() {
	cohort := flag.String("cohort", "", "rebuild a single cohort (default: all)")
	pull := flag.Bool("pull", false, "pull remote partition files before rebuilding")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	if *pull {
		if err := app.PullUC.Pull(ctx); err != nil {
			log.Fatalf("pull sync error: %v", err)
		}
	}

	targets := app.Partitions.Cohorts()
	if *cohort != "" {
		targets = []string{*cohort}
	}
	for _, name := range targets {
		if err := app.MaintainUC.RebuildPartition(ctx, name); err != nil {
			log.Fatalf("rebuild %s error: %v", name, err)
		}
	}
}
