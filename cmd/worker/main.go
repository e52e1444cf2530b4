package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shehbaz-7/Learnwave/internal/bootstrap"
	"github.com/shehbaz-7/Learnwave/internal/config"
	"github.com/shehbaz-7/Learnwave/internal/core/domain"
)

func main() {
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

	if err := app.PullUC.Pull(ctx); err != nil {
		app.Logger.Error("startup pull sync failed, continuing with local state", "error", err)
	}
	if err := app.MaintainUC.Reload(ctx); err != nil {
		log.Fatalf("index reload error: %v", err)
	}

	go serveObservability(app, cfg.MetricsPort)

	app.Logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeSubmissions(ctx, func(handlerCtx context.Context, sub domain.Submission) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Minute)
		defer cancel()
		return app.IngestUC.Process(processCtx, sub)
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

// serveObservability exposes prometheus metrics and the job status registry
// for external pollers.
func serveObservability(app *bootstrap.App, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Metrics.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(app.Registry.Snapshot()); err != nil {
			app.Logger.Error("encode status snapshot", "error", err)
		}
	})

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.Logger.Error("observability server stopped", "error", err)
	}
}
