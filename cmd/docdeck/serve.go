package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docdeck/internal/api"
	"github.com/dgallion1/docdeck/internal/pipeline"
)

func serveCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				log.Error("invalid configuration", "error", err)
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// Initialize clients.
			provider, gen, err := newGenerator(ctx, cfg)
			if err != nil {
				return err
			}
			defer provider.Close()

			// Initialize pipeline.
			runner, err := pipeline.NewRunner(cfg, gen, log)
			if err != nil {
				return err
			}
			orch := pipeline.NewOrchestrator(cfg, runner, log)
			orch.Start(ctx)

			// Initialize HTTP server.
			srv := api.NewServer(orch, api.LLMInfo{
				Provider: provider.Name(),
				Model:    cfg.LLM.Model,
				Stats:    gen.Stats(),
			}, log, cfg)

			httpServer := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      srv,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			// Graceful shutdown.
			done := make(chan struct{})
			go func() {
				defer close(done)
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
				<-sigCh
				log.Info("shutting down...")

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				httpServer.Shutdown(shutdownCtx)

				orch.Stop()
			}()

			log.Info("starting docdeck", "port", cfg.Port, "provider", provider.Name(), "model", cfg.LLM.Model,
				"workers", cfg.WorkerCount, "metrics_policy", cfg.Analysis.MetricsPolicy)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("server error", "error", err)
				return err
			}
			<-done
			return nil
		},
	}
}
