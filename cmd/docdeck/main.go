package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docdeck/internal/config"
	"github.com/dgallion1/docdeck/internal/llm"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "docdeck",
		Short:         "Turn spreadsheets and documents into analysis decks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	load := func() (config.Config, *slog.Logger, error) {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return config.Config{}, nil, err
		}
		return cfg, newLogger(cfg), nil
	}

	rootCmd.AddCommand(serveCmd(load), analyzeCmd(load), templateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type loader func() (config.Config, *slog.Logger, error)

// newLogger builds the process logger from LogLevel and LogFormat.
func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "text") {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	log := slog.New(h)
	slog.SetDefault(log)
	return log
}

// newGenerator builds the configured provider wrapped with latency stats.
func newGenerator(ctx context.Context, cfg config.Config) (llm.Provider, *llm.Instrumented, error) {
	provider, err := llm.New(ctx, llm.Options{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return provider, llm.Instrument(provider, llm.NewLLMStats(cfg.LLM.StatsWindow)), nil
}
