package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docdeck/internal/analyzer"
	"github.com/dgallion1/docdeck/internal/document"
	"github.com/dgallion1/docdeck/internal/pipeline"
	"github.com/dgallion1/docdeck/internal/template"
)

func analyzeCmd(load loader) *cobra.Command {
	var (
		output       string
		templatePath string
		variant      string
		maxTokens    int
		parallel     int
	)

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze one document and write a deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			if parallel > 0 {
				cfg.Analysis.Parallelism = parallel
			}
			if err := cfg.ValidateLLM(); err != nil {
				return err
			}

			// An empty variant defers to the configured default.
			var v analyzer.Variant
			if variant != "" {
				if v, err = analyzer.ParseVariant(variant); err != nil {
					return err
				}
			}

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			var profile *template.Profile
			if templatePath != "" {
				if profile, err = template.AnalyzeFile(templatePath); err != nil {
					return err
				}
			}

			if output == "" {
				base := filepath.Base(path)
				output = strings.TrimSuffix(base, filepath.Ext(base)) + "_analysis.pptx"
			}

			ctx := cmd.Context()
			provider, gen, err := newGenerator(ctx, cfg)
			if err != nil {
				return err
			}
			defer provider.Close()

			runner, err := pipeline.NewRunner(cfg, gen, log)
			if err != nil {
				return err
			}
			out, err := runner.Run(ctx, pipeline.Input{
				Source:    document.Source{Filename: filepath.Base(path), Data: data},
				Variant:   v,
				MaxTokens: maxTokens,
				Template:  profile,
				ChunkDone: func(r analyzer.ChunkResult) {
					if r.Err != nil {
						log.Warn("chunk failed", "chunk", r.Index, "error", r.Err)
					}
				},
			})
			if err != nil {
				return err
			}
			defer out.Cleanup()

			if err := copyFile(out.DeckPath, output); err != nil {
				return err
			}
			snap := gen.Stats().Snapshot()
			log.Info("analysis complete", "output", output, "slides", out.SlideCount, "chunks", out.ChunkCount,
				"llm_calls", snap.Count, "llm_p50_ms", snap.P50Ms)
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "deck path (default <input>_analysis.pptx)")
	cmd.Flags().StringVar(&templatePath, "template", "", "reference .pptx to follow")
	cmd.Flags().StringVar(&variant, "variant", "", "analysis variant: business or golf")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "chunk size in tokens")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "chunks analyzed concurrently")
	return cmd
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open deck: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return out.Close()
}
