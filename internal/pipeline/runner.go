package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgallion1/docdeck/internal/analyzer"
	"github.com/dgallion1/docdeck/internal/apperr"
	"github.com/dgallion1/docdeck/internal/chunker"
	"github.com/dgallion1/docdeck/internal/config"
	"github.com/dgallion1/docdeck/internal/deck"
	"github.com/dgallion1/docdeck/internal/document"
	"github.com/dgallion1/docdeck/internal/llm"
	"github.com/dgallion1/docdeck/internal/metrics"
	"github.com/dgallion1/docdeck/internal/parser"
	"github.com/dgallion1/docdeck/internal/template"
)

// Input is one document to turn into a deck.
type Input struct {
	Source    document.Source
	Variant   analyzer.Variant  // Zero uses the configured variant
	MaxTokens int               // Overrides the chunk size when positive
	Template  *template.Profile // Optional
	Subtitle  string

	// Hooks observe progress. All are optional; ChunkDone may run
	// concurrently.
	OnStatus  func(JobStatus)
	OnChunked func(total int)
	ChunkDone func(analyzer.ChunkResult)
}

// Output is a finished run. DeckPath is a temp file owned by the caller.
type Output struct {
	DeckPath   string
	Analysis   analyzer.Analysis
	Report     metrics.Report
	Titles     []string
	SlideCount int
	ChunkCount int
}

// Cleanup removes the deck file.
func (o *Output) Cleanup() {
	if o == nil || o.DeckPath == "" {
		return
	}
	os.Remove(o.DeckPath)
}

// Runner executes the full extract, chunk, analyze, extract metrics, render
// and write pipeline for a single document.
type Runner struct {
	analyzer   *analyzer.Analyzer
	chunkCfg   chunker.Config
	tok        chunker.Tokenizer
	policy     metrics.Policy
	jsonPolicy bool
	style      deck.StyleConfig
	log        *slog.Logger
}

// NewRunner wires a Runner from configuration. gen is usually an
// instrumented provider.
func NewRunner(cfg config.Config, gen llm.Generator, log *slog.Logger) (*Runner, error) {
	if log == nil {
		log = slog.Default()
	}
	variant, err := analyzer.ParseVariant(cfg.Analysis.Variant)
	if err != nil {
		return nil, err
	}

	var tok chunker.Tokenizer = chunker.EstimateCounter{}
	if cfg.Chunking.Tokenizer == "tiktoken" {
		tok = chunker.NewTiktokenCounter(log)
	}

	a := analyzer.New(gen, analyzer.Config{
		Model:             cfg.LLM.Model,
		Temperature:       cfg.LLM.Temperature,
		MaxOutputTokens:   cfg.LLM.MaxOutputTokens,
		Variant:           variant,
		Parallelism:       cfg.Analysis.Parallelism,
		RequestsPerMinute: cfg.Analysis.RequestsPerMinute,
		MaxRetries:        cfg.Analysis.MaxRetries,
	}, log, analyzer.WithCache(analyzer.NewCache(cfg.Analysis.CacheSize, cfg.Analysis.CacheTTL)))

	return &Runner{
		analyzer:   a,
		chunkCfg:   chunker.Config{MaxTokens: cfg.Chunking.MaxTokens, Model: cfg.LLM.Model},
		tok:        tok,
		policy:     metrics.ForName(cfg.Analysis.MetricsPolicy),
		jsonPolicy: cfg.Analysis.MetricsPolicy == "json",
		style:      deck.DefaultStyle(),
		log:        log,
	}, nil
}

// Run turns in.Source into a deck file. An unsupported format fails before
// any model call. A failure after the deck file is created removes it.
func (r *Runner) Run(ctx context.Context, in Input) (*Output, error) {
	log := r.log.With("file", in.Source.Filename)
	status := func(s JobStatus) {
		if in.OnStatus != nil {
			in.OnStatus(s)
		}
	}

	// Phase 1: Extract
	status(StatusExtracting)
	text, err := parser.Extract(in.Source)
	if err != nil {
		return nil, err
	}

	// Phase 2: Chunk
	status(StatusChunking)
	chunkCfg := r.chunkCfg
	if in.MaxTokens > 0 {
		chunkCfg.MaxTokens = in.MaxTokens
	}
	chunks := chunker.Chunk(text, chunkCfg, r.tok)
	if len(chunks) == 0 {
		return nil, apperr.Extractionf("chunk "+in.Source.Filename, "no extractable content")
	}
	if in.OnChunked != nil {
		in.OnChunked(len(chunks))
	}
	log.Info("chunked document", "chunks", len(chunks), "max_tokens", chunkCfg.MaxTokens)

	// Phase 3: Analyze
	status(StatusAnalyzing)
	var addenda []string
	if p := in.Template.Prompt(); p != "" {
		addenda = append(addenda, p)
	}
	if r.jsonPolicy {
		addenda = append(addenda, metrics.JSONInstruction)
	}
	result, err := r.analyzer.Analyze(ctx, chunks, analyzer.RunOptions{
		Variant:        in.Variant,
		PromptAddendum: strings.Join(addenda, "\n\n"),
		OnChunk:        in.ChunkDone,
	})
	if err != nil {
		return nil, err
	}
	if failed := result.Failed(); len(failed) > 0 {
		log.Warn("some chunks failed analysis", "failed", len(failed), "total", len(chunks))
	}

	// Phase 4: Metrics and layout
	status(StatusRendering)
	report := r.policy.Extract(result.Combined)
	d := deck.Render(result.Combined, report, deck.RenderOptions{Subtitle: in.Subtitle, Log: log})

	// Phase 5: Write
	path, err := r.write(ctx, d, in.Template.Style(r.style), log)
	if err != nil {
		return nil, err
	}
	log.Info("deck written", "path", path, "slides", len(d.Slides))

	return &Output{
		DeckPath:   path,
		Analysis:   result,
		Report:     report,
		Titles:     d.Titles(),
		SlideCount: len(d.Slides),
		ChunkCount: len(chunks),
	}, nil
}

func (r *Runner) write(ctx context.Context, d deck.Deck, style deck.StyleConfig, log *slog.Logger) (string, error) {
	f, err := os.CreateTemp("", "docdeck-*.pptx")
	if err != nil {
		return "", apperr.Extraction("create deck file", err)
	}
	path := f.Name()

	err = deck.NewWriter(style, log).Write(ctx, d, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = apperr.Extraction("close deck file", cerr)
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write deck: %w", err)
	}
	return path, nil
}
