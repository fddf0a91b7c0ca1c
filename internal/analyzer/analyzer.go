// Package analyzer runs chunk-by-chunk model analysis and the synthesis pass.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docdeck/internal/apperr"
	"github.com/dgallion1/docdeck/internal/document"
	"github.com/dgallion1/docdeck/internal/llm"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Config holds the model parameters and concurrency policy.
type Config struct {
	Model           string
	Temperature     float64
	MaxOutputTokens int
	Variant         Variant

	// Parallelism above 1 analyzes chunks concurrently. Results keep input order.
	Parallelism int
	// RequestsPerMinute paces model calls when positive.
	RequestsPerMinute float64
	// MaxRetries applies to retryable service errors only.
	MaxRetries int
}

// DefaultConfig mirrors the reference analysis parameters.
func DefaultConfig() Config {
	return Config{
		Model:           "gpt-3.5-turbo",
		Temperature:     0.7,
		MaxOutputTokens: 2000,
		Variant:         VariantBusiness,
		Parallelism:     1,
	}
}

// ChunkResult is the outcome of analyzing one chunk. Exactly one of Text and
// Err is meaningful.
type ChunkResult struct {
	Index  int
	Text   string
	Err    error
	Cached bool
}

// Analysis is the combined outcome for a document.
type Analysis struct {
	Chunks []ChunkResult
	// Combined is the synthesized summary, the single chunk analysis, or the
	// section concatenation when synthesis failed.
	Combined     string
	Synthesized  bool
	SynthesisErr error
}

// Failed returns the chunk results that carry an error.
func (a Analysis) Failed() []ChunkResult {
	var out []ChunkResult
	for _, r := range a.Chunks {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// RunOptions customizes one Analyze call.
type RunOptions struct {
	Variant        Variant // Zero uses Config.Variant
	PromptAddendum string  // Appended to the system prompt
	// OnChunk observes each result. It runs concurrently when Parallelism > 1.
	OnChunk func(ChunkResult)
}

// Analyzer maps chunks through a Generator and reduces them with a
// synthesis call.
type Analyzer struct {
	gen     llm.Generator
	cfg     Config
	log     *slog.Logger
	cache   *Cache
	limiter *rate.Limiter
}

type Option func(*Analyzer)

// WithCache reuses analyses of identical chunks.
func WithCache(c *Cache) Option {
	return func(a *Analyzer) { a.cache = c }
}

func New(gen llm.Generator, cfg Config, log *slog.Logger, opts ...Option) *Analyzer {
	d := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = d.Model
	}
	// Zero is a valid, deterministic temperature.
	if cfg.Temperature < 0 {
		cfg.Temperature = d.Temperature
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = d.MaxOutputTokens
	}
	if cfg.Variant == "" {
		cfg.Variant = d.Variant
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	if log == nil {
		log = slog.Default()
	}
	a := &Analyzer{gen: gen, cfg: cfg, log: log}
	if cfg.RequestsPerMinute > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), 1)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the map step over chunks and, when more than one chunk
// succeeded, a synthesis call. A failed chunk does not stop the others. The
// error is non-nil only when every chunk failed or ctx was cancelled. Zero
// chunks make no calls and return an empty Analysis.
func (a *Analyzer) Analyze(ctx context.Context, chunks []document.Chunk, opts RunOptions) (Analysis, error) {
	if len(chunks) == 0 {
		return Analysis{}, nil
	}
	variant := opts.Variant
	if variant == "" {
		variant = a.cfg.Variant
	}
	system := BuildSystemPrompt(variant, opts.PromptAddendum)

	results := make([]ChunkResult, len(chunks))
	run := func(i int) {
		r := a.analyzeChunk(ctx, system, chunks[i])
		results[i] = r
		if opts.OnChunk != nil {
			opts.OnChunk(r)
		}
	}

	if a.cfg.Parallelism > 1 && len(chunks) > 1 {
		var g errgroup.Group
		g.SetLimit(a.cfg.Parallelism)
		for i := range chunks {
			g.Go(func() error {
				run(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range chunks {
			if err := ctx.Err(); err != nil {
				return Analysis{Chunks: results[:i]}, err
			}
			run(i)
		}
	}
	if err := ctx.Err(); err != nil {
		return Analysis{Chunks: results}, err
	}

	out := Analysis{Chunks: results}
	var texts []string
	var firstErr error
	for _, r := range results {
		if r.Err != nil {
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}
		texts = append(texts, r.Text)
	}

	switch len(texts) {
	case 0:
		return out, fmt.Errorf("all %d chunks failed: %w", len(chunks), firstErr)
	case 1:
		out.Combined = texts[0]
		return out, nil
	}

	combined := CombineSections(texts)
	summary, err := a.call(ctx, llm.Request{
		SystemPrompt:    SynthesisPrompt,
		UserContent:     combined,
		Model:           a.cfg.Model,
		Temperature:     a.cfg.Temperature,
		MaxOutputTokens: a.cfg.MaxOutputTokens,
	})
	if err != nil {
		a.log.Warn("synthesis failed, using section concatenation", "sections", len(texts), "error", err)
		out.Combined = combined
		out.SynthesisErr = err
		return out, nil
	}
	out.Combined = summary
	out.Synthesized = true
	return out, nil
}

func (a *Analyzer) analyzeChunk(ctx context.Context, system string, chunk document.Chunk) ChunkResult {
	key := cacheKey(a.cfg.Model, system, chunk.Text)
	if text, ok := a.cache.Get(key); ok {
		a.log.Debug("chunk analysis cache hit", "chunk", chunk.Index)
		return ChunkResult{Index: chunk.Index, Text: text, Cached: true}
	}

	text, err := a.call(ctx, llm.Request{
		SystemPrompt:    system,
		UserContent:     chunk.Text,
		Model:           a.cfg.Model,
		Temperature:     a.cfg.Temperature,
		MaxOutputTokens: a.cfg.MaxOutputTokens,
	})
	if err != nil {
		a.log.Error("chunk analysis failed", "chunk", chunk.Index, "error", err)
		return ChunkResult{Index: chunk.Index, Err: err}
	}
	a.cache.Add(key, text)
	return ChunkResult{Index: chunk.Index, Text: text}
}

// call issues one paced request, retrying retryable failures up to
// MaxRetries times.
func (a *Analyzer) call(ctx context.Context, req llm.Request) (string, error) {
	for attempt := 0; ; attempt++ {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return "", apperr.Service("rate limit", err)
			}
		}
		text, err := a.gen.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		if attempt >= a.cfg.MaxRetries || !llm.IsRetryable(err) {
			if apperr.KindOf(err) == "" {
				err = apperr.Service("generate", err)
			}
			return "", err
		}
		a.log.Warn("retryable model error", "attempt", attempt, "error", err)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
