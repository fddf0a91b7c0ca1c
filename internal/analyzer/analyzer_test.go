package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/docdeck/internal/apperr"
	"github.com/dgallion1/docdeck/internal/document"
	"github.com/dgallion1/docdeck/internal/llm"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	mu    sync.Mutex
	calls []llm.Request
	fn    func(req llm.Request, n int) (string, error)
}

func (s *stubGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	n := len(s.calls)
	s.mu.Unlock()
	return s.fn(req, n)
}

func (s *stubGenerator) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func echo(req llm.Request, _ int) (string, error) {
	if req.SystemPrompt == SynthesisPrompt {
		return "synthesized", nil
	}
	return "analysis of " + req.UserContent, nil
}

func chunks(texts ...string) []document.Chunk {
	out := make([]document.Chunk, len(texts))
	for i, t := range texts {
		out[i] = document.Chunk{Text: t, Index: i}
	}
	return out
}

func TestAnalyze_SingleChunkSkipsSynthesis(t *testing.T) {
	gen := &stubGenerator{fn: echo}
	a := New(gen, DefaultConfig(), nil)

	res, err := a.Analyze(context.Background(), chunks("Revenue: 100"), RunOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, gen.count())
	require.Equal(t, "analysis of Revenue: 100", res.Combined)
	require.False(t, res.Synthesized)

	req := gen.calls[0]
	require.Equal(t, BusinessPrompt, req.SystemPrompt)
	require.Equal(t, "gpt-3.5-turbo", req.Model)
	require.InDelta(t, 0.7, req.Temperature, 1e-9)
	require.Equal(t, 2000, req.MaxOutputTokens)
}

func TestNew_TemperatureDefaults(t *testing.T) {
	gen := &stubGenerator{fn: echo}
	cfg := DefaultConfig()
	cfg.Temperature = 0
	_, err := New(gen, cfg, nil).Analyze(context.Background(), chunks("a"), RunOptions{})
	require.NoError(t, err)
	require.Zero(t, gen.calls[0].Temperature)

	cfg.Temperature = -1
	_, err = New(gen, cfg, nil).Analyze(context.Background(), chunks("b"), RunOptions{})
	require.NoError(t, err)
	require.InDelta(t, 0.7, gen.calls[1].Temperature, 1e-9)
}

func TestAnalyze_ZeroChunksMakesNoCalls(t *testing.T) {
	gen := &stubGenerator{fn: echo}
	res, err := New(gen, DefaultConfig(), nil).Analyze(context.Background(), nil, RunOptions{})
	require.NoError(t, err)
	require.Zero(t, gen.count())
	require.Empty(t, res.Chunks)
	require.Empty(t, res.Combined)
}

func TestAnalyze_MultipleChunksSynthesize(t *testing.T) {
	gen := &stubGenerator{fn: echo}
	res, err := New(gen, DefaultConfig(), nil).Analyze(context.Background(), chunks("a", "b", "c"), RunOptions{})
	require.NoError(t, err)
	require.Equal(t, 4, gen.count())
	require.True(t, res.Synthesized)
	require.Equal(t, "synthesized", res.Combined)

	synth := gen.calls[3]
	require.Equal(t, SynthesisPrompt, synth.SystemPrompt)
	require.True(t, strings.HasPrefix(synth.UserContent, "\n\n=== Combined Analysis ===\n\n"))
	require.Contains(t, synth.UserContent, "\nSection 1:\nanalysis of a\n")
	require.Contains(t, synth.UserContent, "\nSection 3:\nanalysis of c\n")
}

func TestAnalyze_SynthesisFailureFallsBackToConcatenation(t *testing.T) {
	gen := &stubGenerator{fn: func(req llm.Request, n int) (string, error) {
		if req.SystemPrompt == SynthesisPrompt {
			return "", apperr.Service("openai", errors.New("quota"))
		}
		return "part " + req.UserContent, nil
	}}
	res, err := New(gen, DefaultConfig(), nil).Analyze(context.Background(), chunks("x", "y"), RunOptions{})
	require.NoError(t, err)
	require.False(t, res.Synthesized)
	require.Error(t, res.SynthesisErr)
	require.Equal(t, CombineSections([]string{"part x", "part y"}), res.Combined)
}

func TestAnalyze_PartialFailureKeepsSuccesses(t *testing.T) {
	gen := &stubGenerator{fn: func(req llm.Request, n int) (string, error) {
		if req.UserContent == "bad" {
			return "", apperr.Service("openai", errors.New("401 unauthorized"))
		}
		return echo(req, n)
	}}
	var seen []int
	res, err := New(gen, DefaultConfig(), nil).Analyze(context.Background(), chunks("good", "bad"), RunOptions{
		OnChunk: func(r ChunkResult) { seen = append(seen, r.Index) },
	})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, seen)
	require.Len(t, res.Failed(), 1)
	require.Equal(t, 1, res.Failed()[0].Index)
	require.True(t, errors.Is(res.Failed()[0].Err, apperr.ErrService))
	// One success means no synthesis call.
	require.Equal(t, 2, gen.count())
	require.Equal(t, "analysis of good", res.Combined)
}

func TestAnalyze_AllChunksFailIsServiceError(t *testing.T) {
	gen := &stubGenerator{fn: func(llm.Request, int) (string, error) {
		return "", errors.New("connection refused")
	}}
	_, err := New(gen, DefaultConfig(), nil).Analyze(context.Background(), chunks("a", "b"), RunOptions{})
	require.Error(t, err)
	require.Equal(t, apperr.KindService, apperr.KindOf(err))
}

func TestAnalyze_ParallelPreservesOrder(t *testing.T) {
	var inflight, peak int32
	gen := &stubGenerator{fn: func(req llm.Request, n int) (string, error) {
		cur := atomic.AddInt32(&inflight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
		return echo(req, n)
	}}
	cfg := DefaultConfig()
	cfg.Parallelism = 3

	var texts []string
	for i := range 8 {
		texts = append(texts, fmt.Sprintf("chunk-%d", i))
	}
	res, err := New(gen, cfg, nil).Analyze(context.Background(), chunks(texts...), RunOptions{})
	require.NoError(t, err)
	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	for i, r := range res.Chunks {
		require.Equal(t, i, r.Index)
		require.Equal(t, "analysis of "+texts[i], r.Text)
	}
}

func TestAnalyze_CacheAvoidsRepeatCalls(t *testing.T) {
	gen := &stubGenerator{fn: echo}
	a := New(gen, DefaultConfig(), nil, WithCache(NewCache(16, time.Hour)))

	_, err := a.Analyze(context.Background(), chunks("same"), RunOptions{})
	require.NoError(t, err)
	res, err := a.Analyze(context.Background(), chunks("same"), RunOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, gen.count())
	require.True(t, res.Chunks[0].Cached)

	// A different variant is a different prompt and misses the cache.
	_, err = a.Analyze(context.Background(), chunks("same"), RunOptions{Variant: VariantGolf})
	require.NoError(t, err)
	require.Equal(t, 2, gen.count())
}

func TestAnalyze_RetriesRetryableErrors(t *testing.T) {
	gen := &stubGenerator{fn: func(req llm.Request, n int) (string, error) {
		if n == 1 {
			return "", apperr.Service("openai", &llm.RetryableError{StatusCode: 503, Message: "busy"})
		}
		return echo(req, n)
	}}
	cfg := DefaultConfig()
	cfg.MaxRetries = 1
	res, err := New(gen, cfg, nil).Analyze(context.Background(), chunks("a"), RunOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, gen.count())
	require.Equal(t, "analysis of a", res.Combined)
}

func TestAnalyze_NoRetryByDefault(t *testing.T) {
	gen := &stubGenerator{fn: func(llm.Request, int) (string, error) {
		return "", apperr.Service("openai", &llm.RetryableError{StatusCode: 429, Message: "slow"})
	}}
	_, err := New(gen, DefaultConfig(), nil).Analyze(context.Background(), chunks("a"), RunOptions{})
	require.Error(t, err)
	require.Equal(t, 1, gen.count())
}

func TestAnalyze_PromptAddendumAndVariant(t *testing.T) {
	gen := &stubGenerator{fn: echo}
	_, err := New(gen, DefaultConfig(), nil).Analyze(context.Background(), chunks("round"), RunOptions{
		Variant:        VariantGolf,
		PromptAddendum: "# Scorecard",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(gen.calls[0].SystemPrompt, GolfPrompt))
	require.True(t, strings.HasSuffix(gen.calls[0].SystemPrompt, "# Scorecard"))
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("")
	require.NoError(t, err)
	require.Equal(t, VariantBusiness, v)

	v, err = ParseVariant("GOLF")
	require.NoError(t, err)
	require.Equal(t, VariantGolf, v)

	_, err = ParseVariant("poetry")
	require.Error(t, err)
}
