package llm

import (
	"context"
	"time"
)

// Instrumented records the latency of every call to the wrapped Generator.
type Instrumented struct {
	next  Generator
	stats *LLMStats
}

func Instrument(next Generator, stats *LLMStats) *Instrumented {
	return &Instrumented{next: next, stats: stats}
}

func (i *Instrumented) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := i.next.Generate(ctx, req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		i.stats.RecordFailure(elapsed)
	} else {
		i.stats.Record(elapsed)
	}
	return out, err
}

// Stats returns the latency window.
func (i *Instrumented) Stats() *LLMStats { return i.stats }
