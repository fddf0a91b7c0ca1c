package chunker

import (
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts tokens for a model. Implementations must be deterministic.
type Tokenizer interface {
	CountTokens(text, model string) int
}

// EstimateTokens gives a rough token count from the word count.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	// Roughly 0.75 words per token for English text.
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// EstimateCounter implements Tokenizer with EstimateTokens.
type EstimateCounter struct{}

func (EstimateCounter) CountTokens(text, _ string) int { return EstimateTokens(text) }

// WordCounter counts whitespace-separated words.
type WordCounter struct{}

func (WordCounter) CountTokens(text, _ string) int { return len(strings.Fields(text)) }

// RuneCounter counts characters.
type RuneCounter struct{}

func (RuneCounter) CountTokens(text, _ string) int { return utf8.RuneCountInString(text) }

const fallbackEncoding = "cl100k_base"

// TiktokenCounter counts BPE tokens with the encoding registered for each
// model. Encodings are loaded once per model and cached. If no encoding can
// be loaded the counter degrades to EstimateTokens.
type TiktokenCounter struct {
	log *slog.Logger

	mu   sync.Mutex
	encs map[string]*tiktoken.Tiktoken
}

func NewTiktokenCounter(log *slog.Logger) *TiktokenCounter {
	if log == nil {
		log = slog.Default()
	}
	return &TiktokenCounter{log: log, encs: make(map[string]*tiktoken.Tiktoken)}
}

func (c *TiktokenCounter) CountTokens(text, model string) int {
	if text == "" {
		return 0
	}
	enc := c.encoding(model)
	if enc == nil {
		return EstimateTokens(text)
	}
	return len(enc.EncodeOrdinary(text))
}

func (c *TiktokenCounter) encoding(model string) *tiktoken.Tiktoken {
	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encs[model]; ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		c.log.Warn("tiktoken encoding unavailable, estimating tokens", "model", model, "error", err)
		enc = nil
	}
	// Cache misses too so a missing encoding is only reported once.
	c.encs[model] = enc
	return enc
}
