package chunker

import (
	"strings"

	"github.com/dgallion1/docdeck/internal/document"
)

// Config controls chunk sizing.
type Config struct {
	MaxTokens int    // Every chunk counts strictly fewer tokens than this
	Model     string // Model name passed to the tokenizer
}

// DefaultConfig returns sensible defaults for gpt-3.5-turbo context windows.
func DefaultConfig() Config {
	return Config{
		MaxTokens: 14000,
		Model:     "gpt-3.5-turbo",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	return c
}

// Chunk splits text into ordered, token-bounded chunks. Lines are packed
// together while the running count stays below cfg.MaxTokens; a line that is
// too large on its own is packed word by word instead, and a single word that
// is still too large is cut by runes. Chunks are trimmed and never empty.
func Chunk(text string, cfg Config, tok Tokenizer) []document.Chunk {
	cfg = cfg.withDefaults()
	if tok == nil {
		tok = EstimateCounter{}
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s := &splitter{cfg: cfg, tok: tok}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	pieces := s.pack(strings.Split(text, "\n"), "\n", s.splitLine)

	chunks := make([]document.Chunk, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		chunks = append(chunks, document.Chunk{
			Text:   p,
			Index:  len(chunks),
			Tokens: tok.CountTokens(p, cfg.Model),
		})
	}
	return chunks
}

type splitter struct {
	cfg Config
	tok Tokenizer
}

func (s *splitter) count(text string) int {
	if text == "" {
		return 0
	}
	return s.tok.CountTokens(text, s.cfg.Model)
}

// pack groups units joined by sep while the running count stays strictly
// below MaxTokens. A unit that reaches the limit alone is flushed through
// split, or emitted as-is when split is nil.
func (s *splitter) pack(units []string, sep string, split func(string) []string) []string {
	sepCost := s.count(sep)

	var (
		out       []string
		cur       []string
		curTokens int
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, sep))
		}
		cur = cur[:0]
		curTokens = 0
	}

	for _, u := range units {
		n := s.count(u)
		if n >= s.cfg.MaxTokens {
			flush()
			if split == nil {
				out = append(out, u)
			} else {
				out = append(out, split(u)...)
			}
			continue
		}

		add := n
		if len(cur) > 0 {
			add += sepCost
		}
		if len(cur) > 0 && curTokens+add >= s.cfg.MaxTokens {
			flush()
			add = n
		}
		cur = append(cur, u)
		curTokens += add
	}
	flush()
	return out
}

func (s *splitter) splitLine(line string) []string {
	return s.pack(strings.Fields(line), " ", s.splitWord)
}

func (s *splitter) splitWord(word string) []string {
	runes := []rune(word)
	units := make([]string, len(runes))
	for i, r := range runes {
		units[i] = string(r)
	}
	return s.pack(units, "", nil)
}
