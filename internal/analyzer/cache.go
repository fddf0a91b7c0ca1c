package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache holds chunk analyses keyed by model, prompt and chunk text.
type Cache struct {
	lru *expirable.LRU[string, string]
}

func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 256
	}
	return &Cache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (c *Cache) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.lru.Get(key)
}

func (c *Cache) Add(key, text string) {
	if c == nil {
		return
	}
	c.lru.Add(key, text)
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func cacheKey(model, systemPrompt, chunk string) string {
	h := sha256.New()
	for _, part := range []string{model, systemPrompt, chunk} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
