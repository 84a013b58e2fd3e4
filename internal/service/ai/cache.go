package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedGenerator memoizes successful generations in a fixed-size LRU.
// The key covers the whole prompt, so identical text in a different rolling
// context is a different entry.
type CachedGenerator struct {
	inner Generator
	cache *lru.Cache[string, string]
}

// WithCache wraps inner with an LRU of the given capacity. A capacity of zero
// or less returns inner unchanged.
func WithCache(inner Generator, size int) (Generator, error) {
	if size <= 0 {
		return inner, nil
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create response cache: %w", err)
	}
	return &CachedGenerator{inner: inner, cache: cache}, nil
}

// Generate implements Generator. Failures are never cached.
func (g *CachedGenerator) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	key := cacheKey(prompt, maxTokens, temperature)
	if reply, ok := g.cache.Get(key); ok {
		return reply, nil
	}

	reply, err := g.inner.Generate(ctx, prompt, maxTokens, temperature)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) != "" {
		g.cache.Add(key, reply)
	}
	return reply, nil
}

// Len reports the number of cached replies.
func (g *CachedGenerator) Len() int {
	return g.cache.Len()
}

func cacheKey(prompt string, maxTokens int, temperature float64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%.3f|%s", maxTokens, temperature, prompt)))
	return hex.EncodeToString(sum[:])
}
