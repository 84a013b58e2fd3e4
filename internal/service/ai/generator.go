// Package ai contains the remote text-generation clients used by the router.
package ai

import "context"

// Generator produces a completion for a fully assembled prompt.
// Implementations return *UpstreamError or *TransportError on failure.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// Responder answers a raw utterance through a hosted emotion-aware API.
type Responder interface {
	Respond(ctx context.Context, sessionID, text string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	return f(ctx, prompt, maxTokens, temperature)
}

// Unavailable is the Generator used when no backend is configured.
type Unavailable struct{}

// Generate always fails with ErrGeneratorUnavailable.
func (Unavailable) Generate(context.Context, string, int, float64) (string, error) {
	return "", ErrGeneratorUnavailable
}
