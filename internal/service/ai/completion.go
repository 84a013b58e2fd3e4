package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
)

const defaultCompletionTimeout = 15 * time.Second

// NewCompletionGenerator builds a generator for an OpenAI-compatible chat
// completions endpoint (Groq by default). A zero timeout means 15s.
func NewCompletionGenerator(ctx context.Context, baseURL, apiKey, modelName string, timeout time.Duration) (*ChatModelGenerator, error) {
	if timeout <= 0 {
		timeout = defaultCompletionTimeout
	}
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   modelName,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create completion model: %w", err)
	}
	return NewChatModelGenerator(chatModel), nil
}
