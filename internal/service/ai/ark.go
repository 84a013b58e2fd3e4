package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModelGenerator drives an eino chat model (Ark in production) with a
// single user message.
type ChatModelGenerator struct {
	chatModel model.BaseChatModel
}

// NewChatModelGenerator wraps chatModel.
func NewChatModelGenerator(chatModel model.BaseChatModel) *ChatModelGenerator {
	return &ChatModelGenerator{chatModel: chatModel}
}

// Generate implements Generator.
func (g *ChatModelGenerator) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if g == nil || g.chatModel == nil {
		return "", ErrGeneratorUnavailable
	}

	msg, err := g.chatModel.Generate(ctx,
		[]*schema.Message{schema.UserMessage(prompt)},
		model.WithMaxTokens(maxTokens),
		model.WithTemperature(float32(temperature)),
	)
	if err != nil {
		return "", classifyError(err)
	}
	if msg == nil {
		return "", classifyError(errors.New("chat model returned nil message"))
	}
	reply := strings.TrimSpace(msg.Content)
	if reply == "" {
		return "", &UpstreamError{StatusCode: 200, Body: "empty completion"}
	}
	return reply, nil
}
