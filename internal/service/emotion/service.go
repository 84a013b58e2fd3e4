package emotion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	analysis "github.com/zhouzirui/lumi/backend/internal/analysis/emotion"
)

// ErrClassifierUnavailable 表示分类器未启用或构建失败。
var ErrClassifierUnavailable = errors.New("emotion classifier unavailable")

// Backends accepted by Config.Backend.
const (
	BackendLexicon  = "lexicon"
	BackendLLM      = "llm"
	BackendDisabled = "disabled"
)

// Config 控制情绪分析服务的行为。
type Config struct {
	Backend string
}

// Classifier scores text against the emotion vocabulary.
type Classifier interface {
	Classify(ctx context.Context, text string, topK int) ([]analysis.Score, error)
}

// Service wraps a Classifier and never lets its faults reach the caller:
// every failure collapses into a single neutral score.
type Service struct {
	classifier Classifier
	logger     *zap.Logger
}

// NewService 创建情绪分析服务。chatModel 仅在 llm 后端下使用，可重用现有的大模型实例。
// A backend that cannot be built leaves the service in neutral-only mode.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	svc := &Service{logger: logger}
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendLexicon:
		svc.classifier = LexiconClassifier{}
	case BackendLLM:
		classifier, err := NewLLMClassifier(ctx, chatModel)
		if err != nil {
			logger.Warn("[emotion] llm classifier unavailable, using neutral fallback", zap.Error(err))
			break
		}
		svc.classifier = classifier
	case BackendDisabled:
	default:
		logger.Warn("[emotion] unknown backend, using neutral fallback", zap.String("backend", cfg.Backend))
	}
	return svc
}

// NewServiceWithClassifier wires an explicit classifier.
func NewServiceWithClassifier(classifier Classifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{classifier: classifier, logger: logger}
}

// Enabled reports whether a classifier backs the service.
func (s *Service) Enabled() bool {
	return s != nil && s.classifier != nil
}

// Classify returns at most topK scores in descending order. Any fault, panic
// included, yields [{neutral, 1.0}].
func (s *Service) Classify(ctx context.Context, text string, topK int) (scores []analysis.Score) {
	if topK < 1 {
		topK = 1
	}
	if !s.Enabled() {
		return neutral()
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("[emotion] classifier panicked, use fallback", zap.Any("panic", r))
			scores = neutral()
		}
	}()

	result, err := s.classifier.Classify(ctx, text, topK)
	if err != nil {
		s.logger.Warn("[emotion] classifier failed, use fallback", zap.Error(err))
		return neutral()
	}

	valid := make([]analysis.Score, 0, len(result))
	for _, score := range result {
		if _, ok := analysis.Parse(string(score.Label)); !ok {
			continue
		}
		valid = append(valid, score)
	}
	if len(valid) == 0 {
		s.logger.Warn("[emotion] classifier returned no usable labels, use fallback")
		return neutral()
	}

	analysis.SortScores(valid)
	if len(valid) > topK {
		valid = valid[:topK]
	}
	return valid
}

func neutral() []analysis.Score {
	return []analysis.Score{{Label: analysis.Neutral, Score: 1}}
}

// LexiconClassifier runs the local keyword model.
type LexiconClassifier struct{}

// Classify implements Classifier.
func (LexiconClassifier) Classify(_ context.Context, text string, topK int) ([]analysis.Score, error) {
	return analysis.Analyze(text, topK), nil
}

// LLMClassifier asks a chat model for GoEmotions scores through an eino chain.
type LLMClassifier struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewLLMClassifier compiles the classification chain over chatModel.
func NewLLMClassifier(ctx context.Context, chatModel model.ChatModel) (*LLMClassifier, error) {
	if chatModel == nil {
		return nil, ErrClassifierUnavailable
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(classifierSystemPrompt),
		schema.UserMessage(classifierUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile emotion classifier chain: %w", err)
	}
	return &LLMClassifier{chain: runnable}, nil
}

// Classify implements Classifier.
func (c *LLMClassifier) Classify(ctx context.Context, text string, topK int) ([]analysis.Score, error) {
	msg, err := c.chain.Invoke(ctx, map[string]any{
		"labels": labelList(),
		"top_k":  topK,
		"text":   strings.TrimSpace(text),
	})
	if err != nil {
		return nil, fmt.Errorf("invoke classifier chain: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return nil, errors.New("empty classifier output")
	}
	return parseClassifierOutput(msg.Content)
}

type classifierPayload struct {
	Emotions []struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	} `json:"emotions"`
}

// parseClassifierOutput 解析大模型返回的 JSON，忽略词表之外的标签。
func parseClassifierOutput(content string) ([]analysis.Score, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	var payload classifierPayload
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &payload); err != nil {
		return nil, err
	}

	scores := make([]analysis.Score, 0, len(payload.Emotions))
	for _, item := range payload.Emotions {
		label, ok := analysis.Parse(item.Label)
		if !ok {
			continue
		}
		scores = append(scores, analysis.Score{Label: label, Score: clampScore(item.Score)})
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("no known labels in classifier output")
	}
	return scores, nil
}

func clampScore(val float64) float64 {
	switch {
	case val < 0:
		return 0
	case val > 1:
		return 1
	default:
		return val
	}
}

func labelList() string {
	names := make([]string, len(analysis.All))
	for i, label := range analysis.All {
		names[i] = string(label)
	}
	return strings.Join(names, ", ")
}

const classifierSystemPrompt = "You are an emotion classifier. Read the user's message and score how strongly it expresses each of these labels: {labels}.\n" +
	"Return only one JSON object of the form {{\"emotions\":[{{\"label\":\"<label>\",\"score\":<0..1>}}]}} listing at most {top_k} labels ordered by descending score. Use \"neutral\" when no emotion is clear. Output nothing else."

const classifierUserPrompt = "Message:\n{text}"
