// Package router runs one chat turn: local intent rules first, then emotion
// classification and remote generation for everything else.
package router

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/lumi/backend/internal/analysis/emotion"
	"github.com/zhouzirui/lumi/backend/internal/analysis/intent"
	"github.com/zhouzirui/lumi/backend/internal/analysis/text"
	"github.com/zhouzirui/lumi/backend/internal/metrics"
	"github.com/zhouzirui/lumi/backend/internal/model/chat"
	"github.com/zhouzirui/lumi/backend/internal/model/persona"
	"github.com/zhouzirui/lumi/backend/internal/service/ai"
)

// Modes select how unmatched utterances are answered.
const (
	ModeGenerate = "generate"
	ModeHosted   = "hosted"
)

// Config holds the per-turn flags and generation parameters.
type Config struct {
	Mode               string
	SplitSentences     bool
	SmallTalk          bool
	ShortInputFallback bool
	ShortInputWords    int
	MaxTokens          int
	Temperature        float64
	TopK               int
	GenerationTimeout  time.Duration
}

// DefaultConfig returns the single-utterance generate configuration.
func DefaultConfig() Config {
	return Config{
		Mode:              ModeGenerate,
		ShortInputWords:   3,
		MaxTokens:         200,
		Temperature:       0.7,
		TopK:              3,
		GenerationTimeout: 15 * time.Second,
	}
}

// Classifier returns emotion scores in descending order and never fails.
type Classifier interface {
	Classify(ctx context.Context, text string, topK int) []emotion.Score
}

// Persister stores transcript messages.
type Persister interface {
	SaveMessage(ctx context.Context, msg chat.Message) error
}

// Deps are the router's collaborators. Only Personas is required.
type Deps struct {
	Personas   persona.Store
	Classifier Classifier
	Generator  ai.Generator
	Hosted     ai.Responder
	Prompts    *ai.PersonaPromptManager
	Store      Persister
	Rand       *rand.Rand
	Clock      func() time.Time
	NewID      func() string
	Logger     *zap.Logger
	Metrics    *metrics.Recorder
}

// Router is safe for concurrent use across sessions. Turns on one
// Conversation must be serialized by the caller.
type Router struct {
	cfg        Config
	personas   persona.Store
	classifier Classifier
	generator  ai.Generator
	hosted     ai.Responder
	prompts    *ai.PersonaPromptManager
	store      Persister
	clock      func() time.Time
	newID      func() string
	logger     *zap.Logger
	metrics    *metrics.Recorder

	randMu sync.Mutex
	rand   *rand.Rand
}

// New builds a Router, filling unset dependencies with defaults.
func New(cfg Config, deps Deps) *Router {
	defaults := DefaultConfig()
	if cfg.Mode == "" {
		cfg.Mode = defaults.Mode
	}
	if cfg.ShortInputWords <= 0 {
		cfg.ShortInputWords = defaults.ShortInputWords
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaults.Temperature
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaults.TopK
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = defaults.GenerationTimeout
	}

	r := &Router{
		cfg:        cfg,
		personas:   deps.Personas,
		classifier: deps.Classifier,
		generator:  deps.Generator,
		hosted:     deps.Hosted,
		prompts:    deps.Prompts,
		store:      deps.Store,
		rand:       deps.Rand,
		clock:      deps.Clock,
		newID:      deps.NewID,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
	if r.personas == nil {
		r.personas = persona.NewMemoryStore(nil)
	}
	if r.classifier == nil {
		r.classifier = neutralClassifier{}
	}
	if r.generator == nil {
		r.generator = ai.Unavailable{}
	}
	if r.prompts == nil {
		r.prompts = ai.NewPersonaPromptManager(r.personas.List())
	}
	if r.rand == nil {
		r.rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Config returns the effective configuration.
func (r *Router) Config() Config {
	return r.cfg
}

// fragment is the reply to one utterance or one sentence of it.
type fragment struct {
	text    string
	intent  string
	source  chat.Source
	emotion string
}

// HandleTurn processes one raw utterance. Whitespace-only input is a no-op
// and returns ok == false. Otherwise exactly one user message and one
// assistant message are appended to conv, in that order.
//
// The turn is detached from ctx cancellation; remote calls are bounded by
// the configured generation timeout instead.
func (r *Router) HandleTurn(ctx context.Context, conv *chat.Conversation, raw string) (user, assistant chat.Message, ok bool) {
	if strings.TrimSpace(raw) == "" {
		return chat.Message{}, chat.Message{}, false
	}
	ctx = context.WithoutCancel(ctx)
	p := persona.Resolve(r.personas, conv.PersonaID)

	user = r.newMessage(conv.SessionID, chat.RoleUser, raw)
	conv.Append(user)
	r.persist(ctx, user)

	var reply fragment
	if r.cfg.SplitSentences {
		reply = r.replySentences(ctx, conv, p, raw)
	} else {
		reply = r.replyUtterance(ctx, conv, p, raw)
	}

	assistant = r.newMessage(conv.SessionID, chat.RoleAssistant, reply.text)
	assistant.Source = reply.source
	assistant.Emotion = reply.emotion
	conv.Append(assistant)
	r.persist(ctx, assistant)

	r.metrics.Turn(reply.intent, string(reply.source))
	r.logger.Debug("[router] turn handled",
		zap.String("session", conv.SessionID),
		zap.String("intent", reply.intent),
		zap.String("source", string(reply.source)),
		zap.String("emotion", reply.emotion),
	)
	return user, assistant, true
}

func (r *Router) replyUtterance(ctx context.Context, conv *chat.Conversation, p persona.Persona, raw string) fragment {
	normalized := text.Normalize(raw)
	category := intent.Classify(normalized)
	if category == intent.None && r.cfg.SmallTalk {
		if strict := intent.ClassifySentence(normalized); strict.IsSmallTalk() {
			category = strict
		}
	}

	if reply, ok := r.direct(p, category); ok {
		return fragment{text: reply, intent: string(category), source: chat.SourceDirect}
	}
	return r.open(ctx, conv, p, raw, normalized)
}

// replySentences answers each sentence on its own and joins the fragments.
// Identity is checked against the whole utterance first.
func (r *Router) replySentences(ctx context.Context, conv *chat.Conversation, p persona.Persona, raw string) fragment {
	if intent.Classify(text.Normalize(raw)) == intent.Identity {
		return fragment{text: p.Identity, intent: string(intent.Identity), source: chat.SourceDirect}
	}

	sentences := text.SplitSentences(raw)
	if len(sentences) == 0 {
		sentences = []string{raw}
	}

	var parts []fragment
	for _, sentence := range sentences {
		normalized := text.Normalize(sentence)
		if normalized == "" {
			continue
		}
		category := intent.ClassifySentence(normalized)
		if reply, ok := r.direct(p, category); ok {
			parts = append(parts, fragment{text: reply, intent: string(category), source: chat.SourceDirect})
			continue
		}
		parts = append(parts, r.open(ctx, conv, p, sentence, normalized))
	}

	switch len(parts) {
	case 0:
		return r.replyUtterance(ctx, conv, p, raw)
	case 1:
		return parts[0]
	}

	joined := fragment{intent: "multi", source: chat.SourceDirect}
	texts := make([]string, 0, len(parts))
	for _, part := range parts {
		texts = append(texts, part.text)
		if part.source != chat.SourceDirect {
			joined.source = part.source
		}
		if part.emotion != "" {
			joined.emotion = part.emotion
		}
	}
	joined.text = strings.Join(texts, " ")
	return joined
}

// direct returns a canned reply for categories answered locally.
func (r *Router) direct(p persona.Persona, category intent.Category) (string, bool) {
	switch category {
	case intent.Identity:
		return p.Identity, true
	case intent.Greeting:
		return r.pick(p.Greetings)
	case intent.Farewell:
		return r.pick(p.Farewells)
	}
	if !r.cfg.SmallTalk {
		return "", false
	}
	switch category {
	case intent.PositiveMood:
		return r.pick(p.PositiveMood)
	case intent.FeelingReciprocation:
		return r.pick(p.Reciprocation)
	case intent.CasualDeflection:
		return r.pick(p.CasualDeflection)
	default:
		return "", false
	}
}

// open answers an utterance no local rule matched.
func (r *Router) open(ctx context.Context, conv *chat.Conversation, p persona.Persona, raw, normalized string) fragment {
	if r.cfg.ShortInputFallback && text.WordCount(normalized) < r.cfg.ShortInputWords {
		if reply, ok := r.pick(p.ShortInput); ok {
			return fragment{text: reply, intent: string(intent.None), source: chat.SourceDirect}
		}
	}
	if r.cfg.Mode == ModeHosted {
		return r.respondHosted(ctx, conv, p, raw)
	}
	return r.generate(ctx, conv, p, raw, normalized)
}

func (r *Router) generate(ctx context.Context, conv *chat.Conversation, p persona.Persona, raw, normalized string) fragment {
	scores := r.classifier.Classify(ctx, normalized, r.cfg.TopK)
	dominant := emotion.Dominant(scores)

	conv.PushUser(string(dominant), raw)
	prompt := r.prompts.BuildPrompt(p.ID, dominant, conv.RecentContext(0))

	genCtx, cancel := context.WithTimeout(ctx, r.cfg.GenerationTimeout)
	defer cancel()

	reply, err := r.generator.Generate(genCtx, prompt, r.cfg.MaxTokens, r.cfg.Temperature)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = &ai.UpstreamError{StatusCode: 200, Body: "empty completion"}
	}
	if err != nil {
		return r.apologize(conv, p, err, string(dominant))
	}

	reply = strings.TrimSpace(reply)
	conv.PushAssistant(reply)
	return fragment{text: reply, intent: string(intent.None), source: chat.SourceGenerated, emotion: string(dominant)}
}

func (r *Router) respondHosted(ctx context.Context, conv *chat.Conversation, p persona.Persona, raw string) fragment {
	conv.PushUser(string(emotion.Neutral), raw)
	if r.hosted == nil {
		return r.apologize(conv, p, ai.ErrGeneratorUnavailable, "")
	}

	hostedCtx, cancel := context.WithTimeout(ctx, r.cfg.GenerationTimeout)
	defer cancel()

	reply, err := r.hosted.Respond(hostedCtx, conv.SessionID, raw)
	if err != nil {
		return r.apologize(conv, p, err, "")
	}
	conv.PushAssistant(reply)
	return fragment{text: reply, intent: string(intent.None), source: chat.SourceHosted}
}

// apologize swaps a failed remote call for a canned apology. The failure
// itself is only logged and counted.
func (r *Router) apologize(conv *chat.Conversation, p persona.Persona, err error, label string) fragment {
	kind := ai.Kind(err)
	r.logger.Warn("[router] generation failed, using apology",
		zap.String("session", conv.SessionID),
		zap.String("kind", kind),
		zap.Error(err),
	)
	r.metrics.GenerationFailure(kind)

	reply, ok := r.pick(p.Apologies)
	if !ok {
		reply = p.HostedDefault
	}
	return fragment{text: reply, intent: string(intent.None), source: chat.SourceFallback, emotion: label}
}

func (r *Router) pick(pool []string) (string, bool) {
	if len(pool) == 0 {
		return "", false
	}
	r.randMu.Lock()
	idx := r.rand.IntN(len(pool))
	r.randMu.Unlock()
	return pool[idx], true
}

func (r *Router) newMessage(sessionID string, role chat.Role, content string) chat.Message {
	return chat.Message{
		ID:        r.newID(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: r.clock().UTC(),
	}
}

func (r *Router) persist(ctx context.Context, msg chat.Message) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveMessage(ctx, msg); err != nil {
		r.logger.Warn("[router] persist message failed",
			zap.String("session", msg.SessionID),
			zap.String("role", string(msg.Role)),
			zap.Error(err),
		)
	}
}

type neutralClassifier struct{}

func (neutralClassifier) Classify(context.Context, string, int) []emotion.Score {
	return []emotion.Score{{Label: emotion.Neutral, Score: 1}}
}
