package router

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhouzirui/lumi/backend/internal/analysis/emotion"
	"github.com/zhouzirui/lumi/backend/internal/metrics"
	"github.com/zhouzirui/lumi/backend/internal/model/chat"
	"github.com/zhouzirui/lumi/backend/internal/model/persona"
	"github.com/zhouzirui/lumi/backend/internal/service/ai"
	emotionservice "github.com/zhouzirui/lumi/backend/internal/service/emotion"
)

type recordingGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
	block   bool
}

func (g *recordingGenerator) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.block {
		<-ctx.Done()
		return "", &ai.TransportError{Err: ctx.Err()}
	}
	if err := ctx.Err(); err != nil {
		return "", &ai.TransportError{Err: err}
	}
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *recordingGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

type countingClassifier struct {
	inner Classifier
	n     int
}

func (c *countingClassifier) Classify(ctx context.Context, text string, topK int) []emotion.Score {
	c.n++
	return c.inner.Classify(ctx, text, topK)
}

type memoryPersister struct {
	saved []chat.Message
	err   error
}

func (m *memoryPersister) SaveMessage(_ context.Context, msg chat.Message) error {
	m.saved = append(m.saved, msg)
	return m.err
}

type stubResponder struct {
	reply string
	err   error
	seen  []string
}

func (s *stubResponder) Respond(_ context.Context, _ string, text string) (string, error) {
	s.seen = append(s.seen, text)
	return s.reply, s.err
}

type fixture struct {
	router     *Router
	generator  *recordingGenerator
	classifier *countingClassifier
	store      *memoryPersister
	persona    persona.Persona
}

func newFixture(t *testing.T, cfg Config, mutate func(*Deps)) *fixture {
	t.Helper()
	gen := &recordingGenerator{reply: "It sounds like tomorrow matters a lot to you."}
	cls := &countingClassifier{inner: emotionservice.NewServiceWithClassifier(emotionservice.LexiconClassifier{}, zap.NewNop())}
	store := &memoryPersister{}
	deps := Deps{
		Personas:   persona.NewMemoryStore(persona.Seed()),
		Classifier: cls,
		Generator:  gen,
		Store:      store,
		Rand:       rand.New(rand.NewPCG(1, 2)),
		Clock:      func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600)) },
		Logger:     zap.NewNop(),
		Metrics:    metrics.New(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &fixture{router: New(cfg, deps), generator: gen, classifier: cls, store: store, persona: persona.Lumi()}
}

func newConversation() *chat.Conversation {
	return chat.NewConversation("session-1", persona.DefaultID)
}

func TestGreetingIsAnsweredLocally(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	conv := newConversation()

	user, assistant, ok := f.router.HandleTurn(context.Background(), conv, "Hello")
	require.True(t, ok)
	assert.Equal(t, "Hello", user.Content)
	assert.Equal(t, chat.RoleUser, user.Role)
	assert.Contains(t, f.persona.Greetings, assistant.Content)
	assert.Equal(t, chat.SourceDirect, assistant.Source)
	assert.Equal(t, 0, f.generator.calls())
	assert.Equal(t, 0, f.classifier.n)
	assert.Equal(t, 0, conv.ContextLen())
}

func TestFarewellIsAnsweredLocally(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	_, assistant, ok := f.router.HandleTurn(context.Background(), newConversation(), "Goodbye")
	require.True(t, ok)
	assert.Contains(t, f.persona.Farewells, assistant.Content)
	assert.Equal(t, 0, f.generator.calls())
}

func TestIdentityReplyIsVerbatim(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	for _, input := range []string{"who is lumi", "Who is Lumi?", "hi, who are you"} {
		_, assistant, ok := f.router.HandleTurn(context.Background(), newConversation(), input)
		require.True(t, ok)
		assert.Equal(t, f.persona.Identity, assistant.Content, input)
	}
	assert.Equal(t, 0, f.generator.calls())
}

func TestOpenUtteranceIsClassifiedAndGenerated(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	conv := newConversation()

	_, assistant, ok := f.router.HandleTurn(context.Background(), conv, "I feel so anxious about tomorrow")
	require.True(t, ok)
	assert.Equal(t, "It sounds like tomorrow matters a lot to you.", assistant.Content)
	assert.Equal(t, chat.SourceGenerated, assistant.Source)
	assert.Equal(t, string(emotion.Nervousness), assistant.Emotion)
	assert.Equal(t, 1, f.classifier.n)

	require.Equal(t, 1, f.generator.calls())
	prompt := f.generator.prompts[0]
	assert.Contains(t, prompt, "Emotion-Specific Instruction: The user is nervous. Help them feel reassured and offer calming advice.")
	assert.Contains(t, prompt, "User (nervousness): I feel so anxious about tomorrow")
	assert.True(t, strings.HasSuffix(prompt, "Chatbot:"))

	assert.Equal(t, []string{
		"User (nervousness): I feel so anxious about tomorrow",
		"Chatbot: It sounds like tomorrow matters a lot to you.",
	}, conv.RecentContext(0))
}

func TestUpstreamFailureUsesApology(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	f.generator.err = &ai.UpstreamError{StatusCode: 500, Body: "internal server error"}
	conv := newConversation()

	_, assistant, ok := f.router.HandleTurn(context.Background(), conv, "I feel so anxious about tomorrow")
	require.True(t, ok)
	assert.Contains(t, f.persona.Apologies, assistant.Content)
	assert.Equal(t, chat.SourceFallback, assistant.Source)
	assert.NotContains(t, assistant.Content, "500")
	assert.Equal(t, 2, conv.Len())
}

func TestGenerationTimeoutUsesApology(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GenerationTimeout = 20 * time.Millisecond
	f := newFixture(t, cfg, nil)
	f.generator.block = true

	_, assistant, ok := f.router.HandleTurn(context.Background(), newConversation(), "tell me about the weather on mars")
	require.True(t, ok)
	assert.Contains(t, f.persona.Apologies, assistant.Content)
}

func TestTurnIsDetachedFromCallerCancellation(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, assistant, ok := f.router.HandleTurn(ctx, newConversation(), "I feel so anxious about tomorrow")
	require.True(t, ok)
	assert.Equal(t, chat.SourceGenerated, assistant.Source)
}

func TestEmptyInputIsNoop(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	conv := newConversation()

	for _, input := range []string{"", "   ", "\n\t"} {
		_, _, ok := f.router.HandleTurn(context.Background(), conv, input)
		assert.False(t, ok)
	}
	assert.Equal(t, 0, conv.Len())
	assert.Empty(t, f.store.saved)
}

func TestEveryTurnAppendsOnePair(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	conv := newConversation()
	inputs := []string{"Hello", "I feel so anxious about tomorrow", "who is lumi", "my cat ignored me today", "bye"}

	for i, input := range inputs {
		before := conv.Len()
		_, _, ok := f.router.HandleTurn(context.Background(), conv, input)
		require.True(t, ok)
		msgs := conv.Messages()
		require.Equal(t, before+2, len(msgs))
		assert.Equal(t, chat.RoleUser, msgs[before].Role, "turn %d", i)
		assert.Equal(t, chat.RoleAssistant, msgs[before+1].Role, "turn %d", i)
		assert.Equal(t, time.UTC, msgs[before].Timestamp.Location())
	}
	assert.Len(t, f.store.saved, 2*len(inputs))
}

func TestRollingContextStaysBounded(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	conv := newConversation()

	for i := 0; i < 20; i++ {
		_, _, ok := f.router.HandleTurn(context.Background(), conv, "I feel so anxious about tomorrow")
		require.True(t, ok)
		require.LessOrEqual(t, conv.ContextLen(), chat.RollingContextLimit)
	}
	assert.Equal(t, chat.RollingContextLimit, conv.ContextLen())
	assert.Equal(t, 40, conv.Len())
}

func TestPersistenceFailureDoesNotBreakTurn(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	f.store.err = errors.New("disk full")

	_, assistant, ok := f.router.HandleTurn(context.Background(), newConversation(), "Hello")
	require.True(t, ok)
	assert.NotEmpty(t, assistant.Content)
	assert.Len(t, f.store.saved, 2)
}

func TestSplitSentencesJoinsFragments(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SplitSentences = true
	cfg.SmallTalk = true
	f := newFixture(t, cfg, nil)

	_, assistant, ok := f.router.HandleTurn(context.Background(), newConversation(), "Hello. I'm good and you?")
	require.True(t, ok)

	matched := false
	for _, g := range f.persona.Greetings {
		for _, rc := range f.persona.Reciprocation {
			if assistant.Content == g+" "+rc {
				matched = true
			}
		}
	}
	assert.True(t, matched, "unexpected joined reply %q", assistant.Content)
	assert.Equal(t, 0, f.generator.calls())
}

func TestSplitSentencesGeneratesUnmatchedSentences(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SplitSentences = true
	f := newFixture(t, cfg, nil)

	_, assistant, ok := f.router.HandleTurn(context.Background(), newConversation(), "Hello! I feel so anxious about tomorrow.")
	require.True(t, ok)
	assert.Equal(t, 1, f.generator.calls())
	assert.True(t, strings.HasSuffix(assistant.Content, " It sounds like tomorrow matters a lot to you."), assistant.Content)
	assert.Equal(t, chat.SourceGenerated, assistant.Source)
	assert.Equal(t, string(emotion.Nervousness), assistant.Emotion)
}

func TestSplitSentencesChecksIdentityOnWholeUtterance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SplitSentences = true
	f := newFixture(t, cfg, nil)

	_, assistant, ok := f.router.HandleTurn(context.Background(), newConversation(), "Hi. Who is Lumi?")
	require.True(t, ok)
	assert.Equal(t, f.persona.Identity, assistant.Content)
}

func TestSmallTalkDisabledFallsThrough(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	_, assistant, ok := f.router.HandleTurn(context.Background(), newConversation(), "I'm good")
	require.True(t, ok)
	assert.Equal(t, chat.SourceGenerated, assistant.Source)
	assert.Equal(t, 1, f.generator.calls())
}

func TestSmallTalkEnabledAnswersPositiveMood(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmallTalk = true
	f := newFixture(t, cfg, nil)

	_, assistant, ok := f.router.HandleTurn(context.Background(), newConversation(), "I'm good")
	require.True(t, ok)
	assert.Contains(t, f.persona.PositiveMood, assistant.Content)
	assert.Equal(t, 0, f.generator.calls())
}

func TestShortInputFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShortInputFallback = true
	f := newFixture(t, cfg, nil)

	_, assistant, ok := f.router.HandleTurn(context.Background(), newConversation(), "meh")
	require.True(t, ok)
	assert.Contains(t, f.persona.ShortInput, assistant.Content)
	assert.Equal(t, 0, f.generator.calls())
	assert.Equal(t, 0, f.classifier.n)
}

func TestHostedMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeHosted
	responder := &stubResponder{reply: "Lumi hears you."}
	f := newFixture(t, cfg, func(d *Deps) { d.Hosted = responder })
	conv := newConversation()

	_, assistant, ok := f.router.HandleTurn(context.Background(), conv, "work was rough today")
	require.True(t, ok)
	assert.Equal(t, "Lumi hears you.", assistant.Content)
	assert.Equal(t, chat.SourceHosted, assistant.Source)
	assert.Equal(t, []string{"work was rough today"}, responder.seen)
	assert.Equal(t, 0, f.generator.calls())
	assert.Equal(t, []string{"User (neutral): work was rough today", "Chatbot: Lumi hears you."}, conv.RecentContext(0))

	responder.err = &ai.UpstreamError{StatusCode: 503}
	_, assistant, ok = f.router.HandleTurn(context.Background(), conv, "still rough")
	require.True(t, ok)
	assert.Contains(t, f.persona.Apologies, assistant.Content)
}

func TestSeededRandIsDeterministic(t *testing.T) {
	a := newFixture(t, DefaultConfig(), nil)
	b := newFixture(t, DefaultConfig(), nil)

	for i := 0; i < 10; i++ {
		_, ra, _ := a.router.HandleTurn(context.Background(), newConversation(), "Hello")
		_, rb, _ := b.router.HandleTurn(context.Background(), newConversation(), "Hello")
		assert.Equal(t, ra.Content, rb.Content)
	}
}

func TestMissingGeneratorApologizes(t *testing.T) {
	f := newFixture(t, DefaultConfig(), func(d *Deps) { d.Generator = nil })

	_, assistant, ok := f.router.HandleTurn(context.Background(), newConversation(), "I feel so anxious about tomorrow")
	require.True(t, ok)
	assert.Contains(t, f.persona.Apologies, assistant.Content)
}
