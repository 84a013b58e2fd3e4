package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/lumi/backend/internal/config"
	"github.com/zhouzirui/lumi/backend/internal/model/chat"
	"github.com/zhouzirui/lumi/backend/internal/service/ai"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "lumi.db"))
	t.Setenv("GENERATION_BACKEND", "none")
	t.Setenv("EMOTION_BACKEND", "lexicon")
	t.Setenv("ROUTER_MODE", "generate")
	t.Setenv("PERSONA_FILE", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestBuildRunsGeneratedTurnAndPersists(t *testing.T) {
	cfg := loadConfig(t)
	var prompts []string
	gen := ai.GeneratorFunc(func(_ context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
		prompts = append(prompts, prompt)
		return "I'm right here with you.", nil
	})

	a, err := Build(context.Background(), cfg, nil, Options{Generator: gen})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NotNil(t, a.Store)

	ctx := context.Background()
	session, err := a.Chat.CreateSession(ctx, "")
	require.NoError(t, err)

	turn, err := a.Chat.Submit(ctx, session.ID, "I feel so anxious about tomorrow")
	require.NoError(t, err)
	require.NotNil(t, turn)

	assert.Equal(t, "I'm right here with you.", turn.Assistant.Content)
	assert.Equal(t, chat.SourceGenerated, turn.Assistant.Source)
	assert.Equal(t, "nervousness", turn.Assistant.Emotion)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "User (nervousness): I feel so anxious about tomorrow")

	stored, err := a.Store.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, chat.RoleUser, stored[0].Role)
	assert.Equal(t, chat.RoleAssistant, stored[1].Role)
}

func TestBuildWithoutStorage(t *testing.T) {
	cfg := loadConfig(t)

	a, err := Build(context.Background(), cfg, nil, Options{DisableStorage: true})
	require.NoError(t, err)
	assert.Nil(t, a.Store)
	assert.NoError(t, a.Close())
	assert.NotNil(t, a.Handler())
}

func TestBuildKeepsNilStoreWhenDatabaseFails(t *testing.T) {
	cfg := loadConfig(t)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	cfg.Storage.DBPath = filepath.Join(blocker, "lumi.db")

	a, err := Build(context.Background(), cfg, nil, Options{})
	require.NoError(t, err)
	assert.Nil(t, a.Store)
	assert.NoError(t, a.Close())

	session, err := a.Chat.CreateSession(context.Background(), "")
	require.NoError(t, err)
	_, err = a.Chat.Submit(context.Background(), session.ID, "hello there")
	assert.NoError(t, err)
}

func TestBuildCompletionBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer groq-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","model":"m",`+
			`"choices":[{"index":0,"message":{"role":"assistant","content":"That sounds heavy."},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	cfg := loadConfig(t)
	cfg.Router.Backend = config.BackendCompletion
	cfg.Completion.BaseURL = srv.URL
	cfg.Completion.APIKey = "groq-key"

	a, err := Build(context.Background(), cfg, nil, Options{DisableStorage: true})
	require.NoError(t, err)

	ctx := context.Background()
	session, err := a.Chat.CreateSession(ctx, "")
	require.NoError(t, err)
	turn, err := a.Chat.Submit(ctx, session.ID, "I feel so anxious about tomorrow")
	require.NoError(t, err)
	assert.Equal(t, "That sounds heavy.", turn.Assistant.Content)
	assert.Equal(t, chat.SourceGenerated, turn.Assistant.Source)
}

func TestBuildRejectsMissingPersonaFile(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Persona.File = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Build(context.Background(), cfg, nil, Options{DisableStorage: true})
	assert.Error(t, err)
}
