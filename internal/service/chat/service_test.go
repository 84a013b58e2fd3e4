package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	modelchat "github.com/zhouzirui/lumi/backend/internal/model/chat"
	"github.com/zhouzirui/lumi/backend/internal/model/persona"
	chat "github.com/zhouzirui/lumi/backend/internal/service/chat"
)

type echoHandler struct {
	release chan struct{}
	entered chan struct{}
}

func (h *echoHandler) HandleTurn(_ context.Context, conv *modelchat.Conversation, raw string) (modelchat.Message, modelchat.Message, bool) {
	if raw == "" {
		return modelchat.Message{}, modelchat.Message{}, false
	}
	if h.entered != nil {
		h.entered <- struct{}{}
	}
	if h.release != nil {
		<-h.release
	}
	user := modelchat.Message{SessionID: conv.SessionID, Role: modelchat.RoleUser, Content: raw}
	assistant := modelchat.Message{SessionID: conv.SessionID, Role: modelchat.RoleAssistant, Content: "echo: " + raw}
	conv.Append(user)
	conv.Append(assistant)
	return user, assistant, true
}

func newService(h chat.TurnHandler) *chat.Service {
	return chat.NewService(h, persona.NewMemoryStore(persona.Seed()), nil)
}

func TestServiceGetSession(t *testing.T) {
	svc := newService(&echoHandler{})
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, persona.DefaultID)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}
	if got.PersonaID != persona.DefaultID {
		t.Fatalf("unexpected persona ID: got %s", got.PersonaID)
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := newService(&echoHandler{})
	if _, err := svc.GetSession(context.Background(), "missing"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestCreateSessionSeedsOpeningLine(t *testing.T) {
	svc := newService(&echoHandler{})
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	msgs, err := svc.LoadTranscript(ctx, session.ID)
	if err != nil {
		t.Fatalf("LoadTranscript err: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "Hi there! I'm Lumi. How are you feeling today?" {
		t.Fatalf("unexpected opening transcript: %+v", msgs)
	}

	if _, err := svc.CreateSession(ctx, "unknown"); !errors.Is(err, chat.ErrPersonaNotFound) {
		t.Fatalf("expected ErrPersonaNotFound, got %v", err)
	}
}

func TestSubmitAppendsTurn(t *testing.T) {
	svc := newService(&echoHandler{})
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "")

	turn, err := svc.Submit(ctx, session.ID, "hello")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if turn == nil || turn.Assistant.Content != "echo: hello" {
		t.Fatalf("unexpected turn: %+v", turn)
	}

	msgs, _ := svc.LoadTranscript(ctx, session.ID)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}

	empty, err := svc.Submit(ctx, session.ID, "")
	if err != nil || empty != nil {
		t.Fatalf("expected nil turn for empty input, got %+v, %v", empty, err)
	}
}

func TestSubmitRejectsConcurrentTurn(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := &echoHandler{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	svc := newService(h)
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := svc.Submit(ctx, session.ID, "first"); err != nil {
			t.Errorf("first submit failed: %v", err)
		}
	}()
	<-h.entered

	if _, err := svc.Submit(ctx, session.ID, "second"); !errors.Is(err, chat.ErrTurnInProgress) {
		t.Fatalf("expected ErrTurnInProgress, got %v", err)
	}

	msgs, err := svc.LoadTranscript(ctx, session.ID)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("transcript read during a turn should return the last snapshot, got %d, %v", len(msgs), err)
	}

	close(h.release)
	wg.Wait()

	h.entered = nil
	if _, err := svc.Submit(ctx, session.ID, "third"); err != nil {
		t.Fatalf("submit after release failed: %v", err)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	svc := newService(&echoHandler{})
	ctx := context.Background()
	a, _ := svc.CreateSession(ctx, "")
	b, _ := svc.CreateSession(ctx, "")

	if _, err := svc.Submit(ctx, a.ID, "only a"); err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	msgsB, _ := svc.LoadTranscript(ctx, b.ID)
	if len(msgsB) != 1 {
		t.Fatalf("session b saw %d messages", len(msgsB))
	}
	if counts := svc.CountByPersona(); counts[persona.DefaultID] != 2 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestCloseAndSweep(t *testing.T) {
	svc := newService(&echoHandler{})
	ctx := context.Background()
	a, _ := svc.CreateSession(ctx, "")
	_, _ = svc.CreateSession(ctx, "")

	if err := svc.CloseSession(ctx, a.ID); err != nil {
		t.Fatalf("CloseSession err: %v", err)
	}
	if err := svc.CloseSession(ctx, a.ID); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Submit(ctx, a.ID, "hello"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	if n := svc.Sweep(time.Hour); n != 0 {
		t.Fatalf("fresh session swept: %d", n)
	}
	time.Sleep(5 * time.Millisecond)
	if n := svc.Sweep(time.Millisecond); n != 1 {
		t.Fatalf("expected 1 idle session swept, got %d", n)
	}
}

func TestSweepNeverOrphansAcceptedTurn(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	for i := 0; i < 200; i++ {
		h := &echoHandler{release: make(chan struct{})}
		svc := newService(h)
		session, _ := svc.CreateSession(ctx, "")

		submitted := make(chan error, 1)
		go func() {
			_, err := svc.Submit(ctx, session.ID, "still here?")
			submitted <- err
		}()
		svc.Sweep(-time.Hour)
		close(h.release)
		err := <-submitted

		_, getErr := svc.GetSession(ctx, session.ID)
		switch {
		case err == nil && getErr != nil:
			t.Fatalf("iteration %d: turn accepted on a swept session", i)
		case errors.Is(err, chat.ErrSessionNotFound) && getErr == nil:
			t.Fatalf("iteration %d: submit missed a live session", i)
		case err != nil && !errors.Is(err, chat.ErrSessionNotFound):
			t.Fatalf("iteration %d: unexpected submit error %v", i, err)
		}
	}
}

func TestRunJanitorStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := newService(&echoHandler{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.RunJanitor(ctx, time.Minute, time.Millisecond) }()

	time.Sleep(5 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("RunJanitor returned %v", err)
	}
}
