package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/lumi/backend/internal/model/persona"
	chatService "github.com/zhouzirui/lumi/backend/internal/service/chat"
	"github.com/zhouzirui/lumi/backend/pkg/utils"
)

// ErrStreamingUnsupported is returned when the writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// Handler delivers turn results via Server-Sent Events
type Handler struct {
	chatSvc  *chatService.Service
	personas persona.Store
	logger   *zap.Logger
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, personas persona.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc:  chatSvc,
		personas: personas,
		logger:   logger,
	}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Emotion   string `json:"emotion,omitempty"`
	Source    string `json:"source,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest runs one turn and streams start, message and end events.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID string, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}

	session, err := h.chatSvc.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	p := persona.Resolve(h.personas, session.PersonaID)

	utils.SetupSSEHeaders(w)
	h.sendSSE(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
		Content:   fmt.Sprintf("%s is typing", p.Name),
	})

	turn, err := h.chatSvc.Submit(ctx, sessionID, userMessage)
	switch {
	case errors.Is(err, chatService.ErrTurnInProgress):
		h.sendSSEError(w, flusher, sessionID, "a reply is still being prepared")
		return nil
	case err != nil:
		h.sendSSEError(w, flusher, sessionID, "failed to process message")
		return err
	}

	if turn != nil {
		h.sendSSE(w, flusher, StreamResponse{
			Event:     "message",
			SessionID: sessionID,
			Content:   turn.Assistant.Content,
			Emotion:   turn.Assistant.Emotion,
			Source:    string(turn.Assistant.Source),
		})
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	h.logger.Debug("[stream] completed response", zap.String("session", sessionID), zap.String("persona", p.ID))
	return nil
}

// ServeHTTP adapts the handler to GET /stream/{sessionID}?message=...
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request, sessionID string) {
	userMessage := r.URL.Query().Get("message")
	if userMessage == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	err := h.HandleStreamRequest(r.Context(), w, sessionID, userMessage)
	switch {
	case err == nil:
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, ErrStreamingUnsupported):
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
	default:
		h.logger.Warn("[stream] error handling request", zap.String("session", sessionID), zap.Error(err))
	}
}

// sendSSE sends a Server-Sent Event
func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}

// sendSSEError sends an error via Server-Sent Events
func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, sessionID, errorMsg string) {
	h.sendSSE(w, flusher, StreamResponse{
		Event:     "error",
		SessionID: sessionID,
		Error:     errorMsg,
	})
}
