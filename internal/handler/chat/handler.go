package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/lumi/backend/internal/model/chat"
	chatService "github.com/zhouzirui/lumi/backend/internal/service/chat"
	"github.com/zhouzirui/lumi/backend/pkg/utils"
)

// ZoneResolver supplies the display time zone for rendered timestamps.
type ZoneResolver interface {
	Resolve(ctx context.Context) (string, *time.Location)
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	zones   ZoneResolver
	logger  *zap.Logger
}

// New 创建聊天处理器. A nil zones renders in UTC.
func New(chatSvc *chatService.Service, zones ZoneResolver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{chatSvc: chatSvc, zones: zones, logger: logger}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}/messages", h.handleListMessages)
	r.Post("/session/{sessionID}/turn", h.handleTurn)
	r.Delete("/session/{sessionID}", h.handleCloseSession)
}

// RenderedMessage is a message with its timestamp formatted for display.
type RenderedMessage struct {
	chat.Message
	DisplayTime string `json:"displayTime"`
}

type transcriptResponse struct {
	Session  chat.Session      `json:"session"`
	Timezone string            `json:"timezone"`
	Messages []RenderedMessage `json:"messages"`
}

type turnResponse struct {
	User      RenderedMessage `json:"user"`
	Assistant RenderedMessage `json:"assistant"`
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), strings.TrimSpace(payload.PersonaID))
	if err != nil {
		if errors.Is(err, chatService.ErrPersonaNotFound) {
			utils.RespondError(w, http.StatusBadRequest, "persona not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	messages, _ := h.chatSvc.LoadTranscript(r.Context(), session.ID)
	zone, loc := h.zone(r.Context())
	utils.RespondJSON(w, http.StatusCreated, transcriptResponse{
		Session:  session,
		Timezone: zone,
		Messages: Render(messages, loc),
	})
}

// handleListMessages renders the transcript in the display zone.
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	zone, loc := h.zone(r.Context())
	utils.RespondJSON(w, http.StatusOK, transcriptResponse{
		Session:  session,
		Timezone: zone,
		Messages: Render(messages, loc),
	})
}

// handleTurn submits one utterance and returns the resulting message pair.
func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := h.chatSvc.Submit(r.Context(), sessionID, payload.Message)
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	case errors.Is(err, chatService.ErrTurnInProgress):
		utils.RespondError(w, http.StatusConflict, "a reply is still being prepared")
		return
	case err != nil:
		h.logger.Error("[chat] submit failed", zap.String("session", sessionID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to process message")
		return
	case turn == nil:
		w.WriteHeader(http.StatusNoContent)
		return
	}

	_, loc := h.zone(r.Context())
	utils.RespondJSON(w, http.StatusOK, turnResponse{
		User:      renderOne(turn.User, loc),
		Assistant: renderOne(turn.Assistant, loc),
	})
}

// handleCloseSession tears a session down.
func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.CloseSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) zone(ctx context.Context) (string, *time.Location) {
	if h.zones == nil {
		return "UTC", time.UTC
	}
	return h.zones.Resolve(ctx)
}

// Render formats each timestamp as HH:MM in loc without touching the input.
func Render(messages []chat.Message, loc *time.Location) []RenderedMessage {
	out := make([]RenderedMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, renderOne(msg, loc))
	}
	return out
}

func renderOne(msg chat.Message, loc *time.Location) RenderedMessage {
	return RenderedMessage{Message: msg, DisplayTime: msg.DisplayTime(loc)}
}
