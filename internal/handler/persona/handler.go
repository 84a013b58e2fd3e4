package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/lumi/backend/internal/model/persona"
	"github.com/zhouzirui/lumi/backend/pkg/utils"
)

// SessionCounter reports live sessions per persona.
type SessionCounter interface {
	CountByPersona() map[string]int
}

// Handler persona服务的HTTP处理器
type Handler struct {
	personas   persona.Store
	sessions   SessionCounter
	avatarPath string
}

// New 创建persona处理器. sessions may be nil.
func New(personas persona.Store, sessions SessionCounter, avatarPath string) *Handler {
	return &Handler{
		personas:   personas,
		sessions:   sessions,
		avatarPath: avatarPath,
	}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
	r.Get("/avatar", h.handleAvatar)
}

type personaView struct {
	persona.Persona
	ActiveSessions int `json:"activeSessions"`
}

// handleListPersonas 列出所有persona
func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	var counts map[string]int
	if h.sessions != nil {
		counts = h.sessions.CountByPersona()
	}

	list := h.personas.List()
	views := make([]personaView, 0, len(list))
	for _, p := range list {
		views = append(views, personaView{Persona: p, ActiveSessions: counts[p.ID]})
	}
	utils.RespondJSON(w, http.StatusOK, views)
}

// handleAvatar 返回头像的data URI
func (h *Handler) handleAvatar(w http.ResponseWriter, r *http.Request) {
	uri := utils.ImageDataURI(h.avatarPath)
	if uri == "" {
		utils.RespondError(w, http.StatusNotFound, "avatar unavailable")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"dataUri": uri})
}
