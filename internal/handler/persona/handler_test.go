package persona

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/lumi/backend/internal/model/persona"
)

type staticCounter map[string]int

func (c staticCounter) CountByPersona() map[string]int { return c }

func newRouter(avatar string) *chi.Mux {
	h := New(persona.NewMemoryStore(nil), staticCounter{persona.DefaultID: 2}, avatar)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestListPersonasIncludesSessionCounts(t *testing.T) {
	r := newRouter("")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/personas", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var views []personaView
	if err := json.Unmarshal(resp.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 1 || views[0].ID != persona.DefaultID {
		t.Fatalf("unexpected personas %+v", views)
	}
	if views[0].ActiveSessions != 2 {
		t.Fatalf("expected 2 active sessions, got %d", views[0].ActiveSessions)
	}
}

func TestAvatar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumi.png")
	if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
		t.Fatalf("write avatar: %v", err)
	}

	resp := httptest.NewRecorder()
	newRouter(path).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/avatar", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "data:image/png;base64,") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestAvatarMissing(t *testing.T) {
	resp := httptest.NewRecorder()
	newRouter(filepath.Join(t.TempDir(), "missing.png")).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/avatar", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
