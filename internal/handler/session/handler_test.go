package session

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/halwest-tech/kurdish-chat/backend/internal/locale"
	"github.com/halwest-tech/kurdish-chat/backend/internal/middleware"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/identity"
	sessionsvc "github.com/halwest-tech/kurdish-chat/backend/internal/service/session"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/workspace"
)

func setupRouter() (*chi.Mux, *workspace.Workspace) {
	registry := workspace.NewRegistry(workspace.Dependencies{
		Provider: identity.NewLocalProvider("secret", time.Hour),
	})
	ws := registry.Create()

	r := chi.NewRouter()
	r.Use(middleware.Workspace(registry))
	New().RegisterRoutes(r)
	return r, ws
}

func do(r http.Handler, ws *workspace.Workspace, method, path, body string) (*httptest.ResponseRecorder, sessionsvc.State) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ClientIDHeader, ws.ID)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var state sessionsvc.State
	_ = json.Unmarshal(resp.Body.Bytes(), &state)
	return resp, state
}

func TestGetSessionDefaults(t *testing.T) {
	r, ws := setupRouter()

	resp, state := do(r, ws, http.MethodGet, "/session", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if state.Authenticated || state.Loading {
		t.Fatalf("expected signed-out idle session, got %+v", state)
	}
	if state.Language != locale.Sorani || state.Direction != locale.RTL || state.Theme != locale.Light {
		t.Fatalf("unexpected defaults %+v", state)
	}
}

func TestUpdatePreferences(t *testing.T) {
	r, ws := setupRouter()

	resp, state := do(r, ws, http.MethodPut, "/session/preferences", `{"language":"kmj","theme":"dark"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if state.Language != locale.Kurmanji || state.Direction != locale.LTR || state.Theme != locale.Dark {
		t.Fatalf("unexpected state %+v", state)
	}

	_, state = do(r, ws, http.MethodPut, "/session/preferences", `{"toggleLanguage":true,"toggleTheme":true}`)
	if state.Language != locale.Sorani || state.Theme != locale.Light {
		t.Fatalf("expected toggled back, got %+v", state)
	}
}

func TestUpdatePreferencesRejectsInvalidWithoutPartialApply(t *testing.T) {
	r, ws := setupRouter()

	resp, _ := do(r, ws, http.MethodPut, "/session/preferences", `{"language":"kmj","theme":"sepia"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if ws.Session.Language() != locale.Sorani {
		t.Fatalf("language must not change on rejected update")
	}
}

func TestLogout(t *testing.T) {
	r, ws := setupRouter()
	ws.Notifier.Publish(&identity.User{ID: "u1", Email: "a@b.krd"})

	_, state := do(r, ws, http.MethodGet, "/session", "")
	if !state.Authenticated {
		t.Fatalf("expected authenticated session")
	}

	resp, state := do(r, ws, http.MethodPost, "/session/logout", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if state.Authenticated || state.LogoutLoading {
		t.Fatalf("expected signed-out session, got %+v", state)
	}
}
