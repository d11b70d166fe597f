package workspace

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/halwest-tech/kurdish-chat/backend/internal/middleware"
	workspacesvc "github.com/halwest-tech/kurdish-chat/backend/internal/service/workspace"
)

func TestCreateAndDeleteWorkspace(t *testing.T) {
	registry := workspacesvc.NewRegistry(workspacesvc.Dependencies{})
	r := chi.NewRouter()
	New(registry).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/workspaces", nil))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID == "" || resp.Header().Get(middleware.ClientIDHeader) != body.ID {
		t.Fatalf("expected id in body and header, got %q / %q", body.ID, resp.Header().Get(middleware.ClientIDHeader))
	}
	if registry.Len() != 1 {
		t.Fatalf("expected 1 workspace, got %d", registry.Len())
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/workspaces/"+body.ID, nil))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/workspaces/"+body.ID, nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestResumeWorkspace(t *testing.T) {
	registry := workspacesvc.NewRegistry(workspacesvc.Dependencies{})
	defer registry.CloseAll()
	r := chi.NewRouter()
	New(registry).RegisterRoutes(r)

	const id = "f47ac10b-58cc-4372-a567-0e02b2c3d479"

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPut, "/workspaces/"+id, nil))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for unknown id, got %d", resp.Code)
	}
	if resp.Header().Get(middleware.ClientIDHeader) != id {
		t.Fatalf("expected id %s echoed, got %q", id, resp.Header().Get(middleware.ClientIDHeader))
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPut, "/workspaces/"+id, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for existing id, got %d", resp.Code)
	}
	if registry.Len() != 1 {
		t.Fatalf("expected 1 workspace, got %d", registry.Len())
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPut, "/workspaces/not-a-uuid", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", resp.Code)
	}
}
