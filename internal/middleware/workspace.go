package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/halwest-tech/kurdish-chat/backend/internal/service/workspace"
	"github.com/halwest-tech/kurdish-chat/backend/pkg/utils"
)

const (
	ClientIDHeader = "X-Client-ID"
	ClientIDQuery  = "clientId"
)

type workspaceKey struct{}

// ClientID reads the workspace id from the header, falling back to the query
// string for EventSource and WebSocket clients that cannot set headers.
func ClientID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(ClientIDHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get(ClientIDQuery))
}

// Workspace resolves the caller's workspace and stores it in the request context.
func Workspace(registry *workspace.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ClientID(r)
			if id == "" {
				utils.RespondError(w, http.StatusBadRequest, ClientIDHeader+" header is required")
				return
			}

			ws, err := registry.Get(id)
			if err != nil {
				utils.RespondError(w, http.StatusNotFound, "workspace not found")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithWorkspace(r.Context(), ws)))
		})
	}
}

// WithWorkspace attaches ws to ctx.
func WithWorkspace(ctx context.Context, ws *workspace.Workspace) context.Context {
	return context.WithValue(ctx, workspaceKey{}, ws)
}

// WorkspaceFrom returns the workspace resolved by the Workspace middleware.
func WorkspaceFrom(ctx context.Context) (*workspace.Workspace, bool) {
	ws, ok := ctx.Value(workspaceKey{}).(*workspace.Workspace)
	return ws, ok && ws != nil
}
