package middleware

import (
	"net/http"

	"github.com/halwest-tech/kurdish-chat/backend/internal/logger"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/identity"
	"github.com/halwest-tech/kurdish-chat/backend/pkg/utils"
)

// RequireSession 只放行已登录的工作区。verifier 非空时还会校验会话令牌，
// 令牌过期、被吊销或与用户不符都返回 401。必须挂在 Workspace 之后。
func RequireSession(verifier identity.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ws, ok := WorkspaceFrom(r.Context())
			if !ok {
				utils.RespondError(w, http.StatusInternalServerError, "workspace missing")
				return
			}

			state := ws.Session.Snapshot()
			if !state.Authenticated || state.User == nil {
				utils.RespondError(w, http.StatusUnauthorized, "sign in required")
				return
			}

			if verifier != nil {
				userID, err := verifier.VerifyToken(state.User.Token)
				if err != nil || userID != state.User.ID {
					logger.Warn("session token rejected", "component", "middleware", "workspace", ws.ID, "error", err)
					utils.RespondError(w, http.StatusUnauthorized, "session expired")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
