package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS 允许浏览器前端跨域访问 API，并暴露工作区请求头。
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", ClientIDHeader},
		ExposedHeaders: []string{ClientIDHeader},
		MaxAge:         300,
	})
}

// OriginAllowed 用于 WebSocket 升级时校验 Origin，与 CORS 使用同一份白名单。
func OriginAllowed(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowedOrigins) == 0 {
			return true
		}
		for _, allowed := range allowedOrigins {
			if allowed == "*" || strings.EqualFold(allowed, origin) {
				return true
			}
		}
		return false
	}
}
