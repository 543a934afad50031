package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS 允许聊天挂件从其他站点调用接口
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", AdminSecretHeader, IdempotencyKeyHeader},
		MaxAge:         300,
	})
}
