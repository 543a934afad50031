package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/zhouzirui/z-support/backend/pkg/utils"
)

// AdminSecretHeader 携带管理员共享口令
const AdminSecretHeader = "X-Admin-Secret"

// RequireAdmin 校验共享口令；未配置口令时管理接口整体不可用
func RequireAdmin(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				utils.RespondError(w, http.StatusServiceUnavailable, "admin access is not configured")
				return
			}
			got := r.Header.Get(AdminSecretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				utils.RespondError(w, http.StatusUnauthorized, "invalid admin secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
