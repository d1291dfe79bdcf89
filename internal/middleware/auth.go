package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/baharkarakas/checkflow/internal/api/httpx"
	"github.com/baharkarakas/checkflow/internal/auth"
)

type AuthMiddleware struct {
	TM     *auth.TokenManager
	AppEnv string
}

func NewAuthMiddleware(tm *auth.TokenManager, appEnv string) *AuthMiddleware {
	return &AuthMiddleware{TM: tm, AppEnv: appEnv}
}

// Auth accepts "Bearer <access JWT>", and in dev also "Bearer dev-<party id>".
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ah := r.Header.Get("Authorization")
		if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", nil)
			return
		}
		token := strings.TrimSpace(ah[len("Bearer "):])

		if m.AppEnv == "dev" && strings.HasPrefix(token, "dev-") {
			id, err := strconv.ParseInt(strings.TrimPrefix(token, "dev-"), 10, 64)
			if err != nil || id <= 0 {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid dev token", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithParty(r.Context(), Party{ID: id})))
			return
		}

		claims, isRefresh, err := m.TM.ParseAny(token)
		if err != nil || isRefresh {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid access token", nil)
			return
		}
		ctx := WithParty(r.Context(), Party{ID: claims.PartyID, Username: claims.Username})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
