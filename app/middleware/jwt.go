package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/coffeeshop/account-service/app/services"
	"github.com/coffeeshop/account-service/app/store"
)

type ctxKey string

const (
	ctxClaims ctxKey = "authClaims"
	ctxRole   ctxKey = "authRole"
)

// RequireAuth creates middleware that validates a bearer access token, loads
// the referenced user and optionally enforces role membership. A principal
// that vanished after token issuance is reported as unauthorized, not as not
// found, so the guard never leaks account existence.
func RequireAuth(tokens *services.TokenService, st store.Storage, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, "missing or invalid authorization header", http.StatusUnauthorized)
				return
			}

			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := tokens.VerifyAccess(tokenStr)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			if claims.SubjectID <= 0 {
				http.Error(w, "invalid token subject", http.StatusUnauthorized)
				return
			}

			user, err := st.Users.GetByID(r.Context(), claims.SubjectID)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			if len(allowed) > 0 {
				if _, ok := allowed[user.Role]; !ok {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxClaims, claims)
			ctx = context.WithValue(ctx, ctxRole, user.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext retrieves the verified token claims set by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*services.TokenClaims, bool) {
	claims, ok := ctx.Value(ctxClaims).(*services.TokenClaims)
	return claims, ok
}

// RoleFromContext retrieves the caller's role set by RequireAuth.
func RoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(ctxRole).(string)
	return role, ok
}
