package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/captolab/gpuhub/internal/model"
)

type contextKey string

const ctxUser contextKey = "user"

// AuthMiddleware requires Authorization: Bearer <token> and injects the
// verified principal into the request context.
func AuthMiddleware(verifyToken func(token string) (*model.AuthUser, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, `{"error":{"code":"E_UNAUTHORIZED","message":"missing token"}}`, http.StatusUnauthorized)
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")
			user, err := verifyToken(token)
			if err != nil {
				http.Error(w, `{"error":{"code":"E_UNAUTHORIZED","message":"invalid or expired token"}}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromCtx extracts the authenticated user from context.
func UserFromCtx(ctx context.Context) *model.AuthUser {
	u, _ := ctx.Value(ctxUser).(*model.AuthUser)
	return u
}

// WithUser injects a principal directly, bypassing token verification.
// Handler tests use this in place of the full middleware chain.
func WithUser(ctx context.Context, user *model.AuthUser) context.Context {
	return context.WithValue(ctx, ctxUser, user)
}
