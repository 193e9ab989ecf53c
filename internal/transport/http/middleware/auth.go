package middleware

import (
	"context"
	"net/http"
	"strings"

	"hrops/internal/domain/auth"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

// Auth attaches the actor context from a bearer token when one is present.
// Requests without a valid token pass through anonymous; permission checks
// reject them downstream.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, auth.UserContext{
				UserID:       claims.UserID,
				Role:         claims.Role,
				EmployeeID:   claims.EmployeeID,
				DepartmentID: claims.DepartmentID,
				SessionID:    claims.SessionID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}
