package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hrops/internal/domain/auth"
)

func TestAuthMiddlewareSetsUser(t *testing.T) {
	secret := "test-secret"
	token, err := auth.GenerateToken(secret, auth.Claims{
		UserID:       "u1",
		Role:         auth.RoleManager,
		EmployeeID:   "e1",
		DepartmentID: "d1",
		SessionID:    "s1",
	}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	handler := Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		if !ok {
			t.Fatal("expected user in context")
		}
		if user.UserID != "u1" || user.Role != auth.RoleManager {
			t.Fatalf("unexpected user: %+v", user)
		}
		if user.EmployeeID != "e1" || user.DepartmentID != "d1" || user.SessionID != "s1" {
			t.Fatalf("claims not carried into context: %+v", user)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); ok {
			t.Fatal("did not expect user in context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
}

func TestAuthMiddlewareRejectsWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("other-secret", auth.Claims{UserID: "u1", Role: auth.RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); ok {
			t.Fatal("forged token must not yield a user")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	token, err := auth.GenerateToken("secret", auth.Claims{UserID: "u1", Role: auth.RoleEmployee}, -time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); ok {
			t.Fatal("expired token must not yield a user")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
}
