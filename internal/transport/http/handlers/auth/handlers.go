package authhandler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"hrops/internal/domain/auth"
	"hrops/internal/domain/notifications"
	"hrops/internal/transport/http/api"
	"hrops/internal/transport/http/middleware"
)

type Handler struct {
	Store    *auth.Store
	Secret   string
	TokenTTL time.Duration
	Mailer   notifications.Mailer
	From     string
}

func NewHandler(store *auth.Store, secret string, tokenTTL time.Duration, mailer notifications.Mailer, from string) *Handler {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &Handler{Store: store, Secret: secret, TokenTTL: tokenTTL, Mailer: mailer, From: from}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode"`
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	user, err := h.Store.FindActiveUserByEmail(r.Context(), strings.TrimSpace(payload.Email))
	if err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", middleware.GetRequestID(r.Context()))
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, payload.Password); err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", middleware.GetRequestID(r.Context()))
		return
	}

	if user.MFAEnabled {
		if payload.MFACode == "" {
			api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", middleware.GetRequestID(r.Context()))
			return
		}
		if user.MFASecret == "" || !totp.Validate(payload.MFACode, user.MFASecret) {
			api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", middleware.GetRequestID(r.Context()))
			return
		}
	}

	sessionID, err := generateToken()
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Store.CreateSession(r.Context(), user.ID, auth.HashToken(sessionID), time.Now().Add(h.TokenTTL)); err != nil {
		api.Fail(w, http.StatusInternalServerError, "session_error", "failed to start session", middleware.GetRequestID(r.Context()))
		return
	}

	token, err := auth.GenerateToken(h.Secret, auth.Claims{
		UserID:       user.ID,
		Role:         user.Role,
		EmployeeID:   user.EmployeeID,
		DepartmentID: user.DepartmentID,
		SessionID:    sessionID,
	}, h.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Store.UpdateLastLogin(r.Context(), user.ID); err != nil {
		slog.Warn("update last_login failed", "userId", user.ID, "err", err)
	}

	api.Success(w, map[string]any{
		"token": token,
		"user": map[string]string{
			"id":           user.ID,
			"email":        user.Email,
			"role":         user.Role,
			"employeeId":   user.EmployeeID,
			"departmentId": user.DepartmentID,
		},
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if user, ok := middleware.GetUser(r.Context()); ok && user.SessionID != "" {
		if err := h.Store.RevokeSession(r.Context(), user.UserID, auth.HashToken(user.SessionID)); err != nil {
			slog.Warn("logout session revoke failed", "userId", user.UserID, "err", err)
		}
	}
	api.Success(w, map[string]string{"status": "logged_out"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	claims, err := auth.ParseToken(h.Secret, parts[1])
	if err != nil {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	valid, err := h.Store.SessionValid(r.Context(), claims.UserID, auth.HashToken(claims.SessionID))
	if err != nil || !valid {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "session expired", middleware.GetRequestID(r.Context()))
		return
	}

	newSessionID, err := generateToken()
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to rotate session", middleware.GetRequestID(r.Context()))
		return
	}
	expires := time.Now().Add(h.TokenTTL)
	if err := h.Store.RotateSession(r.Context(), claims.UserID, auth.HashToken(claims.SessionID), auth.HashToken(newSessionID), expires); err != nil {
		api.Fail(w, http.StatusInternalServerError, "session_error", "failed to rotate session", middleware.GetRequestID(r.Context()))
		return
	}

	token, err := auth.GenerateToken(h.Secret, auth.Claims{
		UserID:       claims.UserID,
		Role:         claims.Role,
		EmployeeID:   claims.EmployeeID,
		DepartmentID: claims.DepartmentID,
		SessionID:    newSessionID,
	}, h.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"token": token}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{
		"id":           user.UserID,
		"role":         user.Role,
		"employeeId":   user.EmployeeID,
		"departmentId": user.DepartmentID,
	}, middleware.GetRequestID(r.Context()))
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// HandleRequestReset always answers reset_requested so the endpoint cannot be
// used to probe which emails exist.
func (h *Handler) HandleRequestReset(w http.ResponseWriter, r *http.Request) {
	var payload resetRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	email := strings.TrimSpace(payload.Email)
	if userID, err := h.Store.UserIDByEmail(r.Context(), email); err == nil {
		token, err := generateToken()
		if err != nil {
			slog.Warn("password reset token generation failed", "userId", userID, "err", err)
		} else if err := h.Store.CreatePasswordReset(r.Context(), userID, auth.HashToken(token), time.Now().Add(2*time.Hour)); err != nil {
			slog.Warn("password reset insert failed", "userId", userID, "err", err)
		} else if h.Mailer != nil {
			body := "A password reset was requested for your account.\n\n" +
				"Reset token: " + token + "\n\n" +
				"The token expires in 2 hours. If you did not request this, ignore this message."
			if err := h.Mailer.Send(r.Context(), h.From, email, "Password reset", body); err != nil {
				slog.Warn("password reset email failed", "userId", userID, "err", err)
			}
		}
	}

	api.Success(w, map[string]string{"status": "reset_requested"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if len(payload.NewPassword) < 8 {
		api.Fail(w, http.StatusBadRequest, "weak_password", "password must be at least 8 characters", middleware.GetRequestID(r.Context()))
		return
	}

	tokenHash := auth.HashToken(payload.Token)
	userID, err := h.Store.PasswordResetUserID(r.Context(), tokenHash)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_token", "invalid or expired token", middleware.GetRequestID(r.Context()))
		return
	}

	hash, err := auth.HashPassword(payload.NewPassword)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "hash_error", "failed to update password", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Store.UpdateUserPassword(r.Context(), userID, hash); err != nil {
		api.Fail(w, http.StatusInternalServerError, "update_failed", "failed to update password", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Store.MarkPasswordResetUsed(r.Context(), tokenHash); err != nil {
		slog.Warn("password reset mark used failed", "err", err)
	}

	api.Success(w, map[string]string{"status": "password_reset"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMFASetup(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "HROps",
		AccountName: user.UserID,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "mfa_setup_failed", "failed to generate mfa secret", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Store.UpdateMFASecret(r.Context(), user.UserID, key.Secret()); err != nil {
		api.Fail(w, http.StatusInternalServerError, "mfa_setup_failed", "failed to store mfa secret", middleware.GetRequestID(r.Context()))
		return
	}

	api.Success(w, map[string]string{"secret": key.Secret(), "otpauthUrl": key.URL()}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, true)
}

func (h *Handler) HandleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, false)
}

func (h *Handler) toggleMFA(w http.ResponseWriter, r *http.Request, enable bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload mfaCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	secret, err := h.Store.MFASecret(r.Context(), user.UserID)
	if err != nil || secret == "" {
		api.Fail(w, http.StatusBadRequest, "mfa_missing", "mfa setup required", middleware.GetRequestID(r.Context()))
		return
	}
	if !totp.Validate(payload.Code, secret) {
		api.Fail(w, http.StatusBadRequest, "mfa_invalid", "invalid mfa code", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Store.SetMFAEnabled(r.Context(), user.UserID, enable); err != nil {
		api.Fail(w, http.StatusInternalServerError, "mfa_update_failed", "failed to update mfa", middleware.GetRequestID(r.Context()))
		return
	}
	status := "disabled"
	if enable {
		status = "enabled"
	}
	api.Success(w, map[string]string{"status": status}, middleware.GetRequestID(r.Context()))
}

func generateToken() (string, error) {
	buff := make([]byte, 32)
	if _, err := rand.Read(buff); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buff), nil
}
