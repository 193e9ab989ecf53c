package auth

import (
	"context"
	"time"

	"hrops/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

type AuthUser struct {
	ID           string
	Email        string
	Role         string
	PasswordHash string
	EmployeeID   string
	DepartmentID string
	MFAEnabled   bool
	MFASecret    string
}

// FindActiveUserByEmail resolves a login identity together with the actor
// context (employee and department) encoded into the token afterwards.
func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	var out AuthUser
	err := s.DB.QueryRow(ctx, `
    SELECT u.id, u.email, u.role_name, u.password_hash,
           COALESCE(e.id::text, ''), COALESCE(e.department_id::text, ''),
           u.mfa_enabled, COALESCE(u.mfa_secret, '')
    FROM users u
    LEFT JOIN employees e ON e.user_id = u.id
    WHERE u.email = $1 AND u.status = 'active'
  `, email).Scan(&out.ID, &out.Email, &out.Role, &out.PasswordHash,
		&out.EmployeeID, &out.DepartmentID, &out.MFAEnabled, &out.MFASecret)
	return out, err
}

func (s *Store) CreateSession(ctx context.Context, userID, refreshTokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO sessions (user_id, refresh_token, expires_at)
    VALUES ($1,$2,$3)
  `, userID, refreshTokenHash, expires)
	return err
}

func (s *Store) RevokeSession(ctx context.Context, userID, refreshTokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND refresh_token = $2", userID, refreshTokenHash)
	return err
}

// SessionValid reports whether a live, unrevoked session exists for the
// user/token pair.
func (s *Store) SessionValid(ctx context.Context, userID, refreshTokenHash string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM sessions
    WHERE user_id = $1 AND refresh_token = $2 AND expires_at > now() AND revoked_at IS NULL
  `, userID, refreshTokenHash).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) RotateSession(ctx context.Context, userID, oldHash, newHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE sessions
    SET refresh_token = $1, expires_at = $2, rotated_at = now()
    WHERE user_id = $3 AND refresh_token = $4
  `, newHash, expires, userID, oldHash)
	return err
}

func (s *Store) UserIDByEmail(ctx context.Context, email string) (string, error) {
	var userID string
	if err := s.DB.QueryRow(ctx, "SELECT id FROM users WHERE email = $1 AND status = 'active'", email).Scan(&userID); err != nil {
		return "", err
	}
	return userID, nil
}

func (s *Store) CreatePasswordReset(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO password_resets (user_id, token, expires_at)
    VALUES ($1,$2,$3)
  `, userID, tokenHash, expires)
	return err
}

// PasswordResetUserID resolves a live, unused reset token to its user.
func (s *Store) PasswordResetUserID(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, `
    SELECT user_id
    FROM password_resets
    WHERE token = $1 AND expires_at > now() AND used_at IS NULL
  `, tokenHash).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *Store) MarkPasswordResetUsed(ctx context.Context, tokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE password_resets SET used_at = now() WHERE token = $1", tokenHash)
	return err
}

// UpdateUserPassword also revokes every open session: a reset means the old
// credential can no longer be trusted.
func (s *Store) UpdateUserPassword(ctx context.Context, userID, hash string) error {
	if _, err := s.DB.Exec(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", hash, userID); err != nil {
		return err
	}
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL", userID)
	return err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

func (s *Store) UpdateMFASecret(ctx context.Context, userID, secret string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_secret = $1, mfa_enabled = false WHERE id = $2", secret, userID)
	return err
}

func (s *Store) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_enabled = $1 WHERE id = $2", enabled, userID)
	return err
}

func (s *Store) MFASecret(ctx context.Context, userID string) (string, error) {
	var secret string
	if err := s.DB.QueryRow(ctx, "SELECT COALESCE(mfa_secret, '') FROM users WHERE id = $1", userID).Scan(&secret); err != nil {
		return "", err
	}
	return secret, nil
}

// HasPermission backs the RBAC middleware.
func (s *Store) HasPermission(ctx context.Context, roleName, permission string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM role_permissions
    WHERE role_name = $1 AND permission_key = $2
  `, roleName, permission).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
