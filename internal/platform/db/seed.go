package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrops/internal/domain/auth"
	"hrops/internal/platform/config"
)

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if err := ensurePermissions(ctx, pool); err != nil {
		return err
	}
	if err := ensureRolePermissions(ctx, pool); err != nil {
		return err
	}
	return ensureAdminUser(ctx, pool, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
}

func ensurePermissions(ctx context.Context, pool *pgxpool.Pool) error {
	for _, perm := range auth.DefaultPermissions {
		if _, err := pool.Exec(ctx, "INSERT INTO permissions (key) VALUES ($1) ON CONFLICT (key) DO NOTHING", perm); err != nil {
			return err
		}
	}
	return nil
}

func ensureRolePermissions(ctx context.Context, pool *pgxpool.Pool) error {
	for roleName, perms := range auth.RolePermissions {
		for _, permKey := range perms {
			_, err := pool.Exec(ctx, `
        INSERT INTO role_permissions (role_name, permission_key)
        VALUES ($1, $2)
        ON CONFLICT DO NOTHING
      `, roleName, permKey)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return pool.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, role_name, status)
    VALUES ($1, $2, $3, 'active')
    RETURNING id
  `, email, hash, auth.RoleAdmin).Scan(&id)
}
