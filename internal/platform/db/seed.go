package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"companyms/internal/domain/auth"
	"companyms/internal/platform/config"
)

// Seed provisions the initial admin principal. It is idempotent: an
// existing user with the seed email is left untouched.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	email := strings.TrimSpace(cfg.SeedAdminEmail)
	if email == "" {
		return nil
	}
	if cfg.SeedAdminPassword == "" {
		return errors.New("SEED_ADMIN_PASSWORD required when SEED_ADMIN_EMAIL is set")
	}

	var existing string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
    INSERT INTO users (email, username, role, password_hash, active)
    VALUES ($1, $2, $3, $4, true)
  `, email, "admin", string(auth.RoleAdmin), hash)
	return err
}
