package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"companyms/internal/platform/querier"
)

// ErrNoEmployeeLink marks a principal without an employee profile. Callers
// that scope queries treat it as "empty result", not as a failure.
var ErrNoEmployeeLink = errors.New("no employee profile linked to user")

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

type AuthUser struct {
	ID           string
	Email        string
	Username     string
	Role         Role
	PasswordHash string
}

// EmployeeLink is the resolved employee profile of a principal.
type EmployeeLink struct {
	EmployeeID   string
	CompanyID    string
	DepartmentID string
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	var out AuthUser
	var role string
	err := s.DB.QueryRow(ctx, `
    SELECT id, email, COALESCE(username, ''), role, password_hash
    FROM users
    WHERE email = $1 AND active
  `, email).Scan(&out.ID, &out.Email, &out.Username, &role, &out.PasswordHash)
	if err != nil {
		return AuthUser{}, err
	}
	out.Role, err = ParseRole(role)
	if err != nil {
		return AuthUser{}, err
	}
	return out, nil
}

func (s *Store) FindUserByID(ctx context.Context, userID string) (AuthUser, error) {
	var out AuthUser
	var role string
	err := s.DB.QueryRow(ctx, `
    SELECT id, email, COALESCE(username, ''), role, password_hash
    FROM users
    WHERE id = $1 AND active
  `, userID).Scan(&out.ID, &out.Email, &out.Username, &role, &out.PasswordHash)
	if err != nil {
		return AuthUser{}, err
	}
	out.Role, err = ParseRole(role)
	if err != nil {
		return AuthUser{}, err
	}
	return out, nil
}

// EmployeeLinkByUserID resolves the one-to-one employee profile of a user.
// Missing profiles are reported as ErrNoEmployeeLink so callers can
// distinguish "no link" from a storage failure.
func (s *Store) EmployeeLinkByUserID(ctx context.Context, userID string) (*EmployeeLink, error) {
	var link EmployeeLink
	err := s.DB.QueryRow(ctx, `
    SELECT id, company_id, department_id
    FROM employees
    WHERE user_id = $1
  `, userID).Scan(&link.EmployeeID, &link.CompanyID, &link.DepartmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoEmployeeLink
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *Store) CreateSession(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO sessions (user_id, token_hash, expires_at)
    VALUES ($1,$2,$3)
  `, userID, tokenHash, expires)
	return err
}

func (s *Store) RevokeSession(ctx context.Context, userID, tokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND token_hash = $2", userID, tokenHash)
	return err
}

// SessionActive reports whether the session behind a token's sid claim is
// still live. Logout revokes the row, after which the bearer token stops
// authenticating even though its signature stays valid until expiry.
func (s *Store) SessionActive(ctx context.Context, sessionID string) (bool, error) {
	var active bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM sessions
      WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > now()
    )
  `, HashToken(sessionID)).Scan(&active)
	return active, err
}

func (s *Store) CreatePasswordReset(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO password_resets (user_id, token_hash, expires_at)
    VALUES ($1,$2,$3)
  `, userID, tokenHash, expires)
	return err
}

func (s *Store) PasswordResetUserID(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, `
    SELECT user_id
    FROM password_resets
    WHERE token_hash = $1 AND expires_at > now() AND used_at IS NULL
  `, tokenHash).Scan(&userID)
	return userID, err
}

func (s *Store) MarkPasswordResetUsed(ctx context.Context, tokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE password_resets SET used_at = now() WHERE token_hash = $1", tokenHash)
	return err
}

func (s *Store) UpdateUserPassword(ctx context.Context, userID, hash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2", hash, userID)
	return err
}

func (s *Store) UserIDByEmail(ctx context.Context, email string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, "SELECT id FROM users WHERE email = $1 AND active", email).Scan(&userID)
	return userID, err
}
