package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"companyms/internal/domain/org"
)

var ErrNotFound = errors.New("not found")

// MarshalJSON surfaces the unexported state field as "state".
func (r *Review) MarshalJSON() ([]byte, error) {
	type alias Review
	return json.Marshal(struct {
		*alias
		State State `json:"state"`
	}{(*alias)(r), r.state})
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const reviewColumns = `
    r.id, r.employee_id, r.state, COALESCE(r.feedback, ''), r.review_date, r.created_at, r.updated_at
`

func scanReview(row pgx.Row) (*Review, error) {
	var r Review
	var state string
	if err := row.Scan(&r.ID, &r.EmployeeID, &state, &r.Feedback, &r.ReviewDate, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.state = State(state)
	return &r, nil
}

// scopeCondition appends the visibility restriction for employee-linked
// reviews. It must come before LIMIT/OFFSET in any listing query.
func scopeCondition(scope org.Scope, query string, args []any) (string, []any) {
	switch scope.Kind {
	case org.ScopeKindAll:
		return query, args
	case org.ScopeKindDepartment:
		query += fmt.Sprintf(" AND r.employee_id IN (SELECT id FROM employees WHERE department_id = $%d)", len(args)+1)
		return query, append(args, scope.DepartmentID)
	case org.ScopeKindSelf:
		query += fmt.Sprintf(" AND r.employee_id = $%d", len(args)+1)
		return query, append(args, scope.EmployeeID)
	}
	return query + " AND false", args
}

func (s *Store) ListReviews(ctx context.Context, scope org.Scope, limit, offset int) ([]Review, error) {
	if scope.Kind == org.ScopeKindNone {
		return []Review{}, nil
	}
	query := "SELECT " + reviewColumns + " FROM performance_reviews r WHERE true"
	args := []any{}
	query, args = scopeCondition(scope, query, args)
	query += fmt.Sprintf(" ORDER BY r.created_at LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Review, 0, limit)
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// GetReview resolves a review within the caller's scope; out-of-scope ids
// look exactly like missing ones.
func (s *Store) GetReview(ctx context.Context, scope org.Scope, reviewID string) (*Review, error) {
	if scope.Kind == org.ScopeKindNone {
		return nil, ErrNotFound
	}
	query := "SELECT " + reviewColumns + " FROM performance_reviews r WHERE r.id = $1"
	args := []any{reviewID}
	query, args = scopeCondition(scope, query, args)
	return scanReview(s.DB.QueryRow(ctx, query, args...))
}

// CreateReview opens a review for an employee in PENDING. Many concurrent
// reviews per employee are allowed.
func (s *Store) CreateReview(ctx context.Context, employeeID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO performance_reviews (employee_id, state, feedback)
    VALUES ($1, $2, '')
    RETURNING id
  `, employeeID, string(StatePending)).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) DeleteReview(ctx context.Context, reviewID string) error {
	cmd, err := s.DB.Exec(ctx, "DELETE FROM performance_reviews WHERE id = $1", reviewID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Apply runs one transition against the persisted review: the row is
// locked, rehydrated, transitioned in memory, and written back with a
// state-qualified UPDATE. State and payload persist together or not at
// all; a failed guard rolls back with the row untouched.
func (s *Store) Apply(ctx context.Context, scope org.Scope, reviewID string, transition func(*Review) error) (*Review, error) {
	if scope.Kind == org.ScopeKindNone {
		return nil, ErrNotFound
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := "SELECT " + reviewColumns + " FROM performance_reviews r WHERE r.id = $1"
	args := []any{reviewID}
	query, args = scopeCondition(scope, query, args)
	query += " FOR UPDATE"

	r, err := scanReview(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}

	previous := r.state
	if err := transition(r); err != nil {
		return nil, err
	}

	cmd, err := tx.Exec(ctx, `
    UPDATE performance_reviews
    SET state = $1, feedback = $2, review_date = $3, updated_at = now()
    WHERE id = $4 AND state = $5
  `, string(r.state), r.Feedback, r.ReviewDate, r.ID, string(previous))
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		// Unreachable while the row lock is held; kept as a tripwire.
		return nil, errors.New("review state changed concurrently")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// EmployeeOwner returns the user and department behind a review's employee,
// for object-level permission checks.
func (s *Store) EmployeeOwner(ctx context.Context, employeeID string) (userID, departmentID string, err error) {
	err = s.DB.QueryRow(ctx, "SELECT COALESCE(user_id::text, ''), department_id FROM employees WHERE id = $1", employeeID).Scan(&userID, &departmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrNotFound
	}
	return userID, departmentID, err
}
