package shared

import (
	"context"
	"errors"

	"companyms/internal/domain/auth"
	"companyms/internal/domain/org"
)

// ResolveScope compiles the caller's visibility scope from their role and
// employee link. A missing link is not an error for admins; for managers
// and employees it collapses the scope to none.
func ResolveScope(ctx context.Context, store *auth.Store, p auth.Principal) (org.Scope, *auth.EmployeeLink, error) {
	link, err := store.EmployeeLinkByUserID(ctx, p.UserID)
	if err != nil && !errors.Is(err, auth.ErrNoEmployeeLink) {
		return org.ScopeNone(), nil, err
	}
	return org.ResolveScope(p, link), link, nil
}
