package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gobwas/glob"

	"github.com/ftyszyx/school-manager/internal/domain"
	"github.com/ftyszyx/school-manager/internal/logging"
	"github.com/ftyszyx/school-manager/internal/metrics"
)

// Checker computes allow/deny decisions for (user, roles, method, path)
// using the permission cache as a read-through layer over the role store.
type Checker struct {
	cache  domain.PermissionCache
	source domain.PermissionSource
}

func NewChecker(cache domain.PermissionCache, source domain.PermissionSource) *Checker {
	return &Checker{cache: cache, source: source}
}

// CheckPathPermission returns whether the user may perform method on path.
//
// On a cache hit the cached set is evaluated directly. On a miss the set is
// computed from the role-permission join, evaluated, and then written back
// with the cache TTL; a failed write-back never alters the decision.
func (c *Checker) CheckPathPermission(ctx context.Context, userID int32, roleIDs []int32, method, path string) (bool, error) {
	action, err := methodAction(method)
	if err != nil {
		// Unreachable with upstream method validation; fail closed.
		logging.WithUser(userID).Error("Unknown method in permission check", "method", method)
		return false, err
	}

	if perms, ok := c.cache.Get(ctx, userID); ok {
		allowed := Evaluate(path, action, perms)
		recordDecision(allowed)
		return allowed, nil
	}

	perms, err := c.source.ListByRoleIDs(ctx, roleIDs)
	if err != nil {
		return false, fmt.Errorf("failed to resolve permissions for user %d: %w", userID, err)
	}

	allowed := Evaluate(path, action, perms)
	c.cache.Set(ctx, userID, perms)
	recordDecision(allowed)
	return allowed, nil
}

// Invalidate drops the user's cached permission set regardless of remaining
// TTL. Collaborators call this on any mutation that could change the user's
// effective permissions.
func (c *Checker) Invalidate(ctx context.Context, userID int32) error {
	return c.cache.Delete(ctx, userID)
}

// Evaluate reports whether any record grants action on path. A record
// matches when its action is "*" or equals the requested action, and its
// resource pattern matches the full path under shell-style wildcards
// (`*` any sequence, `?` single character, case-sensitive). An empty or
// non-matching set denies; there is no explicit-deny record type.
func Evaluate(path string, action domain.Action, perms []domain.Permission) bool {
	for _, p := range perms {
		if p.Action != domain.ActionAny && p.Action != action {
			continue
		}
		g, err := glob.Compile(p.Resource)
		if err != nil {
			slog.Warn("Skipping permission with invalid resource pattern", "permission_id", p.ID, "resource", p.Resource, "error", err)
			continue
		}
		if g.Match(path) {
			return true
		}
	}
	return false
}

func methodAction(method string) (domain.Action, error) {
	switch strings.ToUpper(method) {
	case "GET":
		return domain.ActionRead, nil
	case "POST":
		return domain.ActionCreate, nil
	case "PUT":
		return domain.ActionUpdate, nil
	case "DELETE":
		return domain.ActionDelete, nil
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownMethod, method)
	}
}

func recordDecision(allowed bool) {
	if allowed {
		metrics.PermissionChecksTotal.WithLabelValues("allow").Inc()
	} else {
		metrics.PermissionChecksTotal.WithLabelValues("deny").Inc()
	}
}
