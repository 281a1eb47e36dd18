package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ftyszyx/school-manager/internal/domain"
)

// MembershipSource resolves which users are reachable from a role or a
// permission definition, for cache invalidation fanout.
type MembershipSource interface {
	ListUserIDsByRoles(ctx context.Context, roleIDs []int32) ([]int32, error)
	ListRoleIDsByPermission(ctx context.Context, permissionID int32) ([]int32, error)
}

// Invalidator drops cached permission sets for every user affected by a
// role, permission, or assignment mutation. Coverage is deliberately
// conservative: any mutation that could change a user's effective
// permissions invalidates that user.
type Invalidator struct {
	cache  domain.PermissionCache
	source MembershipSource
}

func NewInvalidator(cache domain.PermissionCache, source MembershipSource) *Invalidator {
	return &Invalidator{cache: cache, source: source}
}

// OnUserRolesChanged invalidates a single user after their role set changed.
func (inv *Invalidator) OnUserRolesChanged(ctx context.Context, userID int32) error {
	if err := inv.cache.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to invalidate permissions for user %d: %w", userID, err)
	}
	return nil
}

// OnRoleChanged invalidates every user holding the role, after the role's
// permission links changed.
func (inv *Invalidator) OnRoleChanged(ctx context.Context, roleID int32) error {
	userIDs, err := inv.source.ListUserIDsByRoles(ctx, []int32{roleID})
	if err != nil {
		return fmt.Errorf("failed to list users for role %d: %w", roleID, err)
	}
	inv.invalidateAll(ctx, userIDs)
	return nil
}

// OnPermissionChanged invalidates every user reachable from the permission
// through any role, after its resource or action fields changed.
func (inv *Invalidator) OnPermissionChanged(ctx context.Context, permissionID int32) error {
	roleIDs, err := inv.source.ListRoleIDsByPermission(ctx, permissionID)
	if err != nil {
		return fmt.Errorf("failed to list roles for permission %d: %w", permissionID, err)
	}
	if len(roleIDs) == 0 {
		return nil
	}

	userIDs, err := inv.source.ListUserIDsByRoles(ctx, roleIDs)
	if err != nil {
		return fmt.Errorf("failed to list users for permission %d: %w", permissionID, err)
	}
	inv.invalidateAll(ctx, userIDs)
	return nil
}

func (inv *Invalidator) invalidateAll(ctx context.Context, userIDs []int32) {
	for _, userID := range userIDs {
		if err := inv.cache.Delete(ctx, userID); err != nil {
			// Entry expires on its own TTL at worst; keep going.
			slog.Warn("Failed to invalidate cached permissions", "user_id", userID, "error", err)
		}
	}
}
