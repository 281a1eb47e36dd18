package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ftyszyx/school-manager/internal/domain"
)

// PermissionRepo resolves permissions and role membership from Postgres.
// It backs both the checker's read-through path and the invalidation fanout.
type PermissionRepo struct {
	pool *pgxpool.Pool
}

func NewPermissionRepo(pool *pgxpool.Pool) *PermissionRepo {
	return &PermissionRepo{pool: pool}
}

// ListByRoleIDs returns all permissions linked to any of the roles.
func (r *PermissionRepo) ListByRoleIDs(ctx context.Context, roleIDs []int32) ([]domain.Permission, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		select distinct p.id, p.name, p.resource, p.action, p.description
		from permissions p
		join role_permissions rp on rp.permission_id = p.id
		where rp.role_id = any($1)
		order by p.id`, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions by roles: %w", err)
	}
	defer rows.Close()

	var perms []domain.Permission
	for rows.Next() {
		var p domain.Permission
		var action string
		if err := rows.Scan(&p.ID, &p.Name, &p.Resource, &action, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan permission row: %w", err)
		}
		p.Action = domain.Action(action)
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read permission rows: %w", err)
	}
	return perms, nil
}

// ListUserIDsByRoles returns every user holding any of the roles.
func (r *PermissionRepo) ListUserIDsByRoles(ctx context.Context, roleIDs []int32) ([]int32, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		select distinct user_id
		from user_roles
		where role_id = any($1)`, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query users by roles: %w", err)
	}

	userIDs, err := pgx.CollectRows(rows, pgx.RowTo[int32])
	if err != nil {
		return nil, fmt.Errorf("failed to collect user ids: %w", err)
	}
	return userIDs, nil
}

// ListRoleIDsByPermission returns every role linked to the permission.
func (r *PermissionRepo) ListRoleIDsByPermission(ctx context.Context, permissionID int32) ([]int32, error) {
	rows, err := r.pool.Query(ctx, `
		select role_id
		from role_permissions
		where permission_id = $1`, permissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles by permission: %w", err)
	}

	roleIDs, err := pgx.CollectRows(rows, pgx.RowTo[int32])
	if err != nil {
		return nil, fmt.Errorf("failed to collect role ids: %w", err)
	}
	return roleIDs, nil
}
