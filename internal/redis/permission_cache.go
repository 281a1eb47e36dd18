package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ftyszyx/school-manager/internal/domain"
	"github.com/ftyszyx/school-manager/internal/metrics"
)

// permissionCacheTTL bounds staleness of a cached permission set.
const permissionCacheTTL = 24 * time.Hour

// PermissionCache stores per-user permission sets in Redis as JSON under
// user_permissions:{user_id}. Every operation runs with an explicit timeout.
// All failures degrade: Get reports a miss, Set logs and moves on. The
// authorization decision is never altered by a transient Redis problem.
type PermissionCache struct {
	rdb     goredis.Cmdable
	timeout time.Duration
}

func NewPermissionCache(rdb goredis.Cmdable, timeout time.Duration) *PermissionCache {
	return &PermissionCache{rdb: rdb, timeout: timeout}
}

func (c *PermissionCache) Get(ctx context.Context, userID int32) ([]domain.Permission, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.rdb.Get(ctx, permissionCacheKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			metrics.PermissionCacheOpsTotal.WithLabelValues("miss").Inc()
		} else {
			slog.Warn("Permission cache GET failed", "user_id", userID, "error", err)
			metrics.PermissionCacheOpsTotal.WithLabelValues("error").Inc()
		}
		return nil, false
	}

	var perms []domain.Permission
	if err := json.Unmarshal(data, &perms); err != nil {
		slog.Warn("Failed to unmarshal cached permissions", "user_id", userID, "error", err)
		metrics.PermissionCacheOpsTotal.WithLabelValues("error").Inc()
		return nil, false
	}

	metrics.PermissionCacheOpsTotal.WithLabelValues("hit").Inc()
	return perms, true
}

func (c *PermissionCache) Set(ctx context.Context, userID int32, perms []domain.Permission) {
	encoded, err := json.Marshal(perms)
	if err != nil {
		slog.Warn("Failed to marshal permissions for cache", "user_id", userID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.rdb.Set(ctx, permissionCacheKey(userID), encoded, permissionCacheTTL).Err(); err != nil {
		slog.Warn("Failed to populate permission cache", "user_id", userID, "error", err)
	}
}

func (c *PermissionCache) Delete(ctx context.Context, userID int32) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.rdb.Del(ctx, permissionCacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete permission cache entry: %w", err)
	}
	return nil
}

func permissionCacheKey(userID int32) string {
	return fmt.Sprintf("user_permissions:%d", userID)
}
