package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftyszyx/school-manager/internal/domain"
)

type fakeMembership struct {
	usersByRole map[int32][]int32
	rolesByPerm map[int32][]int32
	err         error
}

func (m *fakeMembership) ListUserIDsByRoles(ctx context.Context, roleIDs []int32) ([]int32, error) {
	if m.err != nil {
		return nil, m.err
	}
	seen := make(map[int32]struct{})
	var out []int32
	for _, roleID := range roleIDs {
		for _, userID := range m.usersByRole[roleID] {
			if _, dup := seen[userID]; dup {
				continue
			}
			seen[userID] = struct{}{}
			out = append(out, userID)
		}
	}
	return out, nil
}

func (m *fakeMembership) ListRoleIDsByPermission(ctx context.Context, permissionID int32) ([]int32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rolesByPerm[permissionID], nil
}

func seedCache(userIDs ...int32) *fakeCache {
	cache := newFakeCache()
	for _, id := range userIDs {
		cache.entries[id] = []domain.Permission{perm("/api/x", domain.ActionAny)}
	}
	return cache
}

func TestInvalidator_OnUserRolesChanged(t *testing.T) {
	cache := seedCache(1, 2)
	inv := NewInvalidator(cache, &fakeMembership{})

	require.NoError(t, inv.OnUserRolesChanged(context.Background(), 1))

	_, ok := cache.entries[1]
	assert.False(t, ok)
	_, ok = cache.entries[2]
	assert.True(t, ok, "other users untouched")
}

func TestInvalidator_OnRoleChanged(t *testing.T) {
	cache := seedCache(1, 2, 3)
	membership := &fakeMembership{usersByRole: map[int32][]int32{5: {1, 3}}}
	inv := NewInvalidator(cache, membership)

	require.NoError(t, inv.OnRoleChanged(context.Background(), 5))

	_, ok := cache.entries[1]
	assert.False(t, ok)
	_, ok = cache.entries[3]
	assert.False(t, ok)
	_, ok = cache.entries[2]
	assert.True(t, ok)
}

func TestInvalidator_OnPermissionChanged(t *testing.T) {
	cache := seedCache(1, 2, 3)
	membership := &fakeMembership{
		rolesByPerm: map[int32][]int32{9: {5, 6}},
		usersByRole: map[int32][]int32{5: {1}, 6: {2}},
	}
	inv := NewInvalidator(cache, membership)

	require.NoError(t, inv.OnPermissionChanged(context.Background(), 9))

	_, ok := cache.entries[1]
	assert.False(t, ok)
	_, ok = cache.entries[2]
	assert.False(t, ok)
	_, ok = cache.entries[3]
	assert.True(t, ok)
}

func TestInvalidator_OnPermissionChangedNoRoles(t *testing.T) {
	cache := seedCache(1)
	inv := NewInvalidator(cache, &fakeMembership{})

	require.NoError(t, inv.OnPermissionChanged(context.Background(), 9))
	assert.Equal(t, 0, cache.deletes)
}

func TestInvalidator_SourceFailurePropagates(t *testing.T) {
	errDown := errors.New("database down")
	inv := NewInvalidator(newFakeCache(), &fakeMembership{err: errDown})

	assert.ErrorIs(t, inv.OnRoleChanged(context.Background(), 5), errDown)
	assert.ErrorIs(t, inv.OnPermissionChanged(context.Background(), 9), errDown)
}
