package domain

import "context"

// --- Model types ---

// ChangeEvent is a class status change published on the change feed.
// The JSON shape matches what the database trigger emits and what
// websocket clients receive, frame for frame.
type ChangeEvent struct {
	SchoolID  int32 `json:"school_id"`
	Grade     int32 `json:"grade"`
	Class     int32 `json:"class"`
	ClassID   int32 `json:"class_id"`
	NewStatus int32 `json:"new_status"`
}

// Action is the operation a permission grants on a resource.
type Action string

const (
	ActionRead   Action = "READ"
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionAny    Action = "*"
)

// Permission is one grant: an action on a resource pattern. Resource uses
// shell-style wildcards (`*` any sequence, `?` single character), anchored
// to the full request path, case-sensitive.
type Permission struct {
	ID          int32   `json:"id"`
	Name        string  `json:"name"`
	Resource    string  `json:"resource"`
	Action      Action  `json:"action"`
	Description *string `json:"description,omitempty"`
}

// Claims are the authenticated identity attached to a request.
type Claims struct {
	UserID  int32   `json:"user_id"`
	RoleIDs []int32 `json:"role_ids"`
}

// --- Interfaces ---

// PermissionSource resolves permissions from the relational store.
type PermissionSource interface {
	// ListByRoleIDs returns all permissions attached to any of the given
	// roles through the role_permissions join table.
	ListByRoleIDs(ctx context.Context, roleIDs []int32) ([]Permission, error)
}

// PermissionCache is the read-through cache over per-user permission sets.
// Implementations treat infrastructure failures as cache misses: a transient
// store error never surfaces to the authorization decision.
type PermissionCache interface {
	// Get returns the cached set for a user. The second return value is
	// false on miss, expiry, or any transient store failure.
	Get(ctx context.Context, userID int32) ([]Permission, bool)
	// Set stores the set under the cache TTL. Failures are logged, not returned.
	Set(ctx context.Context, userID int32, perms []Permission)
	// Delete removes the entry regardless of remaining TTL.
	Delete(ctx context.Context, userID int32) error
}

// Broadcaster fans a change event out to every live connection of a school.
type Broadcaster interface {
	Broadcast(schoolID int32, event ChangeEvent)
}
