// Package authz evaluates role-and-ownership policy for table-level actions.
// The evaluator holds no state of its own; record lookups go through the
// Directory so policy stays testable without a database.
package authz

import (
	"context"

	"github.com/rentora/authcore/internal/models"
)

const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

const (
	TableAuthUsers    = "auth_users"
	TableUserProfiles = "user_profiles"
	TableMaintenance  = "maintenance_requests"
	TableAuditLog     = "audit_log"
)

// Actor is the authenticated identity performing the action.
type Actor struct {
	ID   uint
	Role string
}

// Directory resolves the records a policy decision depends on.
type Directory interface {
	RoleNameOfUser(ctx context.Context, userID uint) (string, error)
	ProfileOwner(ctx context.Context, profileID uint) (uint, error)
}

type Engine struct {
	dir Directory
}

func New(dir Directory) *Engine {
	return &Engine{dir: dir}
}

// Authorize decides whether actor may perform action on a row of table.
// payload is the incoming mutation body (nil for reads/deletes), itemID the
// target row for update/delete. Unknown tables and failed lookups deny.
func (e *Engine) Authorize(ctx context.Context, table, action string, payload map[string]any, itemID uint, actor Actor) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}

	switch table {
	case TableAuthUsers:
		return e.authorizeAuthUsers(ctx, action, payload, itemID, actor)
	case TableUserProfiles:
		return e.authorizeUserProfiles(ctx, action, payload, itemID, actor)
	case TableMaintenance:
		return e.authorizeMaintenance(ctx, action, payload, actor)
	}

	return false
}

func (e *Engine) authorizeAuthUsers(ctx context.Context, action string, payload map[string]any, itemID uint, actor Actor) bool {
	switch action {
	case ActionDelete:
		// identity deletes stay admin-only, no exceptions
		return false
	case ActionUpdate:
		if actor.Role != models.RoleStaff {
			return false
		}
		if payload == nil {
			return true
		}
		newRole := payloadString(payload, "role")
		// nobody below admin may hand out the admin role, themselves included
		if newRole == models.RoleAdmin {
			return false
		}
		if newRole == models.RoleStaff {
			targetRole, err := e.dir.RoleNameOfUser(ctx, itemID)
			if err != nil {
				return false
			}
			// tenants may not be promoted to staff by non-admins
			if targetRole == models.RoleTenant {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (e *Engine) authorizeUserProfiles(ctx context.Context, action string, payload map[string]any, itemID uint, actor Actor) bool {
	if action == ActionCreate {
		return payloadUint(payload, "user_id") == actor.ID
	}
	owner, err := e.dir.ProfileOwner(ctx, itemID)
	if err != nil {
		return false
	}
	return owner == actor.ID
}

func (e *Engine) authorizeMaintenance(ctx context.Context, action string, payload map[string]any, actor Actor) bool {
	if action == ActionCreate {
		return payloadUint(payload, "tenant_id") == actor.ID ||
			payloadUint(payload, "staff_id") == actor.ID ||
			actor.Role == models.RoleStaff
	}
	return actor.Role == models.RoleStaff
}

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}

func payloadUint(payload map[string]any, key string) uint {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case float64: // JSON numbers decode as float64
		return uint(v)
	case int:
		return uint(v)
	case uint:
		return v
	}
	return 0
}
