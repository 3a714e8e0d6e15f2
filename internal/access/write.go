package access

import (
	apierrors "github.com/yukikurage/taskdesk/internal/errors"
	"github.com/yukikurage/taskdesk/internal/models"
)

// Intent names a mutation the caller wants to perform.
type Intent string

const (
	IntentEditTask     Intent = "edit_task"
	IntentSetStatus    Intent = "set_status"
	IntentAssignTask   Intent = "assign_task"
	IntentCompleteTask Intent = "complete_task"
	IntentDeleteTask   Intent = "delete_task"

	IntentCreateUser Intent = "create_user"
	IntentEditUser   Intent = "edit_user"
	IntentDeleteUser Intent = "delete_user"
)

// Decision is the outcome of a write check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Err returns nil for an allowed decision and a FORBIDDEN error otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apierrors.NewAPIError(apierrors.ErrCodeForbidden, d.Reason)
}

// ResolveTaskWrite decides whether p may perform intent on task. It must be
// called with the row as loaded immediately before the write.
func ResolveTaskWrite(p Principal, intent Intent, task models.Task) Decision {
	if p.IsSuperAdmin() {
		return allow()
	}

	switch intent {
	case IntentEditTask:
		if p.Role != models.RoleEndUser {
			return deny("company users cannot modify tasks")
		}
		if task.CreatedBy != p.UserID {
			return deny("only the task creator can edit this task")
		}
		return allow()
	case IntentSetStatus:
		return deny("only super admins can change task status")
	case IntentAssignTask:
		return deny("only super admins can assign tasks")
	case IntentCompleteTask:
		if p.Role == models.RoleCompanyUser {
			return allow()
		}
		return deny("end users cannot complete tasks")
	case IntentDeleteTask:
		if task.CreatedBy != p.UserID {
			return deny("only the task creator can delete this task")
		}
		return allow()
	}
	return deny("operation not permitted")
}

// ResolveUserWrite decides whether p may perform intent on target.
func ResolveUserWrite(p Principal, intent Intent, target models.User) Decision {
	switch intent {
	case IntentCreateUser:
		if p.IsSuperAdmin() {
			return allow()
		}
		return deny("only super admins can create users")
	case IntentDeleteUser:
		if !p.IsSuperAdmin() {
			return deny("only super admins can delete users")
		}
		if target.ID == p.UserID {
			return deny("you cannot delete your own account")
		}
		return allow()
	case IntentEditUser:
		if p.IsSuperAdmin() || target.ID == p.UserID {
			return allow()
		}
		if p.Role == models.RoleCompanyUser && p.CompanyName() != "" && target.CompanyName() == p.CompanyName() {
			return allow()
		}
		return deny("you cannot modify this user")
	}
	return deny("operation not permitted")
}

// CheckImmutable rejects a role or company change by anyone but a super
// admin. Values equal to the current ones are not changes.
func CheckImmutable(p Principal, target models.User, role *models.Role, company *string) error {
	if p.IsSuperAdmin() {
		return nil
	}
	if role != nil && *role != target.Role {
		return apierrors.NewAPIError(apierrors.ErrCodeImmutableField, "role cannot be changed")
	}
	if company != nil && *company != target.CompanyName() {
		return apierrors.NewAPIError(apierrors.ErrCodeImmutableField, "company cannot be changed")
	}
	return nil
}
