package access

import "github.com/yukikurage/taskdesk/internal/models"

// Principal is the authenticated caller as carried by the access token.
type Principal struct {
	UserID  uint64
	Role    models.Role
	Company *string
}

// PrincipalFor builds a Principal from a stored user.
func PrincipalFor(u models.User) Principal {
	return Principal{UserID: u.ID, Role: u.Role, Company: u.Company}
}

func (p Principal) IsSuperAdmin() bool { return p.Role == models.RoleSuperAdmin }

// CompanyName returns the principal's company, or "" when it has none.
func (p Principal) CompanyName() string {
	if p.Company == nil {
		return ""
	}
	return *p.Company
}
