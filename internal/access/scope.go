package access

import "github.com/yukikurage/taskdesk/internal/models"

// Kind is the resource a scope applies to.
type Kind int

const (
	KindTask Kind = iota
	KindUser
)

// Predicate identifies the shape of a read scope.
type Predicate int

const (
	// PredicateNone matches nothing.
	PredicateNone Predicate = iota
	// PredicateAll matches every row.
	PredicateAll
	// PredicateCreatedBy matches tasks created by UserID.
	PredicateCreatedBy
	// PredicateCreatedOrAssigned matches tasks created by or assigned to UserID.
	PredicateCreatedOrAssigned
	// PredicateAssignedWithinCompany matches tasks whose assignee belongs to Company.
	PredicateAssignedWithinCompany
	// PredicateUserSelf matches the user row UserID.
	PredicateUserSelf
	// PredicateUserCompany matches users that belong to Company.
	PredicateUserCompany
)

// Scope is a declarative row filter. The repository layer compiles it into
// a query; Matches* evaluate the same predicate in memory.
type Scope struct {
	Kind      Kind
	Predicate Predicate
	UserID    uint64
	Company   string
}

func (s Scope) String() string {
	switch s.Predicate {
	case PredicateAll:
		return "all"
	case PredicateCreatedBy:
		return "created_by"
	case PredicateCreatedOrAssigned:
		return "created_or_assigned"
	case PredicateAssignedWithinCompany:
		return "assigned_within_company"
	case PredicateUserSelf:
		return "self"
	case PredicateUserCompany:
		return "company"
	default:
		return "none"
	}
}

// ResolveReadScope returns the rows of kind the principal may read.
func ResolveReadScope(p Principal, kind Kind) Scope {
	switch kind {
	case KindTask:
		return taskReadScope(p)
	case KindUser:
		return userReadScope(p)
	}
	return Scope{Kind: kind, Predicate: PredicateNone}
}

func taskReadScope(p Principal) Scope {
	s := Scope{Kind: KindTask, UserID: p.UserID}
	switch p.Role {
	case models.RoleSuperAdmin:
		s.Predicate = PredicateAll
	case models.RoleCompanyUser:
		if p.CompanyName() == "" {
			s.Predicate = PredicateNone
			break
		}
		s.Predicate = PredicateAssignedWithinCompany
		s.Company = p.CompanyName()
	case models.RoleEndUser:
		s.Predicate = PredicateCreatedOrAssigned
	default:
		s.Predicate = PredicateNone
	}
	return s
}

func userReadScope(p Principal) Scope {
	s := Scope{Kind: KindUser, UserID: p.UserID}
	switch p.Role {
	case models.RoleSuperAdmin:
		s.Predicate = PredicateAll
	case models.RoleCompanyUser:
		if p.CompanyName() == "" {
			s.Predicate = PredicateUserSelf
			break
		}
		s.Predicate = PredicateUserCompany
		s.Company = p.CompanyName()
	case models.RoleEndUser:
		s.Predicate = PredicateUserSelf
	default:
		s.Predicate = PredicateNone
	}
	return s
}

// ResolveWorklistScope is the scope of the unassigned, active and completed
// views: everything for super admins, otherwise only tasks the caller created.
func ResolveWorklistScope(p Principal) Scope {
	if p.IsSuperAdmin() {
		return Scope{Kind: KindTask, Predicate: PredicateAll, UserID: p.UserID}
	}
	return Scope{Kind: KindTask, Predicate: PredicateCreatedBy, UserID: p.UserID}
}

// MatchesTask evaluates the scope against a task. companyOf resolves a user
// id to that user's company and is only consulted for company scopes.
func (s Scope) MatchesTask(t models.Task, companyOf func(userID uint64) *string) bool {
	switch s.Predicate {
	case PredicateAll:
		return true
	case PredicateCreatedBy:
		return t.CreatedBy == s.UserID
	case PredicateCreatedOrAssigned:
		return t.CreatedBy == s.UserID || (t.AssignedTo != nil && *t.AssignedTo == s.UserID)
	case PredicateAssignedWithinCompany:
		if t.AssignedTo == nil || companyOf == nil {
			return false
		}
		c := companyOf(*t.AssignedTo)
		return c != nil && *c == s.Company
	}
	return false
}

// MatchesUser evaluates a user scope against a user row.
func (s Scope) MatchesUser(u models.User) bool {
	switch s.Predicate {
	case PredicateAll:
		return true
	case PredicateUserSelf:
		return u.ID == s.UserID
	case PredicateUserCompany:
		return u.Company != nil && *u.Company == s.Company
	}
	return false
}
