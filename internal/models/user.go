package models

import "time"

type Role string

const (
	RoleSuperAdmin  Role = "SuperAdmin"
	RoleCompanyUser Role = "CompanyUser"
	RoleEndUser     Role = "EndUser"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleCompanyUser, RoleEndUser:
		return true
	}
	return false
}

// CanBeAssigned reports whether a user with this role may receive tasks.
func (r Role) CanBeAssigned() bool {
	return r == RoleSuperAdmin || r == RoleCompanyUser
}

type User struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	Name         string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null;index" json:"role"`
	Company      *string   `gorm:"type:varchar(100);index" json:"company"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CompanyName returns the company or an empty string.
func (u User) CompanyName() string {
	if u.Company == nil {
		return ""
	}
	return *u.Company
}
