package enums

import "fmt"

// UserRole represents the caller's permission level.
type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleITStaff UserRole = "it_staff"
	UserRoleStaff   UserRole = "staff"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleITStaff,
	UserRoleStaff,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}

// CanMutateFleet reports whether the role may create, assign, return, or
// update devices.
func (r UserRole) CanMutateFleet() bool {
	return r == UserRoleAdmin || r == UserRoleITStaff
}

// CanDeleteDevices reports whether the role may delete devices outright.
func (r UserRole) CanDeleteDevices() bool {
	return r == UserRoleAdmin
}
