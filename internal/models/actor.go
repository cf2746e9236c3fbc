package models

// Role is the role an authenticated user acts with
type Role string

const (
	RoleCustomer Role = "customer"
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// Actor is the requester of an operation
type Actor struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}
