package domain

// Role values a user row can hold. At most one owner and at most one manager
// exist per company; both invariants are maintained by the services in this
// module, not by a database constraint.
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleMember  = "member"
)

// User is a row in the "users" table of the backing store.
//
// AuthID links the row to the external identity-provider subject and stays
// nil until the first sign-in. CompanyID is nil for users not yet attached
// to a company.
type User struct {
	ID        string  `json:"id"`
	AuthID    *string `json:"auth_id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	CompanyID *string `json:"company_id"`
}

// AssignableRole reports whether role is one an owner may hand out through
// the role-update endpoint. Ownership is never assigned this way; it only
// moves through the claim-ownership flow.
func AssignableRole(role string) bool {
	return role == RoleMember || role == RoleManager
}

// BelongsTo reports whether the user is attached to the given company.
func (u *User) BelongsTo(companyID string) bool {
	return u.CompanyID != nil && *u.CompanyID == companyID
}
