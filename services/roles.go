package services

// Role names stored in the roles table. The set is closed; role checks go
// through Caller instead of comparing raw strings at call sites.
const (
	RolePrincipalInvestigator = "principal_investigator"
	RoleReviewer              = "reviewer"
	RoleAreaChair             = "area_chair"
	RoleProgramOfficer        = "program_officer"
	RoleAdmin                 = "admin"
)

// Caller is the identity the engine evaluates guards against. A zero Caller is
// an anonymous public visitor. System-driven transitions use SystemCaller.
type Caller struct {
	UserID int
	Roles  []string
}

// SystemCaller identifies engine-internal transitions such as the automatic
// move to under_review when the first assignment starts.
var SystemCaller = Caller{UserID: 0, Roles: []string{RoleAdmin}}

// IsAnonymous reports whether the caller is an unauthenticated visitor.
func (c Caller) IsAnonymous() bool {
	return c.UserID == 0 && len(c.Roles) == 0
}

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool {
	for _, r := range c.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// HasRole reports whether the caller holds the given role. Admin implicitly
// satisfies every role check.
func (c Caller) HasRole(role string) bool {
	if c.IsAdmin() {
		return true
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the caller holds at least one of the given roles.
func (c Caller) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if c.HasRole(role) {
			return true
		}
	}
	return false
}

// IsStaff reports whether the caller may act on proposals beyond their own:
// area chairs, program officers and admins.
func (c Caller) IsStaff() bool {
	return c.HasAnyRole(RoleAreaChair, RoleProgramOfficer)
}
