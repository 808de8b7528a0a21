package domain

// Role is the single authorization role a principal holds at any time. It is
// recorded both in the signed claim bundle and on the Principal document;
// the two converge whenever no provisioning call is in flight.
type Role string

const (
	RoleAdmin            Role = "admin"
	RoleContentManager   Role = "content_manager"
	RoleBusinessOperator Role = "business_operator"
	RoleSalesAgent       Role = "sales_agent"
	RoleStandardUser     Role = "standard_user"
)

// Roles lists every valid role, in privilege order.
var Roles = []Role{
	RoleAdmin,
	RoleContentManager,
	RoleBusinessOperator,
	RoleSalesAgent,
	RoleStandardUser,
}

// Valid reports whether r is one of the five declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleContentManager, RoleBusinessOperator, RoleSalesAgent, RoleStandardUser:
		return true
	}
	return false
}

// Elevated reports whether r may manage content without ownership checks.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleContentManager
}
