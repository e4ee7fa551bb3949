package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner      = "owner"
	RoleManager    = "manager"
	RoleRep        = "rep" // sales representative
	RoleAnalyst    = "analyst"
	RoleSuperAdmin = "super_admin"
	RoleCompliance = "compliance" // hidden role, DNC/audit tooling only
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsHiddenRole(role string) bool { return role == RoleCompliance }
