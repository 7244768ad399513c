package domain

// Role enumerates the actor roles known to the ticket core.
type Role string

const (
	RoleCustomer    Role = "CUSTOMER"
	RoleSupport     Role = "SUPPORT_STAFF"
	RoleSupportLead Role = "SUPPORT_LEAD"
	RoleAdmin       Role = "ADMIN"
)

// IsSupportSide reports whether the role belongs to support or admin staff.
func (r Role) IsSupportSide() bool {
	return r == RoleSupport || r == RoleSupportLead || r == RoleAdmin
}

// SystemActorName is the display name recorded for automated transitions.
const SystemActorName = "System"

// Actor identifies who invoked an operation.
type Actor struct {
	ID   string
	Name string
	Role Role
}

// SystemActor is the synthetic actor used by the deadline monitor.
func SystemActor() Actor {
	return Actor{ID: "", Name: SystemActorName, Role: RoleAdmin}
}
