package rbac

// Role identifies the single role held by an authenticated principal.
type Role string

const (
	RolePatient       Role = "patient"
	RoleDoctor        Role = "doctor"
	RoleNurse         Role = "nurse"
	RoleLabTechnician Role = "lab-technician"
	RolePharmacist    Role = "pharmacist"
	RoleAdmin         Role = "admin"
)

// FallbackRole is the least-privileged role. Invalid or missing role
// claims degrade to it.
const FallbackRole = RolePatient

var allRoles = []Role{
	RolePatient,
	RoleDoctor,
	RoleNurse,
	RoleLabTechnician,
	RolePharmacist,
	RoleAdmin,
}

var displayNames = map[Role]string{
	RolePatient:       "Patient",
	RoleDoctor:        "Doctor",
	RoleNurse:         "Nurse",
	RoleLabTechnician: "Lab Technician",
	RolePharmacist:    "Pharmacist",
	RoleAdmin:         "Administrator",
}

// Roles returns every known role in a stable order.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	_, ok := displayNames[r]
	return ok
}

func (r Role) String() string { return string(r) }

// DisplayName returns the human readable role name, or the raw value for
// an unknown role.
func (r Role) DisplayName() string {
	if name, ok := displayNames[r]; ok {
		return name
	}
	return string(r)
}

// LookupRole validates candidate against the closed role set.
func LookupRole(candidate string) (Role, bool) {
	r := Role(candidate)
	if !r.Valid() {
		return "", false
	}
	return r, true
}

// ParseRole returns the role named by candidate, or FallbackRole when the
// candidate is empty or unknown. It never fails.
func ParseRole(candidate string) Role {
	if r, ok := LookupRole(candidate); ok {
		return r
	}
	return FallbackRole
}
