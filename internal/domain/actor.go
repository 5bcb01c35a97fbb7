package domain

// Role enumerates the actor types of the platform.
type Role string

const (
	RoleLocataire  Role = "locataire"
	RoleRegie      Role = "regie"
	RoleEntreprise Role = "entreprise"
	RoleTechnicien Role = "technicien"
	RoleAdminJTEC  Role = "admin_jtec"
)

// ActorContext is the resolved identity a request acts under. It is derived
// from the bearer credential by the auth middleware and passed explicitly
// into every core operation; the core never mutates it.
type ActorContext struct {
	ProfileID    string
	Role         Role
	RegieID      *string
	EntrepriseID *string
}

// IsAdmin reports whether the actor bypasses ownership checks.
func (a ActorContext) IsAdmin() bool {
	return a.Role == RoleAdminJTEC
}

// OwnsRegie reports whether the actor belongs to the given agency.
func (a ActorContext) OwnsRegie(regieID string) bool {
	return a.RegieID != nil && *a.RegieID == regieID
}

// OwnsEntreprise reports whether the actor belongs to the given company.
func (a ActorContext) OwnsEntreprise(entrepriseID string) bool {
	return a.EntrepriseID != nil && *a.EntrepriseID == entrepriseID
}
