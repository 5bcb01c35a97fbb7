package domain

import "time"

// Profile is the identity record behind an ActorContext. Depending on role
// it carries membership in an agency (régie) or a company (entreprise); a
// technicien's EntrepriseID is the membership checked at assignment time.
type Profile struct {
	ID           string
	Email        string
	PasswordHash string
	Nom          string
	Role         Role
	RegieID      *string
	EntrepriseID *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ActorContext derives the request-scoped actor view of this profile.
func (p *Profile) ActorContext() ActorContext {
	return ActorContext{
		ProfileID:    p.ID,
		Role:         p.Role,
		RegieID:      p.RegieID,
		EntrepriseID: p.EntrepriseID,
	}
}
