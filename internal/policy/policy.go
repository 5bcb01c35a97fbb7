// Package policy holds the pure access rules consulted by the lifecycle
// services: which actor may see which record, and which mission fields each
// role may write. Rules are static tables evaluated per request.
package policy

import (
	"github.com/jtec/maintenance-service/internal/domain"
)

// missionWritableFields maps a role to the mission attribute names it may
// write through a partial update. Fields outside the mask are silently
// dropped, never errored.
var missionWritableFields = map[domain.Role][]string{
	// The owning company may edit everything except the ticket linkage, its
	// own immutable ownership, and billing linkage (admin only).
	domain.RoleEntreprise: {
		"titre", "description", "statut", "technicien_id",
		"date_prevue", "date_intervention_debut", "date_intervention_fin",
		"cout_estime", "cout_final",
		"materiel_requis", "materiel_utilise",
		"en_retard", "motif_retard", "date_reportee",
		"travaux_realises", "notes_internes", "photos",
		"signature_client_url", "signature_technicien_url", "date_signature",
	},
	// A technician touches status plus timing/report/photo/signature fields.
	domain.RoleTechnicien: {
		"statut",
		"date_prevue", "date_intervention_debut", "date_intervention_fin",
		"materiel_utilise",
		"en_retard", "motif_retard", "date_reportee",
		"travaux_realises", "notes_internes", "photos",
		"signature_client_url", "signature_technicien_url", "date_signature",
	},
	domain.RoleAdminJTEC: {
		"titre", "description", "statut", "entreprise_id", "technicien_id",
		"date_prevue", "date_intervention_debut", "date_intervention_fin",
		"cout_estime", "cout_final",
		"materiel_requis", "materiel_utilise",
		"en_retard", "motif_retard", "date_reportee",
		"travaux_realises", "notes_internes", "photos",
		"signature_client_url", "signature_technicien_url", "date_signature",
		"facture_id",
	},
}

// FilterMissionFields returns the subset of fields the role may write.
func FilterMissionFields(role domain.Role, fields map[string]any) map[string]any {
	allowed := missionWritableFields[role]
	if len(allowed) == 0 {
		return map[string]any{}
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = struct{}{}
	}
	filtered := make(map[string]any, len(fields))
	for name, value := range fields {
		if _, ok := allowedSet[name]; ok {
			filtered[name] = value
		}
	}
	return filtered
}

// CanViewTicket applies per-role ticket visibility: a régie sees its own
// tickets, a tenant its authored tickets, a company the tickets diffused to
// it that are not yet accepted elsewhere, an administrator everything.
func CanViewTicket(actor domain.ActorContext, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.RoleAdminJTEC:
		return true
	case domain.RoleRegie:
		return actor.OwnsRegie(ticket.RegieID)
	case domain.RoleLocataire:
		return ticket.LocataireID != nil && *ticket.LocataireID == actor.ProfileID
	case domain.RoleEntreprise, domain.RoleTechnicien:
		if actor.EntrepriseID == nil {
			return false
		}
		if !ticket.VisibleToEntreprise(*actor.EntrepriseID) {
			return false
		}
		// Past acceptance the ticket is only visible to actors joined
		// through its mission, which CanViewMission covers.
		return ticket.Statut.Acceptable()
	default:
		return false
	}
}

// CanManageDiffusion restricts diffusion and cancellation of a ticket to
// the owning régie or an administrator.
func CanManageDiffusion(actor domain.ActorContext, ticket *domain.Ticket) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.Role == domain.RoleRegie && actor.OwnsRegie(ticket.RegieID)
}

// CanViewMission joins visibility through the originating ticket: régie by
// ticket ownership, tenant by ticket authorship, company and technician by
// mission ownership.
func CanViewMission(actor domain.ActorContext, mission *domain.Mission, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.RoleAdminJTEC:
		return true
	case domain.RoleEntreprise, domain.RoleTechnicien:
		return actor.OwnsEntreprise(mission.EntrepriseID)
	case domain.RoleRegie:
		return ticket != nil && actor.OwnsRegie(ticket.RegieID)
	case domain.RoleLocataire:
		return ticket != nil && ticket.LocataireID != nil && *ticket.LocataireID == actor.ProfileID
	default:
		return false
	}
}

// CanOperateIntervention gates the intervention operations: the assigned
// technician or any technician of the mission's company, the owning
// company, or an administrator. Agencies and tenants have no write access.
func CanOperateIntervention(actor domain.ActorContext, mission *domain.Mission) bool {
	switch actor.Role {
	case domain.RoleAdminJTEC:
		return true
	case domain.RoleEntreprise:
		return actor.OwnsEntreprise(mission.EntrepriseID)
	case domain.RoleTechnicien:
		if mission.TechnicienID != nil && *mission.TechnicienID == actor.ProfileID {
			return true
		}
		return actor.OwnsEntreprise(mission.EntrepriseID)
	default:
		return false
	}
}
