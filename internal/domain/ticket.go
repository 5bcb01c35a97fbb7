package domain

import "time"

// TicketStatus enumerates lifecycle states for maintenance tickets.
type TicketStatus string

const (
	TicketStatusNouveau            TicketStatus = "nouveau"
	TicketStatusEnAttenteDiffusion TicketStatus = "en_attente_diffusion"
	TicketStatusDiffuse            TicketStatus = "diffusé"
	TicketStatusAccepte            TicketStatus = "accepté"
	TicketStatusEnCours            TicketStatus = "en_cours"
	TicketStatusTermine            TicketStatus = "terminé"
	TicketStatusAnnule             TicketStatus = "annulé"
	TicketStatusReporte            TicketStatus = "reportée"
)

// DiffusionMode controls which companies may see a diffused ticket.
type DiffusionMode string

const (
	DiffusionOuverte   DiffusionMode = "ouvert"
	DiffusionRestreint DiffusionMode = "restreint"
)

// TicketCategorie enumerates trade categories.
type TicketCategorie string

const (
	CategoriePlomberie   TicketCategorie = "plomberie"
	CategorieElectricite TicketCategorie = "electricite"
	CategorieChauffage   TicketCategorie = "chauffage"
	CategorieSerrurerie  TicketCategorie = "serrurerie"
	CategorieVitrerie    TicketCategorie = "vitrerie"
	CategoriePeinture    TicketCategorie = "peinture"
	CategorieMenuiserie  TicketCategorie = "menuiserie"
	CategorieAutre       TicketCategorie = "autre"
)

// TicketPriorite enumerates urgency levels.
type TicketPriorite string

const (
	PrioriteBasse   TicketPriorite = "basse"
	PrioriteNormale TicketPriorite = "normale"
	PrioriteHaute   TicketPriorite = "haute"
	PrioriteUrgente TicketPriorite = "urgente"
)

// Ticket is a maintenance request raised by a tenant or an agency. A ticket
// is never hard-deleted by the lifecycle: closure and cancellation are
// statuses. At most one mission references a ticket (acceptance is
// exclusive, enforced by a unique constraint on missions.ticket_id).
type Ticket struct {
	ID                    string
	Titre                 string
	Description           string
	Categorie             TicketCategorie
	Priorite              TicketPriorite
	Statut                TicketStatus
	DiffusionMode         DiffusionMode
	EntreprisesAutorisees []string
	RegieID               string
	LocataireID           *string
	LogementID            *string
	DateAcceptation       *time.Time
	DateCloture           *time.Time
	IsDemo                bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// acceptableStatuses are the ticket states a company may accept from.
var acceptableStatuses = map[TicketStatus]struct{}{
	TicketStatusDiffuse:            {},
	TicketStatusNouveau:            {},
	TicketStatusEnAttenteDiffusion: {},
}

// Acceptable reports whether a ticket in this status may become a mission.
func (s TicketStatus) Acceptable() bool {
	_, ok := acceptableStatuses[s]
	return ok
}

// VisibleToEntreprise reports whether the given company may see this ticket
// through diffusion: open mode, or restricted mode with the company on the
// allow-list.
func (t *Ticket) VisibleToEntreprise(entrepriseID string) bool {
	if t.DiffusionMode != DiffusionRestreint {
		return true
	}
	for _, id := range t.EntreprisesAutorisees {
		if id == entrepriseID {
			return true
		}
	}
	return false
}
