package dto

import (
	"time"

	"github.com/jtec/maintenance-service/internal/domain"
)

// CreateTicketRequest payload for ticket creation.
type CreateTicketRequest struct {
	Titre       string                 `json:"titre"`
	Description string                 `json:"description"`
	Categorie   domain.TicketCategorie `json:"categorie"`
	Priorite    domain.TicketPriorite  `json:"priorite"`
	RegieID     string                 `json:"regie_id"`
	LogementID  *string                `json:"logement_id,omitempty"`
	IsDemo      bool                   `json:"is_demo"`
}

// DiffuseTicketRequest payload for the diffusion step.
type DiffuseTicketRequest struct {
	Mode                  domain.DiffusionMode `json:"diffusion_mode"`
	EntreprisesAutorisees []string             `json:"entreprises_autorisees,omitempty"`
}

// TicketResponse is the wire view of a ticket.
type TicketResponse struct {
	ID                    string                 `json:"id"`
	Titre                 string                 `json:"titre"`
	Description           string                 `json:"description"`
	Categorie             domain.TicketCategorie `json:"categorie"`
	Priorite              domain.TicketPriorite  `json:"priorite"`
	Statut                domain.TicketStatus    `json:"statut"`
	DiffusionMode         domain.DiffusionMode   `json:"diffusion_mode"`
	EntreprisesAutorisees []string               `json:"entreprises_autorisees,omitempty"`
	RegieID               string                 `json:"regie_id"`
	LocataireID           *string                `json:"locataire_id,omitempty"`
	LogementID            *string                `json:"logement_id,omitempty"`
	DateAcceptation       *time.Time             `json:"date_acceptation,omitempty"`
	DateCloture           *time.Time             `json:"date_cloture,omitempty"`
	IsDemo                bool                   `json:"is_demo"`
	CreatedAt             time.Time              `json:"created_at"`
	UpdatedAt             time.Time              `json:"updated_at"`
}
