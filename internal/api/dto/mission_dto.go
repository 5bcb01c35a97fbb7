package dto

import (
	"time"

	"github.com/jtec/maintenance-service/internal/domain"
	"github.com/jtec/maintenance-service/internal/storage"
)

// AcceptTicketRequest payload for turning a ticket into a mission.
type AcceptTicketRequest struct {
	EntrepriseID   string     `json:"entreprise_id,omitempty"`
	Titre          string     `json:"titre,omitempty"`
	Description    string     `json:"description,omitempty"`
	DatePrevue     *time.Time `json:"date_prevue,omitempty"`
	CoutEstime     *float64   `json:"cout_estime,omitempty"`
	MaterielRequis []string   `json:"materiel_requis,omitempty"`
}

// AssignTechnicienRequest payload for technician assignment.
type AssignTechnicienRequest struct {
	TechnicienID string     `json:"technicien_id"`
	DatePrevue   *time.Time `json:"date_prevue,omitempty"`
}

// PauseRequest payload for pausing an intervention.
type PauseRequest struct {
	Motif string `json:"motif"`
}

// ReportDelayRequest payload for flagging lateness.
type ReportDelayRequest struct {
	MotifRetard  string     `json:"motif_retard"`
	DateReportee *time.Time `json:"date_reportee,omitempty"`
}

// CompleteRequest payload for finishing an intervention.
type CompleteRequest struct {
	TravauxRealises string   `json:"travaux_realises"`
	CoutFinal       *float64 `json:"cout_final,omitempty"`
	MaterielUtilise []string `json:"materiel_utilise,omitempty"`
}

// SignatureRequest payload for storing a signature reference.
type SignatureRequest struct {
	Type domain.SignatureType `json:"type"`
	URL  string               `json:"url"`
}

// PhotoUploadSlotRequest payload for requesting an upload credential.
type PhotoUploadSlotRequest struct {
	Filename string `json:"filename"`
}

// GrantResponse relays a signed storage credential.
type GrantResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GrantFromStorage maps a storage grant onto the wire shape.
func GrantFromStorage(grant storage.Grant) GrantResponse {
	return GrantResponse{
		Key:       grant.Key,
		URL:       grant.URL,
		ExpiresAt: grant.ExpiresAt,
	}
}

// MissionResponse is the wire view of a mission.
type MissionResponse struct {
	ID                     string               `json:"id"`
	TicketID               string               `json:"ticket_id"`
	EntrepriseID           string               `json:"entreprise_id"`
	TechnicienID           *string              `json:"technicien_id,omitempty"`
	Titre                  string               `json:"titre"`
	Description            string               `json:"description"`
	Statut                 domain.MissionStatus `json:"statut"`
	DatePrevue             *time.Time           `json:"date_prevue,omitempty"`
	DateInterventionDebut  *time.Time           `json:"date_intervention_debut,omitempty"`
	DateInterventionFin    *time.Time           `json:"date_intervention_fin,omitempty"`
	CoutEstime             *float64             `json:"cout_estime,omitempty"`
	CoutFinal              *float64             `json:"cout_final,omitempty"`
	MaterielRequis         []string             `json:"materiel_requis,omitempty"`
	MaterielUtilise        []string             `json:"materiel_utilise,omitempty"`
	EnRetard               bool                 `json:"en_retard"`
	MotifRetard            *string              `json:"motif_retard,omitempty"`
	DateReportee           *time.Time           `json:"date_reportee,omitempty"`
	TravauxRealises        *string              `json:"travaux_realises,omitempty"`
	NotesInternes          []string             `json:"notes_internes,omitempty"`
	Photos                 []string             `json:"photos,omitempty"`
	SignatureClientURL     *string              `json:"signature_client_url,omitempty"`
	SignatureTechnicienURL *string              `json:"signature_technicien_url,omitempty"`
	DateSignature          *time.Time           `json:"date_signature,omitempty"`
	FactureID              *string              `json:"facture_id,omitempty"`
	IsDemo                 bool                 `json:"is_demo"`
	CreatedAt              time.Time            `json:"created_at"`
	UpdatedAt              time.Time            `json:"updated_at"`
}
