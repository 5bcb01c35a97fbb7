package events

import (
	"time"

	"github.com/jtec/maintenance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketDiffused         EventType = "ticket_diffused"
	EventMissionCreated         EventType = "mission_created"
	EventMissionAssigned        EventType = "mission_assigned"
	EventMissionStatusChanged   EventType = "mission_status_changed"
	EventMissionDeleted         EventType = "mission_deleted"
	EventInterventionCompleted  EventType = "intervention_completed"
	EventSignatureAdded         EventType = "signature_added"
	EventMissionTicketSyncError EventType = "mission_ticket_sync_failed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ProfileID string      `json:"profile_id"`
	Role      domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	MissionID string      `json:"mission_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	RegieID   string                 `json:"regie_id"`
	Categorie domain.TicketCategorie `json:"categorie"`
	Priorite  domain.TicketPriorite  `json:"priorite"`
	Titre     string                 `json:"titre"`
}

// TicketDiffusedPayload payload.
type TicketDiffusedPayload struct {
	Mode                  domain.DiffusionMode `json:"mode"`
	EntreprisesAutorisees []string             `json:"entreprises_autorisees,omitempty"`
}

// MissionCreatedPayload payload.
type MissionCreatedPayload struct {
	EntrepriseID string               `json:"entreprise_id"`
	Statut       domain.MissionStatus `json:"statut"`
}

// MissionAssignedPayload payload.
type MissionAssignedPayload struct {
	TechnicienID string `json:"technicien_id"`
}

// MissionStatusChangedPayload payload.
type MissionStatusChangedPayload struct {
	OldStatus domain.MissionStatus `json:"old_status"`
	NewStatus domain.MissionStatus `json:"new_status"`
}

// SignatureAddedPayload payload.
type SignatureAddedPayload struct {
	Type     domain.SignatureType `json:"type"`
	Complete bool                 `json:"complete"`
}

// TicketSyncFailedPayload describes a failed secondary ticket write.
type TicketSyncFailedPayload struct {
	SideEffect string `json:"side_effect"`
	Error      string `json:"error"`
}
