package domain

import "time"

// MissionStatus enumerates the mission state machine.
type MissionStatus string

const (
	MissionStatusEnAttente MissionStatus = "en_attente"
	MissionStatusPlanifiee MissionStatus = "planifiée"
	MissionStatusEnRoute   MissionStatus = "en_route"
	MissionStatusEnCours   MissionStatus = "en_cours"
	MissionStatusEnPause   MissionStatus = "en_pause"
	MissionStatusReportee  MissionStatus = "reportée"
	MissionStatusTerminee  MissionStatus = "terminée"
	MissionStatusAnnulee   MissionStatus = "annulée"
)

// missionTransitions is the authoritative edge set of the mission state
// machine. A write that keeps the status unchanged is always allowed and
// does not consult this table.
var missionTransitions = map[MissionStatus][]MissionStatus{
	MissionStatusEnAttente: {MissionStatusPlanifiee, MissionStatusAnnulee},
	MissionStatusPlanifiee: {MissionStatusEnRoute, MissionStatusReportee, MissionStatusAnnulee},
	MissionStatusEnRoute:   {MissionStatusEnCours, MissionStatusReportee, MissionStatusAnnulee},
	MissionStatusEnCours:   {MissionStatusEnPause, MissionStatusTerminee, MissionStatusReportee},
	MissionStatusEnPause:   {MissionStatusEnCours, MissionStatusTerminee, MissionStatusReportee, MissionStatusAnnulee},
	MissionStatusReportee:  {MissionStatusPlanifiee, MissionStatusAnnulee},
	MissionStatusTerminee:  {},
	MissionStatusAnnulee:   {},
}

// CanTransition reports whether current→next is a legal status change.
func CanTransition(current, next MissionStatus) bool {
	if current == next {
		return true
	}
	for _, candidate := range missionTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave the status.
func (s MissionStatus) IsTerminal() bool {
	return len(missionTransitions[s]) == 0
}

// ValidMissionStatus reports whether s is a known status value.
func ValidMissionStatus(s MissionStatus) bool {
	_, ok := missionTransitions[s]
	return ok
}

// SignatureType distinguishes the two signature slots on a mission.
type SignatureType string

const (
	SignatureClient     SignatureType = "client"
	SignatureTechnicien SignatureType = "technicien"
)

// Mission is the work order created when a company accepts a ticket.
// EntrepriseID is immutable after creation except by an administrator; an
// assigned technician must belong to the mission's company.
type Mission struct {
	ID                     string
	TicketID               string
	EntrepriseID           string
	TechnicienID           *string
	Titre                  string
	Description            string
	Statut                 MissionStatus
	DatePrevue             *time.Time
	DateInterventionDebut  *time.Time
	DateInterventionFin    *time.Time
	CoutEstime             *float64
	CoutFinal              *float64
	MaterielRequis         []string
	MaterielUtilise        []string
	EnRetard               bool
	MotifRetard            *string
	DateReportee           *time.Time
	TravauxRealises        *string
	NotesInternes          []string
	Photos                 []string
	SignatureClientURL     *string
	SignatureTechnicienURL *string
	DateSignature          *time.Time
	FactureID              *string
	IsDemo                 bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Deletable reports whether the mission is still in a pre-work status; only
// such missions may be deleted by the owning company.
func (m *Mission) Deletable() bool {
	return m.Statut == MissionStatusEnAttente || m.Statut == MissionStatusPlanifiee
}

// SignaturesComplete reports whether both signature references are present.
func (m *Mission) SignaturesComplete() bool {
	return m.SignatureClientURL != nil && m.SignatureTechnicienURL != nil
}
