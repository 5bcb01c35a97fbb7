package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jtec/maintenance-service/internal/api/dto"
	"github.com/jtec/maintenance-service/internal/domain"
	"github.com/jtec/maintenance-service/internal/service"
)

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                    ticket.ID,
		Titre:                 ticket.Titre,
		Description:           ticket.Description,
		Categorie:             ticket.Categorie,
		Priorite:              ticket.Priorite,
		Statut:                ticket.Statut,
		DiffusionMode:         ticket.DiffusionMode,
		EntreprisesAutorisees: ticket.EntreprisesAutorisees,
		RegieID:               ticket.RegieID,
		LocataireID:           ticket.LocataireID,
		LogementID:            ticket.LogementID,
		DateAcceptation:       ticket.DateAcceptation,
		DateCloture:           ticket.DateCloture,
		IsDemo:                ticket.IsDemo,
		CreatedAt:             ticket.CreatedAt,
		UpdatedAt:             ticket.UpdatedAt,
	}
}

func missionResponse(mission *domain.Mission) dto.MissionResponse {
	return dto.MissionResponse{
		ID:                     mission.ID,
		TicketID:               mission.TicketID,
		EntrepriseID:           mission.EntrepriseID,
		TechnicienID:           mission.TechnicienID,
		Titre:                  mission.Titre,
		Description:            mission.Description,
		Statut:                 mission.Statut,
		DatePrevue:             mission.DatePrevue,
		DateInterventionDebut:  mission.DateInterventionDebut,
		DateInterventionFin:    mission.DateInterventionFin,
		CoutEstime:             mission.CoutEstime,
		CoutFinal:              mission.CoutFinal,
		MaterielRequis:         mission.MaterielRequis,
		MaterielUtilise:        mission.MaterielUtilise,
		EnRetard:               mission.EnRetard,
		MotifRetard:            mission.MotifRetard,
		DateReportee:           mission.DateReportee,
		TravauxRealises:        mission.TravauxRealises,
		NotesInternes:          mission.NotesInternes,
		Photos:                 mission.Photos,
		SignatureClientURL:     mission.SignatureClientURL,
		SignatureTechnicienURL: mission.SignatureTechnicienURL,
		DateSignature:          mission.DateSignature,
		FactureID:              mission.FactureID,
		IsDemo:                 mission.IsDemo,
		CreatedAt:              mission.CreatedAt,
		UpdatedAt:              mission.UpdatedAt,
	}
}

func profileResponse(profile *domain.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID:           profile.ID,
		Email:        profile.Email,
		Nom:          profile.Nom,
		Role:         profile.Role,
		RegieID:      profile.RegieID,
		EntrepriseID: profile.EntrepriseID,
	}
}

// missionEnvelope renders the success envelope for a mission-primary
// operation, attaching the warning when a secondary write failed.
func missionEnvelope(result *service.MissionResult, message string) fiber.Map {
	body := fiber.Map{
		"data":    missionResponse(result.Mission),
		"message": message,
	}
	if warning := result.Warning(); warning != "" {
		body["warning"] = warning
	}
	return body
}
