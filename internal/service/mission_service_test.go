package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jtec/maintenance-service/internal/domain"
	apperrors "github.com/jtec/maintenance-service/pkg/util/errorutil"
)

type missionFixture struct {
	service  *MissionService
	tickets  *fakeTicketRepo
	missions *fakeMissionRepo
	profiles *fakeProfileRepo
}

func newMissionFixture() *missionFixture {
	tickets := newFakeTicketRepo()
	missions := newFakeMissionRepo()
	profiles := newFakeProfileRepo()
	return &missionFixture{
		service: NewMissionService(MissionDependencies{
			MissionRepo: missions,
			TicketRepo:  tickets,
			ProfileRepo: profiles,
			Logger:      zap.NewNop(),
		}),
		tickets:  tickets,
		missions: missions,
		profiles: profiles,
	}
}

func (f *missionFixture) seedTicket(statut domain.TicketStatus, mode domain.DiffusionMode, allowed []string) *domain.Ticket {
	ticket := &domain.Ticket{
		ID:                    "ticket-1",
		Titre:                 "fuite d'eau",
		Description:           "fuite sous l'évier de la cuisine",
		RegieID:               "regie-1",
		Statut:                statut,
		DiffusionMode:         mode,
		EntreprisesAutorisees: allowed,
	}
	f.tickets.put(ticket)
	return ticket
}

func entrepriseActor(id string) domain.ActorContext {
	return domain.ActorContext{ProfileID: "profile-" + id, Role: domain.RoleEntreprise, EntrepriseID: &id}
}

func TestAcceptTicketCreatesMission(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusDiffuse, domain.DiffusionOuverte, nil)

	result, err := f.service.AcceptTicket(context.Background(), entrepriseActor("e1"), "ticket-1", AcceptTicketInput{})
	require.NoError(t, err)

	assert.Equal(t, domain.MissionStatusEnAttente, result.Mission.Statut)
	assert.Equal(t, "e1", result.Mission.EntrepriseID)
	assert.Equal(t, "fuite d'eau", result.Mission.Titre, "mission title defaults to the ticket's")
	assert.Empty(t, result.Warning())

	stored, err := f.tickets.GetByID(context.Background(), "ticket-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAccepte, stored.Statut)
	assert.NotNil(t, stored.DateAcceptation)
}

func TestAcceptTicketWithDatePrevueIsPlanifiee(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusDiffuse, domain.DiffusionOuverte, nil)
	prevue := time.Now().Add(48 * time.Hour)

	result, err := f.service.AcceptTicket(context.Background(), entrepriseActor("e1"), "ticket-1", AcceptTicketInput{DatePrevue: &prevue})
	require.NoError(t, err)
	assert.Equal(t, domain.MissionStatusPlanifiee, result.Mission.Statut)
}

func TestAcceptTicketRestrictedDiffusion(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusDiffuse, domain.DiffusionRestreint, []string{"e2"})

	_, err := f.service.AcceptTicket(context.Background(), entrepriseActor("e1"), "ticket-1", AcceptTicketInput{})
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)

	result, err := f.service.AcceptTicket(context.Background(), entrepriseActor("e2"), "ticket-1", AcceptTicketInput{})
	require.NoError(t, err)
	assert.Equal(t, "e2", result.Mission.EntrepriseID)
}

func TestAcceptTicketAlreadyAcceptedConflict(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusDiffuse, domain.DiffusionOuverte, nil)

	first, err := f.service.AcceptTicket(context.Background(), entrepriseActor("e1"), "ticket-1", AcceptTicketInput{})
	require.NoError(t, err)

	// the mirrored ticket status alone must not gate the second attempt,
	// the existing mission does
	ticket, _ := f.tickets.GetByID(context.Background(), "ticket-1")
	ticket.Statut = domain.TicketStatusDiffuse
	f.tickets.put(ticket)

	_, err = f.service.AcceptTicket(context.Background(), entrepriseActor("e2"), "ticket-1", AcceptTicketInput{})
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
	assert.Equal(t, first.Mission.ID, domainErr.Details["mission_id"])
}

func TestAcceptTicketInsertRaceLoserGetsConflict(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusDiffuse, domain.DiffusionOuverte, nil)

	first, err := f.service.AcceptTicket(context.Background(), entrepriseActor("e1"), "ticket-1", AcceptTicketInput{})
	require.NoError(t, err)

	// stage the loser of a concurrent acceptance: its pre-insert lookup
	// ran before the winning row landed, so only the unique constraint
	// catches the duplicate and the follow-up lookup names the winner
	ticket, _ := f.tickets.GetByID(context.Background(), "ticket-1")
	ticket.Statut = domain.TicketStatusDiffuse
	f.tickets.put(ticket)
	f.missions.ticketLookupMisses = 1

	_, err = f.service.AcceptTicket(context.Background(), entrepriseActor("e2"), "ticket-1", AcceptTicketInput{})
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
	assert.Equal(t, first.Mission.ID, domainErr.Details["mission_id"])
	assert.Len(t, f.missions.missions, 1, "the race leaves exactly one mission")
}

func TestAcceptTicketFromTerminalStatusRejected(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusAnnule, domain.DiffusionOuverte, nil)

	_, err := f.service.AcceptTicket(context.Background(), entrepriseActor("e1"), "ticket-1", AcceptTicketInput{})
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
}

func TestAcceptTicketSyncFailureKeepsMission(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusDiffuse, domain.DiffusionOuverte, nil)
	f.tickets.updateErr = errors.New("connection reset")

	result, err := f.service.AcceptTicket(context.Background(), entrepriseActor("e1"), "ticket-1", AcceptTicketInput{})
	require.NoError(t, err, "mission creation succeeded, ticket sync must not fail the call")
	assert.Contains(t, result.Warning(), "ticket_accept_sync")

	_, err = f.missions.GetByTicketID(context.Background(), "ticket-1")
	assert.NoError(t, err)
	stored, _ := f.tickets.GetByID(context.Background(), "ticket-1")
	assert.Equal(t, domain.TicketStatusDiffuse, stored.Statut, "failed sync leaves the ticket untouched")
}

func TestAcceptTicketAdminNeedsEntreprise(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusDiffuse, domain.DiffusionOuverte, nil)
	admin := domain.ActorContext{ProfileID: "adm", Role: domain.RoleAdminJTEC}

	_, err := f.service.AcceptTicket(context.Background(), admin, "ticket-1", AcceptTicketInput{})
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)

	result, err := f.service.AcceptTicket(context.Background(), admin, "ticket-1", AcceptTicketInput{EntrepriseID: "e3"})
	require.NoError(t, err)
	assert.Equal(t, "e3", result.Mission.EntrepriseID)
}

func seedMission(f *missionFixture, statut domain.MissionStatus) *domain.Mission {
	mission := &domain.Mission{
		ID:           "mission-9",
		TicketID:     "ticket-1",
		EntrepriseID: "e1",
		Titre:        "fuite d'eau",
		Statut:       statut,
	}
	f.missions.put(mission)
	return mission
}

func TestAssignTechnicienCrossCompanyForbidden(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusAccepte, domain.DiffusionOuverte, nil)
	seedMission(f, domain.MissionStatusEnAttente)
	f.profiles.Create(context.Background(), &domain.Profile{
		ID: "tech-1", Role: domain.RoleTechnicien, EntrepriseID: strPtr("e2"),
	})

	_, err := f.service.AssignTechnicien(context.Background(), entrepriseActor("e1"), "mission-9", "tech-1", nil)
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestAssignTechnicienAdvancesToPlanifiee(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusAccepte, domain.DiffusionOuverte, nil)
	seedMission(f, domain.MissionStatusEnAttente)
	f.profiles.Create(context.Background(), &domain.Profile{
		ID: "tech-1", Role: domain.RoleTechnicien, EntrepriseID: strPtr("e1"),
	})
	prevue := time.Now().Add(24 * time.Hour)

	mission, err := f.service.AssignTechnicien(context.Background(), entrepriseActor("e1"), "mission-9", "tech-1", &prevue)
	require.NoError(t, err)
	assert.Equal(t, domain.MissionStatusPlanifiee, mission.Statut)
	require.NotNil(t, mission.TechnicienID)
	assert.Equal(t, "tech-1", *mission.TechnicienID)
}

func TestAssignTechnicienRejectsNonTechnicianProfile(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusAccepte, domain.DiffusionOuverte, nil)
	seedMission(f, domain.MissionStatusEnAttente)
	f.profiles.Create(context.Background(), &domain.Profile{
		ID: "boss-1", Role: domain.RoleEntreprise, EntrepriseID: strPtr("e1"),
	})

	_, err := f.service.AssignTechnicien(context.Background(), entrepriseActor("e1"), "mission-9", "boss-1", nil)
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestUpdateMissionMaskDropsForbiddenFields(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusAccepte, domain.DiffusionOuverte, nil)
	seedMission(f, domain.MissionStatusPlanifiee)
	tech := domain.ActorContext{ProfileID: "tech-1", Role: domain.RoleTechnicien, EntrepriseID: strPtr("e1")}

	result, err := f.service.UpdateMission(context.Background(), tech, "mission-9", map[string]any{
		"statut":        "en_route",
		"entreprise_id": "e2",
		"titre":         "hijack",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MissionStatusEnRoute, result.Mission.Statut)
	assert.Equal(t, "e1", result.Mission.EntrepriseID, "masked field must not be applied")
	assert.Equal(t, "fuite d'eau", result.Mission.Titre)
}

func TestUpdateMissionEntrepriseSwapKeepsTechnicianConsistent(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusAccepte, domain.DiffusionOuverte, nil)
	mission := seedMission(f, domain.MissionStatusPlanifiee)
	mission.TechnicienID = strPtr("tech-1")
	f.missions.put(mission)
	f.profiles.Create(context.Background(), &domain.Profile{
		ID: "tech-1", Role: domain.RoleTechnicien, EntrepriseID: strPtr("e1"),
	})
	admin := domain.ActorContext{ProfileID: "adm", Role: domain.RoleAdminJTEC}

	// re-homing the mission alone would strand tech-1 in company e1
	_, err := f.service.UpdateMission(context.Background(), admin, "mission-9", map[string]any{
		"entreprise_id": "e2",
	})
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)

	stored, _ := f.missions.GetByID(context.Background(), "mission-9")
	assert.Equal(t, "e1", stored.EntrepriseID, "rejected re-home leaves the mission unchanged")
	require.NotNil(t, stored.TechnicienID)
	assert.Equal(t, "tech-1", *stored.TechnicienID)

	// re-homing together with a technician of the new company is fine
	f.profiles.Create(context.Background(), &domain.Profile{
		ID: "tech-2", Role: domain.RoleTechnicien, EntrepriseID: strPtr("e2"),
	})
	result, err := f.service.UpdateMission(context.Background(), admin, "mission-9", map[string]any{
		"entreprise_id": "e2",
		"technicien_id": "tech-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "e2", result.Mission.EntrepriseID)
	require.NotNil(t, result.Mission.TechnicienID)
	assert.Equal(t, "tech-2", *result.Mission.TechnicienID)
}

func TestUpdateMissionEntrepriseSwapWithClearedTechnician(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusAccepte, domain.DiffusionOuverte, nil)
	mission := seedMission(f, domain.MissionStatusPlanifiee)
	mission.TechnicienID = strPtr("tech-1")
	f.missions.put(mission)
	admin := domain.ActorContext{ProfileID: "adm", Role: domain.RoleAdminJTEC}

	result, err := f.service.UpdateMission(context.Background(), admin, "mission-9", map[string]any{
		"entreprise_id": "e2",
		"technicien_id": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "e2", result.Mission.EntrepriseID)
	assert.Nil(t, result.Mission.TechnicienID)
}

func TestUpdateMissionEmptyWritableSet(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusAccepte, domain.DiffusionOuverte, nil)
	seedMission(f, domain.MissionStatusPlanifiee)
	tech := domain.ActorContext{ProfileID: "tech-1", Role: domain.RoleTechnicien, EntrepriseID: strPtr("e1")}

	_, err := f.service.UpdateMission(context.Background(), tech, "mission-9", map[string]any{
		"entreprise_id": "e2",
		"cout_final":    120.0,
	})
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "NO_FIELDS_TO_UPDATE", domainErr.Code)
}

func TestUpdateMissionInvalidTransition(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusTermine, domain.DiffusionOuverte, nil)
	seedMission(f, domain.MissionStatusTerminee)

	_, err := f.service.UpdateMission(context.Background(), entrepriseActor("e1"), "mission-9", map[string]any{
		"statut": "en_cours",
	})
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "INVALID_TRANSITION", domainErr.Code)

	stored, _ := f.missions.GetByID(context.Background(), "mission-9")
	assert.Equal(t, domain.MissionStatusTerminee, stored.Statut)
}

func TestUpdateMissionToTermineeClosesTicket(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusEnCours, domain.DiffusionOuverte, nil)
	seedMission(f, domain.MissionStatusEnCours)

	result, err := f.service.UpdateMission(context.Background(), entrepriseActor("e1"), "mission-9", map[string]any{
		"statut": "terminée",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MissionStatusTerminee, result.Mission.Statut)
	assert.NotNil(t, result.Mission.DateInterventionFin)
	assert.Empty(t, result.Warning())

	ticket, _ := f.tickets.GetByID(context.Background(), "ticket-1")
	assert.Equal(t, domain.TicketStatusTermine, ticket.Statut)
	assert.NotNil(t, ticket.DateCloture)
}

func TestUpdateMissionOtherCompanyForbidden(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusAccepte, domain.DiffusionOuverte, nil)
	seedMission(f, domain.MissionStatusPlanifiee)

	_, err := f.service.UpdateMission(context.Background(), entrepriseActor("e2"), "mission-9", map[string]any{
		"titre": "autre",
	})
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestDeleteMissionInProgressRejected(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusEnCours, domain.DiffusionOuverte, nil)
	seedMission(f, domain.MissionStatusEnCours)

	_, err := f.service.DeleteMission(context.Background(), entrepriseActor("e1"), "mission-9")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)

	_, err = f.missions.GetByID(context.Background(), "mission-9")
	assert.NoError(t, err, "rejected delete leaves the mission in place")
	ticket, _ := f.tickets.GetByID(context.Background(), "ticket-1")
	assert.Equal(t, domain.TicketStatusEnCours, ticket.Statut)
}

func TestDeleteMissionReleasesTicket(t *testing.T) {
	f := newMissionFixture()
	ticket := f.seedTicket(domain.TicketStatusAccepte, domain.DiffusionOuverte, nil)
	now := time.Now()
	ticket.DateAcceptation = &now
	f.tickets.put(ticket)
	seedMission(f, domain.MissionStatusEnAttente)

	result, err := f.service.DeleteMission(context.Background(), entrepriseActor("e1"), "mission-9")
	require.NoError(t, err)
	assert.Empty(t, result.Warning())

	_, err = f.missions.GetByID(context.Background(), "mission-9")
	assert.Error(t, err)
	released, _ := f.tickets.GetByID(context.Background(), "ticket-1")
	assert.Equal(t, domain.TicketStatusDiffuse, released.Statut)
	assert.Nil(t, released.DateAcceptation)
}

func TestDeleteMissionAdminBypassesStatusGate(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusEnCours, domain.DiffusionOuverte, nil)
	seedMission(f, domain.MissionStatusEnCours)
	admin := domain.ActorContext{ProfileID: "adm", Role: domain.RoleAdminJTEC}

	_, err := f.service.DeleteMission(context.Background(), admin, "mission-9")
	require.NoError(t, err)
}

func TestListMissionsScopesByRole(t *testing.T) {
	f := newMissionFixture()

	missions, err := f.service.ListMissions(context.Background(), entrepriseActor("e1"), MissionListFilter{})
	require.NoError(t, err)
	assert.Empty(t, missions)
	require.NotNil(t, f.missions.lastFilter.EntrepriseID)
	assert.Equal(t, "e1", *f.missions.lastFilter.EntrepriseID)
}

func TestListMissionsRegieWithoutTicketsIsEmpty(t *testing.T) {
	f := newMissionFixture()
	regie := domain.ActorContext{ProfileID: "p1", Role: domain.RoleRegie, RegieID: strPtr("regie-1")}
	f.tickets.listResult = nil

	missions, err := f.service.ListMissions(context.Background(), regie, MissionListFilter{})
	require.NoError(t, err)
	assert.Empty(t, missions)
}

func TestGetMissionTicketLookupFailurePropagates(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusAccepte, domain.DiffusionOuverte, nil)
	seedMission(f, domain.MissionStatusPlanifiee)
	f.tickets.getErr = errors.New("connection refused")

	regie := domain.ActorContext{ProfileID: "p1", Role: domain.RoleRegie, RegieID: strPtr("regie-1")}
	_, err := f.service.GetMission(context.Background(), regie, "mission-9")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "INTERNAL_ERROR", domainErr.Code, "a store failure must not read as a denial")
}

func TestGetMissionVisibility(t *testing.T) {
	f := newMissionFixture()
	f.seedTicket(domain.TicketStatusAccepte, domain.DiffusionOuverte, nil)
	seedMission(f, domain.MissionStatusPlanifiee)

	regie := domain.ActorContext{ProfileID: "p1", Role: domain.RoleRegie, RegieID: strPtr("regie-1")}
	_, err := f.service.GetMission(context.Background(), regie, "mission-9")
	assert.NoError(t, err, "the agency sees the mission through its ticket")

	otherRegie := domain.ActorContext{ProfileID: "p2", Role: domain.RoleRegie, RegieID: strPtr("regie-2")}
	_, err = f.service.GetMission(context.Background(), otherRegie, "mission-9")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}
