package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jtec/maintenance-service/internal/domain"
	apperrors "github.com/jtec/maintenance-service/pkg/util/errorutil"
)

type ticketFixture struct {
	service  *TicketService
	tickets  *fakeTicketRepo
	missions *fakeMissionRepo
}

func newTicketFixture() *ticketFixture {
	tickets := newFakeTicketRepo()
	missions := newFakeMissionRepo()
	return &ticketFixture{
		service: NewTicketService(TicketDependencies{
			TicketRepo:  tickets,
			MissionRepo: missions,
			Logger:      zap.NewNop(),
		}),
		tickets:  tickets,
		missions: missions,
	}
}

func regieActor(regieID string) domain.ActorContext {
	return domain.ActorContext{ProfileID: "profile-" + regieID, Role: domain.RoleRegie, RegieID: &regieID}
}

func TestCreateTicketDefaults(t *testing.T) {
	f := newTicketFixture()

	ticket, err := f.service.CreateTicket(context.Background(), regieActor("regie-1"), TicketCreateInput{
		Titre:       "  volet roulant bloqué ",
		Description: "le volet du salon ne descend plus",
	})
	require.NoError(t, err)
	assert.Equal(t, "volet roulant bloqué", ticket.Titre)
	assert.Equal(t, domain.TicketStatusNouveau, ticket.Statut)
	assert.Equal(t, domain.CategorieAutre, ticket.Categorie)
	assert.Equal(t, domain.PrioriteNormale, ticket.Priorite)
	assert.Equal(t, domain.DiffusionOuverte, ticket.DiffusionMode)
	assert.Equal(t, "regie-1", ticket.RegieID)
}

func TestCreateTicketLocataireRequiresRegie(t *testing.T) {
	f := newTicketFixture()
	locataire := domain.ActorContext{ProfileID: "loc-1", Role: domain.RoleLocataire}

	_, err := f.service.CreateTicket(context.Background(), locataire, TicketCreateInput{
		Titre:       "fuite",
		Description: "fuite dans la salle de bain",
	})
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)

	ticket, err := f.service.CreateTicket(context.Background(), locataire, TicketCreateInput{
		Titre:       "fuite",
		Description: "fuite dans la salle de bain",
		RegieID:     "regie-1",
	})
	require.NoError(t, err)
	require.NotNil(t, ticket.LocataireID)
	assert.Equal(t, "loc-1", *ticket.LocataireID)
}

func TestCreateTicketEntrepriseForbidden(t *testing.T) {
	f := newTicketFixture()
	actor := domain.ActorContext{ProfileID: "p1", Role: domain.RoleEntreprise, EntrepriseID: strPtr("e1")}

	_, err := f.service.CreateTicket(context.Background(), actor, TicketCreateInput{
		Titre: "x", Description: "y",
	})
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func seedOwnedTicket(f *ticketFixture, statut domain.TicketStatus) *domain.Ticket {
	ticket := &domain.Ticket{
		ID:            "ticket-1",
		Titre:         "porte d'entrée",
		Description:   "serrure grippée",
		RegieID:       "regie-1",
		Statut:        statut,
		DiffusionMode: domain.DiffusionOuverte,
	}
	f.tickets.put(ticket)
	return ticket
}

func TestDiffuseRestrictedRequiresAllowList(t *testing.T) {
	f := newTicketFixture()
	seedOwnedTicket(f, domain.TicketStatusNouveau)

	_, err := f.service.Diffuse(context.Background(), regieActor("regie-1"), "ticket-1", domain.DiffusionRestreint, nil)
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestDiffuseRestrictedSetsAllowList(t *testing.T) {
	f := newTicketFixture()
	seedOwnedTicket(f, domain.TicketStatusNouveau)

	ticket, err := f.service.Diffuse(context.Background(), regieActor("regie-1"), "ticket-1",
		domain.DiffusionRestreint, []string{"e1", "e2"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusDiffuse, ticket.Statut)
	assert.Equal(t, domain.DiffusionRestreint, ticket.DiffusionMode)
	assert.Equal(t, []string{"e1", "e2"}, ticket.EntreprisesAutorisees)
}

func TestRediffuseOpenClearsAllowList(t *testing.T) {
	f := newTicketFixture()
	ticket := seedOwnedTicket(f, domain.TicketStatusDiffuse)
	ticket.DiffusionMode = domain.DiffusionRestreint
	ticket.EntreprisesAutorisees = []string{"e1"}
	f.tickets.put(ticket)

	updated, err := f.service.Diffuse(context.Background(), regieActor("regie-1"), "ticket-1", domain.DiffusionOuverte, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DiffusionOuverte, updated.DiffusionMode)
	assert.Nil(t, updated.EntreprisesAutorisees)
}

func TestDiffuseByOtherAgencyForbidden(t *testing.T) {
	f := newTicketFixture()
	seedOwnedTicket(f, domain.TicketStatusNouveau)

	_, err := f.service.Diffuse(context.Background(), regieActor("regie-2"), "ticket-1", domain.DiffusionOuverte, nil)
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestDiffuseAcceptedTicketRejected(t *testing.T) {
	f := newTicketFixture()
	seedOwnedTicket(f, domain.TicketStatusAccepte)

	_, err := f.service.Diffuse(context.Background(), regieActor("regie-1"), "ticket-1", domain.DiffusionOuverte, nil)
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
}

func TestCancelTicketWithMissionConflict(t *testing.T) {
	f := newTicketFixture()
	seedOwnedTicket(f, domain.TicketStatusAccepte)
	f.missions.put(&domain.Mission{ID: "mission-1", TicketID: "ticket-1", EntrepriseID: "e1", Statut: domain.MissionStatusEnAttente})

	_, err := f.service.Cancel(context.Background(), regieActor("regie-1"), "ticket-1")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)

	ticket, _ := f.tickets.GetByID(context.Background(), "ticket-1")
	assert.Equal(t, domain.TicketStatusAccepte, ticket.Statut)
}

func TestCancelTerminalTicketRejected(t *testing.T) {
	f := newTicketFixture()
	seedOwnedTicket(f, domain.TicketStatusTermine)

	_, err := f.service.Cancel(context.Background(), regieActor("regie-1"), "ticket-1")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
}

func TestCancelTicket(t *testing.T) {
	f := newTicketFixture()
	seedOwnedTicket(f, domain.TicketStatusDiffuse)

	ticket, err := f.service.Cancel(context.Background(), regieActor("regie-1"), "ticket-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAnnule, ticket.Statut)
}

func TestListTicketsEntrepriseScope(t *testing.T) {
	f := newTicketFixture()
	actor := domain.ActorContext{ProfileID: "p1", Role: domain.RoleEntreprise, EntrepriseID: strPtr("e1")}

	tickets, err := f.service.ListTickets(context.Background(), actor, TicketListFilter{})
	require.NoError(t, err)
	assert.Empty(t, tickets)
	require.NotNil(t, f.tickets.lastFilter.VisibleToEntreprise)
	assert.Equal(t, "e1", *f.tickets.lastFilter.VisibleToEntreprise)
}

func TestGetTicketNotFound(t *testing.T) {
	f := newTicketFixture()

	_, err := f.service.GetTicket(context.Background(), regieActor("regie-1"), "missing")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestGetTicketCompanyKeepsVisibilityThroughMission(t *testing.T) {
	f := newTicketFixture()
	seedOwnedTicket(f, domain.TicketStatusAccepte)
	f.missions.put(&domain.Mission{ID: "mission-1", TicketID: "ticket-1", EntrepriseID: "e1", Statut: domain.MissionStatusEnCours})

	owner := domain.ActorContext{ProfileID: "p1", Role: domain.RoleEntreprise, EntrepriseID: strPtr("e1")}
	_, err := f.service.GetTicket(context.Background(), owner, "ticket-1")
	assert.NoError(t, err, "the accepting company keeps seeing the ticket through its mission")

	other := domain.ActorContext{ProfileID: "p2", Role: domain.RoleEntreprise, EntrepriseID: strPtr("e2")}
	_, err = f.service.GetTicket(context.Background(), other, "ticket-1")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}
