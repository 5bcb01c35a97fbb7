package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/jtec/maintenance-service/internal/domain"
	"github.com/jtec/maintenance-service/internal/events"
	"github.com/jtec/maintenance-service/internal/policy"
	"github.com/jtec/maintenance-service/internal/repository"
	apperrors "github.com/jtec/maintenance-service/pkg/util/errorutil"
)

// TicketService owns ticket creation and the diffusion step, and exposes
// role-scoped visibility over tickets.
type TicketService struct {
	tickets    repository.TicketRepository
	missions   repository.MissionRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles requirements for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MissionRepo repository.MissionRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		missions:   deps.MissionRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Titre       string
	Description string
	Categorie   domain.TicketCategorie
	Priorite    domain.TicketPriorite
	RegieID     string
	LogementID  *string
	IsDemo      bool
}

// TicketListFilter describes listing filters on top of the role scope.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Categories []domain.TicketCategorie
	Limit      int
	Offset     int
}

// CreateTicket creates a maintenance request. A tenant authors the ticket
// for its agency; an agency creates tickets it owns directly.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.ActorContext, input TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Titre) == "" || strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewValidationError("titre and description required", nil)
	}

	ticket := &domain.Ticket{
		Titre:         strings.TrimSpace(input.Titre),
		Description:   strings.TrimSpace(input.Description),
		Categorie:     input.Categorie,
		Priorite:      input.Priorite,
		Statut:        domain.TicketStatusNouveau,
		DiffusionMode: domain.DiffusionOuverte,
		LogementID:    input.LogementID,
		IsDemo:        input.IsDemo,
	}
	if ticket.Categorie == "" {
		ticket.Categorie = domain.CategorieAutre
	}
	if ticket.Priorite == "" {
		ticket.Priorite = domain.PrioriteNormale
	}

	switch actor.Role {
	case domain.RoleLocataire:
		locataireID := actor.ProfileID
		ticket.LocataireID = &locataireID
		if input.RegieID == "" {
			return nil, apperrors.NewValidationError("regie_id required", nil)
		}
		ticket.RegieID = input.RegieID
	case domain.RoleRegie:
		if actor.RegieID == nil {
			return nil, apperrors.NewForbidden("actor has no agency")
		}
		ticket.RegieID = *actor.RegieID
	case domain.RoleAdminJTEC:
		if input.RegieID == "" {
			return nil, apperrors.NewValidationError("regie_id required", nil)
		}
		ticket.RegieID = input.RegieID
	default:
		return nil, apperrors.NewForbidden("role cannot create tickets")
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketCreatedPayload{
			RegieID:   ticket.RegieID,
			Categorie: ticket.Categorie,
			Priorite:  ticket.Priorite,
			Titre:     ticket.Titre,
		},
	})
	return ticket, nil
}

// diffusableStatuses are the ticket states diffusion may run from;
// re-diffusing an already diffused ticket updates mode and allow-list.
var diffusableStatuses = map[domain.TicketStatus]struct{}{
	domain.TicketStatusNouveau:            {},
	domain.TicketStatusEnAttenteDiffusion: {},
	domain.TicketStatusDiffuse:            {},
}

// Diffuse makes a ticket visible to companies, either openly or restricted
// to an explicit allow-list.
func (s *TicketService) Diffuse(ctx context.Context, actor domain.ActorContext, ticketID string, mode domain.DiffusionMode, entrepriseIDs []string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageDiffusion(actor, ticket) {
		return nil, apperrors.NewForbidden("only the owning agency may diffuse a ticket")
	}
	if _, ok := diffusableStatuses[ticket.Statut]; !ok {
		return nil, apperrors.NewInvalidState(string(ticket.Statut), string(domain.TicketStatusDiffuse), "diffuser")
	}
	if mode != domain.DiffusionOuverte && mode != domain.DiffusionRestreint {
		return nil, apperrors.NewValidationError("diffusion_mode must be ouvert or restreint", nil)
	}
	if mode == domain.DiffusionRestreint && len(entrepriseIDs) == 0 {
		return nil, apperrors.NewValidationError("entreprises_autorisees required for restricted diffusion", nil)
	}

	ticket.DiffusionMode = mode
	if mode == domain.DiffusionRestreint {
		ticket.EntreprisesAutorisees = entrepriseIDs
	} else {
		ticket.EntreprisesAutorisees = nil
	}
	ticket.Statut = domain.TicketStatusDiffuse

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDiffused,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketDiffusedPayload{
			Mode:                  mode,
			EntreprisesAutorisees: ticket.EntreprisesAutorisees,
		},
	})
	return ticket, nil
}

// Cancel voids a ticket that has not been accepted into a mission.
func (s *TicketService) Cancel(ctx context.Context, actor domain.ActorContext, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageDiffusion(actor, ticket) {
		return nil, apperrors.NewForbidden("only the owning agency may cancel a ticket")
	}
	if ticket.Statut == domain.TicketStatusTermine || ticket.Statut == domain.TicketStatusAnnule {
		return nil, apperrors.NewInvalidState(string(ticket.Statut), string(domain.TicketStatusAnnule), "annuler")
	}
	if _, err := s.missions.GetByTicketID(ctx, ticketID); err == nil {
		return nil, apperrors.NewConflict("ticket has an active mission", map[string]any{"ticket_id": ticketID})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	ticket.Statut = domain.TicketStatusAnnule
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTickets returns the tickets visible to the actor.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.ActorContext, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Categories: filter.Categories,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}

	switch actor.Role {
	case domain.RoleAdminJTEC:
		// unrestricted
	case domain.RoleRegie:
		if actor.RegieID == nil {
			return []domain.Ticket{}, nil
		}
		repoFilter.RegieID = actor.RegieID
	case domain.RoleLocataire:
		locataireID := actor.ProfileID
		repoFilter.LocataireID = &locataireID
	case domain.RoleEntreprise, domain.RoleTechnicien:
		if actor.EntrepriseID == nil {
			return []domain.Ticket{}, nil
		}
		repoFilter.VisibleToEntreprise = actor.EntrepriseID
	default:
		return nil, apperrors.NewForbidden("role cannot list tickets")
	}

	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// GetTicket fetches a ticket under the actor's visibility. A company that
// accepted the ticket keeps seeing it through its mission even after the
// diffusion window closed.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.ActorContext, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if policy.CanViewTicket(actor, ticket) {
		return ticket, nil
	}
	if (actor.Role == domain.RoleEntreprise || actor.Role == domain.RoleTechnicien) && actor.EntrepriseID != nil {
		mission, err := s.missions.GetByTicketID(ctx, ticketID)
		if err == nil && actor.OwnsEntreprise(mission.EntrepriseID) {
			return ticket, nil
		}
	}
	return nil, apperrors.NewForbidden("ticket not visible to actor")
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func eventActor(actor domain.ActorContext) events.Actor {
	return events.Actor{
		ProfileID: actor.ProfileID,
		Role:      actor.Role,
	}
}
