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

// MissionService owns the mission state machine: acceptance of a ticket
// into a mission, technician assignment, role-masked partial updates and
// deletion. Ticket status mirroring is performed as named side effects with
// independent outcomes.
type MissionService struct {
	missions   repository.MissionRepository
	tickets    repository.TicketRepository
	profiles   repository.ProfileRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// MissionDependencies bundles requirements for the mission service.
type MissionDependencies struct {
	MissionRepo repository.MissionRepository
	TicketRepo  repository.TicketRepository
	ProfileRepo repository.ProfileRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewMissionService constructs the service.
func NewMissionService(deps MissionDependencies) *MissionService {
	return &MissionService{
		missions:   deps.MissionRepo,
		tickets:    deps.TicketRepo,
		profiles:   deps.ProfileRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// AcceptTicketInput carries scheduling fields supplied at acceptance time.
type AcceptTicketInput struct {
	// EntrepriseID is only honored for an administrator accepting on a
	// company's behalf; a company actor always accepts for itself.
	EntrepriseID   string
	Titre          string
	Description    string
	DatePrevue     *time.Time
	CoutEstime     *float64
	MaterielRequis []string
}

// MissionListFilter describes listing filters on top of the role scope.
type MissionListFilter struct {
	Statuses []domain.MissionStatus
	Limit    int
	Offset   int
}

// AcceptTicket turns a diffused ticket into the single mission allowed for
// it. Mission creation and the ticket status update are two separate
// writes; a failed ticket update downgrades to a warning on the otherwise
// successful result.
func (s *MissionService) AcceptTicket(ctx context.Context, actor domain.ActorContext, ticketID string, input AcceptTicketInput) (*MissionResult, error) {
	entrepriseID, err := s.acceptingEntreprise(actor, input)
	if err != nil {
		return nil, err
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.Statut.Acceptable() {
		return nil, apperrors.NewInvalidState(string(ticket.Statut), string(domain.TicketStatusAccepte), "accepter")
	}
	if !ticket.VisibleToEntreprise(entrepriseID) && !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("ticket not diffused to this company")
	}

	// Idempotent detection first; the unique constraint covers the race.
	if existing, err := s.missions.GetByTicketID(ctx, ticketID); err == nil {
		return nil, apperrors.NewConflict("mission already exists for ticket",
			map[string]any{"mission_id": existing.ID, "ticket_id": ticketID})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	mission := &domain.Mission{
		TicketID:       ticket.ID,
		EntrepriseID:   entrepriseID,
		Titre:          strings.TrimSpace(input.Titre),
		Description:    strings.TrimSpace(input.Description),
		Statut:         domain.MissionStatusEnAttente,
		DatePrevue:     input.DatePrevue,
		CoutEstime:     input.CoutEstime,
		MaterielRequis: input.MaterielRequis,
		IsDemo:         ticket.IsDemo,
	}
	if mission.Titre == "" {
		mission.Titre = ticket.Titre
	}
	if mission.Description == "" {
		mission.Description = ticket.Description
	}
	if input.DatePrevue != nil {
		mission.Statut = domain.MissionStatusPlanifiee
	}

	if err := s.missions.Create(ctx, mission); err != nil {
		if errors.Is(err, repository.ErrDuplicateTicket) {
			details := map[string]any{"ticket_id": ticketID}
			if existing, lookupErr := s.missions.GetByTicketID(ctx, ticketID); lookupErr == nil {
				details["mission_id"] = existing.ID
			}
			return nil, apperrors.NewConflict("mission already exists for ticket", details)
		}
		return nil, apperrors.MapError(err)
	}

	result := &MissionResult{Mission: mission}
	result.SideEffects = append(result.SideEffects,
		s.syncTicket(ctx, actor, "ticket_accept_sync", mission, ticket, func(t *domain.Ticket) {
			now := time.Now()
			t.Statut = domain.TicketStatusAccepte
			t.DateAcceptation = &now
		}))

	s.publishEvent(ctx, events.Event{
		Type:      events.EventMissionCreated,
		TicketID:  ticket.ID,
		MissionID: mission.ID,
		Actor:     eventActor(actor),
		Payload: events.MissionCreatedPayload{
			EntrepriseID: mission.EntrepriseID,
			Statut:       mission.Statut,
		},
	})
	return result, nil
}

// AssignTechnicien sets the technician on a mission after verifying that
// the technician belongs to the mission's company. Supplying a scheduled
// date on an en_attente mission advances it to planifiée.
func (s *MissionService) AssignTechnicien(ctx context.Context, actor domain.ActorContext, missionID, technicienID string, datePrevue *time.Time) (*domain.Mission, error) {
	if technicienID == "" {
		return nil, apperrors.NewValidationError("technicien_id required", nil)
	}

	mission, err := s.loadMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMissionOwnership(actor, mission); err != nil {
		return nil, err
	}
	if err := s.verifyTechnicien(ctx, technicienID, mission.EntrepriseID); err != nil {
		return nil, err
	}

	mission.TechnicienID = &technicienID
	if datePrevue != nil {
		mission.DatePrevue = datePrevue
		if mission.Statut == domain.MissionStatusEnAttente {
			mission.Statut = domain.MissionStatusPlanifiee
		}
	}

	if err := s.missions.Update(ctx, mission); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventMissionAssigned,
		TicketID:  mission.TicketID,
		MissionID: mission.ID,
		Actor:     eventActor(actor),
		Payload:   events.MissionAssignedPayload{TechnicienID: technicienID},
	})
	return mission, nil
}

// UpdateMission applies a role-masked partial update. Fields outside the
// actor's write mask are dropped silently; an empty remaining set is an
// error. Status changes go through the transition table, and a transition
// into terminée closes the originating ticket as a side effect.
func (s *MissionService) UpdateMission(ctx context.Context, actor domain.ActorContext, missionID string, fields map[string]any) (*MissionResult, error) {
	mission, err := s.loadMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMissionWriteAccess(actor, mission); err != nil {
		return nil, err
	}

	writable := policy.FilterMissionFields(actor.Role, fields)
	if len(writable) == 0 {
		return nil, apperrors.NewNoFieldsToUpdate(string(actor.Role))
	}

	oldStatus := mission.Statut
	newStatus := oldStatus
	if raw, ok := writable["statut"]; ok {
		str, ok := raw.(string)
		if !ok {
			return nil, apperrors.NewValidationError("statut must be a string", nil)
		}
		candidate := domain.MissionStatus(str)
		if !domain.ValidMissionStatus(candidate) {
			return nil, apperrors.NewValidationError("unknown statut value", map[string]any{"statut": str})
		}
		if !domain.CanTransition(oldStatus, candidate) {
			return nil, apperrors.NewInvalidTransition(string(oldStatus), string(candidate))
		}
		newStatus = candidate
	}

	if raw, ok := writable["technicien_id"]; ok && raw != nil {
		technicienID, ok := raw.(string)
		if !ok {
			return nil, apperrors.NewValidationError("technicien_id must be a string", nil)
		}
		targetEntreprise := mission.EntrepriseID
		if rawEnt, ok := writable["entreprise_id"]; ok {
			if entrepriseID, ok := rawEnt.(string); ok {
				targetEntreprise = entrepriseID
			}
		}
		if err := s.verifyTechnicien(ctx, technicienID, targetEntreprise); err != nil {
			return nil, err
		}
	}

	// Re-homing the mission alone must not leave the assigned technician
	// pointing at a company they do not belong to.
	if rawEnt, ok := writable["entreprise_id"]; ok {
		if entrepriseID, ok := rawEnt.(string); ok && entrepriseID != mission.EntrepriseID {
			if _, reassigning := writable["technicien_id"]; !reassigning && mission.TechnicienID != nil {
				if err := s.verifyTechnicien(ctx, *mission.TechnicienID, entrepriseID); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := applyMissionFields(mission, writable); err != nil {
		return nil, err
	}
	mission.Statut = newStatus

	result := &MissionResult{Mission: mission}
	closesTicket := newStatus == domain.MissionStatusTerminee && oldStatus != domain.MissionStatusTerminee
	if closesTicket && mission.DateInterventionFin == nil {
		now := time.Now()
		mission.DateInterventionFin = &now
	}

	if err := s.missions.Update(ctx, mission); err != nil {
		return nil, apperrors.MapError(err)
	}

	if closesTicket {
		result.SideEffects = append(result.SideEffects, s.closeTicketFor(ctx, actor, mission))
	}

	if newStatus != oldStatus {
		s.publishEvent(ctx, events.Event{
			Type:      events.EventMissionStatusChanged,
			TicketID:  mission.TicketID,
			MissionID: mission.ID,
			Actor:     eventActor(actor),
			Payload: events.MissionStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: newStatus,
			},
		})
	}
	return result, nil
}

// DeleteMission removes a pre-work mission and reverts its ticket to
// diffusé, making it eligible for re-acceptance by another company.
func (s *MissionService) DeleteMission(ctx context.Context, actor domain.ActorContext, missionID string) (*MissionResult, error) {
	mission, err := s.loadMission(ctx, missionID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case domain.RoleAdminJTEC:
		// may delete in any status
	case domain.RoleEntreprise:
		if !actor.OwnsEntreprise(mission.EntrepriseID) {
			return nil, apperrors.NewForbidden("mission owned by another company")
		}
		if !mission.Deletable() {
			return nil, apperrors.NewInvalidState(string(mission.Statut), "", "supprimer")
		}
	default:
		return nil, apperrors.NewForbidden("role cannot delete missions")
	}

	if err := s.missions.Delete(ctx, missionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("mission", map[string]any{"mission_id": missionID})
		}
		return nil, apperrors.MapError(err)
	}

	result := &MissionResult{Mission: mission}
	ticket, err := s.loadTicket(ctx, mission.TicketID)
	if err != nil {
		result.SideEffects = append(result.SideEffects, SideEffect{Name: "ticket_release_sync", Err: err})
		s.reportSyncFailure(ctx, actor, "ticket_release_sync", mission, err)
	} else {
		result.SideEffects = append(result.SideEffects,
			s.syncTicket(ctx, actor, "ticket_release_sync", mission, ticket, func(t *domain.Ticket) {
				t.Statut = domain.TicketStatusDiffuse
				t.DateAcceptation = nil
			}))
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventMissionDeleted,
		TicketID:  mission.TicketID,
		MissionID: mission.ID,
		Actor:     eventActor(actor),
	})
	return result, nil
}

// ListMissions returns missions visible to the actor. Agency and tenant
// visibility joins through ticket ownership; zero matching tickets yields
// an empty result.
func (s *MissionService) ListMissions(ctx context.Context, actor domain.ActorContext, filter MissionListFilter) ([]domain.Mission, error) {
	repoFilter := repository.MissionFilter{
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}

	switch actor.Role {
	case domain.RoleAdminJTEC:
		// unrestricted
	case domain.RoleEntreprise, domain.RoleTechnicien:
		if actor.EntrepriseID == nil {
			return []domain.Mission{}, nil
		}
		repoFilter.EntrepriseID = actor.EntrepriseID
	case domain.RoleRegie, domain.RoleLocataire:
		ticketIDs, err := s.ticketIDsForActor(ctx, actor)
		if err != nil {
			return nil, err
		}
		if len(ticketIDs) == 0 {
			return []domain.Mission{}, nil
		}
		repoFilter.TicketIDs = ticketIDs
	default:
		return nil, apperrors.NewForbidden("role cannot list missions")
	}

	missions, err := s.missions.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if missions == nil {
		missions = []domain.Mission{}
	}
	return missions, nil
}

// GetMission fetches a mission under the actor's visibility.
func (s *MissionService) GetMission(ctx context.Context, actor domain.ActorContext, missionID string) (*domain.Mission, error) {
	mission, err := s.loadMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, mission.TicketID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	if !policy.CanViewMission(actor, mission, ticket) {
		return nil, apperrors.NewForbidden("mission not visible to actor")
	}
	return mission, nil
}

func (s *MissionService) acceptingEntreprise(actor domain.ActorContext, input AcceptTicketInput) (string, error) {
	switch actor.Role {
	case domain.RoleEntreprise:
		if actor.EntrepriseID == nil {
			return "", apperrors.NewForbidden("actor has no company")
		}
		return *actor.EntrepriseID, nil
	case domain.RoleAdminJTEC:
		if input.EntrepriseID == "" {
			return "", apperrors.NewValidationError("entreprise_id required", nil)
		}
		return input.EntrepriseID, nil
	default:
		return "", apperrors.NewForbidden("only a company may accept a ticket")
	}
}

func (s *MissionService) requireMissionOwnership(actor domain.ActorContext, mission *domain.Mission) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role != domain.RoleEntreprise {
		return apperrors.NewForbidden("only the owning company may manage the mission")
	}
	if !actor.OwnsEntreprise(mission.EntrepriseID) {
		return apperrors.NewForbidden("mission owned by another company")
	}
	return nil
}

func (s *MissionService) requireMissionWriteAccess(actor domain.ActorContext, mission *domain.Mission) error {
	switch actor.Role {
	case domain.RoleAdminJTEC:
		return nil
	case domain.RoleEntreprise:
		if !actor.OwnsEntreprise(mission.EntrepriseID) {
			return apperrors.NewForbidden("mission owned by another company")
		}
		return nil
	case domain.RoleTechnicien:
		if !actor.OwnsEntreprise(mission.EntrepriseID) {
			return apperrors.NewForbidden("technician outside mission company")
		}
		return nil
	default:
		return apperrors.NewForbidden("role cannot update missions")
	}
}

func (s *MissionService) verifyTechnicien(ctx context.Context, technicienID, entrepriseID string) error {
	profile, err := s.profiles.GetByID(ctx, technicienID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("technicien", map[string]any{"technicien_id": technicienID})
		}
		return apperrors.MapError(err)
	}
	if profile.Role != domain.RoleTechnicien {
		return apperrors.NewValidationError("profile is not a technician", map[string]any{"technicien_id": technicienID})
	}
	if profile.EntrepriseID == nil || *profile.EntrepriseID != entrepriseID {
		return apperrors.NewForbidden("technician belongs to another company")
	}
	return nil
}

// syncTicket performs the named dependent ticket write. A failure is
// logged, reported as an event, and carried on the result as a warning; it
// never fails the primary operation.
func (s *MissionService) syncTicket(ctx context.Context, actor domain.ActorContext, name string, mission *domain.Mission, ticket *domain.Ticket, mutate func(*domain.Ticket)) SideEffect {
	mutate(ticket)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		s.reportSyncFailure(ctx, actor, name, mission, err)
		return SideEffect{Name: name, Err: err}
	}
	return SideEffect{Name: name}
}

func (s *MissionService) closeTicketFor(ctx context.Context, actor domain.ActorContext, mission *domain.Mission) SideEffect {
	ticket, err := s.loadTicket(ctx, mission.TicketID)
	if err != nil {
		s.reportSyncFailure(ctx, actor, "ticket_close_sync", mission, err)
		return SideEffect{Name: "ticket_close_sync", Err: err}
	}
	return s.syncTicket(ctx, actor, "ticket_close_sync", mission, ticket, func(t *domain.Ticket) {
		now := time.Now()
		t.Statut = domain.TicketStatusTermine
		t.DateCloture = &now
	})
}

func (s *MissionService) reportSyncFailure(ctx context.Context, actor domain.ActorContext, name string, mission *domain.Mission, err error) {
	if s.logger != nil {
		s.logger.Warn("ticket sync failed",
			zap.String("side_effect", name),
			zap.String("mission_id", mission.ID),
			zap.String("ticket_id", mission.TicketID),
			zap.Error(err),
		)
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventMissionTicketSyncError,
		TicketID:  mission.TicketID,
		MissionID: mission.ID,
		Actor:     eventActor(actor),
		Payload: events.TicketSyncFailedPayload{
			SideEffect: name,
			Error:      err.Error(),
		},
	})
}

func (s *MissionService) ticketIDsForActor(ctx context.Context, actor domain.ActorContext) ([]string, error) {
	filter := repository.TicketFilter{Limit: 500}
	switch actor.Role {
	case domain.RoleRegie:
		if actor.RegieID == nil {
			return nil, nil
		}
		filter.RegieID = actor.RegieID
	case domain.RoleLocataire:
		locataireID := actor.ProfileID
		filter.LocataireID = &locataireID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ids := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		ids = append(ids, ticket.ID)
	}
	return ids, nil
}

func (s *MissionService) loadMission(ctx context.Context, missionID string) (*domain.Mission, error) {
	mission, err := s.missions.GetByID(ctx, missionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("mission", map[string]any{"mission_id": missionID})
		}
		return nil, apperrors.MapError(err)
	}
	return mission, nil
}

func (s *MissionService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *MissionService) publishEvent(ctx context.Context, event events.Event) {
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
