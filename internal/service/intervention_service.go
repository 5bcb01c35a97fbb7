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
	"github.com/jtec/maintenance-service/internal/storage"
	apperrors "github.com/jtec/maintenance-service/pkg/util/errorutil"
)

// InterventionService drives the on-site execution phase of an existing
// mission. Every operation re-fetches the mission, evaluates the actor's
// entitlement, then checks the required current-status precondition before
// mutating. Ticket mirroring on Start and Complete follows the same
// best-effort side-effect policy as ticket/mission linkage.
type InterventionService struct {
	missions   repository.MissionRepository
	tickets    repository.TicketRepository
	signer     *storage.Signer
	slots      *storage.SlotStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// InterventionDependencies bundles requirements for the service.
type InterventionDependencies struct {
	MissionRepo repository.MissionRepository
	TicketRepo  repository.TicketRepository
	Signer      *storage.Signer
	Slots       *storage.SlotStore
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewInterventionService constructs the service.
func NewInterventionService(deps InterventionDependencies) *InterventionService {
	return &InterventionService{
		missions:   deps.MissionRepo,
		tickets:    deps.TicketRepo,
		signer:     deps.Signer,
		slots:      deps.Slots,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// startableStatuses are the states Start may run from.
var startableStatuses = map[domain.MissionStatus]struct{}{
	domain.MissionStatusPlanifiee: {},
	domain.MissionStatusEnRoute:   {},
	domain.MissionStatusEnPause:   {},
}

// Start moves the mission to en_cours, stamping the actual start time on
// the first start only, and mirrors the ticket status.
func (s *InterventionService) Start(ctx context.Context, actor domain.ActorContext, missionID string) (*MissionResult, error) {
	mission, err := s.loadOperableMission(ctx, actor, missionID)
	if err != nil {
		return nil, err
	}
	if _, ok := startableStatuses[mission.Statut]; !ok {
		return nil, apperrors.NewInvalidState(string(mission.Statut), string(domain.MissionStatusEnCours), "demarrer")
	}

	oldStatus := mission.Statut
	mission.Statut = domain.MissionStatusEnCours
	if mission.DateInterventionDebut == nil {
		now := time.Now()
		mission.DateInterventionDebut = &now
	}

	if err := s.missions.Update(ctx, mission); err != nil {
		return nil, apperrors.MapError(err)
	}

	result := &MissionResult{Mission: mission}
	result.SideEffects = append(result.SideEffects,
		s.mirrorTicket(ctx, actor, "ticket_start_sync", mission, func(t *domain.Ticket) {
			t.Statut = domain.TicketStatusEnCours
		}))

	s.publishStatusChange(ctx, actor, mission, oldStatus)
	return result, nil
}

// Pause suspends work in progress, logging the reason on the internal
// notes.
func (s *InterventionService) Pause(ctx context.Context, actor domain.ActorContext, missionID, reason string) (*MissionResult, error) {
	mission, err := s.loadOperableMission(ctx, actor, missionID)
	if err != nil {
		return nil, err
	}
	if mission.Statut != domain.MissionStatusEnCours {
		return nil, apperrors.NewInvalidState(string(mission.Statut), string(domain.MissionStatusEnPause), "pause")
	}

	oldStatus := mission.Statut
	mission.Statut = domain.MissionStatusEnPause
	if reason = strings.TrimSpace(reason); reason != "" {
		mission.NotesInternes = append(mission.NotesInternes, "pause: "+reason)
	}

	if err := s.missions.Update(ctx, mission); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishStatusChange(ctx, actor, mission, oldStatus)
	return &MissionResult{Mission: mission}, nil
}

// ReportDelay flags the mission late with a reason and an optional new
// target date. It has no status precondition and sets reportée directly,
// bypassing the transition table; callable even from terminal states.
func (s *InterventionService) ReportDelay(ctx context.Context, actor domain.ActorContext, missionID, motif string, dateReportee *time.Time) (*MissionResult, error) {
	mission, err := s.loadOperableMission(ctx, actor, missionID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(motif) == "" {
		return nil, apperrors.NewValidationError("motif_retard required", nil)
	}

	oldStatus := mission.Statut
	motif = strings.TrimSpace(motif)
	mission.EnRetard = true
	mission.MotifRetard = &motif
	mission.DateReportee = dateReportee
	mission.Statut = domain.MissionStatusReportee
	mission.NotesInternes = append(mission.NotesInternes, "retard: "+motif)

	if err := s.missions.Update(ctx, mission); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishStatusChange(ctx, actor, mission, oldStatus)
	return &MissionResult{Mission: mission}, nil
}

// CompleteInput carries the completion report.
type CompleteInput struct {
	TravauxRealises string
	CoutFinal       *float64
	MaterielUtilise []string
}

// completableStatuses are the states Complete may run from.
var completableStatuses = map[domain.MissionStatus]struct{}{
	domain.MissionStatusEnCours: {},
	domain.MissionStatusEnPause: {},
}

// Complete finishes the mission: requires a non-empty work report, stamps
// the actual end time and mirrors the ticket to terminé with its closure
// timestamp.
func (s *InterventionService) Complete(ctx context.Context, actor domain.ActorContext, missionID string, input CompleteInput) (*MissionResult, error) {
	mission, err := s.loadOperableMission(ctx, actor, missionID)
	if err != nil {
		return nil, err
	}
	if _, ok := completableStatuses[mission.Statut]; !ok {
		return nil, apperrors.NewInvalidState(string(mission.Statut), string(domain.MissionStatusTerminee), "terminer")
	}
	travaux := strings.TrimSpace(input.TravauxRealises)
	if travaux == "" {
		return nil, apperrors.NewValidationError("travaux_realises required", nil)
	}

	oldStatus := mission.Statut
	now := time.Now()
	mission.Statut = domain.MissionStatusTerminee
	mission.TravauxRealises = &travaux
	mission.DateInterventionFin = &now
	if input.CoutFinal != nil {
		mission.CoutFinal = input.CoutFinal
	}
	if input.MaterielUtilise != nil {
		mission.MaterielUtilise = input.MaterielUtilise
	}

	if err := s.missions.Update(ctx, mission); err != nil {
		return nil, apperrors.MapError(err)
	}

	result := &MissionResult{Mission: mission}
	result.SideEffects = append(result.SideEffects,
		s.mirrorTicket(ctx, actor, "ticket_close_sync", mission, func(t *domain.Ticket) {
			t.Statut = domain.TicketStatusTermine
			t.DateCloture = &now
		}))

	s.publishStatusChange(ctx, actor, mission, oldStatus)
	s.publishEvent(ctx, events.Event{
		Type:      events.EventInterventionCompleted,
		TicketID:  mission.TicketID,
		MissionID: mission.ID,
		Actor:     eventActor(actor),
	})
	return result, nil
}

// AddSignature stores a signature reference; once both client and
// technician references are present the combined signature timestamp is
// stamped.
func (s *InterventionService) AddSignature(ctx context.Context, actor domain.ActorContext, missionID string, sigType domain.SignatureType, url string) (*domain.Mission, error) {
	mission, err := s.loadOperableMission(ctx, actor, missionID)
	if err != nil {
		return nil, err
	}
	if url = strings.TrimSpace(url); url == "" {
		return nil, apperrors.NewValidationError("signature url required", nil)
	}

	switch sigType {
	case domain.SignatureClient:
		mission.SignatureClientURL = &url
	case domain.SignatureTechnicien:
		mission.SignatureTechnicienURL = &url
	default:
		return nil, apperrors.NewValidationError("type must be client or technicien",
			map[string]any{"type": string(sigType)})
	}

	if mission.SignaturesComplete() && mission.DateSignature == nil {
		now := time.Now()
		mission.DateSignature = &now
	}

	if err := s.missions.Update(ctx, mission); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventSignatureAdded,
		TicketID:  mission.TicketID,
		MissionID: mission.ID,
		Actor:     eventActor(actor),
		Payload: events.SignatureAddedPayload{
			Type:     sigType,
			Complete: mission.SignaturesComplete(),
		},
	})
	return mission, nil
}

// RequestPhotoUploadSlot returns a time-boxed write credential scoped to a
// mission-namespaced object key. The mission itself is not mutated; the
// uploaded key is attached later through the photos field.
func (s *InterventionService) RequestPhotoUploadSlot(ctx context.Context, actor domain.ActorContext, missionID, filename string) (storage.Grant, error) {
	mission, err := s.loadOperableMission(ctx, actor, missionID)
	if err != nil {
		return storage.Grant{}, err
	}
	if strings.TrimSpace(filename) == "" {
		return storage.Grant{}, apperrors.NewValidationError("filename required", nil)
	}

	key := storage.ObjectKey(mission.ID, filename, time.Now())
	grant, err := s.signer.SignUpload(key)
	if err != nil {
		return storage.Grant{}, apperrors.MapError(err)
	}
	if err := s.slots.Record(ctx, mission.ID, key); err != nil && s.logger != nil {
		s.logger.Warn("upload slot bookkeeping failed",
			zap.String("mission_id", mission.ID), zap.Error(err))
	}
	return grant, nil
}

// ListPhotos returns read credentials for the mission's stored photos.
// Visibility extends to the tenant and agency of the originating ticket.
func (s *InterventionService) ListPhotos(ctx context.Context, actor domain.ActorContext, missionID string) ([]storage.Grant, error) {
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

	grants := make([]storage.Grant, 0, len(mission.Photos))
	for _, key := range mission.Photos {
		grant, err := s.signer.SignRead(key)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		grants = append(grants, grant)
	}
	return grants, nil
}

func (s *InterventionService) loadOperableMission(ctx context.Context, actor domain.ActorContext, missionID string) (*domain.Mission, error) {
	mission, err := s.loadMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if !policy.CanOperateIntervention(actor, mission) {
		return nil, apperrors.NewForbidden("actor cannot operate on this mission")
	}
	return mission, nil
}

func (s *InterventionService) loadMission(ctx context.Context, missionID string) (*domain.Mission, error) {
	mission, err := s.missions.GetByID(ctx, missionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("mission", map[string]any{"mission_id": missionID})
		}
		return nil, apperrors.MapError(err)
	}
	return mission, nil
}

// mirrorTicket applies the named dependent ticket write; failure downgrades
// to a warning on the result.
func (s *InterventionService) mirrorTicket(ctx context.Context, actor domain.ActorContext, name string, mission *domain.Mission, mutate func(*domain.Ticket)) SideEffect {
	ticket, err := s.tickets.GetByID(ctx, mission.TicketID)
	if err != nil {
		s.reportSyncFailure(ctx, actor, name, mission, err)
		return SideEffect{Name: name, Err: err}
	}
	mutate(ticket)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		s.reportSyncFailure(ctx, actor, name, mission, err)
		return SideEffect{Name: name, Err: err}
	}
	return SideEffect{Name: name}
}

func (s *InterventionService) reportSyncFailure(ctx context.Context, actor domain.ActorContext, name string, mission *domain.Mission, err error) {
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

func (s *InterventionService) publishStatusChange(ctx context.Context, actor domain.ActorContext, mission *domain.Mission, oldStatus domain.MissionStatus) {
	if mission.Statut == oldStatus {
		return
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventMissionStatusChanged,
		TicketID:  mission.TicketID,
		MissionID: mission.ID,
		Actor:     eventActor(actor),
		Payload: events.MissionStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: mission.Statut,
		},
	})
}

func (s *InterventionService) publishEvent(ctx context.Context, event events.Event) {
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
