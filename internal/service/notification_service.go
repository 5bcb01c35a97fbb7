package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jtec/maintenance-service/internal/config"
	"github.com/jtec/maintenance-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketDiffused, n.handleTicketDiffused)
	n.dispatcher.Subscribe(events.EventMissionCreated, n.handleMissionCreated)
	n.dispatcher.Subscribe(events.EventMissionAssigned, n.handleMissionAssigned)
	n.dispatcher.Subscribe(events.EventInterventionCompleted, n.handleInterventionCompleted)
	n.dispatcher.Subscribe(events.EventMissionTicketSyncError, n.handleSyncFailed)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketDiffused(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketDiffused", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleMissionCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("MissionCreated", zap.String("mission_id", event.MissionID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleMissionAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("MissionAssigned", zap.String("mission_id", event.MissionID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleInterventionCompleted(ctx context.Context, event events.Event) error {
	n.logger.Info("InterventionCompleted", zap.String("mission_id", event.MissionID))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleSyncFailed(ctx context.Context, event events.Event) error {
	n.logger.Warn("MissionTicketSyncFailed",
		zap.String("mission_id", event.MissionID),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
