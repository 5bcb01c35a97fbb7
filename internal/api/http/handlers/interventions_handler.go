package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jtec/maintenance-service/internal/api/dto"
	"github.com/jtec/maintenance-service/internal/auth"
	"github.com/jtec/maintenance-service/internal/service"
	apperrors "github.com/jtec/maintenance-service/pkg/util/errorutil"
)

// InterventionsHandler manages on-site execution endpoints.
type InterventionsHandler struct {
	service *service.InterventionService
}

// NewInterventionsHandler constructs handler.
func NewInterventionsHandler(interventionService *service.InterventionService) *InterventionsHandler {
	return &InterventionsHandler{service: interventionService}
}

// Start POST /missions/:id/demarrer.
func (h *InterventionsHandler) Start(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	result, err := h.service.Start(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(missionEnvelope(result, "intervention started"))
}

// Pause POST /missions/:id/pause.
func (h *InterventionsHandler) Pause(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PauseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.Pause(c.Context(), actor, c.Params("id"), req.Motif)
	if err != nil {
		return err
	}
	return c.JSON(missionEnvelope(result, "intervention paused"))
}

// ReportDelay POST /missions/:id/retard.
func (h *InterventionsHandler) ReportDelay(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReportDelayRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.ReportDelay(c.Context(), actor, c.Params("id"), req.MotifRetard, req.DateReportee)
	if err != nil {
		return err
	}
	return c.JSON(missionEnvelope(result, "delay reported"))
}

// Complete POST /missions/:id/terminer.
func (h *InterventionsHandler) Complete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CompleteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.Complete(c.Context(), actor, c.Params("id"), service.CompleteInput{
		TravauxRealises: req.TravauxRealises,
		CoutFinal:       req.CoutFinal,
		MaterielUtilise: req.MaterielUtilise,
	})
	if err != nil {
		return err
	}
	return c.JSON(missionEnvelope(result, "intervention completed"))
}

// AddSignature POST /missions/:id/signature.
func (h *InterventionsHandler) AddSignature(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SignatureRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	mission, err := h.service.AddSignature(c.Context(), actor, c.Params("id"), req.Type, req.URL)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":    missionResponse(mission),
		"message": "signature stored",
	})
}

// RequestPhotoUploadSlot POST /missions/:id/photos/upload.
func (h *InterventionsHandler) RequestPhotoUploadSlot(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PhotoUploadSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	grant, err := h.service.RequestPhotoUploadSlot(c.Context(), actor, c.Params("id"), req.Filename)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":    dto.GrantFromStorage(grant),
		"message": "upload slot issued",
	})
}

// ListPhotos GET /missions/:id/photos.
func (h *InterventionsHandler) ListPhotos(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	grants, err := h.service.ListPhotos(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.GrantResponse, 0, len(grants))
	for _, grant := range grants {
		items = append(items, dto.GrantFromStorage(grant))
	}
	return c.JSON(fiber.Map{"data": items})
}
