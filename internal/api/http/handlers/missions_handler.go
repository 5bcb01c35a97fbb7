package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jtec/maintenance-service/internal/api/dto"
	"github.com/jtec/maintenance-service/internal/auth"
	"github.com/jtec/maintenance-service/internal/domain"
	"github.com/jtec/maintenance-service/internal/service"
	apperrors "github.com/jtec/maintenance-service/pkg/util/errorutil"
)

// MissionsHandler manages mission lifecycle endpoints.
type MissionsHandler struct {
	service *service.MissionService
}

// NewMissionsHandler constructs handler.
func NewMissionsHandler(missionService *service.MissionService) *MissionsHandler {
	return &MissionsHandler{service: missionService}
}

// List GET /missions.
func (h *MissionsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	filter := service.MissionListFilter{}
	if statusStr := c.Query("statut"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.MissionStatus(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	missions, err := h.service.ListMissions(c.Context(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.MissionResponse, 0, len(missions))
	for i := range missions {
		items = append(items, missionResponse(&missions[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /missions/:id.
func (h *MissionsHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	mission, err := h.service.GetMission(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": missionResponse(mission)})
}

// Update PATCH /missions/:id. The body is an arbitrary JSON object; fields
// outside the actor's write mask are dropped silently.
func (h *MissionsHandler) Update(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var fields map[string]any
	if err := c.BodyParser(&fields); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.service.UpdateMission(c.Context(), actor, c.Params("id"), fields)
	if err != nil {
		return err
	}
	return c.JSON(missionEnvelope(result, "mission updated"))
}

// Delete DELETE /missions/:id.
func (h *MissionsHandler) Delete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	result, err := h.service.DeleteMission(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(missionEnvelope(result, "mission deleted"))
}

// Assign POST /missions/:id/assigner.
func (h *MissionsHandler) Assign(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignTechnicienRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	mission, err := h.service.AssignTechnicien(c.Context(), actor, c.Params("id"), req.TechnicienID, req.DatePrevue)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":    missionResponse(mission),
		"message": "technicien assigned",
	})
}
