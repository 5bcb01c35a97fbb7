package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jtec/maintenance-service/internal/api/dto"
	"github.com/jtec/maintenance-service/internal/auth"
	"github.com/jtec/maintenance-service/internal/domain"
	"github.com/jtec/maintenance-service/internal/service"
	apperrors "github.com/jtec/maintenance-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	tickets  *service.TicketService
	missions *service.MissionService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, missions *service.MissionService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, missions: missions}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.CreateTicket(c.Context(), actor, service.TicketCreateInput{
		Titre:       req.Titre,
		Description: req.Description,
		Categorie:   req.Categorie,
		Priorite:    req.Priorite,
		RegieID:     req.RegieID,
		LogementID:  req.LogementID,
		IsDemo:      req.IsDemo,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data":    ticketResponse(ticket),
		"message": "ticket created",
	})
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	tickets, err := h.tickets.ListTickets(c.Context(), actor, parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.GetTicket(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Diffuse POST /tickets/:id/diffuser.
func (h *TicketsHandler) Diffuse(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.DiffuseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Mode == "" {
		req.Mode = domain.DiffusionOuverte
	}

	ticket, err := h.tickets.Diffuse(c.Context(), actor, c.Params("id"), req.Mode, req.EntreprisesAutorisees)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":    ticketResponse(ticket),
		"message": "ticket diffused",
	})
}

// Cancel POST /tickets/:id/annuler.
func (h *TicketsHandler) Cancel(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.Cancel(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":    ticketResponse(ticket),
		"message": "ticket cancelled",
	})
}

// Accept POST /tickets/:id/accepter.
func (h *TicketsHandler) Accept(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AcceptTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.missions.AcceptTicket(c.Context(), actor, c.Params("id"), service.AcceptTicketInput{
		EntrepriseID:   req.EntrepriseID,
		Titre:          req.Titre,
		Description:    req.Description,
		DatePrevue:     req.DatePrevue,
		CoutEstime:     req.CoutEstime,
		MaterielRequis: req.MaterielRequis,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(missionEnvelope(result, "ticket accepted"))
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("statut"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if catStr := c.Query("categorie"); catStr != "" {
		for _, part := range strings.Split(catStr, ",") {
			filter.Categories = append(filter.Categories, domain.TicketCategorie(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
