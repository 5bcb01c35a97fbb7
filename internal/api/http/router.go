package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jtec/maintenance-service/internal/api/http/handlers"
	"github.com/jtec/maintenance-service/internal/auth"
	"github.com/jtec/maintenance-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Missions       *handlers.MissionsHandler
	Interventions  *handlers.InterventionsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	authed := api.Group("", cfg.AuthMiddleware.Handle)

	tickets := authed.Group("/tickets")
	tickets.Post("/", auth.RequireRole(domain.RoleLocataire, domain.RoleRegie, domain.RoleAdminJTEC), cfg.Tickets.Create)
	tickets.Get("/", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Post("/:id/diffuser", auth.RequireRole(domain.RoleRegie, domain.RoleAdminJTEC), cfg.Tickets.Diffuse)
	tickets.Post("/:id/annuler", auth.RequireRole(domain.RoleRegie, domain.RoleAdminJTEC), cfg.Tickets.Cancel)
	tickets.Post("/:id/accepter", auth.RequireRole(domain.RoleEntreprise, domain.RoleAdminJTEC), cfg.Tickets.Accept)

	missions := authed.Group("/missions")
	missions.Get("/", cfg.Missions.List)
	missions.Get("/:id", cfg.Missions.Get)
	missions.Patch("/:id", auth.RequireRole(domain.RoleEntreprise, domain.RoleTechnicien, domain.RoleAdminJTEC), cfg.Missions.Update)
	missions.Delete("/:id", auth.RequireRole(domain.RoleEntreprise, domain.RoleAdminJTEC), cfg.Missions.Delete)
	missions.Post("/:id/assigner", auth.RequireRole(domain.RoleEntreprise, domain.RoleAdminJTEC), cfg.Missions.Assign)

	operateurs := auth.RequireRole(domain.RoleEntreprise, domain.RoleTechnicien, domain.RoleAdminJTEC)
	missions.Post("/:id/demarrer", operateurs, cfg.Interventions.Start)
	missions.Post("/:id/pause", operateurs, cfg.Interventions.Pause)
	missions.Post("/:id/retard", operateurs, cfg.Interventions.ReportDelay)
	missions.Post("/:id/terminer", operateurs, cfg.Interventions.Complete)
	missions.Post("/:id/signature", operateurs, cfg.Interventions.AddSignature)
	missions.Post("/:id/photos/upload", operateurs, cfg.Interventions.RequestPhotoUploadSlot)
	missions.Get("/:id/photos", cfg.Interventions.ListPhotos)
}
