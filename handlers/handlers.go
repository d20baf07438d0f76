package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"sentryfw/services"
)

type Handler struct {
	DB      *gorm.DB
	FW      *services.Firewall
	Webhook *services.WebhookService
}

func NewHandler(db *gorm.DB, fw *services.Firewall, webhook *services.WebhookService) *Handler {
	return &Handler{DB: db, FW: fw, Webhook: webhook}
}

// RegisterRoutes mounts the management API under /api. Everything except
// login requires a valid JWT.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Post("/login", h.Login)

	protected := api.Group("", JWTAuthMiddleware())
	protected.Put("/auth/password", h.ChangePassword)

	protected.Get("/status", h.GetStatus)
	protected.Get("/blocked", h.GetBlocked)
	protected.Delete("/blocked/:ip", h.UnblockIP)

	protected.Get("/attacks", h.GetAttackHistory)
	protected.Get("/attacks/stats", h.GetAttackStats)

	protected.Post("/webhook/test", h.TestWebhook)
}
