package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"sentryfw/models"
	"sentryfw/services"
)

// GetStatus returns the full firewall status snapshot.
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(h.FW.Status())
}

// GetBlocked returns the currently blocked addresses with their block times.
func (h *Handler) GetBlocked(c *fiber.Ctx) error {
	status := h.FW.Status()
	return c.JSON(fiber.Map{
		"count":   status.CurrentlyBlocked,
		"blocked": status.BlockedIPs,
	})
}

// UnblockIP manually lifts a block.
func (h *Handler) UnblockIP(c *fiber.Ctx) error {
	ip := c.Params("ip")

	switch result := h.FW.Unblock(ip); result {
	case services.ResultUnblocked:
		return c.JSON(fiber.Map{"status": "unblocked", "ip": ip})
	case services.ResultNotBlocked:
		return c.Status(404).JSON(fiber.Map{"error": "IP is not blocked", "ip": ip})
	case services.ResultInvalidAddress:
		return c.Status(400).JSON(fiber.Map{"error": "Invalid IP address", "ip": ip})
	default:
		return c.Status(500).JSON(fiber.Map{"error": result.String(), "ip": ip})
	}
}

// GetAttackHistory returns recent attack events, newest first.
func (h *Handler) GetAttackHistory(c *fiber.Ctx) error {
	if h.DB == nil {
		return c.Status(503).JSON(fiber.Map{"error": "Database unavailable"})
	}

	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var events []models.AttackEvent
	if err := h.DB.Order("timestamp desc").Limit(limit).Find(&events).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(events)
}

// GetAttackStats returns aggregated attack statistics.
func (h *Handler) GetAttackStats(c *fiber.Ctx) error {
	if h.DB == nil {
		return c.Status(503).JSON(fiber.Map{"error": "Database unavailable"})
	}

	now := time.Now()
	var stats models.AttackStats

	h.DB.Model(&models.AttackEvent{}).Count(&stats.TotalBlocked)
	h.DB.Model(&models.AttackEvent{}).Where("timestamp > ?", now.Add(-24*time.Hour)).Count(&stats.TodayCount)
	h.DB.Model(&models.AttackEvent{}).Where("timestamp > ?", now.Add(-7*24*time.Hour)).Count(&stats.WeekCount)
	h.DB.Model(&models.AttackEvent{}).Where("timestamp > ?", now.Add(-30*24*time.Hour)).Count(&stats.MonthCount)

	var topType struct{ AttackType string }
	h.DB.Model(&models.AttackEvent{}).
		Select("attack_type").
		Group("attack_type").
		Order("count(*) desc").
		Limit(1).
		Scan(&topType)
	stats.TopAttackType = topType.AttackType

	var topIP struct{ SourceIP string }
	h.DB.Model(&models.AttackEvent{}).
		Select("source_ip").
		Group("source_ip").
		Order("count(*) desc").
		Limit(1).
		Scan(&topIP)
	stats.TopAttackerIP = topIP.SourceIP

	return c.JSON(stats)
}

// TestWebhook fires a test alert to verify webhook connectivity.
func (h *Handler) TestWebhook(c *fiber.Ctx) error {
	if err := h.Webhook.SendTestAlert(); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "sent"})
}
