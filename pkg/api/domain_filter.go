package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/hugovk/constellix-dns-sync/pkg/errors"
)

func (w webhook) GetDomainFilter(ctx *fiber.Ctx) error {
	w.logger.Info("GetDomainFilter endpoint called",
		zap.String("remote_ip", ctx.IP()),
		zap.String("request_id", ctx.GetRespHeader("X-Request-ID", "-")))

	domainFilter, err := json.Marshal(w.provider.GetDomainFilter())
	if err != nil {
		w.logger.Error("Failed to marshal domain filter response",
			zap.Error(err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to marshal domain filter response",
			"details": err.Error(),
		})
	}

	if domainFilter == nil {
		w.logger.Error("Provider returned no domain filter")
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   errors.ErrMissingZone.Error(),
			"details": "Provider returned no domain filter",
		})
	}

	ctx.Response().Header.Set(contentTypeHeader, MediaTypeFormatAndVersion)
	return ctx.Send(domainFilter)
}
