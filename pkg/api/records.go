package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func (w webhook) Records(ctx *fiber.Ctx) error {
	w.logger.Info("Records endpoint called",
		zap.String("remote_ip", ctx.IP()),
		zap.String("request_id", ctx.GetRespHeader("X-Request-ID", "-")))

	records, err := w.provider.Records(ctx.UserContext())
	if err != nil {
		w.logger.Error("Failed to get records from provider",
			zap.Error(err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to retrieve DNS records",
			"details": err.Error(),
		})
	}

	if len(records) == 0 {
		w.logger.Warn("No records returned from provider")
	}

	response, err := json.Marshal(records)
	if err != nil {
		w.logger.Error("Failed to marshal records response",
			zap.Error(err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to marshal records response",
		})
	}

	ctx.Response().Header.Set(varyHeader, "Accept-Encoding")
	ctx.Response().Header.Set(contentTypeHeader, MediaTypeFormatAndVersion)

	return ctx.Send(response)
}
