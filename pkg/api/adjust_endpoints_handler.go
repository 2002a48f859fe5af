package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"sigs.k8s.io/external-dns/endpoint"

	"github.com/hugovk/constellix-dns-sync/pkg/errors"
)

func (w webhook) AdjustEndpointsHandler(ctx *fiber.Ctx) error {
	w.logger.Info("AdjustEndpoints endpoint called",
		zap.String("remote_ip", ctx.IP()),
		zap.String("request_id", ctx.GetRespHeader("X-Request-ID", "-")),
		zap.Int("content_length", ctx.Request().Header.ContentLength()))

	var endpoints []*endpoint.Endpoint
	if err := json.Unmarshal(ctx.Body(), &endpoints); err != nil {
		w.logger.Error("Error parsing request body",
			zap.Error(err))
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": errors.ErrInvalidJSONFormat.Error(),
		})
	}

	adjusted, err := w.provider.AdjustEndpoints(endpoints)
	if err != nil {
		w.logger.Error("Error adjusting endpoints",
			zap.Error(err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   errors.ErrAPIRequestFailed.Error(),
			"details": err.Error(),
		})
	}

	w.logger.Debug("Adjusted endpoints",
		zap.Int("original_count", len(endpoints)),
		zap.Int("adjusted_count", len(adjusted)))

	response, err := json.Marshal(adjusted)
	if err != nil {
		w.logger.Error("Failed to marshal adjusted endpoints response",
			zap.Error(err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to marshal adjusted endpoints response",
		})
	}

	ctx.Set(varyHeader, contentTypeHeader)
	ctx.Response().Header.Set(contentTypeHeader, MediaTypeFormatAndVersion)
	return ctx.Send(response)
}
