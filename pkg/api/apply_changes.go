package api

import (
	"encoding/json"
	stderrors "errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"sigs.k8s.io/external-dns/plan"

	"github.com/hugovk/constellix-dns-sync/internal/constellix"
	"github.com/hugovk/constellix-dns-sync/pkg/errors"
)

func (w webhook) ApplyChanges(ctx *fiber.Ctx) error {
	w.logger.Info("ApplyChanges endpoint called",
		zap.String("remote_ip", ctx.IP()),
		zap.String("request_id", ctx.GetRespHeader("X-Request-ID", "-")),
		zap.Int("content_length", ctx.Request().Header.ContentLength()))

	var changes plan.Changes
	if err := json.Unmarshal(ctx.Body(), &changes); err != nil {
		w.logger.Error("Failed to parse request body as plan.Changes",
			zap.String(logFieldError, err.Error()))
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": errors.ErrInvalidJSONFormat.Error(),
		})
	}

	w.logger.Debug(
		"Parsed changes",
		zap.Int("create_count", len(changes.Create)),
		zap.Int("delete_count", len(changes.Delete)),
		zap.Int("update_count", len(changes.UpdateNew)),
	)

	if err := w.provider.ApplyChanges(ctx.UserContext(), &changes); err != nil {
		w.logger.Error("Failed to apply changes",
			zap.String(logFieldError, err.Error()),
			zap.String("kind", constellix.ErrorKindOf(err).String()))

		switch {
		case constellix.IsAuth(err):
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Constellix rejected the API credentials",
			})
		case constellix.IsValidation(err):
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "Constellix rejected the record payload",
				"details": err.Error(),
			})
		case stderrors.Is(err, errors.ErrMissingAPIKey):
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key is required",
			})
		case stderrors.Is(err, errors.ErrMissingAPISecret):
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API secret is required",
			})
		case stderrors.Is(err, errors.ErrZoneNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Zone not found",
			})
		case stderrors.Is(err, errors.ErrAPIRequestFailed):
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "API request to Constellix failed",
			})
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Failed to apply DNS changes",
				"details": err.Error(),
			})
		}
	}

	ctx.Response().Header.Set(contentTypeHeader, MediaTypeFormatAndVersion)
	ctx.Status(fiber.StatusNoContent)
	return nil
}
