package sigvault

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sigvault/sigvault/internal/apierror"
	"github.com/sigvault/sigvault/signing"
	"github.com/sigvault/sigvault/storage/model"
)

// unexpectedError is the only description clients get for internal failures
const unexpectedError = "unexpected error"

// handleError is the fiber.ErrorHandler of all servers
func handleError(ctx *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			return ctx.Status(fiberErr.Code).JSON(apierror.NotFound(fiberErr.Message))
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
			return ctx.Status(fiberErr.Code).JSON(apierror.InvalidRequest(fiberErr.Message))
		case fiber.StatusMethodNotAllowed:
			return ctx.Status(fiberErr.Code).JSON(apierror.InvalidRequest(fiberErr.Message))
		}
		if fiberErr.Code < fiber.StatusInternalServerError {
			return ctx.Status(fiberErr.Code).JSON(apierror.Error{Error: fiberErr.Message})
		}
	}
	log.WithError(err).WithField("path", ctx.Path()).Error("request failed")
	return ctx.Status(fiber.StatusInternalServerError).JSON(apierror.ServerError(unexpectedError))
}

// writeSigningError maps the errors of the signing service to responses
func writeSigningError(ctx *fiber.Ctx, err error) error {
	var validationErr signing.ValidationError
	var notFound model.NotFoundError
	switch {
	case errors.Is(err, signing.ErrNoIdentity):
		return ctx.Status(fiber.StatusUnauthorized).JSON(apierror.Unauthorized(err.Error()))
	case errors.As(err, &validationErr):
		return ctx.Status(fiber.StatusBadRequest).JSON(apierror.InvalidRequest(validationErr.Error()))
	case errors.As(err, &notFound):
		return ctx.Status(fiber.StatusNotFound).JSON(apierror.NotFound(notFound.Error()))
	default:
		return handleError(ctx, err)
	}
}
