package controllers

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"coursegate/backend/models"
	"coursegate/backend/services"
	"coursegate/backend/store"
	"coursegate/backend/utils"
)

var validate = validator.New()

// validationDetails flattens validator errors into field -> rule pairs for
// the response envelope.
func validationDetails(err error) map[string]string {
	details := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return details
}

// serviceError maps the domain error taxonomy onto HTTP statuses. Constraint
// violations should be unreachable through validated callers, so they are
// logged with full context and surfaced as internal errors.
func serviceError(c *fiber.Ctx, logger *log.Logger, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return utils.NotFound(c, err.Error())
	case errors.Is(err, services.ErrCourseNotPublished),
		errors.Is(err, services.ErrSubscriptionNotActive),
		errors.Is(err, services.ErrProgressRegression),
		errors.Is(err, models.ErrInvalidTransition):
		return utils.Conflict(c, err.Error())
	case errors.Is(err, services.ErrPaymentRequired):
		return utils.Error(c, fiber.StatusPaymentRequired, err)
	case errors.Is(err, services.ErrInvalidProgress):
		return utils.Error(c, fiber.StatusUnprocessableEntity, err)
	case errors.Is(err, store.ErrConstraintViolation):
		logger.Printf("constraint violation reached handler for %s %s: %v", c.Method(), c.Path(), err)
		return utils.InternalServerError(c, "Internal error")
	default:
		logger.Printf("unexpected error for %s %s: %v", c.Method(), c.Path(), err)
		return utils.InternalServerError(c, "Internal error")
	}
}
