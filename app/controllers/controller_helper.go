package controllers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ticketless-io/ticketless/internal/pkg/parking"
)

var validate = validator.New()

// respondServiceError maps service errors to HTTP responses. Rejections carry
// their own status code and screen payload; anything else is a 500 with the
// detail kept in the logs.
func respondServiceError(c *fiber.Ctx, err error) error {
	var rej *parking.Rejection
	if errors.As(err, &rej) {
		return c.Status(rej.StatusCode).JSON(rej.Payload())
	}
	log.Errorf("%s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"screen_message_type": "error",
		"screen_title":        "Error",
		"screen_message":      "Something went wrong. Please try again.",
		"barrier_status":      parking.BarrierClosed,
	})
}

// rejectInvalid renders an input failure on the booth-facing endpoints in the
// screen payload shape, so the display and barrier stay in the safe state.
func rejectInvalid(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"screen_message_type": "error",
		"screen_title":        "Invalid Request",
		"screen_message":      message,
		"barrier_status":      parking.BarrierClosed,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "bad_request",
		"message": message,
	})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":   "not_found",
		"message": message,
	})
}

// validationMessage flattens the first validator error into a readable string.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return "invalid value for field " + verrs[0].Field()
	}
	return err.Error()
}

// parsePagination reads page/limit query params with sane bounds.
func parsePagination(c *fiber.Ctx) (offset, limit int) {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 20
	}
	return (page - 1) * limit, limit
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
