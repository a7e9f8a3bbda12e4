package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ticketless-io/ticketless/internal/pkg/token"
	"github.com/ticketless-io/ticketless/internal/pkg/usercontext"
)

// RequireAuth validates the bearer token and stores the operator context for
// downstream handlers. Returns JSON 401 when the token is missing or bad.
func RequireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return unauthorized(c, "authorization header required")
	}

	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return unauthorized(c, "authorization header must be a bearer token")
	}

	claims, err := token.Parse(fields[1])
	if err != nil {
		return unauthorized(c, "invalid or expired token")
	}

	usercontext.SetOperatorContext(c, usercontext.OperatorContext{
		UserID:     claims.UserID,
		Name:       claims.Name,
		Email:      claims.Email,
		Role:       claims.Role,
		IsLoggedIn: true,
	})
	return c.Next()
}

// OptionalAuth populates the operator context when a valid bearer token is
// present but never rejects the request. Used by the first-account bootstrap.
func OptionalAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return c.Next()
	}
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return c.Next()
	}
	if claims, err := token.Parse(fields[1]); err == nil {
		usercontext.SetOperatorContext(c, usercontext.OperatorContext{
			UserID:     claims.UserID,
			Name:       claims.Name,
			Email:      claims.Email,
			Role:       claims.Role,
			IsLoggedIn: true,
		})
	}
	return c.Next()
}

// RequireAdmin ensures the authenticated operator has the admin role.
// Must run after RequireAuth.
func RequireAdmin(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return unauthorized(c, "login required")
	}
	if !usercontext.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "admin role required",
		})
	}
	return c.Next()
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "unauthorized",
		"message": message,
	})
}
