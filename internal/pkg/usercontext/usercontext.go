package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ticketless-io/ticketless/app/models"
)

// OperatorContext represents the authenticated operator for a request
type OperatorContext struct {
	UserID     uint   `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsLoggedIn bool   `json:"is_logged_in"`
}

// GetOperatorContext retrieves the operator context from fiber context
// Returns a default anonymous context if none is set
func GetOperatorContext(c *fiber.Ctx) OperatorContext {
	if ctx := c.Locals(KeyOperatorContext); ctx != nil {
		if oc, ok := ctx.(OperatorContext); ok {
			return oc
		}
	}
	return OperatorContext{IsLoggedIn: false}
}

// SetOperatorContext stores the operator context for downstream handlers
func SetOperatorContext(c *fiber.Ctx, oc OperatorContext) {
	c.Locals(KeyOperatorContext, oc)
}

// IsLoggedIn checks if the current request carries a valid operator
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetOperatorContext(c).IsLoggedIn
}

// IsAdmin checks if the current operator has the admin role
func IsAdmin(c *fiber.Ctx) bool {
	return GetOperatorContext(c).Role == models.ROLE_ADMIN
}

// GetUserID returns the current operator's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetOperatorContext(c).UserID
}
