package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ticketless-io/ticketless/app/models"
	"github.com/ticketless-io/ticketless/app/repository"
	"github.com/ticketless-io/ticketless/internal/pkg/token"
	"github.com/ticketless-io/ticketless/internal/pkg/usercontext"
)

// AuthController handles operator accounts and login.
type AuthController struct {
	users repository.UserRepository
}

// NewAuthController creates a new auth controller
func NewAuthController(users repository.UserRepository) *AuthController {
	return &AuthController{users: users}
}

type registerUserRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=operator admin"`
}

// HandleUserRegister creates an operator account. The very first account may
// be created unauthenticated and becomes an admin; afterwards the route sits
// behind the admin middleware.
func (ac *AuthController) HandleUserRegister(c *fiber.Ctx) error {
	var req registerUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	count, err := ac.users.Count()
	if err != nil {
		return respondServiceError(c, err)
	}

	role := req.Role
	if role == "" {
		role = models.ROLE_OPERATOR
	}
	if count == 0 {
		role = models.ROLE_ADMIN
	} else if !usercontext.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "only admins can create accounts",
		})
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password, role)
	if err != nil {
		return badRequest(c, validationMessage(err))
	}
	if err := ac.users.Create(user); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "conflict",
			"message": "an account with this email already exists",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin verifies credentials and returns a signed token.
func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	user, err := ac.users.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalidCredentials(c)
		}
		return respondServiceError(c, err)
	}
	if !user.IsActive() || !user.CheckPassword(req.Password) {
		return invalidCredentials(c)
	}

	signed, err := token.Issue(user)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"token": signed,
		"user":  user,
	})
}

func invalidCredentials(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "unauthorized",
		"message": "invalid email or password",
	})
}

var authController *AuthController

// InitializeAuthController initializes the global auth controller
func InitializeAuthController() {
	authController = NewAuthController(repository.GetGlobalFactory().GetUserRepository())
}

// GetAuthController returns the global auth controller instance
func GetAuthController() *AuthController {
	if authController == nil {
		panic("auth controller not initialized")
	}
	return authController
}
