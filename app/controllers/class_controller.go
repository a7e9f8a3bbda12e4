package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ticketless-io/ticketless/app/models"
	"github.com/ticketless-io/ticketless/app/repository"
)

// ClassController manages the parking classes nested under the ledger.
type ClassController struct {
	ledger repository.LedgerRepository
}

// NewClassController creates a new class controller
func NewClassController(ledger repository.LedgerRepository) *ClassController {
	return &ClassController{ledger: ledger}
}

// classView is a class row with its derived days-to-expiry.
type classView struct {
	models.ParkingClass
	ExpiringIn int `json:"expiring_in"`
}

// HandleClassList returns the supported classes.
func (cc *ClassController) HandleClassList(c *fiber.Ctx) error {
	ledger, err := cc.ledger.Get()
	if err != nil {
		return respondServiceError(c, err)
	}
	now := time.Now()
	classes := make([]classView, 0, len(ledger.SupportedClasses))
	for i := range ledger.SupportedClasses {
		classes = append(classes, classView{
			ParkingClass: ledger.SupportedClasses[i],
			ExpiringIn:   ledger.SupportedClasses[i].ExpiringIn(now),
		})
	}
	return c.JSON(fiber.Map{"classes": classes})
}

// HandleClassCreate adds a parking class to the ledger.
func (cc *ClassController) HandleClassCreate(c *fiber.Ctx) error {
	var class models.ParkingClass
	if err := c.BodyParser(&class); err != nil {
		return badRequest(c, "malformed request body")
	}
	class.SlotsUsed = 0
	if msg := cc.checkClass(&class); msg != "" {
		return badRequest(c, msg)
	}

	ledger, err := cc.ledger.Get()
	if err != nil {
		return respondServiceError(c, err)
	}
	class.LedgerID = ledger.ID

	if _, err := cc.ledger.GetClass(class.Code); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "conflict",
			"message": "a class with this code already exists",
		})
	}

	if err := cc.ledger.CreateClass(&class); err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(class)
}

// HandleClassUpdate updates a class. The used counter is never writable from
// the API; it only moves through entry and exit.
func (cc *ClassController) HandleClassUpdate(c *fiber.Ctx) error {
	class, err := cc.ledger.GetClass(c.Params("code"))
	if err != nil {
		if errors.Is(err, repository.ErrUnknownClass) || errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "class not found")
		}
		return respondServiceError(c, err)
	}

	var patch models.ParkingClass
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "malformed request body")
	}

	if patch.Name != "" {
		class.Name = patch.Name
	}
	if patch.SlotsReserved != 0 {
		class.SlotsReserved = patch.SlotsReserved
	}
	if patch.Status != "" {
		class.Status = patch.Status
	}
	if patch.RenewalType != "" {
		class.RenewalType = patch.RenewalType
	}
	if patch.RenewalCharge != 0 {
		class.RenewalCharge = patch.RenewalCharge
	}
	if patch.StartingDate != nil {
		class.StartingDate = patch.StartingDate
	}
	if patch.EndingDate != nil {
		class.EndingDate = patch.EndingDate
	}

	if msg := cc.checkClass(class); msg != "" {
		return badRequest(c, msg)
	}

	if err := cc.ledger.UpdateClass(class); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(class)
}

// HandleClassDelete removes a class. Refused while vehicles still occupy its
// slots.
func (cc *ClassController) HandleClassDelete(c *fiber.Ctx) error {
	class, err := cc.ledger.GetClass(c.Params("code"))
	if err != nil {
		if errors.Is(err, repository.ErrUnknownClass) || errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "class not found")
		}
		return respondServiceError(c, err)
	}
	if class.SlotsUsed > 0 {
		return badRequest(c, "class still has parked vehicles and cannot be deleted")
	}

	if err := cc.ledger.DeleteClass(class.Code); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "class deleted"})
}

// checkClass enforces the class invariants beyond struct tags.
func (cc *ClassController) checkClass(class *models.ParkingClass) string {
	if err := class.Validate(); err != nil {
		return validationMessage(err)
	}
	if class.SlotsUsed > class.SlotsReserved {
		return "slots_used cannot exceed slots_reserved"
	}
	if class.Status == models.CLASS_ACTIVE && class.RenewalType == "" {
		return "active classes require a renewal_type"
	}
	if class.Status == models.CLASS_ACTIVE && class.RenewalCharge < 0 {
		return "renewal_charge cannot be negative"
	}
	return ""
}

var classController *ClassController

// InitializeClassController initializes the global class controller
func InitializeClassController() {
	classController = NewClassController(repository.GetGlobalFactory().GetLedgerRepository())
}

// GetClassController returns the global class controller instance
func GetClassController() *ClassController {
	if classController == nil {
		panic("class controller not initialized")
	}
	return classController
}
