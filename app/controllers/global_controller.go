package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ticketless-io/ticketless/app/repository"
)

// GlobalController exposes the capacity ledger snapshot.
type GlobalController struct {
	ledger repository.LedgerRepository
}

// NewGlobalController creates a new global ledger controller
func NewGlobalController(ledger repository.LedgerRepository) *GlobalController {
	return &GlobalController{ledger: ledger}
}

// HandleLedgerGet returns the full ledger with the public pool and the class
// breakdown.
func (gc *GlobalController) HandleLedgerGet(c *fiber.Ctx) error {
	ledger, err := gc.ledger.Get()
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"ledger":       ledger,
		"public_slots": ledger.Public(),
	})
}

type ledgerUpdateRequest struct {
	TotalParkingSlots *int `json:"total_parking_slots"`
	PublicTotal       *int `json:"public_total"`
}

// HandleLedgerUpdate resizes the facility. Occupancy counters are not
// writable here; shrinking below the current occupancy is refused.
func (gc *GlobalController) HandleLedgerUpdate(c *fiber.Ctx) error {
	ledger, err := gc.ledger.Get()
	if err != nil {
		return respondServiceError(c, err)
	}

	var req ledgerUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}

	if req.TotalParkingSlots != nil {
		if *req.TotalParkingSlots < ledger.OccupiedSlots {
			return badRequest(c, "total_parking_slots cannot be below current occupancy")
		}
		ledger.TotalParkingSlots = *req.TotalParkingSlots
	}
	if req.PublicTotal != nil {
		if *req.PublicTotal < ledger.PublicOccupied {
			return badRequest(c, "public_total cannot be below current public occupancy")
		}
		ledger.PublicTotal = *req.PublicTotal
	}
	ledger.AvailableSlots = ledger.TotalParkingSlots - ledger.OccupiedSlots
	ledger.PublicAvailable = ledger.PublicTotal - ledger.PublicOccupied

	if err := gc.ledger.Save(ledger); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"ledger":       ledger,
		"public_slots": ledger.Public(),
	})
}

var globalController *GlobalController

// InitializeGlobalController initializes the global ledger controller
func InitializeGlobalController() {
	globalController = NewGlobalController(repository.GetGlobalFactory().GetLedgerRepository())
}

// GetGlobalController returns the global ledger controller instance
func GetGlobalController() *GlobalController {
	if globalController == nil {
		panic("global controller not initialized")
	}
	return globalController
}
