package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ticketless-io/ticketless/app/models"
	"github.com/ticketless-io/ticketless/app/repository"
	"github.com/ticketless-io/ticketless/internal/pkg/metrics/counter"
	"github.com/ticketless-io/ticketless/internal/pkg/parking"
)

// ParkingController handles the booth-facing validation endpoints and the
// vehicle/history management endpoints.
type ParkingController struct {
	svc      *parking.Service
	vehicles repository.VehicleRepository
	booths   repository.BoothRepository
	history  repository.HistoryRepository
}

// NewParkingController creates a new parking controller
func NewParkingController(
	svc *parking.Service,
	vehicles repository.VehicleRepository,
	booths repository.BoothRepository,
	history repository.HistoryRepository,
) *ParkingController {
	return &ParkingController{
		svc:      svc,
		vehicles: vehicles,
		booths:   booths,
		history:  history,
	}
}

// HandleEntryValidate processes an admission attempt from an entry booth.
func (pc *ParkingController) HandleEntryValidate(c *fiber.Ctx) error {
	var req parking.EntryRequest
	if err := c.BodyParser(&req); err != nil {
		return rejectInvalid(c, "malformed request body")
	}
	if err := validate.Struct(req); err != nil {
		return rejectInvalid(c, validationMessage(err))
	}

	result, err := pc.svc.ValidateEntry(c.Context(), req)
	if err != nil {
		return respondServiceError(c, err)
	}

	pc.bumpCounter(req.BoothCode, counter.AddBoothEntry)
	return c.Status(fiber.StatusOK).JSON(result)
}

// HandleExitValidate processes a settlement attempt from an exit booth.
func (pc *ParkingController) HandleExitValidate(c *fiber.Ctx) error {
	var req parking.ExitRequest
	if err := c.BodyParser(&req); err != nil {
		return rejectInvalid(c, "malformed request body")
	}
	if err := validate.Struct(req); err != nil {
		return rejectInvalid(c, validationMessage(err))
	}

	result, err := pc.svc.ValidateExit(c.Context(), req)
	if err != nil {
		return respondServiceError(c, err)
	}

	pc.bumpCounter(req.BoothCode, counter.AddBoothExit)
	return c.Status(fiber.StatusOK).JSON(result)
}

// HandleRegister registers a vehicle under a parking class.
func (pc *ParkingController) HandleRegister(c *fiber.Ctx) error {
	var req parking.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return rejectInvalid(c, "malformed request body")
	}
	if err := validate.Struct(req); err != nil {
		return rejectInvalid(c, validationMessage(err))
	}

	reg, err := pc.svc.Register(c.Context(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reg)
}

// HandleVehicleList returns registered vehicles with plate search and
// pagination.
func (pc *ParkingController) HandleVehicleList(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	search := c.Query("search")

	vehicles, total, err := pc.vehicles.List(search, offset, limit)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"vehicles": vehicles,
		"total":    total,
		"offset":   offset,
		"limit":    limit,
	})
}

type vehicleUpdateRequest struct {
	VehicleType    string `json:"vehicle_type"`
	OwnerFirstName string `json:"owner_first_name"`
	OwnerLastName  string `json:"owner_last_name"`
	IsBlacklisted  *bool  `json:"is_blacklisted"`
}

// HandleVehicleUpdate updates the mutable fields of a vehicle record,
// including the blacklist flag.
func (pc *ParkingController) HandleVehicleUpdate(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid vehicle id")
	}

	vehicle, err := pc.vehicles.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "vehicle not found")
		}
		return respondServiceError(c, err)
	}

	var req vehicleUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}

	if req.VehicleType != "" {
		vehicle.VehicleType = req.VehicleType
	}
	if req.OwnerFirstName != "" {
		vehicle.OwnerFirstName = req.OwnerFirstName
	}
	if req.OwnerLastName != "" {
		vehicle.OwnerLastName = req.OwnerLastName
	}
	if req.IsBlacklisted != nil {
		vehicle.IsBlacklisted = *req.IsBlacklisted
	}

	if err := pc.vehicles.Update(vehicle); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(vehicle)
}

// HandleVehicleDelete removes a vehicle registration. Parked vehicles cannot
// be deleted; their slot accounting would be orphaned.
func (pc *ParkingController) HandleVehicleDelete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid vehicle id")
	}

	vehicle, err := pc.vehicles.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "vehicle not found")
		}
		return respondServiceError(c, err)
	}
	if vehicle.IsParked() {
		return badRequest(c, "vehicle is currently parked and cannot be deleted")
	}

	if err := pc.vehicles.Delete(id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "vehicle deleted"})
}

// historyRecord is a settled session with its tariff breakdown attached.
type historyRecord struct {
	models.ParkingHistory
	Tariff models.TariffBreakdown `json:"tariff"`
}

// HandleHistory returns settled parking sessions with date range, plate
// search, sorting and pagination.
func (pc *ParkingController) HandleHistory(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)

	filter := repository.HistoryFilter{
		Search:  c.Query("search"),
		SortAsc: c.Query("sort") == "asc",
		Offset:  offset,
		Limit:   limit,
	}
	if from := c.Query("from_date"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return badRequest(c, "from_date must be RFC3339")
		}
		filter.FromDate = &t
	}
	if to := c.Query("to_date"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return badRequest(c, "to_date must be RFC3339")
		}
		filter.ToDate = &t
	}

	records, total, err := pc.history.List(filter)
	if err != nil {
		return respondServiceError(c, err)
	}
	items := make([]historyRecord, 0, len(records))
	for i := range records {
		items = append(items, historyRecord{
			ParkingHistory: records[i],
			Tariff:         records[i].Tariff(),
		})
	}
	return c.JSON(fiber.Map{
		"history": items,
		"total":   total,
		"offset":  offset,
		"limit":   limit,
	})
}

// bumpCounter increments the booth throughput counter without letting a
// metrics failure affect the response.
func (pc *ParkingController) bumpCounter(boothCode string, add func(uint) error) {
	booth, err := pc.booths.GetByCode(boothCode)
	if err != nil {
		return
	}
	if err := add(booth.ID); err != nil {
		log.Warnf("booth counter increment for %s: %v", boothCode, err)
	}
}

var parkingController *ParkingController

// InitializeParkingController initializes the global parking controller
func InitializeParkingController(svc *parking.Service) {
	factory := repository.GetGlobalFactory()
	parkingController = NewParkingController(
		svc,
		factory.GetVehicleRepository(),
		factory.GetBoothRepository(),
		factory.GetHistoryRepository(),
	)
}

// GetParkingController returns the global parking controller instance
func GetParkingController() *ParkingController {
	if parkingController == nil {
		panic("parking controller not initialized")
	}
	return parkingController
}
