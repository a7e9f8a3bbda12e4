package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ticketless-io/ticketless/app/models"
	"github.com/ticketless-io/ticketless/app/repository"
	"github.com/ticketless-io/ticketless/internal/pkg/barrier"
	"github.com/ticketless-io/ticketless/internal/pkg/cache"
	"github.com/ticketless-io/ticketless/internal/pkg/devicehub"
)

// BoothController manages the booth directory and its attached devices.
type BoothController struct {
	booths  repository.BoothRepository
	hub     *devicehub.Hub
	barrier *barrier.Driver
}

// NewBoothController creates a new booth controller
func NewBoothController(booths repository.BoothRepository, hub *devicehub.Hub, driver *barrier.Driver) *BoothController {
	return &BoothController{booths: booths, hub: hub, barrier: driver}
}

// HandleBoothList returns every booth with its devices.
func (bc *BoothController) HandleBoothList(c *fiber.Ctx) error {
	booths, err := bc.booths.List()
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"booths": booths})
}

// deviceStatus is a device row with its live connection state and the last
// heartbeat the cameras pushed.
type deviceStatus struct {
	models.BoothDevice
	Online   bool   `json:"online"`
	LastSeen string `json:"last_seen,omitempty"`
}

// HandleBoothGet returns a single booth by code, with per-device health.
func (bc *BoothController) HandleBoothGet(c *fiber.Ctx) error {
	booth, err := bc.booths.GetByCode(c.Params("code"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "booth not found")
		}
		return respondServiceError(c, err)
	}

	devices := make([]deviceStatus, 0, len(booth.Devices))
	for i := range booth.Devices {
		status := deviceStatus{
			BoothDevice: booth.Devices[i],
			Online:      bc.hub.Connected(booth.Devices[i].DeviceID),
		}
		if seen, err := cache.Get(deviceSeenKey(booth.Devices[i].DeviceID)); err == nil {
			status.LastSeen = seen
		}
		devices = append(devices, status)
	}
	return c.JSON(fiber.Map{"booth": booth, "devices": devices})
}

// HandleBoothCreate creates a booth with its initial devices.
func (bc *BoothController) HandleBoothCreate(c *fiber.Ctx) error {
	var booth models.Booth
	if err := c.BodyParser(&booth); err != nil {
		return badRequest(c, "malformed request body")
	}
	if err := booth.Validate(); err != nil {
		return badRequest(c, validationMessage(err))
	}

	if err := bc.booths.Create(&booth); err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(booth)
}

// HandleBoothUpdate updates booth fields and its device associations.
func (bc *BoothController) HandleBoothUpdate(c *fiber.Ctx) error {
	existing, err := bc.booths.GetByCode(c.Params("code"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "booth not found")
		}
		return respondServiceError(c, err)
	}

	var patch models.Booth
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "malformed request body")
	}

	if patch.Location != "" {
		existing.Location = patch.Location
	}
	if patch.Description != "" {
		existing.Description = patch.Description
	}
	if patch.BoothType != "" {
		existing.BoothType = patch.BoothType
	}
	if patch.Status != "" {
		existing.Status = patch.Status
	}
	if err := existing.Validate(); err != nil {
		return badRequest(c, validationMessage(err))
	}

	if err := bc.booths.Update(existing); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(existing)
}

// HandleDeviceAdd attaches a device to a booth.
func (bc *BoothController) HandleDeviceAdd(c *fiber.Ctx) error {
	booth, err := bc.booths.GetByCode(c.Params("code"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "booth not found")
		}
		return respondServiceError(c, err)
	}

	var device models.BoothDevice
	if err := c.BodyParser(&device); err != nil {
		return badRequest(c, "malformed request body")
	}
	if err := device.Validate(); err != nil {
		return badRequest(c, validationMessage(err))
	}

	if err := bc.booths.AddDevice(booth.ID, &device); err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(device)
}

// HandleDeviceUpdate updates a device record.
func (bc *BoothController) HandleDeviceUpdate(c *fiber.Ctx) error {
	device, err := bc.booths.GetDevice(c.Params("device_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "device not found")
		}
		return respondServiceError(c, err)
	}

	var patch models.BoothDevice
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "malformed request body")
	}
	if patch.DeviceID != "" && patch.DeviceID != device.DeviceID {
		// The old id's heartbeat is meaningless once the hardware is swapped.
		if err := cache.Delete(deviceSeenKey(device.DeviceID)); err != nil {
			log.Warnf("heartbeat cleanup for %s: %v", device.DeviceID, err)
		}
		device.DeviceID = patch.DeviceID
	}
	if patch.DeviceType != "" {
		device.DeviceType = patch.DeviceType
	}
	if patch.IPAddress != "" {
		device.IPAddress = patch.IPAddress
	}
	if err := device.Validate(); err != nil {
		return badRequest(c, validationMessage(err))
	}

	if err := bc.booths.UpdateDevice(device); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(device)
}

type testMessageRequest struct {
	Role    string `json:"role" validate:"required,oneof=display camera barrier"`
	Event   string `json:"event"`
	Message string `json:"message"`
}

// HandleTestMessage pushes a test frame to a booth device so installers can
// verify the screen wiring end to end.
func (bc *BoothController) HandleTestMessage(c *fiber.Ctx) error {
	var req testMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, validationMessage(err))
	}
	if req.Event == "" {
		req.Event = "test"
	}

	delivered := bc.hub.Notify(c.Params("code"), req.Role, req.Event, fiber.Map{
		"screen_message_type": "info",
		"screen_title":        "Test Message",
		"screen_message":      req.Message,
	})
	return c.JSON(fiber.Map{"delivered": delivered})
}

// HandleBarrierClose forces a booth barrier down, for the maintenance surface.
func (bc *BoothController) HandleBarrierClose(c *fiber.Ctx) error {
	booth, err := bc.booths.GetByCode(c.Params("code"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "booth not found")
		}
		return respondServiceError(c, err)
	}

	device := booth.DeviceByRole(models.DEVICE_BARRIER)
	if device == nil || device.IPAddress == "" {
		return badRequest(c, "booth has no barrier actuator configured")
	}

	if err := bc.barrier.Close(c.Context(), device.IPAddress); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "barrier closed"})
}

var boothController *BoothController

// InitializeBoothController initializes the global booth controller
func InitializeBoothController(hub *devicehub.Hub, driver *barrier.Driver) {
	boothController = NewBoothController(repository.GetGlobalFactory().GetBoothRepository(), hub, driver)
}

// GetBoothController returns the global booth controller instance
func GetBoothController() *BoothController {
	if boothController == nil {
		panic("booth controller not initialized")
	}
	return boothController
}
