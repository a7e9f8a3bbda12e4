package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ticketless-io/ticketless/app/models"
	"github.com/ticketless-io/ticketless/app/repository"
	"github.com/ticketless-io/ticketless/internal/pkg/cache"
	"github.com/ticketless-io/ticketless/internal/pkg/metrics/counter"
	"github.com/ticketless-io/ticketless/internal/pkg/parking"
)

// deviceSeenTTL is how long a heartbeat counts as recent.
const deviceSeenTTL = 10 * time.Minute

func deviceSeenKey(deviceID string) string {
	return "device:lastseen:" + deviceID
}

// markDeviceSeen records the heartbeat timestamp for a device. Best effort; a
// cache failure only costs the health display.
func markDeviceSeen(deviceID string) {
	if deviceID == "" {
		return
	}
	if err := cache.Set(deviceSeenKey(deviceID), time.Now().Format(time.RFC3339), deviceSeenTTL); err != nil {
		log.Warnf("device heartbeat for %s: %v", deviceID, err)
	}
}

// CameraController ingests ANPR snapshots pushed by the tollgate cameras and
// feeds them into entry or exit validation depending on which booth the
// camera belongs to.
type CameraController struct {
	svc    *parking.Service
	booths repository.BoothRepository
}

// NewCameraController creates a new camera controller
func NewCameraController(svc *parking.Service, booths repository.BoothRepository) *CameraController {
	return &CameraController{svc: svc, booths: booths}
}

// tollgateInfo mirrors the snapshot payload the cameras push.
type tollgateInfo struct {
	DeviceID string `json:"device_id"`
	Picture  struct {
		Plate struct {
			PlateNumber string `json:"PlateNumber"`
		} `json:"Plate"`
		Vehicle struct {
			VehicleType string `json:"VehicleType"`
		} `json:"Vehicle"`
	} `json:"Picture"`
}

// HandleTollgateInfo resolves the pushing camera to its booth and runs the
// matching validation.
func (cc *CameraController) HandleTollgateInfo(c *fiber.Ctx) error {
	var info tollgateInfo
	if err := c.BodyParser(&info); err != nil {
		return badRequest(c, "malformed request body")
	}
	if info.DeviceID == "" {
		info.DeviceID = c.Query("device_id")
	}
	if info.DeviceID == "" {
		return badRequest(c, "device_id is required")
	}
	if info.Picture.Plate.PlateNumber == "" {
		return badRequest(c, "snapshot carries no plate number")
	}

	device, err := cc.booths.GetDevice(info.DeviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "unknown camera device")
		}
		return respondServiceError(c, err)
	}
	booth, err := cc.booths.GetByID(device.BoothID)
	if err != nil {
		return respondServiceError(c, err)
	}

	markDeviceSeen(info.DeviceID)

	plate := info.Picture.Plate.PlateNumber
	vehicleType := anprVehicleType(info.Picture.Vehicle.VehicleType)

	switch booth.BoothType {
	case models.BOOTH_ENTRY:
		result, err := cc.svc.ValidateEntry(c.Context(), parking.EntryRequest{
			VehicleNo:   plate,
			BoothCode:   booth.BoothCode,
			VehicleType: vehicleType,
		})
		if err != nil {
			return respondServiceError(c, err)
		}
		if err := counter.AddBoothEntry(booth.ID); err != nil {
			log.Warnf("booth counter increment for %s: %v", booth.BoothCode, err)
		}
		return c.JSON(result)
	case models.BOOTH_EXIT:
		result, err := cc.svc.ValidateExit(c.Context(), parking.ExitRequest{
			VehicleNo: plate,
			BoothCode: booth.BoothCode,
		})
		if err != nil {
			return respondServiceError(c, err)
		}
		if err := counter.AddBoothExit(booth.ID); err != nil {
			log.Warnf("booth counter increment for %s: %v", booth.BoothCode, err)
		}
		return c.JSON(result)
	default:
		return badRequest(c, "camera booth has no usable booth type")
	}
}

type devicePing struct {
	DeviceID string `json:"device_id"`
}

// HandleDeviceInfo acknowledges device status pushes. The payload itself is
// not acted on; only the heartbeat is recorded.
func (cc *CameraController) HandleDeviceInfo(c *fiber.Ctx) error {
	var ping devicePing
	// Some firmware sends the id in the body, some in the query, some neither.
	_ = c.BodyParser(&ping)
	if ping.DeviceID == "" {
		ping.DeviceID = c.Query("device_id")
	}
	markDeviceSeen(ping.DeviceID)
	return c.JSON(fiber.Map{"message": "data received"})
}

// HandleKeepAlive acknowledges camera keep-alive pings and records the
// heartbeat.
func (cc *CameraController) HandleKeepAlive(c *fiber.Ctx) error {
	var ping devicePing
	// Some firmware sends the id in the body, some in the query, some neither.
	_ = c.BodyParser(&ping)
	if ping.DeviceID == "" {
		ping.DeviceID = c.Query("device_id")
	}
	markDeviceSeen(ping.DeviceID)
	return c.JSON(fiber.Map{"message": "ok"})
}

// anprVehicleType maps the camera's classification onto the tariff type
// codes.
func anprVehicleType(classified string) string {
	switch classified {
	case "Motorcycle":
		return "2"
	case "SUV", "PassengerCar", "Car", "Sedan":
		return "4"
	case "Truck", "Bus", "Van", "Lorry":
		return "6"
	default:
		return "3"
	}
}

var cameraController *CameraController

// InitializeCameraController initializes the global camera controller
func InitializeCameraController(svc *parking.Service) {
	cameraController = NewCameraController(svc, repository.GetGlobalFactory().GetBoothRepository())
}

// GetCameraController returns the global camera controller instance
func GetCameraController() *CameraController {
	if cameraController == nil {
		panic("camera controller not initialized")
	}
	return cameraController
}
