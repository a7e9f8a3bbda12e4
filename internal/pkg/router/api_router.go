package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ticketless-io/ticketless/app/controllers"
	"github.com/ticketless-io/ticketless/internal/pkg/barrier"
	"github.com/ticketless-io/ticketless/internal/pkg/constants"
	"github.com/ticketless-io/ticketless/internal/pkg/devicehub"
	"github.com/ticketless-io/ticketless/internal/pkg/middleware"
	"github.com/ticketless-io/ticketless/internal/pkg/parking"
)

type ApiRouter struct {
	svc     *parking.Service
	hub     *devicehub.Hub
	barrier *barrier.Driver
}

func NewApiRouter(svc *parking.Service, hub *devicehub.Hub, driver *barrier.Driver) *ApiRouter {
	return &ApiRouter{svc: svc, hub: hub, barrier: driver}
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	controllers.InitializeParkingController(h.svc)
	controllers.InitializeBoothController(h.hub, h.barrier)
	controllers.InitializeClassController()
	controllers.InitializeGlobalController()
	controllers.InitializeAuthController()
	controllers.InitializeCameraController(h.svc)

	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{Max: 300}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "ticketless api",
		})
	})

	auth := controllers.GetAuthController()
	api.Post("/auth/login", auth.HandleLogin)
	api.Post("/auth/register", middleware.OptionalAuth, auth.HandleUserRegister)

	pc := controllers.GetParkingController()
	booth := api.Group("/", middleware.RequireAuth)
	booth.Post(constants.ParkingInRoute, pc.HandleEntryValidate)
	booth.Post(constants.ParkingOutRoute, pc.HandleExitValidate)
	booth.Post(constants.ParkingRegisterRoute, pc.HandleRegister)
	booth.Get("/parking/vehicles", pc.HandleVehicleList)
	booth.Get("/parking/history", pc.HandleHistory)

	// The camera push endpoints are device-facing; like the original they
	// sit outside token auth since the cameras cannot negotiate JWTs.
	camera := controllers.GetCameraController()
	api.Post("/notification/tollgate", camera.HandleTollgateInfo)
	api.Post("/notification/device", camera.HandleDeviceInfo)
	api.Post("/notification/keepalive", camera.HandleKeepAlive)

	admin := api.Group("/", middleware.RequireAuth, middleware.RequireAdmin)
	admin.Put("/parking/vehicles/:id", pc.HandleVehicleUpdate)
	admin.Delete("/parking/vehicles/:id", pc.HandleVehicleDelete)

	bc := controllers.GetBoothController()
	admin.Get("/booths", bc.HandleBoothList)
	admin.Get("/booths/:code", bc.HandleBoothGet)
	admin.Post("/booths", bc.HandleBoothCreate)
	admin.Put("/booths/:code", bc.HandleBoothUpdate)
	admin.Post("/booths/:code/devices", bc.HandleDeviceAdd)
	admin.Put("/booths/devices/:device_id", bc.HandleDeviceUpdate)
	admin.Post("/booths/:code/test-message", bc.HandleTestMessage)
	admin.Post("/booths/:code/barrier/close", bc.HandleBarrierClose)

	cc := controllers.GetClassController()
	admin.Get("/ledger/classes", cc.HandleClassList)
	admin.Post("/ledger/classes", cc.HandleClassCreate)
	admin.Put("/ledger/classes/:code", cc.HandleClassUpdate)
	admin.Delete("/ledger/classes/:code", cc.HandleClassDelete)

	gc := controllers.GetGlobalController()
	admin.Get("/ledger", gc.HandleLedgerGet)
	admin.Put("/ledger", gc.HandleLedgerUpdate)
}
