package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ticketless-io/ticketless/internal/pkg/constants"
	"github.com/ticketless-io/ticketless/internal/pkg/devicehub"
)

// SocketRouter installs the device websocket endpoint.
type SocketRouter struct {
	hub *devicehub.Hub
}

func NewSocketRouter(hub *devicehub.Hub) *SocketRouter {
	return &SocketRouter{hub: hub}
}

func (h *SocketRouter) InstallRouter(app *fiber.App) {
	app.Use(constants.DeviceSocketRoute, devicehub.UpgradeRequired)
	app.Get(constants.DeviceSocketRoute, h.hub.Handler())
}
