package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ticketless-io/ticketless/internal/pkg/barrier"
	"github.com/ticketless-io/ticketless/internal/pkg/devicehub"
	"github.com/ticketless-io/ticketless/internal/pkg/parking"
)

// Router installs a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter wires the API and device socket routes. The hub and barrier
// driver are shared between the HTTP surface and the parking service.
func InstallRouter(app *fiber.App, svc *parking.Service, hub *devicehub.Hub, driver *barrier.Driver) {
	setup(app, NewApiRouter(svc, hub, driver), NewSocketRouter(hub))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
