package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"

	"github.com/ticketless-io/ticketless/app/repository"
	"github.com/ticketless-io/ticketless/internal/pkg/barrier"
	"github.com/ticketless-io/ticketless/internal/pkg/cache"
	"github.com/ticketless-io/ticketless/internal/pkg/database"
	"github.com/ticketless-io/ticketless/internal/pkg/devicehub"
	"github.com/ticketless-io/ticketless/internal/pkg/env"
	"github.com/ticketless-io/ticketless/internal/pkg/metrics/counter"
	"github.com/ticketless-io/ticketless/internal/pkg/parking"
	"github.com/ticketless-io/ticketless/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalFactory().GetRepositories()

	// Device connectivity: hub directory, offline queues, stale sweep. A
	// fresh process starts with an empty directory so handles from a
	// previous run never shadow new registrations.
	hub := devicehub.NewHub(repos.Booth, devicehub.NewRedisQueue(cache.GetClient()))
	hub.ClearAll()
	hub.StartSweeper()

	driver := barrier.NewDriver(barrier.Config{
		Username: env.GetEnv("BARRIER_USER", "admin"),
		Password: env.GetEnv("BARRIER_PASSWORD", ""),
	})

	svc := parking.NewService(repos.Vehicle, repos.Ledger, repos.Booth, repos.History, hub, driver)

	// Booth throughput counters accumulate in Redis and flush in batches.
	flusher := cron.New()
	flusher.AddFunc("@every 1m", func() {
		if err := counter.FlushAll(); err != nil {
			log.Printf("booth counter flush failed: %v", err)
		}
	})
	flusher.Start()

	app := fiber.New(fiber.Config{
		AppName: "ticketless",
	})

	app.Use(recover.New(), logger.New())

	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	router.InstallRouter(app, svc, hub, driver)

	return app
}
