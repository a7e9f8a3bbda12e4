package main

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/ticketless-io/ticketless/app/models"
	"github.com/ticketless-io/ticketless/app/repository"
	"github.com/ticketless-io/ticketless/internal/pkg/database"
	"github.com/ticketless-io/ticketless/internal/pkg/env"
)

// Seeds the ledger singleton, a starter class, the default booths with their
// devices, and the initial admin account. Safe to re-run; existing rows are
// left alone.
func main() {
	env.SetupEnvFile()
	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalFactory().GetRepositories()

	seedLedger(repos.Ledger)
	seedClasses(repos.Ledger)
	seedBooths(repos.Booth)
	seedAdmin(repos.User)

	log.Println("seed complete")
}

func seedLedger(ledgerRepo repository.LedgerRepository) {
	if _, err := ledgerRepo.Get(); err == nil {
		log.Println("ledger already present, skipping")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("ledger lookup: %v", err)
	}

	ledger := &models.GlobalLedger{
		TotalParkingSlots: 300,
		AvailableSlots:    300,
		PublicTotal:       100,
		PublicAvailable:   100,
		Pricing:           models.DefaultPricingTable(),
	}
	if err := ledgerRepo.Save(ledger); err != nil {
		log.Fatalf("ledger seed: %v", err)
	}
	log.Println("seeded ledger")
}

func seedClasses(ledgerRepo repository.LedgerRepository) {
	now := time.Now()
	start, end := models.RenewalWindow(models.RENEWAL_MONTHLY, now)

	classes := []models.ParkingClass{
		{
			Code:          "google-llc-21",
			Name:          "Google LLC",
			SlotsReserved: 100,
			Status:        models.CLASS_ACTIVE,
			RenewalType:   models.RENEWAL_MONTHLY,
			RenewalCharge: 2000,
			StartingDate:  &start,
			EndingDate:    &end,
		},
		{
			Code:          "acme-co-7",
			Name:          "Acme Co",
			SlotsReserved: 50,
			Status:        models.CLASS_ACTIVE,
			RenewalType:   models.RENEWAL_YEARLY,
			RenewalCharge: 18000,
			StartingDate:  &start,
			EndingDate:    &end,
		},
	}

	for i := range classes {
		if _, err := ledgerRepo.GetClass(classes[i].Code); err == nil {
			continue
		}
		if err := ledgerRepo.CreateClass(&classes[i]); err != nil {
			log.Fatalf("class seed %s: %v", classes[i].Code, err)
		}
		log.Printf("seeded class %s", classes[i].Code)
	}
}

func seedBooths(boothRepo repository.BoothRepository) {
	booths := []models.Booth{
		{
			BoothCode:   "B001",
			Location:    "North gate",
			Description: "Main entry gate",
			BoothType:   models.BOOTH_ENTRY,
			Status:      models.BOOTH_ACTIVE,
			Devices: []models.BoothDevice{
				{DeviceID: "D001", DeviceType: models.DEVICE_CAMERA, IPAddress: "192.168.1.108"},
				{DeviceID: "D002", DeviceType: models.DEVICE_DISPLAY},
				{DeviceID: "D003", DeviceType: models.DEVICE_BARRIER, IPAddress: "192.168.1.250"},
			},
		},
		{
			BoothCode:   "B002",
			Location:    "South gate",
			Description: "Main exit gate",
			BoothType:   models.BOOTH_EXIT,
			Status:      models.BOOTH_ACTIVE,
			Devices: []models.BoothDevice{
				{DeviceID: "D004", DeviceType: models.DEVICE_CAMERA, IPAddress: "192.168.1.109"},
				{DeviceID: "D005", DeviceType: models.DEVICE_DISPLAY},
				{DeviceID: "D006", DeviceType: models.DEVICE_BARRIER, IPAddress: "192.168.1.251"},
			},
		},
	}

	for i := range booths {
		if _, err := boothRepo.GetByCode(booths[i].BoothCode); err == nil {
			continue
		}
		if err := boothRepo.Create(&booths[i]); err != nil {
			log.Fatalf("booth seed %s: %v", booths[i].BoothCode, err)
		}
		log.Printf("seeded booth %s", booths[i].BoothCode)
	}
}

func seedAdmin(userRepo repository.UserRepository) {
	count, err := userRepo.Count()
	if err != nil {
		log.Fatalf("user count: %v", err)
	}
	if count > 0 {
		log.Println("users already present, skipping admin seed")
		return
	}

	admin, err := models.CreateUser(
		"Administrator",
		env.GetEnv("ADMIN_EMAIL", "admin@ticketless.local"),
		env.GetEnv("ADMIN_PASSWORD", "admin@12345"),
		models.ROLE_ADMIN,
	)
	if err != nil {
		log.Fatalf("admin build: %v", err)
	}
	if err := userRepo.Create(admin); err != nil {
		log.Fatalf("admin seed: %v", err)
	}
	log.Printf("seeded admin %s", admin.Email)
}
