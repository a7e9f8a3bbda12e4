package parking

import (
	"context"
	"time"

	"github.com/ticketless-io/ticketless/app/models"
)

// MaxWaitingDuration is how long (seconds) a booth barrier waits for the
// vehicle to pass before the display falls back to its idle screen.
const MaxWaitingDuration = 30

const (
	BarrierOpen   = "open"
	BarrierClosed = "closed"
)

// Notifier delivers screen events to a booth device. Implementations are
// best-effort: a false return means the booth, device or live connection was
// missing, and must never abort the admission/settlement decision.
type Notifier interface {
	Notify(boothCode, role, event string, payload interface{}) bool
}

// BarrierDriver issues the physical open/close command sequence to the
// barrier actuator at the given address.
type BarrierDriver interface {
	Pulse(ctx context.Context, ipAddress string) error
}

// EntryRequest is an admission attempt from a camera or keypad. The plate is
// not validated here; the engine answers a missing plate with its own
// rejection so the booth display gets the proper screen.
type EntryRequest struct {
	VehicleNo   string     `json:"vehicle_no"`
	BoothCode   string     `json:"booth_code" validate:"required"`
	VehicleType string     `json:"vehicle_type"`
	EntryTime   *time.Time `json:"entry_time"`
}

// EntryResult is the admission outcome shown on the booth display.
type EntryResult struct {
	ScreenMessageType  string    `json:"screen_message_type"`
	ScreenTitle        string    `json:"screen_title"`
	ScreenMessage      string    `json:"screen_message"`
	BarrierStatus      string    `json:"barrier_status"`
	MaxWaitingDuration int       `json:"max_waiting_duration"`
	EntryTime          time.Time `json:"entry_time"`
	ClassCode          string    `json:"class_code"`
}

// ExitRequest is a settlement attempt at an exit booth.
type ExitRequest struct {
	VehicleNo string `json:"vehicle_no"`
	BoothCode string `json:"booth_code" validate:"required"`
	IsPaid    bool   `json:"is_paid"`
}

// ExitResult is the settled outcome of a completed exit.
type ExitResult struct {
	ScreenMessageType    string                 `json:"screen_message_type"`
	ScreenTitle          string                 `json:"screen_title"`
	ScreenMessage        string                 `json:"screen_message"`
	BarrierStatus        string                 `json:"barrier_status"`
	ExitTime             time.Time              `json:"exit_time"`
	TotalParkingDuration int64                  `json:"total_parking_duration"`
	Tariff               models.TariffBreakdown `json:"tariff"`
	ClassCode            string                 `json:"class_code"`
}

// RegisterRequest registers a vehicle under a subscription class, or promotes
// an existing public record.
type RegisterRequest struct {
	VehicleNo      string `json:"vehicle_no" validate:"required"`
	VehicleType    string `json:"vehicle_type" validate:"required"`
	OwnerFirstName string `json:"owner_first_name" validate:"required"`
	OwnerLastName  string `json:"owner_last_name" validate:"required"`
	ClassCode      string `json:"class_code" validate:"required"`
}

// Registration is the outcome of a successful vehicle registration.
type Registration struct {
	RegistrationID uint       `json:"registration_id"`
	VehicleNo      string     `json:"vehicle_no"`
	VehicleType    string     `json:"vehicle_type"`
	OwnerFirstName string     `json:"owner_first_name"`
	OwnerLastName  string     `json:"owner_last_name"`
	ClassCode      string     `json:"class_code"`
	RenewalType    string     `json:"renewal_type"`
	RenewalCharge  float64    `json:"renewal_charge"`
	EndingDate     *time.Time `json:"ending_date"`
	Promoted       bool       `json:"promoted"`
}
