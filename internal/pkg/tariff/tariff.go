package tariff

import (
	"errors"
	"fmt"
	"time"

	"github.com/ticketless-io/ticketless/app/models"
)

// ErrNoPricingConfig signals that the pricing table has no entry for the
// requested vehicle type. Callers must resolve a fallback type before calling.
var ErrNoPricingConfig = errors.New("no pricing configuration for vehicle type")

// Breakdown is the computed charge for one parking session.
type Breakdown struct {
	DurationSeconds int64
	DurationMinutes int64
	TotalAmount     float64
	AmountPayable   float64
}

// Compute derives the parking charge for a session. The first hour is a flat
// charge per vehicle type; time beyond it is billed in ceiled intervals.
// alreadyPaid zeroes the payable amount without touching the total.
//
// Compute has no side effects; identical inputs always yield identical output.
func Compute(entry, exit time.Time, vehicleType string, table models.PricingTable, alreadyPaid bool) (Breakdown, error) {
	firstHour, ok := table.FirstHour[vehicleType]
	if !ok {
		return Breakdown{}, fmt.Errorf("%w %q", ErrNoPricingConfig, vehicleType)
	}
	charge, ok := table.Additional[vehicleType]
	if !ok || charge.IntervalMinutes <= 0 {
		return Breakdown{}, fmt.Errorf("%w %q", ErrNoPricingConfig, vehicleType)
	}

	seconds := int64(exit.Sub(entry) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	minutes := ceilDiv(seconds, 60)

	total := firstHour
	if minutes > 60 {
		additionalMinutes := minutes - 60
		intervals := ceilDiv(additionalMinutes, int64(charge.IntervalMinutes))
		total = firstHour + float64(intervals)*charge.AmountPerInterval
	}

	payable := total
	if alreadyPaid {
		payable = 0
	}

	return Breakdown{
		DurationSeconds: seconds,
		DurationMinutes: minutes,
		TotalAmount:     total,
		AmountPayable:   payable,
	}, nil
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
