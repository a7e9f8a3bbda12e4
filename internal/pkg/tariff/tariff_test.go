package tariff

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketless-io/ticketless/app/models"
)

func testTable() models.PricingTable {
	return models.DefaultPricingTable()
}

func TestCompute_FirstHourFlat(t *testing.T) {
	t.Parallel()

	entry := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		minutes int
		want    float64
	}{
		{name: "one minute", minutes: 1, want: 40},
		{name: "half hour", minutes: 30, want: 40},
		{name: "exactly sixty", minutes: 60, want: 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(entry, entry.Add(time.Duration(tt.minutes)*time.Minute), "4", testTable(), false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.TotalAmount)
			assert.Equal(t, got.TotalAmount, got.AmountPayable)
		})
	}
}

func TestCompute_AdditionalIntervals(t *testing.T) {
	t.Parallel()

	entry := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	// Car: first hour 40, then 20 per started 30 minutes.
	tests := []struct {
		name    string
		minutes int
		want    float64
	}{
		{name: "75 minutes is one extra interval", minutes: 75, want: 60},
		{name: "61 minutes starts an interval", minutes: 61, want: 60},
		{name: "90 minutes still one interval", minutes: 90, want: 60},
		{name: "91 minutes starts a second interval", minutes: 91, want: 80},
		{name: "three hours", minutes: 180, want: 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(entry, entry.Add(time.Duration(tt.minutes)*time.Minute), "4", testTable(), false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.TotalAmount)
		})
	}
}

func TestCompute_PartialMinuteRoundsUp(t *testing.T) {
	t.Parallel()

	entry := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	// 60m30s rounds to 61 billed minutes and therefore bills an interval.
	got, err := Compute(entry, entry.Add(60*time.Minute+30*time.Second), "4", testTable(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(61), got.DurationMinutes)
	assert.Equal(t, float64(60), got.TotalAmount)
}

func TestCompute_TwoWheelerRates(t *testing.T) {
	t.Parallel()

	entry := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	// Two-wheeler: first hour 20, then 10 per started 15 minutes.
	got, err := Compute(entry, entry.Add(80*time.Minute), "2", testTable(), false)
	require.NoError(t, err)
	assert.Equal(t, float64(40), got.TotalAmount) // 20 + ceil(20/15)=2 * 10
}

func TestCompute_AlreadyPaid(t *testing.T) {
	t.Parallel()

	entry := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	got, err := Compute(entry, entry.Add(75*time.Minute), "4", testTable(), true)
	require.NoError(t, err)
	assert.Equal(t, float64(60), got.TotalAmount)
	assert.Equal(t, float64(0), got.AmountPayable)
}

func TestCompute_UnknownVehicleType(t *testing.T) {
	t.Parallel()

	entry := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := Compute(entry, entry.Add(time.Hour), "9", testTable(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPricingConfig))
}

func TestCompute_ExitBeforeEntryClampsToZero(t *testing.T) {
	t.Parallel()

	entry := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	got, err := Compute(entry, entry.Add(-time.Minute), "4", testTable(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.DurationSeconds)
	assert.Equal(t, float64(40), got.TotalAmount)
}

func TestCompute_Deterministic(t *testing.T) {
	t.Parallel()

	entry := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	exit := entry.Add(147 * time.Minute)

	first, err := Compute(entry, exit, "3", testTable(), false)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Compute(entry, exit, "3", testTable(), false)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
