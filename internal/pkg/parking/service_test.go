package parking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketless-io/ticketless/app/models"
	"github.com/ticketless-io/ticketless/app/repository"
)

type harness struct {
	svc      *Service
	vehicles *fakeVehicleRepo
	ledger   *fakeLedgerRepo
	booths   *fakeBoothRepo
	history  *fakeHistoryRepo
	notifier *fakeNotifier
	barrier  *fakeBarrier
	now      time.Time
}

func newHarness(ledger *fakeLedgerRepo) *harness {
	h := &harness{
		vehicles: newFakeVehicleRepo(),
		ledger:   ledger,
		booths:   newFakeBoothRepo(entryBooth(), exitBooth()),
		history:  &fakeHistoryRepo{},
		notifier: &fakeNotifier{},
		barrier:  &fakeBarrier{},
		now:      time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC),
	}
	h.svc = NewService(h.vehicles, h.ledger, h.booths, h.history, h.notifier, h.barrier)
	h.svc.now = func() time.Time { return h.now }
	return h
}

func activeClass(code string, reserved, used int) *models.ParkingClass {
	return &models.ParkingClass{
		Code:          code,
		Name:          code,
		SlotsReserved: reserved,
		SlotsUsed:     used,
		Status:        models.CLASS_ACTIVE,
		RenewalType:   models.RENEWAL_MONTHLY,
		RenewalCharge: 2000,
	}
}

func (h *harness) park(t *testing.T, plate, classCode string, since time.Duration) {
	t.Helper()
	start := h.now.Add(-since)
	v := &models.Vehicle{
		VehicleNo:          plate,
		VehicleType:        "4",
		ClassCode:          classCode,
		Status:             models.VEHICLE_PARKED,
		StartingDate:       &start,
		RegistrationStatus: models.REGISTRATION_ACTIVE,
	}
	require.NoError(t, h.vehicles.Create(v))
}

func asRejection(t *testing.T, err error) *Rejection {
	t.Helper()
	var rej *Rejection
	require.True(t, errors.As(err, &rej), "expected a rejection, got %v", err)
	return rej
}

func TestValidateEntry_ClassVehicleAdmitted(t *testing.T) {
	// Scenario A: active class with free slots admits and bumps the counter.
	h := newHarness(newFakeLedgerRepo(300, activeClass("google-llc-21", 100, 50)))

	v := &models.Vehicle{VehicleNo: "KA01AB1234", VehicleType: "4", ClassCode: "google-llc-21"}
	require.NoError(t, h.vehicles.Create(v))

	res, err := h.svc.ValidateEntry(context.Background(), EntryRequest{
		VehicleNo: "KA01AB1234", BoothCode: "ENTRY-1",
	})
	require.NoError(t, err)

	assert.Equal(t, BarrierOpen, res.BarrierStatus)
	assert.Equal(t, "google-llc-21", res.ClassCode)
	assert.Equal(t, MaxWaitingDuration, res.MaxWaitingDuration)
	assert.Equal(t, 51, h.ledger.classUsed("google-llc-21"))
	assert.True(t, h.ledger.aggregateConsistent())

	parked, err := h.vehicles.GetByPlate("KA01AB1234")
	require.NoError(t, err)
	assert.Equal(t, models.VEHICLE_PARKED, parked.Status)
}

func TestValidateEntry_ClassFull(t *testing.T) {
	// Scenario B: a full class rejects and leaves the counter untouched.
	h := newHarness(newFakeLedgerRepo(300, activeClass("google-llc-21", 100, 100)))

	v := &models.Vehicle{VehicleNo: "KA01AB1234", ClassCode: "google-llc-21"}
	require.NoError(t, h.vehicles.Create(v))

	_, err := h.svc.ValidateEntry(context.Background(), EntryRequest{
		VehicleNo: "KA01AB1234", BoothCode: "ENTRY-1",
	})
	rej := asRejection(t, err)

	assert.Equal(t, "Class Full", rej.Title)
	assert.Equal(t, BarrierClosed, rej.BarrierStatus)
	assert.Equal(t, 100, h.ledger.classUsed("google-llc-21"))
}

func TestValidateEntry_PublicPoolExhausted(t *testing.T) {
	// Scenario C: unregistered vehicle with no public slots left.
	ledger := newFakeLedgerRepo(300)
	for i := 0; i < 300; i++ {
		require.NoError(t, ledger.ReservePublic())
	}
	h := newHarness(ledger)

	_, err := h.svc.ValidateEntry(context.Background(), EntryRequest{
		VehicleNo: "PUBLIC1", BoothCode: "ENTRY-1",
	})
	rej := asRejection(t, err)

	assert.Equal(t, "No Public Slots Available", rej.Title)
	assert.Equal(t, BarrierClosed, rej.BarrierStatus)
}

func TestValidateEntry_UnregisteredVehicleCreated(t *testing.T) {
	h := newHarness(newFakeLedgerRepo(300))

	res, err := h.svc.ValidateEntry(context.Background(), EntryRequest{
		VehicleNo: "NEW123", BoothCode: "ENTRY-1", VehicleType: "2",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ClassPublic, res.ClassCode)

	v, err := h.vehicles.GetByPlate("NEW123")
	require.NoError(t, err)
	assert.Equal(t, models.VEHICLE_PARKED, v.Status)
	assert.Equal(t, "2", v.VehicleType)
	assert.True(t, h.ledger.aggregateConsistent())
}

func TestValidateEntry_Blacklisted(t *testing.T) {
	// Scenario E, entry side.
	h := newHarness(newFakeLedgerRepo(300))
	v := &models.Vehicle{VehicleNo: "BAD001", ClassCode: "public", IsBlacklisted: true}
	require.NoError(t, h.vehicles.Create(v))

	_, err := h.svc.ValidateEntry(context.Background(), EntryRequest{
		VehicleNo: "BAD001", BoothCode: "ENTRY-1",
	})
	rej := asRejection(t, err)
	assert.Equal(t, "Access Denied", rej.Title)
}

func TestValidateEntry_DuplicateEntry(t *testing.T) {
	h := newHarness(newFakeLedgerRepo(300))
	h.park(t, "DUP001", "public", 30*time.Minute)

	_, err := h.svc.ValidateEntry(context.Background(), EntryRequest{
		VehicleNo: "DUP001", BoothCode: "ENTRY-1",
	})
	rej := asRejection(t, err)
	assert.Equal(t, "Duplicate Entry", rej.Title)
}

func TestValidateEntry_BoothChecks(t *testing.T) {
	h := newHarness(newFakeLedgerRepo(300))
	h.booths.Create(&models.Booth{BoothCode: "ENTRY-OFF", BoothType: models.BOOTH_ENTRY, Status: models.BOOTH_INACTIVE})

	tests := []struct {
		name      string
		boothCode string
		wantTitle string
	}{
		{name: "unknown booth", boothCode: "NOPE", wantTitle: "Invalid Booth"},
		{name: "inactive booth", boothCode: "ENTRY-OFF", wantTitle: "Inactive Booth"},
		{name: "exit booth on entry", boothCode: "EXIT-1", wantTitle: "Wrong Booth Type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.ValidateEntry(context.Background(), EntryRequest{
				VehicleNo: "V1", BoothCode: tt.boothCode,
			})
			rej := asRejection(t, err)
			assert.Equal(t, tt.wantTitle, rej.Title)
		})
	}
}

func TestValidateEntry_MissingPlate(t *testing.T) {
	h := newHarness(newFakeLedgerRepo(300))

	_, err := h.svc.ValidateEntry(context.Background(), EntryRequest{BoothCode: "ENTRY-1"})
	rej := asRejection(t, err)
	assert.Equal(t, "Missing Plate", rej.Title)
}

func TestValidateEntry_ConcurrentSamePlate(t *testing.T) {
	// Two concurrent entries for the same plate: exactly one admission.
	h := newHarness(newFakeLedgerRepo(300))
	v := &models.Vehicle{VehicleNo: "RACE01", ClassCode: "public", Status: models.VEHICLE_EXITED}
	require.NoError(t, h.vehicles.Create(v))

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = h.svc.ValidateEntry(context.Background(), EntryRequest{
				VehicleNo: "RACE01", BoothCode: "ENTRY-1",
			})
		}(i)
	}
	wg.Wait()

	var admitted, rejected int
	for _, err := range results {
		if err == nil {
			admitted++
		} else {
			rej := asRejection(t, err)
			assert.Equal(t, "Duplicate Entry", rej.Title)
			rejected++
		}
	}
	assert.Equal(t, 1, admitted)
	assert.Equal(t, 1, rejected)
	assert.True(t, h.ledger.aggregateConsistent())
}

func TestValidateEntry_ConcurrentLastClassSlot(t *testing.T) {
	// One remaining slot, two distinct plates: exactly one success.
	h := newHarness(newFakeLedgerRepo(300, activeClass("acme", 1, 0)))
	for _, plate := range []string{"CAR1", "CAR2"} {
		require.NoError(t, h.vehicles.Create(&models.Vehicle{VehicleNo: plate, ClassCode: "acme"}))
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	plates := []string{"CAR1", "CAR2"}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = h.svc.ValidateEntry(context.Background(), EntryRequest{
				VehicleNo: plates[i], BoothCode: "ENTRY-1",
			})
		}(i)
	}
	wg.Wait()

	var admitted int
	for _, err := range results {
		if err == nil {
			admitted++
		}
	}
	assert.Equal(t, 1, admitted)
	assert.Equal(t, 1, h.ledger.classUsed("acme"))
	assert.True(t, h.ledger.aggregateConsistent())
}

func TestValidateExit_PaymentRequiredThenPaid(t *testing.T) {
	// Scenario D: 75 minutes public parking, car rates.
	h := newHarness(newFakeLedgerRepo(300))
	require.NoError(t, h.ledger.ReservePublic())
	h.park(t, "PAY001", "public", 75*time.Minute)

	_, err := h.svc.ValidateExit(context.Background(), ExitRequest{
		VehicleNo: "PAY001", BoothCode: "EXIT-1", IsPaid: false,
	})
	rej := asRejection(t, err)
	assert.Equal(t, "Payment Required", rej.Title)
	assert.Equal(t, BarrierClosed, rej.BarrierStatus)
	breakdown := rej.Extra["tariff"].(models.TariffBreakdown)
	assert.Equal(t, float64(60), breakdown.TotalAmount)
	assert.Equal(t, float64(60), breakdown.AmountPayable)

	// Nothing was mutated by the rejection.
	v, err := h.vehicles.GetByPlate("PAY001")
	require.NoError(t, err)
	assert.Equal(t, models.VEHICLE_PARKED, v.Status)

	res, err := h.svc.ValidateExit(context.Background(), ExitRequest{
		VehicleNo: "PAY001", BoothCode: "EXIT-1", IsPaid: true,
	})
	require.NoError(t, err)
	assert.Equal(t, BarrierOpen, res.BarrierStatus)
	assert.Equal(t, float64(60), res.Tariff.TotalAmount)
	assert.Equal(t, float64(0), res.Tariff.AmountPayable)
	assert.Equal(t, int64(75*60), res.TotalParkingDuration)
	assert.True(t, h.ledger.aggregateConsistent())

	records, _, _ := h.history.List(repository.HistoryFilter{})
	require.Len(t, records, 1)
	assert.Equal(t, "PAY001", records[0].VehicleNo)
	assert.Equal(t, float64(60), records[0].TotalAmount)
}

func TestValidateExit_ActiveClassIsFree(t *testing.T) {
	h := newHarness(newFakeLedgerRepo(300, activeClass("google-llc-21", 100, 51)))
	h.park(t, "KA01AB1234", "google-llc-21", 3*time.Hour)

	res, err := h.svc.ValidateExit(context.Background(), ExitRequest{
		VehicleNo: "KA01AB1234", BoothCode: "EXIT-1",
	})
	require.NoError(t, err)
	assert.Equal(t, float64(0), res.Tariff.AmountPayable)
	assert.Equal(t, 50, h.ledger.classUsed("google-llc-21"))
	assert.True(t, h.ledger.aggregateConsistent())
}

func TestValidateExit_InactiveClassPays(t *testing.T) {
	class := activeClass("stale-co", 10, 1)
	class.Status = models.CLASS_EXPIRED
	h := newHarness(newFakeLedgerRepo(300, class))
	h.park(t, "OLD001", "stale-co", 30*time.Minute)

	_, err := h.svc.ValidateExit(context.Background(), ExitRequest{
		VehicleNo: "OLD001", BoothCode: "EXIT-1",
	})
	rej := asRejection(t, err)
	assert.Equal(t, "Payment Required", rej.Title)

	res, err := h.svc.ValidateExit(context.Background(), ExitRequest{
		VehicleNo: "OLD001", BoothCode: "EXIT-1", IsPaid: true,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(0), res.Tariff.AmountPayable)
	assert.Equal(t, 0, h.ledger.classUsed("stale-co"))
}

func TestValidateExit_ClassMissingFromLedger(t *testing.T) {
	h := newHarness(newFakeLedgerRepo(300))
	require.NoError(t, h.vehicles.Create(&models.Vehicle{
		VehicleNo: "GHOST1", ClassCode: "deleted-co", Status: models.VEHICLE_PARKED,
	}))

	_, err := h.svc.ValidateExit(context.Background(), ExitRequest{
		VehicleNo: "GHOST1", BoothCode: "EXIT-1",
	})
	assert.Equal(t, "Invalid Class Code", asRejection(t, err).Title)
}

func TestValidateExit_RejectionStates(t *testing.T) {
	h := newHarness(newFakeLedgerRepo(300))

	exited := h.now.Add(-time.Hour)
	require.NoError(t, h.vehicles.Create(&models.Vehicle{
		VehicleNo: "GONE01", ClassCode: "public", Status: models.VEHICLE_EXITED, EndingDate: &exited,
	}))
	require.NoError(t, h.vehicles.Create(&models.Vehicle{
		VehicleNo: "PEND01", ClassCode: "public", Status: models.VEHICLE_PENDING,
	}))
	require.NoError(t, h.vehicles.Create(&models.Vehicle{
		VehicleNo: "BAD002", ClassCode: "public", Status: models.VEHICLE_PARKED, IsBlacklisted: true,
	}))

	tests := []struct {
		name      string
		plate     string
		wantTitle string
	}{
		{name: "unknown vehicle", plate: "NOPE", wantTitle: "Vehicle Not Found"},
		{name: "already exited", plate: "GONE01", wantTitle: "Already Exited"},
		{name: "never parked", plate: "PEND01", wantTitle: "Not Parked"},
		{name: "blacklisted", plate: "BAD002", wantTitle: "Access Denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.ValidateExit(context.Background(), ExitRequest{
				VehicleNo: tt.plate, BoothCode: "EXIT-1",
			})
			rej := asRejection(t, err)
			assert.Equal(t, tt.wantTitle, rej.Title)
			assert.Equal(t, BarrierClosed, rej.BarrierStatus)
		})
	}
}

func TestRoundTrip_PublicEntryThenPaidExit(t *testing.T) {
	h := newHarness(newFakeLedgerRepo(300))

	_, err := h.svc.ValidateEntry(context.Background(), EntryRequest{
		VehicleNo: "TRIP01", BoothCode: "ENTRY-1",
	})
	require.NoError(t, err)

	res, err := h.svc.ValidateExit(context.Background(), ExitRequest{
		VehicleNo: "TRIP01", BoothCode: "EXIT-1", IsPaid: true,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(0), res.Tariff.AmountPayable)
	assert.True(t, h.ledger.aggregateConsistent())

	// The plate may start a new session afterwards.
	_, err = h.svc.ValidateEntry(context.Background(), EntryRequest{
		VehicleNo: "TRIP01", BoothCode: "ENTRY-1",
	})
	require.NoError(t, err)
}

func TestRegister_NewVehicle(t *testing.T) {
	h := newHarness(newFakeLedgerRepo(300, activeClass("acme", 10, 0)))

	reg, err := h.svc.Register(context.Background(), RegisterRequest{
		VehicleNo: "REG001", VehicleType: "4",
		OwnerFirstName: "Asha", OwnerLastName: "Rao", ClassCode: "acme",
	})
	require.NoError(t, err)
	assert.Equal(t, "acme", reg.ClassCode)
	assert.Equal(t, models.RENEWAL_MONTHLY, reg.RenewalType)
	require.NotNil(t, reg.EndingDate)
	assert.Equal(t, h.now.AddDate(0, 1, 0), *reg.EndingDate)
	assert.False(t, reg.Promoted)
}

func TestRegister_UnknownAndInactiveClass(t *testing.T) {
	inactive := activeClass("dormant", 5, 0)
	inactive.Status = models.CLASS_INACTIVE
	h := newHarness(newFakeLedgerRepo(300, inactive))

	_, err := h.svc.Register(context.Background(), RegisterRequest{
		VehicleNo: "R1", VehicleType: "4", OwnerFirstName: "A", OwnerLastName: "B", ClassCode: "missing",
	})
	assert.Equal(t, "Invalid Class Code", asRejection(t, err).Title)

	_, err = h.svc.Register(context.Background(), RegisterRequest{
		VehicleNo: "R1", VehicleType: "4", OwnerFirstName: "A", OwnerLastName: "B", ClassCode: "dormant",
	})
	assert.Equal(t, "Class Not Active", asRejection(t, err).Title)
}

func TestRegister_DuplicateNamedClass(t *testing.T) {
	h := newHarness(newFakeLedgerRepo(300, activeClass("acme", 10, 0)))
	require.NoError(t, h.vehicles.Create(&models.Vehicle{VehicleNo: "DUP100", ClassCode: "acme"}))

	_, err := h.svc.Register(context.Background(), RegisterRequest{
		VehicleNo: "DUP100", VehicleType: "4", OwnerFirstName: "A", OwnerLastName: "B", ClassCode: "acme",
	})
	rej := asRejection(t, err)
	assert.Equal(t, "Duplicate Registration", rej.Title)
}

func TestRegister_PromotesParkedPublicVehicle(t *testing.T) {
	// A parked public vehicle moves its slot accounting onto the class.
	h := newHarness(newFakeLedgerRepo(300, activeClass("acme", 10, 0)))
	require.NoError(t, h.ledger.ReservePublic())
	h.park(t, "PROMO1", "public", time.Hour)

	reg, err := h.svc.Register(context.Background(), RegisterRequest{
		VehicleNo: "PROMO1", VehicleType: "4",
		OwnerFirstName: "Asha", OwnerLastName: "Rao", ClassCode: "acme",
	})
	require.NoError(t, err)
	assert.True(t, reg.Promoted)
	assert.Equal(t, 1, h.ledger.classUsed("acme"))

	snapshot, err := h.ledger.Get()
	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.PublicOccupied)
	assert.True(t, h.ledger.aggregateConsistent())
}

func TestRegister_PromotionOfIdleVehicleLeavesLedgerAlone(t *testing.T) {
	h := newHarness(newFakeLedgerRepo(300, activeClass("acme", 10, 0)))
	require.NoError(t, h.vehicles.Create(&models.Vehicle{
		VehicleNo: "IDLE01", ClassCode: "public", Status: models.VEHICLE_EXITED,
	}))

	reg, err := h.svc.Register(context.Background(), RegisterRequest{
		VehicleNo: "IDLE01", VehicleType: "4",
		OwnerFirstName: "Asha", OwnerLastName: "Rao", ClassCode: "acme",
	})
	require.NoError(t, err)
	assert.True(t, reg.Promoted)
	assert.Equal(t, 0, h.ledger.classUsed("acme"))
}
