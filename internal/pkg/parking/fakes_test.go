package parking

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ticketless-io/ticketless/app/models"
	"github.com/ticketless-io/ticketless/app/repository"
)

// The fakes implement the repository contracts with the same conditional
// semantics as the GORM implementations: counter mutations are guarded
// check-and-set operations under a lock, so the concurrency properties the
// service relies on are exercised for real.

type fakeVehicleRepo struct {
	mu       sync.Mutex
	vehicles map[string]*models.Vehicle
	nextID   uint
}

func newFakeVehicleRepo() *fakeVehicleRepo {
	return &fakeVehicleRepo{vehicles: map[string]*models.Vehicle{}, nextID: 1}
}

func (f *fakeVehicleRepo) GetByPlate(plate string) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[plate]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *v
	return &clone, nil
}

func (f *fakeVehicleRepo) GetByID(id uint) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vehicles {
		if v.ID == id {
			clone := *v
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeVehicleRepo) Create(v *models.Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.vehicles[v.VehicleNo]; exists {
		return gorm.ErrDuplicatedKey
	}
	v.ID = f.nextID
	f.nextID++
	clone := *v
	f.vehicles[v.VehicleNo] = &clone
	return nil
}

func (f *fakeVehicleRepo) Update(v *models.Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *v
	f.vehicles[v.VehicleNo] = &clone
	return nil
}

func (f *fakeVehicleRepo) MarkParked(plate string, entryTime time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[plate]
	if !ok || v.Status == models.VEHICLE_PARKED {
		return repository.ErrWriteConflict
	}
	t := entryTime
	v.Status = models.VEHICLE_PARKED
	v.StartingDate = &t
	v.EndingDate = nil
	return nil
}

func (f *fakeVehicleRepo) MarkExited(plate string, exitTime time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[plate]
	if !ok || v.Status != models.VEHICLE_PARKED {
		return repository.ErrWriteConflict
	}
	t := exitTime
	v.Status = models.VEHICLE_EXITED
	v.EndingDate = &t
	return nil
}

func (f *fakeVehicleRepo) List(search string, offset, limit int) ([]models.Vehicle, int64, error) {
	return nil, 0, nil
}

func (f *fakeVehicleRepo) Delete(id uint) error { return nil }

type fakeLedgerRepo struct {
	mu      sync.Mutex
	ledger  models.GlobalLedger
	classes map[string]*models.ParkingClass
}

func newFakeLedgerRepo(publicTotal int, classes ...*models.ParkingClass) *fakeLedgerRepo {
	f := &fakeLedgerRepo{
		ledger: models.GlobalLedger{
			ID:                1,
			TotalParkingSlots: publicTotal + 1000,
			PublicTotal:       publicTotal,
			Pricing:           models.DefaultPricingTable(),
		},
		classes: map[string]*models.ParkingClass{},
	}
	for _, c := range classes {
		f.classes[c.Code] = c
		f.ledger.OccupiedSlots += c.SlotsUsed
	}
	f.recompute()
	return f
}

func (f *fakeLedgerRepo) recompute() {
	f.ledger.PublicAvailable = f.ledger.PublicTotal - f.ledger.PublicOccupied
	f.ledger.AvailableSlots = f.ledger.TotalParkingSlots - f.ledger.OccupiedSlots
}

func (f *fakeLedgerRepo) Get() (*models.GlobalLedger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := f.ledger
	clone.SupportedClasses = nil
	for _, c := range f.classes {
		clone.SupportedClasses = append(clone.SupportedClasses, *c)
	}
	return &clone, nil
}

func (f *fakeLedgerRepo) Save(ledger *models.GlobalLedger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledger = *ledger
	return nil
}

func (f *fakeLedgerRepo) GetClass(code string) (*models.ParkingClass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.classes[code]
	if !ok {
		return nil, repository.ErrUnknownClass
	}
	clone := *c
	return &clone, nil
}

func (f *fakeLedgerRepo) CreateClass(class *models.ParkingClass) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *class
	f.classes[class.Code] = &clone
	return nil
}

func (f *fakeLedgerRepo) UpdateClass(class *models.ParkingClass) error {
	return f.CreateClass(class)
}

func (f *fakeLedgerRepo) DeleteClass(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.classes, code)
	return nil
}

func (f *fakeLedgerRepo) ReservePublic() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ledger.PublicOccupied >= f.ledger.PublicTotal {
		return repository.ErrPublicFull
	}
	f.ledger.PublicOccupied++
	f.ledger.OccupiedSlots++
	f.recompute()
	return nil
}

func (f *fakeLedgerRepo) ReleasePublic() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ledger.PublicOccupied > 0 {
		f.ledger.PublicOccupied--
		f.ledger.OccupiedSlots--
		f.recompute()
	}
	return nil
}

func (f *fakeLedgerRepo) ReserveClass(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.classes[code]
	if !ok {
		return repository.ErrUnknownClass
	}
	if c.SlotsUsed >= c.SlotsReserved {
		return repository.ErrClassFull
	}
	c.SlotsUsed++
	f.ledger.OccupiedSlots++
	f.recompute()
	return nil
}

func (f *fakeLedgerRepo) ReleaseClass(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.classes[code]
	if !ok || c.SlotsUsed == 0 {
		return nil
	}
	c.SlotsUsed--
	f.ledger.OccupiedSlots--
	f.recompute()
	return nil
}

// classUsed reads a class counter for assertions.
func (f *fakeLedgerRepo) classUsed(code string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.classes[code].SlotsUsed
}

// aggregateConsistent checks occupied == sum(class used) + public occupied.
func (f *fakeLedgerRepo) aggregateConsistent() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := f.ledger.PublicOccupied
	for _, c := range f.classes {
		sum += c.SlotsUsed
	}
	return f.ledger.OccupiedSlots == sum
}

type fakeBoothRepo struct {
	booths map[string]*models.Booth
}

func newFakeBoothRepo(booths ...*models.Booth) *fakeBoothRepo {
	f := &fakeBoothRepo{booths: map[string]*models.Booth{}}
	for _, b := range booths {
		f.booths[b.BoothCode] = b
	}
	return f
}

func (f *fakeBoothRepo) GetByCode(code string) (*models.Booth, error) {
	b, ok := f.booths[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return b, nil
}

func (f *fakeBoothRepo) GetByID(id uint) (*models.Booth, error) {
	for _, b := range f.booths {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBoothRepo) Create(b *models.Booth) error                       { f.booths[b.BoothCode] = b; return nil }
func (f *fakeBoothRepo) Update(b *models.Booth) error                       { f.booths[b.BoothCode] = b; return nil }
func (f *fakeBoothRepo) List() ([]models.Booth, error)                      { return nil, nil }
func (f *fakeBoothRepo) AddDevice(id uint, d *models.BoothDevice) error     { return nil }
func (f *fakeBoothRepo) UpdateDevice(d *models.BoothDevice) error           { return nil }
func (f *fakeBoothRepo) GetDevice(id string) (*models.BoothDevice, error)   { return nil, gorm.ErrRecordNotFound }

type fakeHistoryRepo struct {
	mu      sync.Mutex
	records []models.ParkingHistory
}

func (f *fakeHistoryRepo) Create(h *models.ParkingHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *h)
	return nil
}

func (f *fakeHistoryRepo) List(repository.HistoryFilter) ([]models.ParkingHistory, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records, int64(len(f.records)), nil
}

type notifyCall struct {
	BoothCode string
	Role      string
	Event     string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (f *fakeNotifier) Notify(boothCode, role, event string, payload interface{}) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifyCall{BoothCode: boothCode, Role: role, Event: event})
	return true
}

type fakeBarrier struct {
	mu     sync.Mutex
	pulses []string
}

func (f *fakeBarrier) Pulse(ctx context.Context, ip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulses = append(f.pulses, ip)
	return nil
}

func entryBooth() *models.Booth {
	return &models.Booth{
		ID:        1,
		BoothCode: "ENTRY-1",
		BoothType: models.BOOTH_ENTRY,
		Status:    models.BOOTH_ACTIVE,
		Devices: []models.BoothDevice{
			{DeviceID: "disp-1", DeviceType: models.DEVICE_DISPLAY},
			{DeviceID: "bar-1", DeviceType: models.DEVICE_BARRIER, IPAddress: "192.168.1.250"},
		},
	}
}

func exitBooth() *models.Booth {
	return &models.Booth{
		ID:        2,
		BoothCode: "EXIT-1",
		BoothType: models.BOOTH_EXIT,
		Status:    models.BOOTH_ACTIVE,
		Devices: []models.BoothDevice{
			{DeviceID: "disp-2", DeviceType: models.DEVICE_DISPLAY},
			{DeviceID: "bar-2", DeviceType: models.DEVICE_BARRIER, IPAddress: "192.168.1.251"},
		},
	}
}
