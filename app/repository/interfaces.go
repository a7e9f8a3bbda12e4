package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ticketless-io/ticketless/app/models"
)

var (
	// ErrClassFull signals that a class has no reserved slots left.
	ErrClassFull = errors.New("class has no free slots")
	// ErrPublicFull signals that the shared public pool is exhausted.
	ErrPublicFull = errors.New("public pool has no free slots")
	// ErrUnknownClass signals a reserve/release against a class code that is
	// not in the supported-classes table.
	ErrUnknownClass = errors.New("unknown parking class")
	// ErrWriteConflict signals that a conditional update lost against a
	// concurrent writer; callers may retry after re-reading state.
	ErrWriteConflict = errors.New("conditional update conflicted")
)

// VehicleRepository defines vehicle lifecycle persistence.
type VehicleRepository interface {
	GetByPlate(plate string) (*models.Vehicle, error)
	GetByID(id uint) (*models.Vehicle, error)
	Create(v *models.Vehicle) error
	Update(v *models.Vehicle) error
	// MarkParked transitions a vehicle into the parked state. The update is
	// conditional on the vehicle not already being parked so concurrent entry
	// attempts for the same plate serialize at the row; the loser gets
	// ErrWriteConflict.
	MarkParked(plate string, entryTime time.Time) error
	// MarkExited transitions a parked vehicle to exited. Conditional on
	// status = parked; ErrWriteConflict otherwise.
	MarkExited(plate string, exitTime time.Time) error
	List(search string, offset, limit int) ([]models.Vehicle, int64, error)
	Delete(id uint) error
}

// LedgerRepository is the capacity ledger boundary. Every reserve/release is a
// single conditional update; two concurrent reservations of the last slot can
// never both succeed.
type LedgerRepository interface {
	Get() (*models.GlobalLedger, error)
	Save(ledger *models.GlobalLedger) error
	GetClass(code string) (*models.ParkingClass, error)
	CreateClass(class *models.ParkingClass) error
	UpdateClass(class *models.ParkingClass) error
	DeleteClass(code string) error
	// ReservePublic claims one public slot; ErrPublicFull when exhausted.
	ReservePublic() error
	// ReleasePublic frees one public slot; never decrements below zero.
	ReleasePublic() error
	// ReserveClass claims one slot of a named class; ErrUnknownClass or
	// ErrClassFull on failure.
	ReserveClass(code string) error
	// ReleaseClass frees one slot of a named class, floored at zero.
	ReleaseClass(code string) error
}

// HistoryRepository stores the append-only exit records.
type HistoryRepository interface {
	Create(h *models.ParkingHistory) error
	List(f HistoryFilter) ([]models.ParkingHistory, int64, error)
}

// HistoryFilter narrows and pages history queries.
type HistoryFilter struct {
	FromDate  *time.Time
	ToDate    *time.Time
	Search    string
	SortAsc   bool
	Offset    int
	Limit     int // <= 0 disables pagination
}

// BoothRepository is the booth/device directory.
type BoothRepository interface {
	GetByCode(code string) (*models.Booth, error)
	GetByID(id uint) (*models.Booth, error)
	Create(b *models.Booth) error
	Update(b *models.Booth) error
	List() ([]models.Booth, error)
	AddDevice(boothID uint, d *models.BoothDevice) error
	UpdateDevice(d *models.BoothDevice) error
	GetDevice(deviceID string) (*models.BoothDevice, error)
}

// UserRepository defines operator account persistence.
type UserRepository interface {
	Create(user *models.User) error
	GetByEmail(email string) (*models.User, error)
	GetByID(id uint) (*models.User, error)
	Count() (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Vehicle VehicleRepository
	Ledger  LedgerRepository
	History HistoryRepository
	Booth   BoothRepository
	User    UserRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Vehicle: NewVehicleRepository(db),
		Ledger:  NewLedgerRepository(db),
		History: NewHistoryRepository(db),
		Booth:   NewBoothRepository(db),
		User:    NewUserRepository(db),
	}
}
