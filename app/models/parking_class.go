package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	CLASS_ACTIVE    = "active"
	CLASS_INACTIVE  = "inactive"
	CLASS_EXPIRED   = "expired"
	CLASS_SUSPENDED = "suspended"
	CLASS_PENDING   = "pending"
)

// ParkingClass is a subscription tier with a reserved share of the facility's
// capacity. Rows are children of the global ledger singleton.
type ParkingClass struct {
	ID            uint       `gorm:"primaryKey" json:"-"`
	LedgerID      uint       `gorm:"index" json:"-"`
	Code          string     `gorm:"uniqueIndex;type:varchar(50)" json:"code" validate:"required,min=2,max=50"`
	Name          string     `gorm:"type:varchar(150)" json:"name" validate:"required,min=2,max=150"`
	SlotsReserved int        `json:"slots_reserved" validate:"gte=0"`
	SlotsUsed     int        `json:"slots_used" validate:"gte=0"`
	Status        string     `gorm:"type:varchar(20);default:'inactive'" json:"status" validate:"omitempty,oneof=active inactive expired suspended pending"`
	RenewalType   string     `gorm:"type:varchar(20);default:null" json:"renewal_type" validate:"omitempty,oneof=weekly monthly yearly"`
	RenewalCharge float64    `gorm:"default:0" json:"renewal_charge"`
	StartingDate  *time.Time `gorm:"type:timestamp;default:null" json:"starting_date"`
	EndingDate    *time.Time `gorm:"type:timestamp;default:null" json:"ending_date"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"-"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"-"`
}

func (c *ParkingClass) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	return nil
}

// IsActive reports whether the class may accept registrations and grants free
// parking at exit.
func (c *ParkingClass) IsActive() bool {
	return c.Status == CLASS_ACTIVE
}

// ExpiringIn returns whole days until the validity window ends, zero when no
// window is set or it already passed.
func (c *ParkingClass) ExpiringIn(now time.Time) int {
	if c.EndingDate == nil {
		return 0
	}
	d := int(c.EndingDate.Sub(now).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
