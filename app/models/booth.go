package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	BOOTH_ENTRY = "entry"
	BOOTH_EXIT  = "exit"

	BOOTH_ACTIVE   = "active"
	BOOTH_INACTIVE = "inactive"

	DEVICE_DISPLAY = "display"
	DEVICE_CAMERA  = "camera"
	DEVICE_BARRIER = "barrier"
)

// Booth is a physical admission or exit point with its attached devices.
type Booth struct {
	ID          uint          `gorm:"primaryKey" json:"-"`
	BoothCode   string        `gorm:"uniqueIndex;type:varchar(50)" json:"booth_code" validate:"required,min=2,max=50"`
	Location    string        `gorm:"type:varchar(200)" json:"location" validate:"required"`
	Description string        `gorm:"type:varchar(500)" json:"description" validate:"required"`
	BoothType   string        `gorm:"type:varchar(10)" json:"booth_type" validate:"required,oneof=entry exit"`
	Status      string        `gorm:"type:varchar(20);default:'active'" json:"status" validate:"omitempty,oneof=active inactive"`
	EntryCount  int64         `gorm:"default:0" json:"entry_count"`
	ExitCount   int64         `gorm:"default:0" json:"exit_count"`
	Devices     []BoothDevice `gorm:"foreignKey:BoothID" json:"devices"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *Booth) Validate() error {
	return validator.New().Struct(b)
}

// IsActive reports whether the booth may admit or release vehicles.
func (b *Booth) IsActive() bool {
	return b.Status == BOOTH_ACTIVE
}

// DeviceByRole returns the first attached device with the given role, or nil.
// Device connection state lives in the hub directory, not here.
func (b *Booth) DeviceByRole(role string) *BoothDevice {
	for i := range b.Devices {
		if b.Devices[i].DeviceType == role {
			return &b.Devices[i]
		}
	}
	return nil
}

// BoothDevice is the persisted attachment of a device to a booth. The live
// connection handle is owned by the devicehub directory and outlives any
// single booth association.
type BoothDevice struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	BoothID    uint      `gorm:"index" json:"-"`
	DeviceID   string    `gorm:"uniqueIndex;type:varchar(100)" json:"device_id" validate:"required"`
	DeviceType string    `gorm:"type:varchar(20)" json:"device_type" validate:"required,oneof=display camera barrier"`
	IPAddress  string    `gorm:"type:varchar(45);default:null" json:"ip_address"` // barrier/camera actuator endpoint
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (d *BoothDevice) Validate() error {
	return validator.New().Struct(d)
}
