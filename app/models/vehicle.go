package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	// ClassPublic is the sentinel class code for casual/unregistered vehicles.
	ClassPublic = "public"

	VEHICLE_PENDING = "pending"
	VEHICLE_PARKED  = "parked"
	VEHICLE_EXITED  = "exited"

	RENEWAL_WEEKLY  = "weekly"
	RENEWAL_MONTHLY = "monthly"
	RENEWAL_YEARLY  = "yearly"

	REGISTRATION_ACTIVE   = "active"
	REGISTRATION_INACTIVE = "inactive"
	REGISTRATION_EXPIRED  = "expired"

	// DefaultVehicleType is used when a camera/keypad does not report a type.
	DefaultVehicleType = "4"
)

// ClassRef distinguishes the shared public pool from a named subscription class.
type ClassRef struct {
	Code string
}

// Public reports whether the reference points at the shared public pool.
func (c ClassRef) Public() bool {
	return c.Code == "" || c.Code == ClassPublic
}

// String returns the persisted class code, "public" for the public pool.
func (c ClassRef) String() string {
	if c.Public() {
		return ClassPublic
	}
	return c.Code
}

// PublicClass references the shared public pool.
func PublicClass() ClassRef {
	return ClassRef{Code: ClassPublic}
}

// NamedClass references a subscription class by code.
func NamedClass(code string) ClassRef {
	return ClassRef{Code: code}
}

type Vehicle struct {
	ID                   uint           `gorm:"primaryKey" json:"registration_id"`
	VehicleNo            string         `gorm:"uniqueIndex;type:varchar(20)" json:"vehicle_no" validate:"required,min=2,max=20"`
	VehicleType          string         `gorm:"type:varchar(10);default:'4'" json:"vehicle_type"`
	OwnerFirstName       string         `gorm:"type:varchar(100);default:null" json:"owner_first_name"`
	OwnerLastName        string         `gorm:"type:varchar(100);default:null" json:"owner_last_name"`
	ClassCode            string         `gorm:"type:varchar(50);default:'public';index" json:"class_code"`
	RenewalType          string         `gorm:"type:varchar(20);default:null" json:"renewal_type" validate:"omitempty,oneof=weekly monthly yearly"`
	RenewalCharge        float64        `gorm:"default:0" json:"renewal_charge"`
	EffectiveFromDate    *time.Time     `gorm:"type:timestamp;default:null" json:"effective_from_date"`
	RegistrationStatus   string         `gorm:"type:varchar(20);default:'active'" json:"registration_status" validate:"omitempty,oneof=active inactive expired"`
	RegistrationExpireIn int64          `gorm:"default:0" json:"registration_expire_in"` // seconds until the registration window ends
	Status               string         `gorm:"type:varchar(20);default:'pending';index" json:"status" validate:"omitempty,oneof=pending parked exited"`
	IsBlacklisted        bool           `gorm:"default:false" json:"is_blacklisted"`
	StartingDate         *time.Time     `gorm:"type:timestamp;default:null" json:"starting_date"` // current session entry time
	EndingDate           *time.Time     `gorm:"type:timestamp;default:null" json:"ending_date"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

func (v *Vehicle) Validate() error {
	return validator.New().Struct(v)
}

// ClassRef returns the vehicle's class as a tagged reference.
func (v *Vehicle) ClassRef() ClassRef {
	if v == nil || v.ClassCode == "" || v.ClassCode == ClassPublic {
		return PublicClass()
	}
	return NamedClass(v.ClassCode)
}

// IsParked reports whether the vehicle is currently inside the facility.
func (v *Vehicle) IsParked() bool {
	return v.Status == VEHICLE_PARKED
}

// TypeOrDefault resolves the vehicle type, falling back to the car type when
// the detection source did not supply one.
func (v *Vehicle) TypeOrDefault() string {
	if v.VehicleType == "" {
		return DefaultVehicleType
	}
	return v.VehicleType
}

// RenewalWindow computes the registration validity window for a renewal type
// starting at from. Unknown types default to one year, matching the renewal
// fallback of the registration flow.
func RenewalWindow(renewalType string, from time.Time) (time.Time, time.Time) {
	switch renewalType {
	case RENEWAL_WEEKLY:
		return from, from.AddDate(0, 0, 7)
	case RENEWAL_MONTHLY:
		return from, from.AddDate(0, 1, 0)
	default:
		return from, from.AddDate(1, 0, 0)
	}
}
