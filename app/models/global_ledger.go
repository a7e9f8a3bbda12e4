package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// IntervalCharge is the per-interval portion of the tariff for one vehicle type.
type IntervalCharge struct {
	IntervalMinutes   int     `json:"interval_minutes"`
	AmountPerInterval float64 `json:"amount_per_interval"`
}

// PricingTable maps vehicle type codes ("2", "3", "4") to their charges.
type PricingTable struct {
	FirstHour  map[string]float64        `json:"first_one_hour_charges"`
	Additional map[string]IntervalCharge `json:"additional_charges"`
}

// DefaultPricingTable mirrors the facility's stock rates per vehicle type.
func DefaultPricingTable() PricingTable {
	return PricingTable{
		FirstHour: map[string]float64{
			"2": 20,
			"3": 30,
			"4": 40,
		},
		Additional: map[string]IntervalCharge{
			"2": {IntervalMinutes: 15, AmountPerInterval: 10},
			"3": {IntervalMinutes: 20, AmountPerInterval: 15},
			"4": {IntervalMinutes: 30, AmountPerInterval: 20},
		},
	}
}

// Value serializes the pricing table into a JSON column.
func (p PricingTable) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan deserializes the pricing table from its JSON column.
func (p *PricingTable) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		*p = PricingTable{}
		return nil
	default:
		return fmt.Errorf("unsupported pricing table column type %T", value)
	}
}

// GlobalLedger is the singleton capacity record for the facility. All slot
// accounting flows through the ledger repository; the struct itself carries no
// mutation helpers so counters cannot be bumped ad hoc.
type GlobalLedger struct {
	ID                   uint         `gorm:"primaryKey" json:"-"`
	TotalParkingSlots    int          `json:"total_parking_slots"`
	OccupiedSlots        int          `json:"occupied_slots"`
	AvailableSlots       int          `json:"available_slots"`
	PublicTotal          int          `json:"-"`
	PublicOccupied       int          `json:"-"`
	PublicAvailable      int          `json:"-"`
	TotalRegisteredUsers int          `json:"total_registered_users"`
	Pricing              PricingTable `gorm:"type:json" json:"pricing"`
	LastMaintenanceDate  *time.Time   `gorm:"type:timestamp;default:null" json:"last_maintenance_date"`
	CreatedAt            time.Time    `gorm:"autoCreateTime" json:"-"`
	UpdatedAt            time.Time    `gorm:"autoUpdateTime" json:"last_updated_date"`

	SupportedClasses []ParkingClass `gorm:"foreignKey:LedgerID" json:"supported_classes"`
}

func (GlobalLedger) TableName() string {
	return "global_ledger"
}

// PublicSlots groups the public pool counters for API responses.
type PublicSlots struct {
	Total     int `json:"total"`
	Occupied  int `json:"occupied"`
	Available int `json:"available"`
}

// Public returns the public pool sub-ledger.
func (g *GlobalLedger) Public() PublicSlots {
	return PublicSlots{Total: g.PublicTotal, Occupied: g.PublicOccupied, Available: g.PublicAvailable}
}

// FindClass returns the supported class with the given code, or nil.
func (g *GlobalLedger) FindClass(code string) *ParkingClass {
	for i := range g.SupportedClasses {
		if g.SupportedClasses[i].Code == code {
			return &g.SupportedClasses[i]
		}
	}
	return nil
}
