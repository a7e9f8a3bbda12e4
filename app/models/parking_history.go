package models

import "time"

// TariffBreakdown is the settled charge for one completed parking session.
type TariffBreakdown struct {
	GST                float64 `json:"gst"`
	TotalAmount        float64 `json:"total_amount"`
	DiscountAmount     float64 `json:"discount_amount"`
	DiscountPercentage float64 `json:"discount_percentage"`
	AmountPayable      float64 `json:"amount_payable"`
}

// ParkingHistory is the append-only record written once per completed exit.
// Rows are never updated after creation.
type ParkingHistory struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	SessionID       string    `gorm:"type:varchar(36);uniqueIndex" json:"session_id"`
	VehicleNo       string    `gorm:"type:varchar(20);index" json:"vehicle_no"`
	ClassCode       string    `gorm:"type:varchar(50)" json:"class_code"`
	EntryTime       time.Time `gorm:"index" json:"entry_time"`
	ExitTime        time.Time `json:"exit_time"`
	ParkingDuration int64     `json:"total_parking_duration"` // seconds

	GST                float64 `json:"-"`
	TotalAmount        float64 `json:"-"`
	DiscountAmount     float64 `json:"-"`
	DiscountPercentage float64 `json:"-"`
	AmountPayable      float64 `json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}

func (ParkingHistory) TableName() string {
	return "parking_history"
}

// Tariff returns the breakdown columns as one struct for responses.
func (h *ParkingHistory) Tariff() TariffBreakdown {
	return TariffBreakdown{
		GST:                h.GST,
		TotalAmount:        h.TotalAmount,
		DiscountAmount:     h.DiscountAmount,
		DiscountPercentage: h.DiscountPercentage,
		AmountPayable:      h.AmountPayable,
	}
}
