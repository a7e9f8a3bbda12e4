package repository

import (
	"gorm.io/gorm"

	"github.com/ticketless-io/ticketless/app/models"
)

// historyRepository implements the HistoryRepository interface
type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new parking history repository instance
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(h *models.ParkingHistory) error {
	return r.db.Create(h).Error
}

func (r *historyRepository) List(f HistoryFilter) ([]models.ParkingHistory, int64, error) {
	query := r.db.Model(&models.ParkingHistory{})
	if f.FromDate != nil {
		query = query.Where("entry_time >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		query = query.Where("entry_time <= ?", *f.ToDate)
	}
	if f.Search != "" {
		query = query.Where("vehicle_no LIKE ?", "%"+f.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "entry_time DESC"
	if f.SortAsc {
		order = "entry_time ASC"
	}
	query = query.Order(order)
	if f.Limit > 0 {
		query = query.Offset(f.Offset).Limit(f.Limit)
	}

	var records []models.ParkingHistory
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
