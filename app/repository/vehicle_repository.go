package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/ticketless-io/ticketless/app/models"
)

// vehicleRepository implements the VehicleRepository interface
type vehicleRepository struct {
	db *gorm.DB
}

// NewVehicleRepository creates a new vehicle repository instance
func NewVehicleRepository(db *gorm.DB) VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) GetByPlate(plate string) (*models.Vehicle, error) {
	var v models.Vehicle
	err := r.db.Where("vehicle_no = ?", plate).First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vehicleRepository) GetByID(id uint) (*models.Vehicle, error) {
	var v models.Vehicle
	err := r.db.First(&v, id).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vehicleRepository) Create(v *models.Vehicle) error {
	return r.db.Create(v).Error
}

func (r *vehicleRepository) Update(v *models.Vehicle) error {
	return r.db.Save(v).Error
}

// MarkParked conditionally flips the vehicle into the parked state. A
// concurrent entry for the same plate loses the conditional update and gets
// ErrWriteConflict, which the admission flow reports as a duplicate entry.
func (r *vehicleRepository) MarkParked(plate string, entryTime time.Time) error {
	res := r.db.Model(&models.Vehicle{}).
		Where("vehicle_no = ? AND status <> ?", plate, models.VEHICLE_PARKED).
		Updates(map[string]interface{}{
			"status":        models.VEHICLE_PARKED,
			"starting_date": entryTime,
			"ending_date":   nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrWriteConflict
	}
	return nil
}

func (r *vehicleRepository) MarkExited(plate string, exitTime time.Time) error {
	res := r.db.Model(&models.Vehicle{}).
		Where("vehicle_no = ? AND status = ?", plate, models.VEHICLE_PARKED).
		Updates(map[string]interface{}{
			"status":      models.VEHICLE_EXITED,
			"ending_date": exitTime,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrWriteConflict
	}
	return nil
}

func (r *vehicleRepository) List(search string, offset, limit int) ([]models.Vehicle, int64, error) {
	query := r.db.Model(&models.Vehicle{}).Where("registration_status = ?", models.REGISTRATION_ACTIVE)
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("vehicle_no LIKE ? OR owner_first_name LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var vehicles []models.Vehicle
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	if err := query.Order("created_at DESC").Find(&vehicles).Error; err != nil {
		return nil, 0, err
	}
	return vehicles, total, nil
}

func (r *vehicleRepository) Delete(id uint) error {
	return r.db.Delete(&models.Vehicle{}, id).Error
}
