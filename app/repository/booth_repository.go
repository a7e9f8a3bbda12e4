package repository

import (
	"gorm.io/gorm"

	"github.com/ticketless-io/ticketless/app/models"
)

// boothRepository implements the BoothRepository interface
type boothRepository struct {
	db *gorm.DB
}

// NewBoothRepository creates a new booth directory repository instance
func NewBoothRepository(db *gorm.DB) BoothRepository {
	return &boothRepository{db: db}
}

// GetByCode resolves a booth by its code. Matching is case-insensitive, which
// the MySQL default collation gives us for free.
func (r *boothRepository) GetByCode(code string) (*models.Booth, error) {
	var b models.Booth
	err := r.db.Preload("Devices").Where("booth_code = ?", code).First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *boothRepository) GetByID(id uint) (*models.Booth, error) {
	var b models.Booth
	err := r.db.Preload("Devices").First(&b, id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *boothRepository) Create(b *models.Booth) error {
	return r.db.Create(b).Error
}

func (r *boothRepository) Update(b *models.Booth) error {
	return r.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(b).Error
}

func (r *boothRepository) List() ([]models.Booth, error) {
	var booths []models.Booth
	err := r.db.Preload("Devices").Find(&booths).Error
	if err != nil {
		return nil, err
	}
	return booths, nil
}

func (r *boothRepository) AddDevice(boothID uint, d *models.BoothDevice) error {
	d.BoothID = boothID
	return r.db.Create(d).Error
}

func (r *boothRepository) UpdateDevice(d *models.BoothDevice) error {
	return r.db.Save(d).Error
}

func (r *boothRepository) GetDevice(deviceID string) (*models.BoothDevice, error) {
	var d models.BoothDevice
	err := r.db.Where("device_id = ?", deviceID).First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}
