package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ticketless-io/ticketless/app/models"
)

// ledgerRepository implements the LedgerRepository interface. All counter
// mutations are single conditional UPDATE statements; MySQL applies SET
// clauses left to right, so derived columns read the already-incremented
// counter within the same statement.
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a capacity ledger repository backed by GORM.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Get() (*models.GlobalLedger, error) {
	var ledger models.GlobalLedger
	err := r.db.Preload("SupportedClasses").First(&ledger).Error
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *ledgerRepository) Save(ledger *models.GlobalLedger) error {
	return r.db.Save(ledger).Error
}

func (r *ledgerRepository) GetClass(code string) (*models.ParkingClass, error) {
	var class models.ParkingClass
	err := r.db.Where("code = ?", code).First(&class).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownClass
		}
		return nil, err
	}
	return &class, nil
}

func (r *ledgerRepository) CreateClass(class *models.ParkingClass) error {
	if class.LedgerID == 0 {
		ledger, err := r.Get()
		if err != nil {
			return err
		}
		class.LedgerID = ledger.ID
	}
	return r.db.Create(class).Error
}

func (r *ledgerRepository) UpdateClass(class *models.ParkingClass) error {
	return r.db.Save(class).Error
}

func (r *ledgerRepository) DeleteClass(code string) error {
	res := r.db.Where("code = ?", code).Delete(&models.ParkingClass{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUnknownClass
	}
	return nil
}

func (r *ledgerRepository) ReservePublic() error {
	res := r.db.Exec(`UPDATE global_ledger
		SET public_occupied = public_occupied + 1,
		    public_available = public_total - public_occupied,
		    occupied_slots = occupied_slots + 1,
		    available_slots = total_parking_slots - occupied_slots
		WHERE public_occupied < public_total`)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPublicFull
	}
	return nil
}

func (r *ledgerRepository) ReleasePublic() error {
	// Idempotent guard: the WHERE clause keeps the counter at zero.
	return r.db.Exec(`UPDATE global_ledger
		SET public_occupied = public_occupied - 1,
		    public_available = public_total - public_occupied,
		    occupied_slots = occupied_slots - 1,
		    available_slots = total_parking_slots - occupied_slots
		WHERE public_occupied > 0`).Error
}

func (r *ledgerRepository) ReserveClass(code string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`UPDATE parking_classes
			SET slots_used = slots_used + 1
			WHERE code = ? AND slots_used < slots_reserved`, code)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.ParkingClass{}).Where("code = ?", code).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrUnknownClass
			}
			return ErrClassFull
		}
		return tx.Exec(`UPDATE global_ledger
			SET occupied_slots = occupied_slots + 1,
			    available_slots = total_parking_slots - occupied_slots`).Error
	})
}

func (r *ledgerRepository) ReleaseClass(code string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`UPDATE parking_classes
			SET slots_used = slots_used - 1
			WHERE code = ? AND slots_used > 0`, code)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already at zero or unknown class; the global counters stay put.
			return nil
		}
		return tx.Exec(`UPDATE global_ledger
			SET occupied_slots = occupied_slots - 1,
			    available_slots = total_parking_slots - occupied_slots
			WHERE occupied_slots > 0`).Error
	})
}
