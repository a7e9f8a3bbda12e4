package parking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ticketless-io/ticketless/app/models"
	"github.com/ticketless-io/ticketless/app/repository"
	"github.com/ticketless-io/ticketless/internal/pkg/tariff"
)

// barrierTimeout bounds the outbound actuator call so an unreachable barrier
// cannot stall a request handler.
const barrierTimeout = 5 * time.Second

// Service is the admission and settlement engine. It validates entry and exit
// attempts against the booth directory, the vehicle lifecycle store and the
// capacity ledger, and informs the booth hardware of the outcome. Ledger and
// vehicle mutations go through conditional updates only; the service never
// writes counters directly.
type Service struct {
	vehicles repository.VehicleRepository
	ledger   repository.LedgerRepository
	booths   repository.BoothRepository
	history  repository.HistoryRepository
	notifier Notifier
	barrier  BarrierDriver
	now      func() time.Time
}

// NewService wires the admission/settlement engine from its collaborators.
func NewService(
	vehicles repository.VehicleRepository,
	ledger repository.LedgerRepository,
	booths repository.BoothRepository,
	history repository.HistoryRepository,
	notifier Notifier,
	barrier BarrierDriver,
) *Service {
	return &Service{
		vehicles: vehicles,
		ledger:   ledger,
		booths:   booths,
		history:  history,
		notifier: notifier,
		barrier:  barrier,
		now:      time.Now,
	}
}

// ValidateEntry runs the admission state machine. Checks short-circuit at the
// first failure; the capacity reservation is persisted before the vehicle is
// flipped to parked, so a crash in between can only strand a slot, never
// admit an unaccounted vehicle.
func (s *Service) ValidateEntry(ctx context.Context, req EntryRequest) (*EntryResult, error) {
	booth, rej := s.checkBooth(req.BoothCode, models.BOOTH_ENTRY)
	if rej != nil {
		return nil, rej
	}

	if req.VehicleNo == "" {
		return nil, s.rejectAndNotify(booth, reject(fiber.StatusBadRequest,
			"Missing Plate", "No vehicle number found"))
	}

	vehicle, err := s.vehicles.GetByPlate(req.VehicleNo)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("vehicle lookup for %s: %w", req.VehicleNo, err)
	}

	if vehicle != nil && vehicle.IsBlacklisted {
		return nil, s.rejectAndNotify(booth, reject(fiber.StatusForbidden,
			"Access Denied", fmt.Sprintf("Vehicle %s is blacklisted and cannot enter.", req.VehicleNo)))
	}
	if vehicle != nil && vehicle.IsParked() {
		return nil, s.rejectAndNotify(booth, reject(fiber.StatusBadRequest,
			"Duplicate Entry", fmt.Sprintf("Vehicle %s is already parked.", req.VehicleNo)))
	}

	entryTime := s.now()
	if req.EntryTime != nil {
		entryTime = *req.EntryTime
	}

	classRef := models.PublicClass()
	if vehicle != nil {
		classRef = vehicle.ClassRef()
	}

	var title string
	if classRef.Public() {
		title = "Public Vehicle Entry Validated"
		if rej := s.admitPublic(vehicle, req, entryTime); rej != nil {
			return nil, s.rejectAndNotify(booth, rej)
		}
	} else {
		title = "Vehicle Entry Validated"
		if rej := s.admitClass(vehicle, classRef.Code, entryTime); rej != nil {
			return nil, s.rejectAndNotify(booth, rej)
		}
	}

	s.openBarrier(booth)

	result := &EntryResult{
		ScreenMessageType:  "success",
		ScreenTitle:        title,
		ScreenMessage:      fmt.Sprintf("Vehicle %s has been validated for entry.", req.VehicleNo),
		BarrierStatus:      BarrierOpen,
		MaxWaitingDuration: MaxWaitingDuration,
		EntryTime:          entryTime,
		ClassCode:          classRef.String(),
	}
	s.notifier.Notify(booth.BoothCode, models.DEVICE_DISPLAY, "success", result)
	return result, nil
}

// admitPublic reserves a public slot and transitions (or creates) the vehicle.
func (s *Service) admitPublic(vehicle *models.Vehicle, req EntryRequest, entryTime time.Time) *Rejection {
	if err := s.ledger.ReservePublic(); err != nil {
		if errors.Is(err, repository.ErrPublicFull) {
			return reject(fiber.StatusBadRequest,
				"No Public Slots Available", "No available public parking slots for vehicles with public class.")
		}
		log.Errorf("public slot reservation failed: %v", err)
		return reject(fiber.StatusInternalServerError, "Error", "There was an issue validating vehicle entry.")
	}

	if vehicle == nil {
		vehicleType := req.VehicleType
		if vehicleType == "" {
			vehicleType = models.DefaultVehicleType
		}
		now := entryTime
		created := &models.Vehicle{
			VehicleNo:          req.VehicleNo,
			VehicleType:        vehicleType,
			ClassCode:          models.ClassPublic,
			Status:             models.VEHICLE_PARKED,
			StartingDate:       &now,
			EffectiveFromDate:  &now,
			RegistrationStatus: models.REGISTRATION_ACTIVE,
		}
		if err := s.vehicles.Create(created); err != nil {
			// A concurrent entry created the row first; give the slot back
			// and report the duplicate.
			s.releaseQuietly(models.PublicClass())
			return reject(fiber.StatusBadRequest,
				"Duplicate Entry", fmt.Sprintf("Vehicle %s is already parked.", req.VehicleNo))
		}
		return nil
	}

	if err := s.vehicles.MarkParked(vehicle.VehicleNo, entryTime); err != nil {
		s.releaseQuietly(models.PublicClass())
		if errors.Is(err, repository.ErrWriteConflict) {
			return reject(fiber.StatusBadRequest,
				"Duplicate Entry", fmt.Sprintf("Vehicle %s is already parked.", vehicle.VehicleNo))
		}
		log.Errorf("parking transition failed for %s: %v", vehicle.VehicleNo, err)
		return reject(fiber.StatusInternalServerError, "Error", "There was an issue validating vehicle entry.")
	}
	return nil
}

// admitClass reserves a class slot and transitions the vehicle.
func (s *Service) admitClass(vehicle *models.Vehicle, code string, entryTime time.Time) *Rejection {
	if err := s.ledger.ReserveClass(code); err != nil {
		switch {
		case errors.Is(err, repository.ErrUnknownClass):
			return reject(fiber.StatusBadRequest,
				"Invalid Class Code", fmt.Sprintf("Class code %s is not supported.", code))
		case errors.Is(err, repository.ErrClassFull):
			return reject(fiber.StatusBadRequest,
				"Class Full", fmt.Sprintf("No parking slots available for class %s.", code))
		default:
			log.Errorf("class slot reservation failed for %s: %v", code, err)
			return reject(fiber.StatusInternalServerError, "Error", "There was an issue validating vehicle entry.")
		}
	}

	if err := s.vehicles.MarkParked(vehicle.VehicleNo, entryTime); err != nil {
		s.releaseQuietly(models.NamedClass(code))
		if errors.Is(err, repository.ErrWriteConflict) {
			return reject(fiber.StatusBadRequest,
				"Duplicate Entry", fmt.Sprintf("Vehicle %s is already parked.", vehicle.VehicleNo))
		}
		log.Errorf("parking transition failed for %s: %v", vehicle.VehicleNo, err)
		return reject(fiber.StatusInternalServerError, "Error", "There was an issue validating vehicle entry.")
	}
	return nil
}

// ValidateExit runs the settlement state machine. Nothing is mutated until the
// payment gate passes; the vehicle transition then serializes the exit before
// the slot is released and the history record appended.
func (s *Service) ValidateExit(ctx context.Context, req ExitRequest) (*ExitResult, error) {
	booth, rej := s.checkBooth(req.BoothCode, models.BOOTH_EXIT)
	if rej != nil {
		return nil, rej
	}

	if req.VehicleNo == "" {
		return nil, s.rejectAndNotify(booth, reject(fiber.StatusBadRequest,
			"Missing Plate", "No vehicle number found"))
	}

	vehicle, err := s.vehicles.GetByPlate(req.VehicleNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.rejectAndNotify(booth, reject(fiber.StatusNotFound,
				"Vehicle Not Found", fmt.Sprintf("Vehicle %s was not found.", req.VehicleNo)))
		}
		return nil, fmt.Errorf("vehicle lookup for %s: %w", req.VehicleNo, err)
	}

	if vehicle.IsBlacklisted {
		return nil, s.rejectAndNotify(booth, reject(fiber.StatusForbidden,
			"Access Denied", fmt.Sprintf("Vehicle %s is blacklisted and cannot exit.", req.VehicleNo)))
	}
	if vehicle.Status == models.VEHICLE_EXITED {
		return nil, s.rejectAndNotify(booth, reject(fiber.StatusBadRequest,
			"Already Exited", fmt.Sprintf("Vehicle %s has already exited.", req.VehicleNo)))
	}
	if !vehicle.IsParked() {
		return nil, s.rejectAndNotify(booth, reject(fiber.StatusBadRequest,
			"Not Parked", fmt.Sprintf("Vehicle %s is not currently parked.", req.VehicleNo)))
	}

	ledger, err := s.ledger.Get()
	if err != nil {
		return nil, fmt.Errorf("ledger lookup: %w", err)
	}

	exitTime := s.now()
	entryTime := exitTime
	if vehicle.StartingDate != nil {
		entryTime = *vehicle.StartingDate
	}

	vehicleType := vehicle.TypeOrDefault()
	if _, ok := ledger.Pricing.FirstHour[vehicleType]; !ok {
		vehicleType = models.DefaultVehicleType
	}

	breakdown, err := tariff.Compute(entryTime, exitTime, vehicleType, ledger.Pricing, req.IsPaid)
	if err != nil {
		return nil, s.rejectAndNotify(booth, reject(fiber.StatusBadRequest,
			"Configuration Error", fmt.Sprintf("No pricing configuration found for vehicle type %q.", vehicleType)))
	}

	classRef := vehicle.ClassRef()
	amountDue := breakdown.AmountPayable
	if !classRef.Public() {
		class := ledger.FindClass(classRef.Code)
		if class == nil {
			return nil, s.rejectAndNotify(booth, reject(fiber.StatusBadRequest,
				"Invalid Class Code", fmt.Sprintf("Class code %s is not supported.", classRef.Code)))
		}
		// Active classes always park free; inactive ones pay like the public.
		if class.IsActive() {
			amountDue = 0
		}
	}

	if amountDue > 0 {
		rej := reject(fiber.StatusForbidden, "Payment Required", "Please pay the parking fee to exit.")
		rej.Extra = map[string]interface{}{
			"tariff": models.TariffBreakdown{
				TotalAmount:   breakdown.TotalAmount,
				AmountPayable: amountDue,
			},
		}
		return nil, s.rejectAndNotify(booth, rej)
	}

	// The vehicle row serializes concurrent exits; the loser mutates nothing.
	if err := s.vehicles.MarkExited(vehicle.VehicleNo, exitTime); err != nil {
		if errors.Is(err, repository.ErrWriteConflict) {
			return nil, s.rejectAndNotify(booth, reject(fiber.StatusBadRequest,
				"Already Exited", fmt.Sprintf("Vehicle %s has already exited.", req.VehicleNo)))
		}
		return nil, fmt.Errorf("exit transition for %s: %w", req.VehicleNo, err)
	}

	s.releaseQuietly(classRef)

	record := &models.ParkingHistory{
		SessionID:       uuid.New().String(),
		VehicleNo:       vehicle.VehicleNo,
		ClassCode:       classRef.String(),
		EntryTime:       entryTime,
		ExitTime:        exitTime,
		ParkingDuration: breakdown.DurationSeconds,
		TotalAmount:     breakdown.TotalAmount,
		AmountPayable:   amountDue,
	}
	if err := s.history.Create(record); err != nil {
		// The exit already committed; a lost history row is logged, not fatal.
		log.Errorf("parking history append failed for %s: %v", vehicle.VehicleNo, err)
	}

	s.openBarrier(booth)

	result := &ExitResult{
		ScreenMessageType:    "success",
		ScreenTitle:          "Thank You!",
		ScreenMessage:        "Vehicle Verified. Thank you for coming!",
		BarrierStatus:        BarrierOpen,
		ExitTime:             exitTime,
		TotalParkingDuration: breakdown.DurationSeconds,
		Tariff: models.TariffBreakdown{
			TotalAmount:   breakdown.TotalAmount,
			AmountPayable: amountDue,
		},
		ClassCode: classRef.String(),
	}
	s.notifier.Notify(booth.BoothCode, models.DEVICE_DISPLAY, "success", result)
	return result, nil
}

// Register creates a subscription registration, or promotes an existing public
// record to the named class. Promoting a vehicle that is currently parked in
// the public pool moves its slot accounting over to the class atomically with
// respect to the counters: the class slot is claimed first, then the public
// slot is given back.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	classRef := models.NamedClass(req.ClassCode)

	var class *models.ParkingClass
	if !classRef.Public() {
		var err error
		class, err = s.ledger.GetClass(classRef.Code)
		if err != nil {
			if errors.Is(err, repository.ErrUnknownClass) {
				return nil, reject(fiber.StatusBadRequest,
					"Invalid Class Code", fmt.Sprintf("Invalid class code %q. Please choose a valid class.", req.ClassCode))
			}
			return nil, fmt.Errorf("class lookup for %s: %w", req.ClassCode, err)
		}
		if !class.IsActive() {
			return nil, reject(fiber.StatusBadRequest,
				"Class Not Active", fmt.Sprintf("The class status is %q, which is not active. Vehicle cannot be registered.", class.Status))
		}
	}

	now := s.now()
	var renewalType string
	var renewalCharge float64
	var endingDate *time.Time
	if class != nil {
		renewalType = class.RenewalType
		renewalCharge = class.RenewalCharge
		_, end := models.RenewalWindow(renewalType, now)
		endingDate = &end
	}

	existing, err := s.vehicles.GetByPlate(req.VehicleNo)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("vehicle lookup for %s: %w", req.VehicleNo, err)
	}

	if existing != nil {
		if !existing.ClassRef().Public() {
			return nil, reject(fiber.StatusConflict,
				"Duplicate Registration",
				fmt.Sprintf("A vehicle with the registration number %q already exists in class %q.", req.VehicleNo, existing.ClassCode))
		}
		return s.promote(existing, classRef, req, renewalType, renewalCharge, endingDate, now)
	}

	created := &models.Vehicle{
		VehicleNo:          req.VehicleNo,
		VehicleType:        req.VehicleType,
		OwnerFirstName:     req.OwnerFirstName,
		OwnerLastName:      req.OwnerLastName,
		ClassCode:          classRef.String(),
		RenewalType:        renewalType,
		RenewalCharge:      renewalCharge,
		EffectiveFromDate:  &now,
		EndingDate:         endingDate,
		RegistrationStatus: models.REGISTRATION_ACTIVE,
		Status:             models.VEHICLE_PENDING,
	}
	if err := s.vehicles.Create(created); err != nil {
		return nil, reject(fiber.StatusConflict,
			"Duplicate Registration",
			fmt.Sprintf("Duplicate vehicle registration number %q. Please ensure the number is unique.", req.VehicleNo))
	}

	return s.registration(created, false), nil
}

// promote upgrades an existing public vehicle record onto a named class.
func (s *Service) promote(
	vehicle *models.Vehicle,
	classRef models.ClassRef,
	req RegisterRequest,
	renewalType string,
	renewalCharge float64,
	endingDate *time.Time,
	now time.Time,
) (*Registration, error) {
	// A parked public vehicle carries a public-pool slot; move that
	// reservation to the class so the ledger aggregate stays true.
	if vehicle.IsParked() && !classRef.Public() {
		if err := s.ledger.ReserveClass(classRef.Code); err != nil {
			if errors.Is(err, repository.ErrClassFull) {
				return nil, reject(fiber.StatusBadRequest,
					"Class Full", fmt.Sprintf("No parking slots available for class %s.", classRef.Code))
			}
			return nil, fmt.Errorf("class slot swap for %s: %w", req.VehicleNo, err)
		}
		if err := s.ledger.ReleasePublic(); err != nil {
			log.Errorf("public slot release during promotion of %s: %v", req.VehicleNo, err)
		}
	}

	vehicle.ClassCode = classRef.String()
	vehicle.VehicleType = req.VehicleType
	vehicle.OwnerFirstName = req.OwnerFirstName
	vehicle.OwnerLastName = req.OwnerLastName
	vehicle.RenewalType = renewalType
	vehicle.RenewalCharge = renewalCharge
	vehicle.EffectiveFromDate = &now
	vehicle.EndingDate = endingDate
	vehicle.RegistrationStatus = models.REGISTRATION_ACTIVE
	if err := s.vehicles.Update(vehicle); err != nil {
		return nil, fmt.Errorf("vehicle promotion for %s: %w", req.VehicleNo, err)
	}

	return s.registration(vehicle, true), nil
}

func (s *Service) registration(v *models.Vehicle, promoted bool) *Registration {
	return &Registration{
		RegistrationID: v.ID,
		VehicleNo:      v.VehicleNo,
		VehicleType:    v.VehicleType,
		OwnerFirstName: v.OwnerFirstName,
		OwnerLastName:  v.OwnerLastName,
		ClassCode:      v.ClassCode,
		RenewalType:    v.RenewalType,
		RenewalCharge:  v.RenewalCharge,
		EndingDate:     v.EndingDate,
		Promoted:       promoted,
	}
}

// checkBooth validates the booth preconditions shared by entry and exit.
func (s *Service) checkBooth(code, wantType string) (*models.Booth, *Rejection) {
	if code == "" {
		return nil, reject(fiber.StatusBadRequest, "Invalid Booth", "Booth code is required.")
	}
	booth, err := s.booths.GetByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reject(fiber.StatusNotFound,
				"Invalid Booth", fmt.Sprintf("Booth with code %s was not found.", code))
		}
		log.Errorf("booth lookup for %s: %v", code, err)
		return nil, reject(fiber.StatusInternalServerError, "Error", "Booth directory is unavailable.")
	}
	if !booth.IsActive() {
		return nil, reject(fiber.StatusBadRequest,
			"Inactive Booth", fmt.Sprintf("Booth %s is not active.", code))
	}
	if booth.BoothType != wantType {
		return nil, reject(fiber.StatusBadRequest,
			"Wrong Booth Type", fmt.Sprintf("Booth %s is not an %s booth.", code, wantType))
	}
	return booth, nil
}

// rejectAndNotify pushes the rejection to the booth display before returning
// it. Display delivery is best-effort.
func (s *Service) rejectAndNotify(booth *models.Booth, rej *Rejection) *Rejection {
	if booth != nil {
		s.notifier.Notify(booth.BoothCode, models.DEVICE_DISPLAY, "failed", rej)
	}
	return rej
}

// openBarrier fires the actuator for the booth's barrier device without
// blocking the caller. Failures are logged; the admission decision already
// committed and is not unwound.
func (s *Service) openBarrier(booth *models.Booth) {
	device := booth.DeviceByRole(models.DEVICE_BARRIER)
	if device == nil || device.IPAddress == "" {
		log.Warnf("booth %s has no barrier actuator configured", booth.BoothCode)
		return
	}
	go func(boothCode, ip string) {
		ctx, cancel := context.WithTimeout(context.Background(), barrierTimeout)
		defer cancel()
		if err := s.barrier.Pulse(ctx, ip); err != nil {
			log.Errorf("barrier pulse for booth %s (%s): %v", boothCode, ip, err)
		}
	}(booth.BoothCode, device.IPAddress)
}

// releaseQuietly returns a slot to the right pool, logging instead of
// propagating: the release floor at zero makes it idempotent and a failure
// here must not fail the request that already settled.
func (s *Service) releaseQuietly(ref models.ClassRef) {
	var err error
	if ref.Public() {
		err = s.ledger.ReleasePublic()
	} else {
		err = s.ledger.ReleaseClass(ref.Code)
	}
	if err != nil {
		log.Errorf("slot release for class %s: %v", ref.String(), err)
	}
}
