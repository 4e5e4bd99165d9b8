package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"railway/internal/domain"
	"railway/internal/domain/models"
	"railway/internal/repositories"
	"railway/internal/utils"
)

// PassengerNotifier is told about every committed passenger change.
type PassengerNotifier interface {
	PassengerUpdated(ctx context.Context, p models.Passenger) error
}

// PassengerService guards passenger edits with the row version. Two editors
// holding the same version cannot both win.
type PassengerService struct {
	Store    repositories.PassengerStore
	Notifier PassengerNotifier
}

func (s PassengerService) List(ctx context.Context, ownerID int64) ([]models.Passenger, error) {
	list, err := s.Store.ListPassengers(ctx, ownerID)
	if err != nil {
		return nil, domain.StorageError("list passengers", err)
	}
	return list, nil
}

func (s PassengerService) Get(ctx context.Context, ownerID, id int64) (models.Passenger, error) {
	p, ok, err := s.Store.GetPassenger(ctx, ownerID, id)
	if err != nil {
		return models.Passenger{}, domain.StorageError("passenger lookup", err)
	}
	if !ok {
		return models.Passenger{}, passengerNotFound(id)
	}
	return p, nil
}

// Update applies patch when the stored version equals expectedVersion and
// returns the new version. A stale version changes nothing.
func (s PassengerService) Update(ctx context.Context, ownerID, passengerID int64, patch models.PassengerPatch, expectedVersion int) (models.UpdateResult, error) {
	rid := domain.RequestID(ctx)
	patch, err := normalizePatch(patch)
	if err != nil {
		return models.UpdateResult{}, err
	}
	if expectedVersion < 1 {
		return models.UpdateResult{}, domain.ValidationError{Field: "version", Msg: "version is required"}
	}

	if _, err := s.Get(ctx, ownerID, passengerID); err != nil {
		return models.UpdateResult{}, err
	}

	newVersion, ok, err := s.Store.UpdatePassengerIfVersion(ctx, ownerID, passengerID, expectedVersion, patch)
	if err != nil {
		return models.UpdateResult{}, domain.StorageError("update passenger", err)
	}
	if !ok {
		// Either someone else won or the row went away in between.
		if _, err := s.Get(ctx, ownerID, passengerID); err != nil {
			return models.UpdateResult{}, err
		}
		utils.LogEvent(rid, "passengers", "update_conflict", fmt.Sprintf("passenger_id=%d expected=%d", passengerID, expectedVersion))
		return models.UpdateResult{Success: false}, domain.ConflictError{
			Resource: "passenger",
			Msg:      "passenger was modified by someone else, reload and retry",
			Err:      domain.ErrVersionConflict,
		}
	}

	utils.LogEvent(rid, "passengers", "update", fmt.Sprintf("passenger_id=%d version=%d", passengerID, newVersion))
	s.notify(ctx, ownerID, passengerID)
	return models.UpdateResult{Success: true, Version: newVersion}, nil
}

// Delete soft-deletes a passenger under the same version rule as Update.
func (s PassengerService) Delete(ctx context.Context, ownerID, passengerID int64, expectedVersion int) error {
	if expectedVersion < 1 {
		return domain.ValidationError{Field: "version", Msg: "version is required"}
	}
	if _, err := s.Get(ctx, ownerID, passengerID); err != nil {
		return err
	}
	ok, err := s.Store.SoftDeletePassengerIfVersion(ctx, ownerID, passengerID, expectedVersion)
	if err != nil {
		return domain.StorageError("delete passenger", err)
	}
	if !ok {
		if _, err := s.Get(ctx, ownerID, passengerID); err != nil {
			return err
		}
		return domain.ConflictError{Resource: "passenger", Msg: "passenger was modified by someone else", Err: domain.ErrVersionConflict}
	}
	utils.LogEvent(domain.RequestID(ctx), "passengers", "delete", fmt.Sprintf("passenger_id=%d", passengerID))
	return nil
}

func (s PassengerService) notify(ctx context.Context, ownerID, passengerID int64) {
	if s.Notifier == nil {
		return
	}
	p, err := s.Get(ctx, ownerID, passengerID)
	if err != nil {
		utils.LogError(domain.RequestID(ctx), "passengers", "notify_reload", err)
		return
	}
	if err := s.Notifier.PassengerUpdated(ctx, p); err != nil {
		utils.LogError(domain.RequestID(ctx), "passengers", "notify", err)
	}
}

func normalizePatch(p models.PassengerPatch) (models.PassengerPatch, error) {
	if p.Empty() {
		return p, domain.ValidationError{Field: "updates", Msg: "nothing to update"}
	}
	if p.Name != nil {
		name := utils.NormalizeSpace(*p.Name)
		if name == "" {
			return p, domain.ValidationError{Field: "name", Msg: "name cannot be empty"}
		}
		p.Name = &name
	}
	if p.Phone != nil {
		phone := utils.NormalizePhone(*p.Phone)
		if phone != "" && (len(phone) != 11 || !utils.IsDigits(phone)) {
			return p, domain.ValidationError{Field: "phone", Msg: "phone must be 11 digits"}
		}
		p.Phone = &phone
	}
	if p.DiscountType != nil {
		dt := strings.TrimSpace(*p.DiscountType)
		if !slices.Contains(models.DiscountTypes, dt) {
			return p, domain.ValidationError{Field: "discountType", Msg: fmt.Sprintf("unsupported discount type %q", dt)}
		}
		p.DiscountType = &dt
	}
	if p.SeatPreference != nil {
		v := strings.TrimSpace(*p.SeatPreference)
		p.SeatPreference = &v
	}
	if p.SpecialNeeds != nil {
		v := strings.TrimSpace(*p.SpecialNeeds)
		p.SpecialNeeds = &v
	}
	return p, nil
}

func passengerNotFound(id int64) error {
	return domain.NotFoundError{Resource: fmt.Sprintf("passenger %d", id), Err: domain.ErrPassengerNotFound}
}
