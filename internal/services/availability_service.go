package services

import (
	"context"

	"railway/internal/domain"
	"railway/internal/domain/models"
	"railway/internal/repositories"
)

type AvailabilityService struct{}

// Availability is the minimum count over legs. A leg with no inventory row
// makes the class unavailable for the trip (Offered=false).
func (AvailabilityService) Availability(ctx context.Context, inv repositories.InventoryReader, trainNo string, legs []models.Leg, class models.SeatClass, date string) (models.Availability, error) {
	if len(legs) == 0 {
		return models.Availability{}, nil
	}
	lowest := -1
	for _, leg := range legs {
		n, ok, err := inv.SeatInventory(ctx, models.InventoryKey{TrainNo: trainNo, Leg: leg, SeatClass: class, TravelDate: date})
		if err != nil {
			return models.Availability{}, domain.StorageError("seat inventory", err)
		}
		if !ok {
			return models.Availability{}, nil
		}
		if lowest < 0 || n < lowest {
			lowest = n
		}
	}
	return models.Availability{Count: lowest, Offered: true}, nil
}

// AvailabilityAll evaluates every class independently. Classes that are not
// offered on the whole trip are left out.
func (a AvailabilityService) AvailabilityAll(ctx context.Context, inv repositories.InventoryReader, trainNo string, legs []models.Leg, date string) (map[models.SeatClass]models.Availability, error) {
	out := map[models.SeatClass]models.Availability{}
	for _, class := range models.SeatClasses {
		av, err := a.Availability(ctx, inv, trainNo, legs, class, date)
		if err != nil {
			return nil, err
		}
		if av.Offered {
			out[class] = av
		}
	}
	return out, nil
}
