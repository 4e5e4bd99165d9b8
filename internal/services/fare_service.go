package services

import (
	"context"
	"fmt"

	"railway/internal/domain"
	"railway/internal/domain/models"
	"railway/internal/repositories"
)

type FareService struct {
	Fares repositories.FareReader
}

// Price sums leg fares for one class. Every leg must have a fare record.
func (s FareService) Price(ctx context.Context, trainNo string, legs []models.Leg, class models.SeatClass) (models.TripFare, error) {
	var out models.TripFare
	for _, leg := range legs {
		f, ok, err := s.Fares.Fare(ctx, trainNo, leg, class)
		if err != nil {
			return models.TripFare{}, domain.StorageError("fare lookup", err)
		}
		if !ok {
			return models.TripFare{}, domain.ValidationError{
				Field: "seatClass",
				Msg:   fmt.Sprintf("%s not offered on %s", class.Label(), leg),
				Err:   domain.ErrSeatClassNotOffered,
			}
		}
		out.TotalPrice += f.Price
		out.TotalDistanceKm += f.DistanceKm
	}
	return out, nil
}

// PriceAll returns the trip fare of every class offered on all legs.
func (s FareService) PriceAll(ctx context.Context, trainNo string, legs []models.Leg) (map[models.SeatClass]models.TripFare, error) {
	out := map[models.SeatClass]models.TripFare{}
	for _, class := range models.SeatClasses {
		tf, err := s.Price(ctx, trainNo, legs, class)
		if err != nil {
			if domain.IsStorageFailure(err) {
				return nil, err
			}
			continue
		}
		out[class] = tf
	}
	return out, nil
}
