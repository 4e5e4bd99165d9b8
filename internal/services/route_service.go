package services

import (
	"context"
	"fmt"
	"strings"

	"railway/internal/domain"
	"railway/internal/domain/models"
	"railway/internal/repositories"
	"railway/internal/utils"
)

// SegmentCache stores computed leg lists. Implementations may drop entries
// at any time; a miss or error just means the store is asked again.
type SegmentCache interface {
	GetSegments(ctx context.Context, trainNo, origin, destination string) ([]models.Leg, bool, error)
	SetSegments(ctx context.Context, trainNo, origin, destination string, legs []models.Leg) error
}

type RouteService struct {
	Stops repositories.TrainReader
	Cache SegmentCache
}

// Segment splits origin->destination into the adjacent-stop legs the train
// runs, in travel order.
func (s RouteService) Segment(ctx context.Context, trainNo, origin, destination string) ([]models.Leg, error) {
	trainNo = strings.TrimSpace(trainNo)
	origin = strings.TrimSpace(origin)
	destination = strings.TrimSpace(destination)

	if s.Cache != nil {
		if legs, ok, err := s.Cache.GetSegments(ctx, trainNo, origin, destination); err == nil && ok && len(legs) > 0 {
			return legs, nil
		} else if err != nil {
			utils.LogError(domain.RequestID(ctx), "route", "segment_cache_get", err)
		}
	}

	stops, err := s.Stops.StopSequence(ctx, trainNo)
	if err != nil {
		return nil, domain.StorageError("stop sequence", err)
	}
	legs, err := SegmentStops(trainNo, stops, origin, destination)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.SetSegments(ctx, trainNo, origin, destination, legs); err != nil {
			utils.LogError(domain.RequestID(ctx), "route", "segment_cache_set", err)
		}
	}
	return legs, nil
}

// SegmentStops is the pure part of Segment. stops must be ordered by Seq.
func SegmentStops(trainNo string, stops []models.Stop, origin, destination string) ([]models.Leg, error) {
	if len(stops) == 0 {
		return nil, domain.NotFoundError{Resource: "train " + trainNo, Err: domain.ErrTrainNotFound}
	}
	from, to := -1, -1
	for i, st := range stops {
		if st.Station == origin {
			from = i
		}
		if st.Station == destination {
			to = i
		}
	}
	if from < 0 {
		return nil, domain.ValidationError{Field: "origin", Msg: fmt.Sprintf("%s is not a stop of %s", origin, trainNo), Err: domain.ErrStationNotOnRoute}
	}
	if to < 0 {
		return nil, domain.ValidationError{Field: "destination", Msg: fmt.Sprintf("%s is not a stop of %s", destination, trainNo), Err: domain.ErrStationNotOnRoute}
	}
	if from >= to {
		return nil, domain.ValidationError{Field: "destination", Msg: fmt.Sprintf("%s does not come after %s", destination, origin), Err: domain.ErrInvalidDirection}
	}

	legs := make([]models.Leg, 0, to-from)
	for i := from; i < to; i++ {
		legs = append(legs, models.Leg{Index: i, From: stops[i].Station, To: stops[i+1].Station})
	}
	return legs, nil
}
