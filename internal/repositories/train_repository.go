package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	intdb "railway/internal/db"
	"railway/internal/domain/models"
)

type TrainRepository struct {
	DB intdb.Querier
}

func (r TrainRepository) TrainExists(ctx context.Context, trainNo string) (bool, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `SELECT id FROM trains WHERE train_no=? LIMIT 1`, strings.TrimSpace(trainNo)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r TrainRepository) StopSequence(ctx context.Context, trainNo string) ([]models.Stop, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT station, seq FROM train_stops WHERE train_no=? ORDER BY seq ASC`, strings.TrimSpace(trainNo))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Stop{}
	for rows.Next() {
		var s models.Stop
		if err := rows.Scan(&s.Station, &s.Seq); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r TrainRepository) TrainsThrough(ctx context.Context, station string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT DISTINCT train_no FROM train_stops WHERE station=? ORDER BY train_no ASC`, strings.TrimSpace(station))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var trainNo string
		if err := rows.Scan(&trainNo); err != nil {
			return nil, err
		}
		out = append(out, trainNo)
	}
	return out, rows.Err()
}

type FareRepository struct {
	DB intdb.Querier
}

func (r FareRepository) Fare(ctx context.Context, trainNo string, leg models.Leg, class models.SeatClass) (models.Fare, bool, error) {
	var price string
	var f models.Fare
	err := r.DB.QueryRowContext(ctx, `
		SELECT price, distance_km
		FROM train_fares
		WHERE train_no=? AND from_station=? AND to_station=? AND seat_class=?
		LIMIT 1`, trainNo, leg.From, leg.To, string(class)).Scan(&price, &f.DistanceKm)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Fare{}, false, nil
	}
	if err != nil {
		return models.Fare{}, false, err
	}
	f.Price, err = models.ParseMoney(price)
	if err != nil {
		return models.Fare{}, false, err
	}
	return f, true, nil
}
