package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	intdb "railway/internal/db"
	"railway/internal/domain/models"
)

// InventoryRepository reads and adjusts seat_inventory. With ForUpdate set
// (only meaningful on a *sql.Tx) reads take the row lock.
type InventoryRepository struct {
	DB        intdb.Querier
	ForUpdate bool
}

func (r InventoryRepository) SeatInventory(ctx context.Context, key models.InventoryKey) (int, bool, error) {
	q := `SELECT available_count FROM seat_inventory
		WHERE train_no=? AND from_station=? AND to_station=? AND seat_class=? AND travel_date=?`
	if r.ForUpdate {
		q += ` FOR UPDATE`
	}
	var n int
	err := r.DB.QueryRowContext(ctx, q, key.TrainNo, key.Leg.From, key.Leg.To, string(key.SeatClass), key.TravelDate).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// AdjustSeatInventory applies every delta with a guarded UPDATE in lock
// order. A row that is missing or would go negative stops the run with
// ErrInventoryShortfall; the caller must roll back the transaction.
func (r InventoryRepository) AdjustSeatInventory(ctx context.Context, deltas []models.InventoryDelta) error {
	sorted := make([]models.InventoryDelta, len(deltas))
	copy(sorted, deltas)
	SortDeltas(sorted)

	for _, d := range sorted {
		if d.Delta == 0 {
			continue
		}
		res, err := r.DB.ExecContext(ctx, `
			UPDATE seat_inventory
			SET available_count = available_count + ?
			WHERE train_no=? AND from_station=? AND to_station=? AND seat_class=? AND travel_date=?
			  AND available_count + ? >= 0`,
			d.Delta, d.TrainNo, d.Leg.From, d.Leg.To, string(d.SeatClass), d.TravelDate, d.Delta)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("%w: %s %s %s", ErrInventoryShortfall, d.Leg, d.SeatClass, d.TravelDate)
		}
	}
	return nil
}
