package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"railway/internal/domain/models"
)

func key(idx int, from, to string, class models.SeatClass) models.InventoryKey {
	return models.InventoryKey{
		TrainNo:    "G27",
		Leg:        models.Leg{Index: idx, From: from, To: to},
		SeatClass:  class,
		TravelDate: "2024-12-01",
	}
}

func TestSeatInventory_LockingReadAddsForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT available_count FROM seat_inventory .* FOR UPDATE`).
		WithArgs("G27", "A", "B", "second_class", "2024-12-01").
		WillReturnRows(sqlmock.NewRows([]string{"available_count"}).AddRow(7))

	repo := InventoryRepository{DB: db, ForUpdate: true}
	n, ok, err := repo.SeatInventory(context.Background(), key(0, "A", "B", models.SeatSecondClass))
	if err != nil || !ok || n != 7 {
		t.Fatalf("got n=%d ok=%v err=%v", n, ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSeatInventory_MissingRowIsNotOffered(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT available_count FROM seat_inventory`).
		WillReturnRows(sqlmock.NewRows([]string{"available_count"}))

	n, ok, err := InventoryRepository{DB: db}.SeatInventory(context.Background(), key(0, "A", "B", models.SeatBusiness))
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if ok || n != 0 {
		t.Fatalf("expected no record, got n=%d ok=%v", n, ok)
	}
}

func TestAdjustSeatInventory_AppliesInLockOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	update := regexp.QuoteMeta(`UPDATE seat_inventory`)
	mock.ExpectExec(update).
		WithArgs(-2, "G27", "A", "B", "second_class", "2024-12-01", -2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(update).
		WithArgs(-2, "G27", "B", "C", "second_class", "2024-12-01", -2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	deltas := []models.InventoryDelta{
		{InventoryKey: key(1, "B", "C", models.SeatSecondClass), Delta: -2},
		{InventoryKey: key(0, "A", "B", models.SeatSecondClass), Delta: -2},
	}
	if err := (InventoryRepository{DB: db}).AdjustSeatInventory(context.Background(), deltas); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if deltas[0].Leg.Index != 1 {
		t.Fatalf("caller slice must not be reordered")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAdjustSeatInventory_ZeroRowsIsShortfall(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE seat_inventory`).WillReturnResult(sqlmock.NewResult(0, 0))

	err = InventoryRepository{DB: db}.AdjustSeatInventory(context.Background(), []models.InventoryDelta{
		{InventoryKey: key(0, "A", "B", models.SeatSecondClass), Delta: -5},
	})
	if !errors.Is(err, ErrInventoryShortfall) {
		t.Fatalf("expected shortfall, got %v", err)
	}
}

func TestLockOrder_SortsByLegThenClass(t *testing.T) {
	keys := []models.InventoryKey{
		key(1, "B", "C", models.SeatBusiness),
		key(0, "A", "B", models.SeatSecondClass),
		key(0, "A", "B", models.SeatBusiness),
	}
	LockOrder(keys)
	if keys[0].Leg.Index != 0 || keys[0].SeatClass != models.SeatBusiness {
		t.Fatalf("unexpected first key %+v", keys[0])
	}
	if keys[1].SeatClass != models.SeatSecondClass || keys[2].Leg.Index != 1 {
		t.Fatalf("unexpected order %+v", keys)
	}
}

func TestTrainsThrough_ListsTrainsCallingAtStation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT train_no FROM train_stops WHERE station=? ORDER BY train_no ASC`)).
		WithArgs("济南西").
		WillReturnRows(sqlmock.NewRows([]string{"train_no"}).AddRow("D5").AddRow("G27"))

	got, err := TrainRepository{DB: db}.TrainsThrough(context.Background(), "济南西")
	if err != nil {
		t.Fatalf("TrainsThrough: %v", err)
	}
	if len(got) != 2 || got[0] != "D5" || got[1] != "G27" {
		t.Fatalf("got %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
