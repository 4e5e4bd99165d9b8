package repositories

import (
	"context"
	"errors"
	"sort"
	"time"

	"railway/internal/domain/models"
)

// ErrInventoryShortfall is returned by AdjustSeatInventory when a row is
// missing or would drop below zero. Nothing has been applied when it is
// returned inside a transaction that is then rolled back.
var ErrInventoryShortfall = errors.New("seat inventory shortfall")

type TrainReader interface {
	TrainExists(ctx context.Context, trainNo string) (bool, error)
	// StopSequence returns stops ordered by Seq. Empty when the train has none.
	StopSequence(ctx context.Context, trainNo string) ([]models.Stop, error)
	// TrainsThrough lists, sorted, the trains that call at station.
	TrainsThrough(ctx context.Context, station string) ([]string, error)
}

type FareReader interface {
	// Fare returns ok=false when the class is not offered on the leg.
	Fare(ctx context.Context, trainNo string, leg models.Leg, class models.SeatClass) (models.Fare, bool, error)
}

type InventoryReader interface {
	// SeatInventory returns ok=false when no row exists for the key.
	SeatInventory(ctx context.Context, key models.InventoryKey) (int, bool, error)
}

type OrderReader interface {
	GetOrder(ctx context.Context, id int64) (models.Order, bool, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]int64, error)
	HasPendingOrder(ctx context.Context, userID int64, now time.Time) (bool, error)
}

// Tx is the transactional half of the booking store. SeatInventory on a Tx
// locks the row until commit or rollback.
type Tx interface {
	InventoryReader
	AdjustSeatInventory(ctx context.Context, deltas []models.InventoryDelta) error
	CreateOrder(ctx context.Context, o models.Order) (models.Order, error)
	GetOrderForUpdate(ctx context.Context, id int64) (models.Order, bool, error)
	UpdateOrderStatus(ctx context.Context, id int64, from, to models.OrderStatus, at time.Time) (bool, error)
}

// BookingStore is everything the order lifecycle needs from persistence.
type BookingStore interface {
	TrainReader
	FareReader
	InventoryReader
	OrderReader
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// PassengerStore never returns soft-deleted passengers.
type PassengerStore interface {
	GetPassenger(ctx context.Context, ownerID, id int64) (models.Passenger, bool, error)
	ListPassengers(ctx context.Context, ownerID int64) ([]models.Passenger, error)
	// UpdatePassengerIfVersion applies patch and bumps version in one
	// conditional write. ok=false means no row matched owner, id and version.
	UpdatePassengerIfVersion(ctx context.Context, ownerID, id int64, expected int, patch models.PassengerPatch) (newVersion int, ok bool, err error)
	SoftDeletePassengerIfVersion(ctx context.Context, ownerID, id int64, expected int) (bool, error)
}

type Store interface {
	BookingStore
	PassengerStore
}

// LockOrder sorts keys by leg index, then seat class, then date. Every
// writer locks inventory rows in this order so overlapping reservations
// cannot deadlock each other.
func LockOrder(keys []models.InventoryKey) {
	sort.SliceStable(keys, func(i, j int) bool {
		return lessKey(keys[i], keys[j])
	})
}

// SortDeltas orders deltas like LockOrder.
func SortDeltas(deltas []models.InventoryDelta) {
	sort.SliceStable(deltas, func(i, j int) bool {
		return lessKey(deltas[i].InventoryKey, deltas[j].InventoryKey)
	})
}

func lessKey(a, b models.InventoryKey) bool {
	if a.TrainNo != b.TrainNo {
		return a.TrainNo < b.TrainNo
	}
	if a.Leg.Index != b.Leg.Index {
		return a.Leg.Index < b.Leg.Index
	}
	if a.SeatClass != b.SeatClass {
		return a.SeatClass < b.SeatClass
	}
	return a.TravelDate < b.TravelDate
}
