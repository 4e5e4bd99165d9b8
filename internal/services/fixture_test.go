package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"railway/internal/domain/models"
	"railway/internal/repositories"
)

const travelDate = "2024-12-01"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordedEvents struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (r *recordedEvents) PublishOrderEvent(_ context.Context, evt models.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordedEvents) types() []models.OrderEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.OrderEventType{}
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store  *repositories.MemoryStore
	orders *OrderService
	clock  *clock
	events *recordedEvents
	userID int64
}

// newFixture seeds train K1 running A-B-C-D with second_class on every leg
// and business on A-B only.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repositories.NewMemoryStore()
	store.AddTrain("K1", "A", "B", "C", "D")
	store.SetFare("K1", "A", "B", models.SeatSecondClass, 10050, 120)
	store.SetFare("K1", "B", "C", models.SeatSecondClass, 20000, 200)
	store.SetFare("K1", "C", "D", models.SeatSecondClass, 5025, 60)
	store.SetFare("K1", "A", "B", models.SeatBusiness, 30000, 120)
	store.SetFare("K1", "B", "C", models.SeatBusiness, 60000, 200)
	store.SetInventory("K1", "A", "B", models.SeatSecondClass, travelDate, 5)
	store.SetInventory("K1", "B", "C", models.SeatSecondClass, travelDate, 2)
	store.SetInventory("K1", "C", "D", models.SeatSecondClass, travelDate, 9)
	store.SetInventory("K1", "A", "B", models.SeatBusiness, travelDate, 3)

	clk := &clock{t: time.Date(2024, 11, 20, 8, 0, 0, 0, time.UTC)}
	ev := &recordedEvents{}
	svc := NewOrderService(store, nil, ev, 20*time.Minute)
	svc.Now = clk.Now
	return &fixture{store: store, orders: svc, clock: clk, events: ev, userID: 7}
}

func (f *fixture) passengers(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		p := f.store.AddPassenger(models.Passenger{OwnerID: f.userID, Name: "P", DiscountType: "成人"})
		ids[i] = p.ID
	}
	return ids
}

func (f *fixture) input(origin, destination string, class models.SeatClass, passengerIDs ...int64) CreateOrderInput {
	sel := make([]models.SeatSelection, len(passengerIDs))
	for i, id := range passengerIDs {
		sel[i] = models.SeatSelection{PassengerID: id, SeatClass: class}
	}
	return CreateOrderInput{
		UserID:      f.userID,
		TrainNo:     "K1",
		Origin:      origin,
		Destination: destination,
		TravelDate:  travelDate,
		Selections:  sel,
	}
}

func (f *fixture) seats(from, to string, class models.SeatClass) int {
	return f.store.InventoryCount("K1", from, to, class, travelDate)
}
