package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"railway/internal/domain/models"
)

type fareKey struct {
	train, from, to string
	class           models.SeatClass
}

type invKey struct {
	train, from, to string
	class           models.SeatClass
	date            string
}

func invKeyOf(k models.InventoryKey) invKey {
	return invKey{k.TrainNo, k.Leg.From, k.Leg.To, k.SeatClass, k.TravelDate}
}

// MemoryStore is a process-local Store. A transaction holds the store mutex
// from start to finish and undoes its writes on error, so it is serializable.
type MemoryStore struct {
	mu sync.Mutex

	trains     map[string][]models.Stop
	fares      map[fareKey]models.Fare
	inventory  map[invKey]int
	orders     map[int64]models.Order
	passengers map[int64]models.Passenger
	failures   map[string]error

	nextOrder, nextItem, nextPassenger int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trains:     map[string][]models.Stop{},
		fares:      map[fareKey]models.Fare{},
		inventory:  map[invKey]int{},
		orders:     map[int64]models.Order{},
		passengers: map[int64]models.Passenger{},
		failures:   map[string]error{},
	}
}

// AddTrain registers a train with its stations in travel order.
func (s *MemoryStore) AddTrain(trainNo string, stations ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stops := make([]models.Stop, len(stations))
	for i, st := range stations {
		stops[i] = models.Stop{Station: st, Seq: i + 1}
	}
	s.trains[trainNo] = stops
}

func (s *MemoryStore) SetFare(trainNo, from, to string, class models.SeatClass, price models.Money, km int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fares[fareKey{trainNo, from, to, class}] = models.Fare{Price: price, DistanceKm: km}
}

func (s *MemoryStore) SetInventory(trainNo, from, to string, class models.SeatClass, date string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory[invKey{trainNo, from, to, class, date}] = n
}

// InventoryCount returns -1 when there is no row.
func (s *MemoryStore) InventoryCount(trainNo, from, to string, class models.SeatClass, date string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.inventory[invKey{trainNo, from, to, class, date}]
	if !ok {
		return -1
	}
	return n
}

// AddPassenger stores p with a fresh id and version 1.
func (s *MemoryStore) AddPassenger(p models.Passenger) models.Passenger {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPassenger++
	p.ID = s.nextPassenger
	p.Version = 1
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.passengers[p.ID] = p
	return p
}

// FailOn makes the named operation return err until cleared with a nil err.
func (s *MemoryStore) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *MemoryStore) failure(op string) error {
	return s.failures[op]
}

func (s *MemoryStore) TrainExists(_ context.Context, trainNo string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("TrainExists"); err != nil {
		return false, err
	}
	_, ok := s.trains[strings.TrimSpace(trainNo)]
	return ok, nil
}

func (s *MemoryStore) StopSequence(_ context.Context, trainNo string) ([]models.Stop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("StopSequence"); err != nil {
		return nil, err
	}
	stops := s.trains[strings.TrimSpace(trainNo)]
	out := make([]models.Stop, len(stops))
	copy(out, stops)
	return out, nil
}

func (s *MemoryStore) TrainsThrough(_ context.Context, station string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("TrainsThrough"); err != nil {
		return nil, err
	}
	station = strings.TrimSpace(station)
	out := []string{}
	for trainNo, stops := range s.trains {
		for _, st := range stops {
			if st.Station == station {
				out = append(out, trainNo)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Fare(_ context.Context, trainNo string, leg models.Leg, class models.SeatClass) (models.Fare, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("Fare"); err != nil {
		return models.Fare{}, false, err
	}
	f, ok := s.fares[fareKey{trainNo, leg.From, leg.To, class}]
	return f, ok, nil
}

func (s *MemoryStore) SeatInventory(_ context.Context, key models.InventoryKey) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seatInventory(key)
}

func (s *MemoryStore) seatInventory(key models.InventoryKey) (int, bool, error) {
	if err := s.failure("SeatInventory"); err != nil {
		return 0, false, err
	}
	n, ok := s.inventory[invKeyOf(key)]
	return n, ok, nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id int64) (models.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("GetOrder"); err != nil {
		return models.Order{}, false, err
	}
	o, ok := s.orders[id]
	return cloneOrder(o), ok, nil
}

func (s *MemoryStore) ListOrdersByUser(_ context.Context, userID int64) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ListOrdersByUser"); err != nil {
		return nil, err
	}
	out := []models.Order{}
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListExpiredPending(_ context.Context, now time.Time, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ListExpiredPending"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	var expired []models.Order
	for _, o := range s.orders {
		if o.Status == models.OrderPending && o.ExpiresAt.Before(now) {
			expired = append(expired, o)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })
	ids := []int64{}
	for i := 0; i < len(expired) && i < limit; i++ {
		ids = append(ids, expired[i].ID)
	}
	return ids, nil
}

func (s *MemoryStore) HasPendingOrder(_ context.Context, userID int64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("HasPendingOrder"); err != nil {
		return false, err
	}
	for _, o := range s.orders {
		if o.UserID == userID && o.Status == models.OrderPending && !o.ExpiresAt.Before(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{s: s}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *MemoryStore) GetPassenger(_ context.Context, ownerID, id int64) (models.Passenger, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("GetPassenger"); err != nil {
		return models.Passenger{}, false, err
	}
	p, ok := s.passengers[id]
	if !ok || p.OwnerID != ownerID || p.DeletedAt != nil {
		return models.Passenger{}, false, nil
	}
	return p, true, nil
}

func (s *MemoryStore) ListPassengers(_ context.Context, ownerID int64) ([]models.Passenger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ListPassengers"); err != nil {
		return nil, err
	}
	out := []models.Passenger{}
	for _, p := range s.passengers {
		if p.OwnerID == ownerID && p.DeletedAt == nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdatePassengerIfVersion(_ context.Context, ownerID, id int64, expected int, patch models.PassengerPatch) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("UpdatePassengerIfVersion"); err != nil {
		return 0, false, err
	}
	p, ok := s.passengers[id]
	if !ok || p.OwnerID != ownerID || p.DeletedAt != nil || p.Version != expected {
		return 0, false, nil
	}
	patch.Apply(&p)
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	s.passengers[id] = p
	return p.Version, true, nil
}

func (s *MemoryStore) SoftDeletePassengerIfVersion(_ context.Context, ownerID, id int64, expected int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("SoftDeletePassengerIfVersion"); err != nil {
		return false, err
	}
	p, ok := s.passengers[id]
	if !ok || p.OwnerID != ownerID || p.DeletedAt != nil || p.Version != expected {
		return false, nil
	}
	now := time.Now().UTC()
	p.DeletedAt = &now
	p.UpdatedAt = now
	p.Version++
	s.passengers[id] = p
	return true, nil
}

// memTx runs with the store mutex held.
type memTx struct {
	s    *MemoryStore
	undo []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) SeatInventory(_ context.Context, key models.InventoryKey) (int, bool, error) {
	return t.s.seatInventory(key)
}

func (t *memTx) AdjustSeatInventory(_ context.Context, deltas []models.InventoryDelta) error {
	if err := t.s.failure("AdjustSeatInventory"); err != nil {
		return err
	}
	sorted := make([]models.InventoryDelta, len(deltas))
	copy(sorted, deltas)
	SortDeltas(sorted)

	for _, d := range sorted {
		if d.Delta == 0 {
			continue
		}
		k := invKeyOf(d.InventoryKey)
		prev, ok := t.s.inventory[k]
		if !ok || prev+d.Delta < 0 {
			return fmt.Errorf("%w: %s %s %s", ErrInventoryShortfall, d.Leg, d.SeatClass, d.TravelDate)
		}
		t.s.inventory[k] = prev + d.Delta
		t.undo = append(t.undo, func() { t.s.inventory[k] = prev })
	}
	return nil
}

func (t *memTx) CreateOrder(_ context.Context, o models.Order) (models.Order, error) {
	if err := t.s.failure("CreateOrder"); err != nil {
		return o, err
	}
	prevOrder, prevItem := t.s.nextOrder, t.s.nextItem
	t.s.nextOrder++
	o.ID = t.s.nextOrder
	o.Items = append([]models.OrderItem(nil), o.Items...)
	for i := range o.Items {
		t.s.nextItem++
		o.Items[i].ID = t.s.nextItem
		o.Items[i].OrderID = o.ID
	}
	t.s.orders[o.ID] = cloneOrder(o)
	id := o.ID
	t.undo = append(t.undo, func() {
		delete(t.s.orders, id)
		t.s.nextOrder, t.s.nextItem = prevOrder, prevItem
	})
	return o, nil
}

func (t *memTx) GetOrderForUpdate(_ context.Context, id int64) (models.Order, bool, error) {
	if err := t.s.failure("GetOrder"); err != nil {
		return models.Order{}, false, err
	}
	o, ok := t.s.orders[id]
	return cloneOrder(o), ok, nil
}

func (t *memTx) UpdateOrderStatus(_ context.Context, id int64, from, to models.OrderStatus, at time.Time) (bool, error) {
	if err := t.s.failure("UpdateOrderStatus"); err != nil {
		return false, err
	}
	o, ok := t.s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	prev := o
	o.Status = to
	o.UpdatedAt = at
	t.s.orders[id] = o
	t.undo = append(t.undo, func() { t.s.orders[id] = prev })
	return true, nil
}

func cloneOrder(o models.Order) models.Order {
	if o.Items != nil {
		o.Items = append([]models.OrderItem(nil), o.Items...)
	}
	return o
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Tx    = (*memTx)(nil)
)
