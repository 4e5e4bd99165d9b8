package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"railway/internal/domain"
	"railway/internal/domain/models"
	"railway/internal/repositories"
	"railway/internal/utils"
)

// DefaultLockDuration is how long a PENDING order holds its seats.
const DefaultLockDuration = 20 * time.Minute

// OrderEvents receives order transitions after commit.
type OrderEvents interface {
	PublishOrderEvent(ctx context.Context, evt models.OrderEvent) error
}

type CreateOrderInput struct {
	UserID      int64                  `json:"-"`
	TrainNo     string                 `json:"trainNo"`
	Origin      string                 `json:"origin"`
	Destination string                 `json:"destination"`
	TravelDate  string                 `json:"travelDate"`
	Selections  []models.SeatSelection `json:"passengers"`
}

type OrderService struct {
	Store        repositories.BookingStore
	Passengers   repositories.PassengerStore
	Routes       RouteService
	Fares        FareService
	Availability AvailabilityService
	Events       OrderEvents
	LockDuration time.Duration
	Now          func() time.Time
}

// NewOrderService wires the calculators over one store. cache and events may
// be nil.
func NewOrderService(store repositories.Store, cache SegmentCache, events OrderEvents, lock time.Duration) *OrderService {
	return &OrderService{
		Store:        store,
		Passengers:   store,
		Routes:       RouteService{Stops: store, Cache: cache},
		Fares:        FareService{Fares: store},
		Events:       events,
		LockDuration: lock,
	}
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return utils.NowUTC()
}

func (s *OrderService) lockDuration() time.Duration {
	if s.LockDuration > 0 {
		return s.LockDuration
	}
	return DefaultLockDuration
}

type classDemand struct {
	class models.SeatClass
	count int
	fare  models.TripFare
}

// CreateOrder reserves one seat per selection on every leg of the trip and
// stores a PENDING order. Either everything is reserved or nothing is.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (models.OrderReceipt, error) {
	rid := domain.RequestID(ctx)
	in.TrainNo = strings.TrimSpace(in.TrainNo)
	in.Origin = strings.TrimSpace(in.Origin)
	in.Destination = strings.TrimSpace(in.Destination)

	if len(in.Selections) == 0 {
		return models.OrderReceipt{}, domain.ValidationError{Field: "passengers", Msg: "select at least one passenger", Err: domain.ErrNoPassengersSelected}
	}
	date, err := utils.NormalizeDate(in.TravelDate)
	if err != nil {
		return models.OrderReceipt{}, domain.ValidationError{Field: "travelDate", Msg: "expected YYYY-MM-DD", Err: err}
	}

	demands := []*classDemand{}
	byClass := map[models.SeatClass]*classDemand{}
	seen := map[int64]bool{}
	for _, sel := range in.Selections {
		if sel.PassengerID <= 0 {
			return models.OrderReceipt{}, domain.ValidationError{Field: "passengerId", Msg: "invalid passenger id"}
		}
		if seen[sel.PassengerID] {
			return models.OrderReceipt{}, domain.ValidationError{Field: "passengerId", Msg: fmt.Sprintf("passenger %d selected twice", sel.PassengerID)}
		}
		seen[sel.PassengerID] = true
		if !sel.SeatClass.Valid() {
			return models.OrderReceipt{}, domain.ValidationError{Field: "seatClass", Msg: fmt.Sprintf("unknown seat class %q", sel.SeatClass)}
		}
		d, ok := byClass[sel.SeatClass]
		if !ok {
			d = &classDemand{class: sel.SeatClass}
			byClass[sel.SeatClass] = d
			demands = append(demands, d)
		}
		d.count++
	}

	exists, err := s.Store.TrainExists(ctx, in.TrainNo)
	if err != nil {
		return models.OrderReceipt{}, domain.StorageError("train lookup", err)
	}
	if !exists {
		return models.OrderReceipt{}, domain.NotFoundError{Resource: "train " + in.TrainNo, Err: domain.ErrTrainNotFound}
	}

	legs, err := s.Routes.Segment(ctx, in.TrainNo, in.Origin, in.Destination)
	if err != nil {
		return models.OrderReceipt{}, err
	}

	for _, d := range demands {
		d.fare, err = s.Fares.Price(ctx, in.TrainNo, legs, d.class)
		if err != nil {
			if domain.IsStorageFailure(err) {
				return models.OrderReceipt{}, err
			}
			return models.OrderReceipt{}, insufficientSeats(d.class, 0, d.count, err)
		}
		av, err := s.Availability.Availability(ctx, s.Store, in.TrainNo, legs, d.class, date)
		if err != nil {
			return models.OrderReceipt{}, err
		}
		if !av.Offered || av.Count < d.count {
			return models.OrderReceipt{}, insufficientSeats(d.class, av.Count, d.count, nil)
		}
	}

	items := make([]models.OrderItem, 0, len(in.Selections))
	var total models.Money
	for _, sel := range in.Selections {
		p, ok, err := s.Passengers.GetPassenger(ctx, in.UserID, sel.PassengerID)
		if err != nil {
			return models.OrderReceipt{}, domain.StorageError("passenger lookup", err)
		}
		if !ok {
			return models.OrderReceipt{}, passengerNotFound(sel.PassengerID)
		}
		price := byClass[sel.SeatClass].fare.TotalPrice
		items = append(items, models.OrderItem{
			PassengerID:   p.ID,
			PassengerName: p.Name,
			SeatClass:     sel.SeatClass,
			Price:         price,
		})
		total += price
	}

	now := s.now()
	order := models.Order{
		UserID:      in.UserID,
		TrainNo:     in.TrainNo,
		Origin:      in.Origin,
		Destination: in.Destination,
		TravelDate:  date,
		Status:      models.OrderPending,
		TotalPrice:  total,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.lockDuration()),
		UpdatedAt:   now,
		Items:       items,
	}

	err = s.Store.WithTx(ctx, func(tx repositories.Tx) error {
		keys := inventoryKeys(in.TrainNo, legs, demands, date)
		locked, err := lockInventory(ctx, tx, keys)
		if err != nil {
			return err
		}
		deltas := make([]models.InventoryDelta, 0, len(keys))
		for _, d := range demands {
			av, err := s.Availability.Availability(ctx, locked, in.TrainNo, legs, d.class, date)
			if err != nil {
				return err
			}
			if !av.Offered || av.Count < d.count {
				return insufficientSeats(d.class, av.Count, d.count, nil)
			}
			for _, leg := range legs {
				deltas = append(deltas, models.InventoryDelta{
					InventoryKey: models.InventoryKey{TrainNo: in.TrainNo, Leg: leg, SeatClass: d.class, TravelDate: date},
					Delta:        -d.count,
				})
			}
		}
		if err := tx.AdjustSeatInventory(ctx, deltas); err != nil {
			if errors.Is(err, repositories.ErrInventoryShortfall) {
				return domain.ConflictError{Resource: "seats", Msg: err.Error(), Err: domain.ErrInsufficientSeats}
			}
			return domain.StorageError("adjust inventory", err)
		}
		created, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return domain.StorageError("insert order", err)
		}
		order = created
		return nil
	})
	if err != nil {
		return models.OrderReceipt{}, storageOr("create order", err)
	}

	utils.LogEvent(rid, "orders", "create", fmt.Sprintf("order_id=%d user_id=%d train=%s total=%s", order.ID, order.UserID, order.TrainNo, order.TotalPrice))
	s.publish(ctx, models.OrderCreatedEvent, order)

	return models.OrderReceipt{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber(),
		TotalPrice:  order.TotalPrice,
		ExpiresAt:   order.ExpiresAt,
	}, nil
}

// ReleaseOrder returns the seats of a PENDING order and moves it to
// CANCELLED or EXPIRED. Already released orders come back unchanged.
func (s *OrderService) ReleaseOrder(ctx context.Context, orderID int64, reason domain.ReleaseReason) (models.Order, error) {
	o, ok, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, domain.StorageError("order lookup", err)
	}
	if !ok {
		return models.Order{}, domain.NotFoundError{Resource: "order", Err: domain.ErrOrderNotFound}
	}
	if o.Status.Released() {
		return o, nil
	}
	if o.Status == models.OrderPaid {
		if reason == domain.ReleaseCancel {
			return o, domain.ConflictError{Resource: "order", Msg: "paid orders cannot be cancelled", Err: domain.ErrInvalidTransition}
		}
		return o, nil
	}

	now := s.now()
	target := models.OrderCancelled
	if reason != domain.ReleaseCancel {
		if !o.Expired(now) {
			return o, nil
		}
		target = models.OrderExpired
	}

	legs, err := s.Routes.Segment(ctx, o.TrainNo, o.Origin, o.Destination)
	if err != nil {
		return models.Order{}, err
	}

	released := false
	err = s.Store.WithTx(ctx, func(tx repositories.Tx) error {
		cur, ok, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return domain.StorageError("order lock", err)
		}
		if !ok {
			return domain.NotFoundError{Resource: "order", Err: domain.ErrOrderNotFound}
		}
		o = cur
		if cur.Status != models.OrderPending {
			return nil
		}

		deltas := []models.InventoryDelta{}
		for class, n := range cur.ClassCounts() {
			for _, leg := range legs {
				deltas = append(deltas, models.InventoryDelta{
					InventoryKey: models.InventoryKey{TrainNo: cur.TrainNo, Leg: leg, SeatClass: class, TravelDate: cur.TravelDate},
					Delta:        n,
				})
			}
		}
		if err := tx.AdjustSeatInventory(ctx, deltas); err != nil {
			return domain.StorageError("restore inventory", err)
		}
		moved, err := tx.UpdateOrderStatus(ctx, orderID, models.OrderPending, target, now)
		if err != nil {
			return domain.StorageError("order status", err)
		}
		if !moved {
			return domain.ConflictError{Resource: "order", Msg: "status changed concurrently", Err: domain.ErrInvalidTransition}
		}
		o.Status = target
		o.UpdatedAt = now
		released = true
		return nil
	})
	if err != nil {
		return models.Order{}, storageOr("release order", err)
	}

	if released {
		utils.LogEvent(domain.RequestID(ctx), "orders", "release", fmt.Sprintf("order_id=%d reason=%s status=%s", o.ID, reason, o.Status))
		s.publish(ctx, models.OrderReleasedEvent, o)
	}
	return o, nil
}

// CancelOrder cancels an order owned by userID. A stale PENDING order is
// settled as EXPIRED first.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID int64) (models.Order, error) {
	o, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if o.Status.Released() {
		return o, nil
	}
	return s.ReleaseOrder(ctx, orderID, domain.ReleaseCancel)
}

// GetOrder returns an order owned by userID after settling lazy expiry.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID int64) (models.Order, error) {
	o, ok, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, domain.StorageError("order lookup", err)
	}
	if !ok || o.UserID != userID {
		return models.Order{}, domain.NotFoundError{Resource: "order", Err: domain.ErrOrderNotFound}
	}
	return s.settleExpiry(ctx, o)
}

func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	list, err := s.Store.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, domain.StorageError("list orders", err)
	}
	for i := range list {
		if list[i], err = s.settleExpiry(ctx, list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// HasUnpaidOrder reports a live PENDING order for userID.
func (s *OrderService) HasUnpaidOrder(ctx context.Context, userID int64) (bool, error) {
	ok, err := s.Store.HasPendingOrder(ctx, userID, s.now())
	if err != nil {
		return false, domain.StorageError("pending order lookup", err)
	}
	return ok, nil
}

// MarkPaid moves a live PENDING order to PAID. No money moves here.
func (s *OrderService) MarkPaid(ctx context.Context, userID, orderID int64) (models.Order, error) {
	o, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return models.Order{}, err
	}
	switch o.Status {
	case models.OrderPaid:
		return o, nil
	case models.OrderPending:
	default:
		return o, domain.ConflictError{Resource: "order", Msg: fmt.Sprintf("order is %s", o.Status), Err: domain.ErrInvalidTransition}
	}

	now := s.now()
	paid := false
	err = s.Store.WithTx(ctx, func(tx repositories.Tx) error {
		cur, ok, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return domain.StorageError("order lock", err)
		}
		if !ok {
			return domain.NotFoundError{Resource: "order", Err: domain.ErrOrderNotFound}
		}
		o = cur
		if cur.Status == models.OrderPaid {
			return nil
		}
		if cur.Status != models.OrderPending || cur.Expired(now) {
			return domain.ConflictError{Resource: "order", Msg: "order is no longer payable", Err: domain.ErrInvalidTransition}
		}
		moved, err := tx.UpdateOrderStatus(ctx, orderID, models.OrderPending, models.OrderPaid, now)
		if err != nil {
			return domain.StorageError("order status", err)
		}
		if !moved {
			return domain.ConflictError{Resource: "order", Msg: "status changed concurrently", Err: domain.ErrInvalidTransition}
		}
		o.Status = models.OrderPaid
		o.UpdatedAt = now
		paid = true
		return nil
	})
	if err != nil {
		return models.Order{}, storageOr("mark paid", err)
	}
	if paid {
		utils.LogEvent(domain.RequestID(ctx), "orders", "pay", fmt.Sprintf("order_id=%d", o.ID))
		s.publish(ctx, models.OrderPaidEvent, o)
	}
	return o, nil
}

// Quote lists the classes that can be bought for a trip, priced and with
// remaining seats.
func (s *OrderService) Quote(ctx context.Context, trainNo, origin, destination, travelDate string) (models.TripQuote, error) {
	date, err := utils.NormalizeDate(travelDate)
	if err != nil {
		return models.TripQuote{}, domain.ValidationError{Field: "date", Msg: "expected YYYY-MM-DD", Err: err}
	}
	legs, err := s.Routes.Segment(ctx, trainNo, origin, destination)
	if err != nil {
		return models.TripQuote{}, err
	}
	return s.quoteLegs(ctx, strings.TrimSpace(trainNo), legs, date)
}

// SearchTrains quotes every train that calls at origin and later at
// destination, in train number order. trainType is an optional comma list of
// train number prefixes such as "G,D".
func (s *OrderService) SearchTrains(ctx context.Context, origin, destination, travelDate, trainType string) ([]models.TripQuote, error) {
	origin, destination = strings.TrimSpace(origin), strings.TrimSpace(destination)
	if origin == "" || destination == "" {
		return nil, domain.ValidationError{Field: "from/to", Msg: "origin and destination are required"}
	}
	date, err := utils.NormalizeDate(travelDate)
	if err != nil {
		return nil, domain.ValidationError{Field: "date", Msg: "expected YYYY-MM-DD", Err: err}
	}
	types := utils.SplitList(strings.ToUpper(trainType))

	candidates, err := s.Store.TrainsThrough(ctx, origin)
	if err != nil {
		return nil, domain.StorageError("trains through "+origin, err)
	}

	out := []models.TripQuote{}
	for _, trainNo := range candidates {
		if !matchesTrainType(trainNo, types) {
			continue
		}
		legs, err := s.Routes.Segment(ctx, trainNo, origin, destination)
		if errors.Is(err, domain.ErrInvalidDirection) || errors.Is(err, domain.ErrStationNotOnRoute) {
			continue
		}
		if err != nil {
			return nil, err
		}
		q, err := s.quoteLegs(ctx, trainNo, legs, date)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func matchesTrainType(trainNo string, types []string) bool {
	if len(types) == 0 {
		return true
	}
	upper := strings.ToUpper(trainNo)
	for _, t := range types {
		if strings.HasPrefix(upper, t) {
			return true
		}
	}
	return false
}

func (s *OrderService) quoteLegs(ctx context.Context, trainNo string, legs []models.Leg, date string) (models.TripQuote, error) {
	fares, err := s.Fares.PriceAll(ctx, trainNo, legs)
	if err != nil {
		return models.TripQuote{}, err
	}
	avail, err := s.Availability.AvailabilityAll(ctx, s.Store, trainNo, legs, date)
	if err != nil {
		return models.TripQuote{}, err
	}

	q := models.TripQuote{
		TrainNo:     trainNo,
		Origin:      legs[0].From,
		Destination: legs[len(legs)-1].To,
		TravelDate:  date,
		Legs:        legs,
		Classes:     []models.ClassQuote{},
	}
	for _, class := range models.SeatClasses {
		f, okFare := fares[class]
		av, okSeats := avail[class]
		if !okFare || !okSeats {
			continue
		}
		q.Classes = append(q.Classes, models.ClassQuote{
			SeatClass:  class,
			Label:      class.Label(),
			Price:      f.TotalPrice,
			DistanceKm: f.TotalDistanceKm,
			Available:  av.Count,
		})
	}
	return q, nil
}

// settleExpiry is the one place lazy expiry happens on reads.
func (s *OrderService) settleExpiry(ctx context.Context, o models.Order) (models.Order, error) {
	if !o.Expired(s.now()) {
		return o, nil
	}
	return s.ReleaseOrder(ctx, o.ID, domain.ReleaseExpire)
}

func (s *OrderService) publish(ctx context.Context, typ models.OrderEventType, o models.Order) {
	if s.Events == nil {
		return
	}
	evt := models.OrderEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		OrderID:    o.ID,
		UserID:     o.UserID,
		TrainNo:    o.TrainNo,
		Status:     o.Status,
		TotalPrice: o.TotalPrice,
		At:         s.now(),
	}
	if err := s.Events.PublishOrderEvent(ctx, evt); err != nil {
		utils.LogError(domain.RequestID(ctx), "orders", "publish_"+strings.ToLower(string(typ)), err)
	}
}

func inventoryKeys(trainNo string, legs []models.Leg, demands []*classDemand, date string) []models.InventoryKey {
	keys := make([]models.InventoryKey, 0, len(legs)*len(demands))
	for _, d := range demands {
		for _, leg := range legs {
			keys = append(keys, models.InventoryKey{TrainNo: trainNo, Leg: leg, SeatClass: d.class, TravelDate: date})
		}
	}
	repositories.LockOrder(keys)
	return keys
}

// lockedInventory is a snapshot of rows read under lock in the current
// transaction.
type lockedInventory map[models.InventoryKey]int

func (l lockedInventory) SeatInventory(_ context.Context, key models.InventoryKey) (int, bool, error) {
	n, ok := l[key]
	return n, ok, nil
}

// lockInventory reads keys in lock order through tx.
func lockInventory(ctx context.Context, tx repositories.Tx, keys []models.InventoryKey) (lockedInventory, error) {
	out := lockedInventory{}
	for _, k := range keys {
		n, ok, err := tx.SeatInventory(ctx, k)
		if err != nil {
			return nil, domain.StorageError("lock inventory", err)
		}
		if ok {
			out[k] = n
		}
	}
	return out, nil
}

func insufficientSeats(class models.SeatClass, available, requested int, cause error) error {
	err := domain.ErrInsufficientSeats
	if cause != nil {
		err = fmt.Errorf("%w: %w", domain.ErrInsufficientSeats, cause)
	}
	return domain.ConflictError{
		Resource: "seats",
		Msg:      fmt.Sprintf("%s: %d available, %d requested", class.Label(), available, requested),
		Err:      err,
	}
}

// storageOr leaves typed domain errors alone and wraps anything else as a
// storage failure.
func storageOr(op string, err error) error {
	if domain.IsValidation(err) || domain.IsNotFound(err) || domain.IsConflict(err) || domain.IsInternal(err) {
		return err
	}
	return domain.StorageError(op, err)
}
