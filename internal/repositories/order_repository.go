package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	intdb "railway/internal/db"
	"railway/internal/domain/models"
)

type OrderRepository struct {
	DB intdb.Querier
}

const orderColumns = `id, user_id, train_no, origin, destination, travel_date, status, total_price, created_at, expires_at, updated_at`

func (r OrderRepository) GetOrder(ctx context.Context, id int64) (models.Order, bool, error) {
	return r.getOrder(ctx, id, false)
}

func (r OrderRepository) GetOrderForUpdate(ctx context.Context, id int64) (models.Order, bool, error) {
	return r.getOrder(ctx, id, true)
}

func (r OrderRepository) getOrder(ctx context.Context, id int64, forUpdate bool) (models.Order, bool, error) {
	if id <= 0 {
		return models.Order{}, false, nil
	}
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id=? LIMIT 1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	o, err := scanOrder(r.DB.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, false, nil
	}
	if err != nil {
		return models.Order{}, false, err
	}
	items, err := r.listItems(ctx, id)
	if err != nil {
		return models.Order{}, false, err
	}
	o.Items = items
	return o, true, nil
}

// ListOrdersByUser returns orders newest first, items included.
func (r OrderRepository) ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id=? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	out := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		items, err := r.listItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (r OrderRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id FROM orders
		WHERE status=? AND expires_at < ?
		ORDER BY expires_at ASC
		LIMIT ?`, string(models.OrderPending), now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r OrderRepository) HasPendingOrder(ctx context.Context, userID int64, now time.Time) (bool, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE user_id=? AND status=? AND expires_at >= ?`,
		userID, string(models.OrderPending), now.UTC()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateOrder inserts the order and its items and returns them with ids set.
func (r OrderRepository) CreateOrder(ctx context.Context, o models.Order) (models.Order, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO orders (user_id, train_no, origin, destination, travel_date, status, total_price, created_at, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.UserID, o.TrainNo, o.Origin, o.Destination, o.TravelDate, string(o.Status),
		o.TotalPrice.String(), o.CreatedAt.UTC(), o.ExpiresAt.UTC(), o.UpdatedAt.UTC())
	if err != nil {
		return o, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return o, err
	}
	o.ID = id

	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = id
		res, err := r.DB.ExecContext(ctx, `
			INSERT INTO order_items (order_id, passenger_id, passenger_name, seat_class, price)
			VALUES (?, ?, ?, ?, ?)`,
			id, it.PassengerID, it.PassengerName, string(it.SeatClass), it.Price.String())
		if err != nil {
			return o, fmt.Errorf("insert order item: %w", err)
		}
		if it.ID, err = res.LastInsertId(); err != nil {
			return o, err
		}
	}
	return o, nil
}

// UpdateOrderStatus moves an order from one status to another. It returns
// false when the order was not in status from.
func (r OrderRepository) UpdateOrderStatus(ctx context.Context, id int64, from, to models.OrderStatus, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE orders SET status=?, updated_at=? WHERE id=? AND status=?`,
		string(to), at.UTC(), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r OrderRepository) listItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, order_id, passenger_id, passenger_name, seat_class, price
		FROM order_items WHERE order_id=? ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		var class, price string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.PassengerID, &it.PassengerName, &class, &price); err != nil {
			return nil, err
		}
		it.SeatClass = models.SeatClass(class)
		if it.Price, err = models.ParseMoney(price); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (models.Order, error) {
	var o models.Order
	var status, total string
	var travelDate time.Time
	if err := s.Scan(&o.ID, &o.UserID, &o.TrainNo, &o.Origin, &o.Destination, &travelDate,
		&status, &total, &o.CreatedAt, &o.ExpiresAt, &o.UpdatedAt); err != nil {
		return o, err
	}
	o.TravelDate = travelDate.Format("2006-01-02")
	o.Status = models.OrderStatus(status)
	price, err := models.ParseMoney(total)
	if err != nil {
		return o, err
	}
	o.TotalPrice = price
	return o, nil
}
