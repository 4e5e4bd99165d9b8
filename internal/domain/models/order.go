package models

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderExpired   OrderStatus = "EXPIRED"
)

// Released reports whether seats of an order in this status are back in
// inventory.
func (s OrderStatus) Released() bool {
	return s == OrderCancelled || s == OrderExpired
}

// Order is a reservation of seats for one train trip and date.
type Order struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"userId"`
	TrainNo     string      `json:"trainNo"`
	Origin      string      `json:"origin"`
	Destination string      `json:"destination"`
	TravelDate  string      `json:"travelDate"`
	Status      OrderStatus `json:"status"`
	TotalPrice  Money       `json:"totalPrice"`
	CreatedAt   time.Time   `json:"createdAt"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	Items       []OrderItem `json:"items"`
}

// OrderNumber renders the customer-facing number.
func (o Order) OrderNumber() string {
	return fmt.Sprintf("EA%08d", o.ID)
}

// Expired reports whether a pending order is past its lock deadline.
func (o Order) Expired(now time.Time) bool {
	return o.Status == OrderPending && now.After(o.ExpiresAt)
}

// ClassCounts returns how many seats per class the order holds.
func (o Order) ClassCounts() map[SeatClass]int {
	out := map[SeatClass]int{}
	for _, it := range o.Items {
		out[it.SeatClass]++
	}
	return out
}

// OrderItem is one passenger's seat in an order.
type OrderItem struct {
	ID            int64     `json:"id"`
	OrderID       int64     `json:"orderId"`
	PassengerID   int64     `json:"passengerId"`
	PassengerName string    `json:"passengerName"`
	SeatClass     SeatClass `json:"seatClass"`
	Price         Money     `json:"price"`
}

// SeatSelection is a passenger and the class requested for them.
type SeatSelection struct {
	PassengerID int64     `json:"passengerId"`
	SeatClass   SeatClass `json:"seatClass"`
}

// OrderReceipt is returned by order creation.
type OrderReceipt struct {
	OrderID     int64     `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	TotalPrice  Money     `json:"totalPrice"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type OrderEventType string

const (
	OrderCreatedEvent  OrderEventType = "ORDER_CREATED"
	OrderReleasedEvent OrderEventType = "ORDER_RELEASED"
	OrderPaidEvent     OrderEventType = "ORDER_PAID"
)

// OrderEvent is published after an order transition commits.
type OrderEvent struct {
	ID         string         `json:"id"`
	Type       OrderEventType `json:"type"`
	OrderID    int64          `json:"orderId"`
	UserID     int64          `json:"userId"`
	TrainNo    string         `json:"trainNo"`
	Status     OrderStatus    `json:"status"`
	TotalPrice Money          `json:"totalPrice"`
	At         time.Time      `json:"at"`
}
