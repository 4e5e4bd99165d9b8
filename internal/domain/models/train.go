package models

import (
	"fmt"
	"strings"
)

// Stop is one station call of a train, ordered by Seq.
type Stop struct {
	Station string `json:"station"`
	Seq     int    `json:"seq"`
}

// Leg is the elementary interval between two adjacent stops. Index is the
// position of From in the train's stop list and orders legs along the route.
type Leg struct {
	Index int    `json:"index"`
	From  string `json:"from"`
	To    string `json:"to"`
}

func (l Leg) String() string { return l.From + "->" + l.To }

// SeatClass is a fare/service tier.
type SeatClass string

const (
	SeatBusiness    SeatClass = "business"
	SeatFirstClass  SeatClass = "first_class"
	SeatSecondClass SeatClass = "second_class"
	SeatSoftSleeper SeatClass = "soft_sleeper"
	SeatHardSleeper SeatClass = "hard_sleeper"
	SeatHardSeat    SeatClass = "hard_seat"
	SeatNoSeat      SeatClass = "no_seat"
)

// SeatClasses lists every class in display order.
var SeatClasses = []SeatClass{
	SeatBusiness, SeatFirstClass, SeatSecondClass,
	SeatSoftSleeper, SeatHardSleeper, SeatHardSeat, SeatNoSeat,
}

var seatLabels = map[SeatClass]string{
	SeatBusiness:    "商务座",
	SeatFirstClass:  "一等座",
	SeatSecondClass: "二等座",
	SeatSoftSleeper: "软卧",
	SeatHardSleeper: "硬卧",
	SeatHardSeat:    "硬座",
	SeatNoSeat:      "无座",
}

// Label returns the passenger-facing name.
func (c SeatClass) Label() string {
	if l, ok := seatLabels[c]; ok {
		return l
	}
	return string(c)
}

func (c SeatClass) Valid() bool {
	_, ok := seatLabels[c]
	return ok
}

// ParseSeatClass accepts the code or the label.
func ParseSeatClass(s string) (SeatClass, error) {
	s = strings.TrimSpace(s)
	c := SeatClass(strings.ToLower(s))
	if c.Valid() {
		return c, nil
	}
	for code, label := range seatLabels {
		if label == s {
			return code, nil
		}
	}
	return "", fmt.Errorf("unknown seat class %q", s)
}

// Fare is the price and distance of one leg in one class.
type Fare struct {
	Price      Money `json:"price"`
	DistanceKm int   `json:"distanceKm"`
}

// TripFare aggregates Fare over the legs of a trip.
type TripFare struct {
	TotalPrice      Money `json:"totalPrice"`
	TotalDistanceKm int   `json:"totalDistanceKm"`
}

// Availability of one class over a trip. Offered=false means at least one leg
// has no inventory record, which is different from Count=0 (sold out).
type Availability struct {
	Count   int  `json:"count"`
	Offered bool `json:"offered"`
}

// InventoryKey addresses one seat inventory row.
type InventoryKey struct {
	TrainNo    string
	Leg        Leg
	SeatClass  SeatClass
	TravelDate string
}

// InventoryDelta is a signed change to one inventory row.
type InventoryDelta struct {
	InventoryKey
	Delta int
}

// ClassQuote is one row of the trip search result.
type ClassQuote struct {
	SeatClass  SeatClass `json:"seatClass"`
	Label      string    `json:"label"`
	Price      Money     `json:"price"`
	DistanceKm int       `json:"distanceKm"`
	Available  int       `json:"available"`
}

// TripQuote describes what can be bought for one train, trip and date.
type TripQuote struct {
	TrainNo     string       `json:"trainNo"`
	Origin      string       `json:"origin"`
	Destination string       `json:"destination"`
	TravelDate  string       `json:"travelDate"`
	Legs        []Leg        `json:"legs"`
	Classes     []ClassQuote `json:"classes"`
}
