package models

import "time"

// Passenger is a traveller saved under an account. Version starts at 1 and
// grows by exactly one per successful mutation.
type Passenger struct {
	ID             int64      `json:"id"`
	OwnerID        int64      `json:"ownerId"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	IDCardType     string     `json:"idCardType"`
	IDCardNumber   string     `json:"idCardNumber"`
	DiscountType   string     `json:"discountType"`
	SeatPreference string     `json:"seatPreference"`
	SpecialNeeds   string     `json:"specialNeeds"`
	Version        int        `json:"version"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DeletedAt      *time.Time `json:"-"`
}

// PassengerPatch supports PATCH-style updates via key presence.
type PassengerPatch struct {
	Name           *string `json:"name,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	DiscountType   *string `json:"discountType,omitempty"`
	SeatPreference *string `json:"seatPreference,omitempty"`
	SpecialNeeds   *string `json:"specialNeeds,omitempty"`
}

func (p PassengerPatch) Empty() bool {
	return p.Name == nil && p.Phone == nil && p.DiscountType == nil &&
		p.SeatPreference == nil && p.SpecialNeeds == nil
}

// Apply copies the present fields onto dst.
func (p PassengerPatch) Apply(dst *Passenger) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Phone != nil {
		dst.Phone = *p.Phone
	}
	if p.DiscountType != nil {
		dst.DiscountType = *p.DiscountType
	}
	if p.SeatPreference != nil {
		dst.SeatPreference = *p.SeatPreference
	}
	if p.SpecialNeeds != nil {
		dst.SpecialNeeds = *p.SpecialNeeds
	}
}

// DiscountTypes accepted for passengers.
var DiscountTypes = []string{"成人", "儿童", "学生", "残疾军人"}

// UpdateResult is returned by the versioned passenger update.
type UpdateResult struct {
	Success bool `json:"success"`
	Version int  `json:"version,omitempty"`
}
