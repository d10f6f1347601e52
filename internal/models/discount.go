package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Discount is a code-identified, time-boxed price reduction. Documents are
// stored flat; pricing.RuleOf turns the amount fields into a single rule.
type Discount struct {
	ID                primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Code              string             `json:"code" bson:"code"`
	Percentage        *float64           `json:"percentage,omitempty" bson:"percentage,omitempty"`
	FixedAmount       *float64           `json:"fixedAmount,omitempty" bson:"fixedAmount,omitempty"`
	MinOrderAmount    float64            `json:"minOrderAmount" bson:"minOrderAmount"`
	MaxDiscountAmount *float64           `json:"maxDiscountAmount,omitempty" bson:"maxDiscountAmount,omitempty"`
	StartDate         time.Time          `json:"startDate" bson:"startDate"`
	EndDate           time.Time          `json:"endDate" bson:"endDate"`
	IsActive          bool               `json:"isActive" bson:"isActive"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ValidAt reports whether the discount is active and now falls inside
// [StartDate, EndDate], both ends inclusive.
func (d *Discount) ValidAt(now time.Time) bool {
	return d.IsActive && !now.Before(d.StartDate) && !now.After(d.EndDate)
}

// AppliedDiscount is the snapshot of a validated code kept on a checkout
// and copied into the order.
type AppliedDiscount struct {
	Code   string  `json:"code" bson:"code"`
	Amount float64 `json:"amount" bson:"amount"`
}
