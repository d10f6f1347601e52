package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AdTypeSlide       = "slide"
	AdTypeSideOffer   = "sideOffer"
	AdTypeWeeklyOffer = "weeklyOffer"

	DefaultAdLink     = "#"
	DefaultAdCurrency = "SAR"
)

// AdTypes lists the accepted advertisement placements.
var AdTypes = []string{AdTypeSlide, AdTypeSideOffer, AdTypeWeeklyOffer}

func IsAdType(t string) bool {
	for _, v := range AdTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Advertisement is a promotional record shown on the storefront and,
// when linked to a product, a source of its discount percentage.
type Advertisement struct {
	ID              primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	Title           Bilingual           `json:"title" bson:"title"`
	Description     Bilingual           `json:"description" bson:"description"`
	Image           string              `json:"image" bson:"image"`
	Link            string              `json:"link" bson:"link"`
	Type            string              `json:"type" bson:"type"`
	IsActive        bool                `json:"isActive" bson:"isActive"`
	Order           int                 `json:"order" bson:"order"`
	StartDate       *time.Time          `json:"startDate" bson:"startDate"`
	EndDate         *time.Time          `json:"endDate" bson:"endDate"`
	OriginalPrice   *float64            `json:"originalPrice" bson:"originalPrice"`
	DiscountedPrice *float64            `json:"discountedPrice" bson:"discountedPrice"`
	Currency        string              `json:"currency" bson:"currency"`
	ProductID       *primitive.ObjectID `json:"productId,omitempty" bson:"productId,omitempty"`
	CreatedAt       time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// DiscountPercentage derives the advertised reduction from the original
// and discounted prices; it is 0 unless both are set and the discounted
// price is lower.
func (a *Advertisement) DiscountPercentage() float64 {
	if a.OriginalPrice == nil || a.DiscountedPrice == nil {
		return 0
	}
	orig, disc := *a.OriginalPrice, *a.DiscountedPrice
	if math.IsNaN(orig) || math.IsNaN(disc) || math.IsInf(orig, 0) || math.IsInf(disc, 0) {
		return 0
	}
	if orig <= 0 || disc < 0 || disc >= orig {
		return 0
	}
	return (orig - disc) / orig * 100
}

// RunningAt reports whether an active ad's optional window contains now.
func (a *Advertisement) RunningAt(now time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.StartDate != nil && now.Before(*a.StartDate) {
		return false
	}
	if a.EndDate != nil && now.After(*a.EndDate) {
		return false
	}
	return true
}

// AdFilter narrows advertisement listings.
type AdFilter struct {
	Type     string
	IsActive *bool
}

func (f AdFilter) Matches(a *Advertisement) bool {
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.IsActive != nil && a.IsActive != *f.IsActive {
		return false
	}
	return true
}

// HeroOffers is the homepage hero slot layout.
type HeroOffers struct {
	SideOffer   *Advertisement `json:"iphoneOffer,omitempty"`
	WeeklyOffer *Advertisement `json:"weeklyOffer,omitempty"`
}
