package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAddReview_KeepsAggregatesInSync(t *testing.T) {
	var p Product
	for _, rating := range []int{5, 4, 3} {
		p.AddReview(Review{ID: primitive.NewObjectID(), Rating: rating, User: primitive.NewObjectID()})
	}

	assert.Equal(t, 3, p.NumReviews)
	assert.Equal(t, len(p.Reviews), p.NumReviews)
	assert.InDelta(t, 4.0, p.AverageRating, 1e-9)
}

func TestHasReviewFrom(t *testing.T) {
	user := primitive.NewObjectID()
	p := Product{}
	p.AddReview(Review{User: user, Rating: 2})

	assert.True(t, p.HasReviewFrom(user))
	assert.False(t, p.HasReviewFrom(primitive.NewObjectID()))
}

func TestFindSKU_AcrossOptions(t *testing.T) {
	target := primitive.NewObjectID()
	p := Product{Variations: []Variation{{
		Options: []VariationOption{
			{SKUs: []SKU{{ID: primitive.NewObjectID(), Price: 10}}},
			{SKUs: []SKU{{ID: target, Price: 25, Stock: 3}}},
		},
	}}}

	sku, ok := p.FindSKU(target)
	assert.True(t, ok)
	assert.Equal(t, 25.0, sku.Price)

	_, ok = p.FindSKU(primitive.NewObjectID())
	assert.False(t, ok)
}

func TestAssignIDs_FillsOnlyMissing(t *testing.T) {
	keep := primitive.NewObjectID()
	p := Product{Variations: []Variation{{ID: keep, Options: []VariationOption{{SKUs: []SKU{{}}}}}}}

	p.AssignIDs()

	assert.Equal(t, keep, p.Variations[0].ID)
	assert.False(t, p.Variations[0].Options[0].ID.IsZero())
	assert.False(t, p.Variations[0].Options[0].SKUs[0].ID.IsZero())
}

func TestBilingual_In(t *testing.T) {
	b := Bilingual{En: "Phone", Ar: "هاتف"}
	assert.Equal(t, "هاتف", b.In(LangArabic))
	assert.Equal(t, "Phone", b.In(LangEnglish))
	assert.Equal(t, "Phone", Bilingual{En: "Phone"}.In(LangArabic))
	assert.Equal(t, LangArabic, NormalizeLang("ar-EG,ar;q=0.9"))
	assert.Equal(t, LangEnglish, NormalizeLang("fr"))
}

func TestDiscountValidAt_InclusiveWindow(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	d := Discount{IsActive: true, StartDate: start, EndDate: end}

	assert.True(t, d.ValidAt(start))
	assert.True(t, d.ValidAt(end))
	assert.False(t, d.ValidAt(end.Add(time.Second)))
	assert.False(t, d.ValidAt(start.Add(-time.Second)))

	d.IsActive = false
	assert.False(t, d.ValidAt(start.Add(time.Hour)))
}

func TestAdvertisementDiscountPercentage(t *testing.T) {
	orig, disc := 200.0, 150.0
	a := Advertisement{OriginalPrice: &orig, DiscountedPrice: &disc}
	assert.InDelta(t, 25.0, a.DiscountPercentage(), 1e-9)

	higher := 250.0
	a.DiscountedPrice = &higher
	assert.Zero(t, a.DiscountPercentage())

	a.DiscountedPrice = nil
	assert.Zero(t, a.DiscountPercentage())

	nan, inf := math.NaN(), math.Inf(1)
	a.OriginalPrice, a.DiscountedPrice = &nan, &disc
	assert.Zero(t, a.DiscountPercentage())
	a.OriginalPrice = &inf
	assert.Zero(t, a.DiscountPercentage())
}

func TestAdvertisementRunningAt(t *testing.T) {
	now := time.Now()
	past, future := now.Add(-time.Hour), now.Add(time.Hour)

	assert.True(t, (&Advertisement{IsActive: true}).RunningAt(now))
	assert.False(t, (&Advertisement{IsActive: false}).RunningAt(now))
	assert.False(t, (&Advertisement{IsActive: true, StartDate: &future}).RunningAt(now))
	assert.False(t, (&Advertisement{IsActive: true, EndDate: &past}).RunningAt(now))
}
