package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a catalog entry with bilingual copy and nested variations.
type Product struct {
	ID            primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	Name          Bilingual           `json:"name" bson:"name"`
	Description   Bilingual           `json:"description" bson:"description"`
	BasePrice     float64             `json:"basePrice" bson:"basePrice"`
	MainImage     string              `json:"mainImage,omitempty" bson:"mainImage,omitempty"`
	Category      primitive.ObjectID  `json:"category" bson:"category"`
	SubCategory   *primitive.ObjectID `json:"subCategory,omitempty" bson:"subCategory,omitempty"`
	Attributes    []Attribute         `json:"attributes" bson:"attributes"`
	Variations    []Variation         `json:"variations" bson:"variations"`
	Reviews       []Review            `json:"reviews" bson:"reviews"`
	AverageRating float64             `json:"averageRating" bson:"averageRating"`
	NumReviews    int                 `json:"numReviews" bson:"numReviews"`
	IsDeleted     bool                `json:"-" bson:"isDeleted"`
	CreatedAt     time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt" bson:"updatedAt"`
}

type Attribute struct {
	KeyEn   string `json:"key_en" bson:"key_en"`
	KeyAr   string `json:"key_ar" bson:"key_ar"`
	ValueEn string `json:"value_en" bson:"value_en"`
	ValueAr string `json:"value_ar" bson:"value_ar"`
}

type Variation struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	NameEn  string             `json:"name_en" bson:"name_en"`
	NameAr  string             `json:"name_ar" bson:"name_ar"`
	Options []VariationOption  `json:"options" bson:"options"`
}

type VariationOption struct {
	ID     primitive.ObjectID `json:"_id" bson:"_id"`
	NameEn string             `json:"name_en" bson:"name_en"`
	NameAr string             `json:"name_ar" bson:"name_ar"`
	Image  string             `json:"image,omitempty" bson:"image,omitempty"`
	SKUs   []SKU              `json:"skus" bson:"skus"`
}

// SKU is one purchasable combination with its own price and stock.
type SKU struct {
	ID     primitive.ObjectID `json:"_id" bson:"_id"`
	NameEn string             `json:"name_en" bson:"name_en"`
	NameAr string             `json:"name_ar" bson:"name_ar"`
	Price  float64            `json:"price" bson:"price"`
	Stock  int                `json:"stock" bson:"stock"`
	Code   string             `json:"sku,omitempty" bson:"sku,omitempty"`
}

type Review struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Name      string             `json:"name" bson:"name"`
	Rating    int                `json:"rating" bson:"rating"`
	Comment   string             `json:"comment" bson:"comment"`
	User      primitive.ObjectID `json:"user" bson:"user"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ProductUpdate carries the fields an admin may change on a product.
type ProductUpdate struct {
	Name        *Bilingual          `json:"name,omitempty"`
	Description *Bilingual          `json:"description,omitempty"`
	BasePrice   *float64            `json:"basePrice,omitempty"`
	MainImage   *string             `json:"mainImage,omitempty"`
	Category    *primitive.ObjectID `json:"category,omitempty"`
	SubCategory *primitive.ObjectID `json:"subCategory,omitempty"`
	Attributes  []Attribute         `json:"attributes,omitempty"`
	Variations  []Variation         `json:"variations,omitempty"`
}

// FindSKU looks a SKU up by id across every variation option.
func (p *Product) FindSKU(id primitive.ObjectID) (*SKU, bool) {
	for vi := range p.Variations {
		for oi := range p.Variations[vi].Options {
			skus := p.Variations[vi].Options[oi].SKUs
			for si := range skus {
				if skus[si].ID == id {
					return &skus[si], true
				}
			}
		}
	}
	return nil, false
}

// HasReviewFrom reports whether user already reviewed the product.
func (p *Product) HasReviewFrom(user primitive.ObjectID) bool {
	for _, r := range p.Reviews {
		if r.User == user {
			return true
		}
	}
	return false
}

// AddReview appends r and recomputes NumReviews and AverageRating.
func (p *Product) AddReview(r Review) {
	p.Reviews = append(p.Reviews, r)
	p.recomputeRating()
}

func (p *Product) recomputeRating() {
	p.NumReviews = len(p.Reviews)
	if p.NumReviews == 0 {
		p.AverageRating = 0
		return
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.AverageRating = float64(sum) / float64(p.NumReviews)
}

// AssignIDs fills missing ids on nested variations, options and SKUs.
func (p *Product) AssignIDs() {
	for vi := range p.Variations {
		v := &p.Variations[vi]
		if v.ID.IsZero() {
			v.ID = primitive.NewObjectID()
		}
		for oi := range v.Options {
			o := &v.Options[oi]
			if o.ID.IsZero() {
				o.ID = primitive.NewObjectID()
			}
			for si := range o.SKUs {
				if o.SKUs[si].ID.IsZero() {
					o.SKUs[si].ID = primitive.NewObjectID()
				}
			}
		}
	}
}
