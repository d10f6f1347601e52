package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront-api/internal/models"
)

type DiscountRepository struct {
	collection *mongo.Collection
}

func NewDiscountRepository(collection *mongo.Collection) *DiscountRepository {
	return &DiscountRepository{collection: collection}
}

func (r *DiscountRepository) Create(ctx context.Context, d *models.Discount) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	d.ID = primitive.NewObjectID()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, d)
	return translate(err)
}

// FindAll returns every discount, newest first.
func (r *DiscountRepository) FindAll(ctx context.Context) ([]models.Discount, error) {
	return r.find(ctx, bson.M{}, bson.D{{Key: "createdAt", Value: -1}})
}

// FindActive returns the discounts valid at now, soonest to expire first.
func (r *DiscountRepository) FindActive(ctx context.Context, now time.Time) ([]models.Discount, error) {
	return r.find(ctx, activeFilter(now), bson.D{{Key: "endDate", Value: 1}})
}

// FindActiveByCode returns the discount with code that is valid at now.
// Inactive, expired, future-dated and unknown codes all yield ErrNotFound.
func (r *DiscountRepository) FindActiveByCode(ctx context.Context, code string, now time.Time) (*models.Discount, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	filter := activeFilter(now)
	filter["code"] = code

	var d models.Discount
	if err := r.collection.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *DiscountRepository) FindByID(ctx context.Context, id string) (*models.Discount, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var d models.Discount
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&d); err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// Replace overwrites every editable field of the discount with id.
// Absent optional amounts are unset rather than kept.
func (r *DiscountRepository) Replace(ctx context.Context, id string, d *models.Discount) (*models.Discount, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"code":           d.Code,
		"minOrderAmount": d.MinOrderAmount,
		"startDate":      d.StartDate,
		"endDate":        d.EndDate,
		"isActive":       d.IsActive,
		"updatedAt":      time.Now(),
	}
	unset := bson.M{}
	optional := map[string]*float64{
		"percentage":        d.Percentage,
		"fixedAmount":       d.FixedAmount,
		"maxDiscountAmount": d.MaxDiscountAmount,
	}
	for field, v := range optional {
		if v != nil {
			set[field] = *v
		} else {
			unset[field] = ""
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Discount
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, update, opts).Decode(&updated); err != nil {
		return nil, translate(err)
	}
	return &updated, nil
}

func (r *DiscountRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := parseID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DiscountRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]models.Discount, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	discounts := make([]models.Discount, 0)
	if err := cursor.All(ctx, &discounts); err != nil {
		return nil, err
	}
	return discounts, nil
}

func activeFilter(now time.Time) bson.M {
	return bson.M{
		"isActive":  true,
		"startDate": bson.M{"$lte": now},
		"endDate":   bson.M{"$gte": now},
	}
}
