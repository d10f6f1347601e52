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

var adListSort = bson.D{{Key: "order", Value: 1}, {Key: "createdAt", Value: -1}}

type AdvertisementRepository struct {
	collection *mongo.Collection
}

func NewAdvertisementRepository(collection *mongo.Collection) *AdvertisementRepository {
	return &AdvertisementRepository{collection: collection}
}

func (r *AdvertisementRepository) Create(ctx context.Context, ad *models.Advertisement) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	ad.ID = primitive.NewObjectID()
	ad.CreatedAt = now
	ad.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, ad)
	return translate(err)
}

func (r *AdvertisementRepository) FindByID(ctx context.Context, id string) (*models.Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var ad models.Advertisement
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&ad); err != nil {
		return nil, translate(err)
	}
	return &ad, nil
}

// FindAll lists advertisements by display order, newest first within an order.
func (r *AdvertisementRepository) FindAll(ctx context.Context, f models.AdFilter) ([]models.Advertisement, error) {
	filter := bson.M{}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.IsActive != nil {
		filter["isActive"] = *f.IsActive
	}
	return r.find(ctx, filter)
}

// FindActiveByTypes returns active advertisements of the given types.
func (r *AdvertisementRepository) FindActiveByTypes(ctx context.Context, types ...string) ([]models.Advertisement, error) {
	return r.find(ctx, bson.M{"type": bson.M{"$in": types}, "isActive": true})
}

// FindActiveForProducts returns active advertisements linked to any of ids.
func (r *AdvertisementRepository) FindActiveForProducts(ctx context.Context, ids []primitive.ObjectID) ([]models.Advertisement, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"productId": bson.M{"$in": ids}, "isActive": true})
}

// Replace stores ad over the document with the same id.
func (r *AdvertisementRepository) Replace(ctx context.Context, ad *models.Advertisement) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ad.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": ad.ID}, ad)
	if err != nil {
		return translate(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the advertisement and returns what was stored, so the
// caller can clean up its image.
func (r *AdvertisementRepository) Delete(ctx context.Context, id string) (*models.Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var ad models.Advertisement
	if err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": objID}).Decode(&ad); err != nil {
		return nil, translate(err)
	}
	return &ad, nil
}

func (r *AdvertisementRepository) find(ctx context.Context, filter bson.M) ([]models.Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(adListSort))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ads := make([]models.Advertisement, 0)
	if err := cursor.All(ctx, &ads); err != nil {
		return nil, err
	}
	return ads, nil
}
