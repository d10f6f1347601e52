package repository

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"storefront-api/internal/models"
)

// ProductQuery describes one page of the catalog listing.
type ProductQuery struct {
	Page     int
	PageSize int
	Category string
	Keyword  string
	MinPrice float64
	MaxPrice float64
	Sort     bson.D
}

type ProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(collection *mongo.Collection) *ProductRepository {
	return &ProductRepository{
		collection: collection,
	}
}

// Create inserts a new product with fresh ids and zeroed review aggregates.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now
	product.UpdatedAt = now
	product.IsDeleted = false
	product.Reviews = []models.Review{}
	product.NumReviews = 0
	product.AverageRating = 0
	product.AssignIDs()

	_, err := r.collection.InsertOne(ctx, product)
	return translate(err)
}

// FindByID returns a product that has not been deleted.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var product models.Product
	filter := bson.M{
		"_id":       objID,
		"isDeleted": false,
	}
	if err := r.collection.FindOne(ctx, filter).Decode(&product); err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// FindAll lists one page of products and the total matching count.
func (r *ProductRepository) FindAll(ctx context.Context, q ProductQuery) ([]models.Product, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := q.filter()

	findOptions := options.Find().
		SetSkip(int64((q.Page - 1) * q.PageSize)).
		SetLimit(int64(q.PageSize)).
		SetProjection(bson.M{"reviews": 0})
	if len(q.Sort) > 0 {
		findOptions.SetSort(q.Sort)
	} else {
		findOptions.SetSort(bson.D{{Key: "createdAt", Value: -1}})
	}

	// count runs alongside the page query
	var total int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.collection.CountDocuments(gctx, filter)
		total = n
		return err
	})

	products := make([]models.Product, 0)
	g.Go(func() error {
		cursor, err := r.collection.Find(gctx, filter, findOptions)
		if err != nil {
			return err
		}
		defer cursor.Close(gctx)
		return cursor.All(gctx, &products)
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Update applies the set fields of u and returns the updated product.
func (r *ProductRepository) Update(ctx context.Context, id string, u models.ProductUpdate) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": time.Now()}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.BasePrice != nil {
		set["basePrice"] = *u.BasePrice
	}
	if u.MainImage != nil {
		set["mainImage"] = *u.MainImage
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.SubCategory != nil {
		set["subCategory"] = *u.SubCategory
	}
	if u.Attributes != nil {
		set["attributes"] = u.Attributes
	}
	if u.Variations != nil {
		tmp := models.Product{Variations: u.Variations}
		tmp.AssignIDs()
		set["variations"] = tmp.Variations
	}

	filter := bson.M{"_id": objID, "isDeleted": false}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product models.Product
	if err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&product); err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// SoftDelete marks a product as deleted.
func (r *ProductRepository) SoftDelete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := parseID(id)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": objID, "isDeleted": false}
	update := bson.M{"$set": bson.M{"isDeleted": true, "updatedAt": time.Now()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveReviews persists reviews and aggregates of p, provided the stored
// review count still equals prevCount.
func (r *ProductRepository) SaveReviews(ctx context.Context, p *models.Product, prevCount int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"_id": p.ID, "isDeleted": false, "numReviews": prevCount}
	update := bson.M{"$set": bson.M{
		"reviews":       p.Reviews,
		"numReviews":    p.NumReviews,
		"averageRating": p.AverageRating,
		"updatedAt":     time.Now(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrStale
	}
	return nil
}

// DecrementStock takes qty units off one SKU, refusing to go below zero.
func (r *ProductRepository) DecrementStock(ctx context.Context, productID, skuID primitive.ObjectID, qty int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"_id": productID,
		"variations.options.skus": bson.M{"$elemMatch": bson.M{"_id": skuID, "stock": bson.M{"$gte": qty}}},
	}
	update := bson.M{"$inc": bson.M{"variations.$[].options.$[].skus.$[s].stock": -qty}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"s._id": skuID}},
	})

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrStale
	}
	return nil
}

func (q ProductQuery) filter() bson.M {
	filter := bson.M{"isDeleted": false}

	if q.Keyword != "" {
		kw := regexp.QuoteMeta(q.Keyword)
		filter["$or"] = []bson.M{
			{"name.en": bson.M{"$regex": kw, "$options": "i"}},
			{"name.ar": bson.M{"$regex": kw, "$options": "i"}},
			{"description.en": bson.M{"$regex": kw, "$options": "i"}},
		}
	}

	if q.Category != "" {
		if objID, err := primitive.ObjectIDFromHex(q.Category); err == nil {
			filter["category"] = objID
		}
	}

	price := bson.M{}
	if q.MinPrice > 0 {
		price["$gte"] = q.MinPrice
	}
	if q.MaxPrice > 0 {
		price["$lte"] = q.MaxPrice
	}
	if len(price) > 0 {
		filter["basePrice"] = price
	}

	return filter
}
