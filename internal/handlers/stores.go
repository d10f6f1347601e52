package handlers

import (
	"context"
	"mime/multipart"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/models"
	"storefront-api/internal/repository"
)

// The handlers depend on these narrow views of the repositories so tests
// can swap in in-memory stores.

type ProductStore interface {
	Create(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindAll(ctx context.Context, q repository.ProductQuery) ([]models.Product, int64, error)
	Update(ctx context.Context, id string, u models.ProductUpdate) (*models.Product, error)
	SoftDelete(ctx context.Context, id string) error
	SaveReviews(ctx context.Context, p *models.Product, prevCount int) error
	DecrementStock(ctx context.Context, productID, skuID primitive.ObjectID, qty int) error
}

type DiscountStore interface {
	Create(ctx context.Context, d *models.Discount) error
	FindAll(ctx context.Context) ([]models.Discount, error)
	FindActive(ctx context.Context, now time.Time) ([]models.Discount, error)
	FindByID(ctx context.Context, id string) (*models.Discount, error)
	Replace(ctx context.Context, id string, d *models.Discount) (*models.Discount, error)
	Delete(ctx context.Context, id string) error
}

type AdvertisementStore interface {
	Create(ctx context.Context, ad *models.Advertisement) error
	FindByID(ctx context.Context, id string) (*models.Advertisement, error)
	FindAll(ctx context.Context, f models.AdFilter) ([]models.Advertisement, error)
	FindActiveByTypes(ctx context.Context, types ...string) ([]models.Advertisement, error)
	FindActiveForProducts(ctx context.Context, ids []primitive.ObjectID) ([]models.Advertisement, error)
	Replace(ctx context.Context, ad *models.Advertisement) error
	Delete(ctx context.Context, id string) (*models.Advertisement, error)
}

type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByUser(ctx context.Context, user primitive.ObjectID) ([]models.Order, error)
}

// ImageStore saves and removes uploaded advertisement images.
type ImageStore interface {
	Save(fh *multipart.FileHeader) (string, error)
	Remove(publicPath string) error
}
