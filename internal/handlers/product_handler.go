package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront-api/internal/apperrors"
	"storefront-api/internal/auth"
	"storefront-api/internal/cache"
	"storefront-api/internal/middleware"
	"storefront-api/internal/models"
	"storefront-api/internal/pricing"
	"storefront-api/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100

	productKeyPrefix = "product"
	productListKey   = "products:list:"
	entityProduct    = "Product"
)

// sortable maps public sort keys onto stored field names.
var sortable = map[string]string{
	"name":      "name.en",
	"price":     "basePrice",
	"rating":    "averageRating",
	"createdAt": "createdAt",
}

type ProductHandler struct {
	products ProductStore
	ads      AdvertisementStore
	cache    cache.Cache
	ttl      time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewProductHandler(products ProductStore, ads AdvertisementStore, c cache.Cache, ttl time.Duration, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		ads:      ads,
		cache:    c,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
	}
}

// AdSnapshot is the part of a linked advertisement a product view carries.
type AdSnapshot struct {
	ID                 primitive.ObjectID `json:"id"`
	Type               string             `json:"type"`
	DiscountPercentage float64            `json:"discountPercentage"`
}

// ProductView is a product as the storefront renders it.
type ProductView struct {
	models.Product
	pricing.Display
	Advertisement *AdSnapshot `json:"advertisement,omitempty"`
	DisplayName   string      `json:"displayName"`
}

type ProductListResponse struct {
	Data       []ProductView `json:"data"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int64         `json:"total_pages"`
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// POST /api/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var product models.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		respondError(c, h.log, apperrors.Validation(err.Error()))
		return
	}

	if err := validateProduct(&product); err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.products.Create(c.Request.Context(), &product); err != nil {
		respondError(c, h.log, classify(err, entityProduct))
		return
	}

	h.invalidate(c.Request.Context(), "")
	c.JSON(http.StatusCreated, product)
}

// GET /api/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	ctx := c.Request.Context()
	productID := c.Param("id")
	lang := middleware.Lang(c)
	cacheKey := fmt.Sprintf("%s:%s:%s", productKeyPrefix, productID, lang)

	var view ProductView
	if found, _ := h.cache.Get(ctx, cacheKey, &view); found {
		c.JSON(http.StatusOK, view)
		return
	}

	product, err := h.products.FindByID(ctx, productID)
	if err != nil {
		respondError(c, h.log, classify(err, entityProduct))
		return
	}

	views, err := h.views(ctx, []models.Product{*product}, lang)
	if err != nil {
		respondError(c, h.log, apperrors.Internal("failed to get product", err))
		return
	}

	h.store(ctx, cacheKey, views[0])
	c.JSON(http.StatusOK, views[0])
}

// GET /api/products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	lang := middleware.Lang(c)

	page, pageSize := getPaginationParams(c)
	q := repository.ProductQuery{
		Page:     page,
		PageSize: pageSize,
		Category: c.Query("category"),
		Keyword:  strings.TrimSpace(c.Query("q")),
		MinPrice: queryFloat(c, "min_price"),
		MaxPrice: queryFloat(c, "max_price"),
		Sort:     buildSortOptions(c.Query("sort")),
	}

	cacheKey := fmt.Sprintf(
		"%sp%d_s%d_cat:%s_q:%s_price:%g-%g_sort:%s_lang:%s",
		productListKey, page, pageSize, q.Category, q.Keyword, q.MinPrice, q.MaxPrice, c.Query("sort"), lang,
	)

	var cached ProductListResponse
	if found, _ := h.cache.Get(ctx, cacheKey, &cached); found {
		c.JSON(http.StatusOK, cached)
		return
	}

	products, total, err := h.products.FindAll(ctx, q)
	if err != nil {
		respondError(c, h.log, apperrors.Internal("failed to list products", err))
		return
	}

	views, err := h.views(ctx, products, lang)
	if err != nil {
		respondError(c, h.log, apperrors.Internal("failed to list products", err))
		return
	}

	totalPages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPages++
	}
	response := ProductListResponse{
		Data:       views,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}

	h.store(ctx, cacheKey, response)
	c.JSON(http.StatusOK, response)
}

// PATCH /api/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	productID := c.Param("id")

	var update models.ProductUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondError(c, h.log, apperrors.Validation(err.Error()))
		return
	}
	if err := validateUpdate(&update); err != nil {
		respondError(c, h.log, err)
		return
	}

	product, err := h.products.Update(c.Request.Context(), productID, update)
	if err != nil {
		respondError(c, h.log, classify(err, entityProduct))
		return
	}

	h.invalidate(c.Request.Context(), productID)
	c.JSON(http.StatusOK, product)
}

// DELETE /api/products/:id (soft delete)
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	productID := c.Param("id")

	if err := h.products.SoftDelete(c.Request.Context(), productID); err != nil {
		respondError(c, h.log, classify(err, entityProduct))
		return
	}

	h.invalidate(c.Request.Context(), productID)
	c.JSON(http.StatusOK, SuccessResponse{Message: "Product deleted"})
}

// POST /api/products/:id/reviews
func (h *ProductHandler) CreateReview(c *gin.Context) {
	ctx := c.Request.Context()
	productID := c.Param("id")

	userID, ok := auth.UserID(c)
	if !ok {
		respondError(c, h.log, apperrors.Unauthorized("Not authorized"))
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperrors.Validation("Invalid request body."))
		return
	}
	req.Comment = strings.TrimSpace(req.Comment)

	var msgs []string
	if req.Rating < 1 || req.Rating > 5 {
		msgs = append(msgs, "Rating must be between 1 and 5.")
	}
	if req.Comment == "" {
		msgs = append(msgs, "Comment is required.")
	}
	if err := apperrors.Validations(msgs); err != nil {
		respondError(c, h.log, err)
		return
	}

	// One retry when another review lands between read and write.
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = h.addReview(ctx, productID, userID, auth.UserName(c), req)
		if !errors.Is(err, repository.ErrStale) {
			break
		}
	}
	if err != nil {
		respondError(c, h.log, classify(err, entityProduct))
		return
	}

	h.invalidate(ctx, productID)
	c.JSON(http.StatusCreated, SuccessResponse{Message: "Review added"})
}

func (h *ProductHandler) addReview(ctx context.Context, productID string, user primitive.ObjectID, name string, req reviewRequest) error {
	product, err := h.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if product.HasReviewFrom(user) {
		return apperrors.Validation("Product already reviewed")
	}

	prev := product.NumReviews
	now := h.now()
	product.AddReview(models.Review{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Rating:    req.Rating,
		Comment:   req.Comment,
		User:      user,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return h.products.SaveReviews(ctx, product, prev)
}

// --- helpers ---

// views attaches the first running linked advertisement of each product
// and resolves its display price.
func (h *ProductHandler) views(ctx context.Context, products []models.Product, lang string) ([]ProductView, error) {
	ids := make([]primitive.ObjectID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	linked, err := linkedAds(ctx, h.ads, ids, h.now())
	if err != nil {
		return nil, err
	}

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		v := ProductView{
			Product:       p,
			Advertisement: linked[p.ID],
			DisplayName:   p.Name.In(lang),
		}
		v.Display = pricing.Resolve(p.BasePrice, v.Advertisement.percentage())
		views = append(views, v)
	}
	return views, nil
}

// linkedAds maps each product to the first advertisement linked to it that
// is running at now.
func linkedAds(ctx context.Context, ads AdvertisementStore, ids []primitive.ObjectID, now time.Time) (map[primitive.ObjectID]*AdSnapshot, error) {
	found, err := ads.FindActiveForProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	linked := make(map[primitive.ObjectID]*AdSnapshot, len(found))
	for i := range found {
		ad := &found[i]
		if ad.ProductID == nil || !ad.RunningAt(now) {
			continue
		}
		if _, taken := linked[*ad.ProductID]; taken {
			continue
		}
		linked[*ad.ProductID] = &AdSnapshot{
			ID:                 ad.ID,
			Type:               ad.Type,
			DiscountPercentage: ad.DiscountPercentage(),
		}
	}
	return linked, nil
}

func (a *AdSnapshot) percentage() float64 {
	if a == nil {
		return 0
	}
	return a.DiscountPercentage
}

func (h *ProductHandler) store(ctx context.Context, key string, value any) {
	if err := h.cache.Set(ctx, key, value, h.ttl); err != nil {
		h.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// invalidate drops every cached list and, when id is set, that product.
func (h *ProductHandler) invalidate(ctx context.Context, id string) {
	prefixes := []string{productListKey}
	if id != "" {
		prefixes = append(prefixes, productKeyPrefix+":"+id+":")
	}
	for _, p := range prefixes {
		if err := h.cache.DeleteByPrefix(ctx, p); err != nil {
			h.log.Warn("cache invalidation failed", zap.String("prefix", p), zap.Error(err))
		}
	}
}

// getPaginationParams reads page and page_size, falling back to defaults.
func getPaginationParams(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))

	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	return page, pageSize
}

// buildSortOptions parses "field:dir,field:dir". Unknown fields are
// ignored; an empty result means newest first.
func buildSortOptions(sortQuery string) bson.D {
	sort := bson.D{}
	if sortQuery == "" {
		return sort
	}

	for _, part := range strings.Split(sortQuery, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		field, ok := sortable[fields[0]]
		if !ok {
			continue
		}

		order := 1
		if len(fields) > 1 && fields[1] == "desc" {
			order = -1
		}

		sort = append(sort, bson.E{Key: field, Value: order})
	}

	return sort
}

func queryFloat(c *gin.Context, key string) float64 {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// validateProduct checks the fields required on create.
func validateProduct(p *models.Product) error {
	var msgs []string
	if !p.Name.Complete() {
		msgs = append(msgs, "Product name (English & Arabic) is required.")
	}
	if p.BasePrice < 0 {
		msgs = append(msgs, "Base price cannot be negative.")
	}
	if p.Category.IsZero() {
		msgs = append(msgs, "Category is required.")
	}
	msgs = append(msgs, validateVariations(p.Variations)...)
	return apperrors.Validations(msgs)
}

func validateUpdate(u *models.ProductUpdate) error {
	if u.Name == nil && u.Description == nil && u.BasePrice == nil && u.MainImage == nil &&
		u.Category == nil && u.SubCategory == nil && u.Attributes == nil && u.Variations == nil {
		return apperrors.Validation("no valid fields to update")
	}

	var msgs []string
	if u.Name != nil && !u.Name.Complete() {
		msgs = append(msgs, "Product name (English & Arabic) is required.")
	}
	if u.BasePrice != nil && *u.BasePrice < 0 {
		msgs = append(msgs, "Base price cannot be negative.")
	}
	if u.Category != nil && u.Category.IsZero() {
		msgs = append(msgs, "Category is required.")
	}
	msgs = append(msgs, validateVariations(u.Variations)...)
	return apperrors.Validations(msgs)
}

func validateVariations(vs []models.Variation) []string {
	var msgs []string
	for _, v := range vs {
		for _, o := range v.Options {
			for _, s := range o.SKUs {
				if s.Price < 0 {
					msgs = append(msgs, fmt.Sprintf("SKU %q price cannot be negative.", s.NameEn))
				}
				if s.Stock < 0 {
					msgs = append(msgs, fmt.Sprintf("SKU %q stock cannot be negative.", s.NameEn))
				}
			}
		}
	}
	return msgs
}
