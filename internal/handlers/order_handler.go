package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront-api/internal/apperrors"
	"storefront-api/internal/auth"
	"storefront-api/internal/cache"
	"storefront-api/internal/models"
	"storefront-api/internal/pricing"
	"storefront-api/internal/repository"
	"storefront-api/internal/services"
)

const msgOrderNotFound = "Order not found"

type OrderHandler struct {
	orders    OrderStore
	products  ProductStore
	ads       AdvertisementStore
	discounts *services.DiscountService
	cache     cache.Cache
	log       *zap.Logger
	now       func() time.Time
}

func NewOrderHandler(orders OrderStore, products ProductStore, ads AdvertisementStore, discounts *services.DiscountService, c cache.Cache, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		products:  products,
		ads:       ads,
		discounts: discounts,
		cache:     c,
		log:       log,
		now:       time.Now,
	}
}

// POST /api/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := auth.UserID(c)
	if !ok {
		respondError(c, h.log, apperrors.Unauthorized("Not authorized"))
		return
	}

	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperrors.Validation("Invalid request body."))
		return
	}
	if len(req.Items) == 0 {
		respondError(c, h.log, apperrors.Validation("No order items"))
		return
	}
	if err := validateAddress(req.ShippingAddress); err != nil {
		respondError(c, h.log, err)
		return
	}

	items, subtotal, err := h.priceItems(ctx, req.Items)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	// The client's discount amount is never trusted; the code is checked
	// again against the server-side subtotal.
	var applied *models.AppliedDiscount
	discount := decimal.Zero
	if req.Discount != nil && strings.TrimSpace(req.Discount.Code) != "" {
		applied, err = h.discounts.Validate(ctx, req.Discount.Code, subtotal.InexactFloat64())
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		discount = decimal.NewFromFloat(applied.Amount)
	}

	payment := strings.TrimSpace(req.PaymentMethod)
	if payment == "" {
		payment = models.DefaultPaymentMethod
	}

	order := &models.Order{
		User:            userID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   payment,
		Discount:        applied,
		ItemsPrice:      subtotal.InexactFloat64(),
		TotalPrice:      pricing.FinalTotal(subtotal, discount).InexactFloat64(),
		Status:          models.OrderStatusProcessing,
	}
	if err := h.orders.Create(ctx, order); err != nil {
		respondError(c, h.log, apperrors.Internal("failed to create order", err))
		return
	}

	h.takeStock(ctx, order)
	c.JSON(http.StatusCreated, order)
}

// GET /api/orders/mine
func (h *OrderHandler) MyOrders(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondError(c, h.log, apperrors.Unauthorized("Not authorized"))
		return
	}

	orders, err := h.orders.FindByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, apperrors.Internal("failed to list orders", err))
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /api/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, classify(err, "Order"))
		return
	}

	// Other users' orders are reported as missing.
	userID, _ := auth.UserID(c)
	if order.User != userID && !auth.IsAdmin(c) {
		respondError(c, h.log, apperrors.NotFound(msgOrderNotFound))
		return
	}
	c.JSON(http.StatusOK, order)
}

// priceItems resolves each line against the catalog: the SKU price when a
// variant is named, otherwise the base price under the product's running
// advertisement, as the product view shows it. Stock is checked against
// the total asked of each SKU across lines.
func (h *OrderHandler) priceItems(ctx context.Context, lines []models.OrderLine) ([]models.OrderItem, decimal.Decimal, error) {
	var msgs []string

	type pending struct {
		line    models.OrderLine
		product *models.Product
	}
	loaded := make(map[string]*models.Product)
	resolved := make([]pending, 0, len(lines))
	var ids []primitive.ObjectID

	for _, line := range lines {
		if line.Quantity < 1 {
			msgs = append(msgs, fmt.Sprintf("Invalid quantity for product %s.", line.Product))
			continue
		}
		product, ok := loaded[line.Product]
		if !ok {
			p, err := h.products.FindByID(ctx, line.Product)
			if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
				msgs = append(msgs, fmt.Sprintf("Product not found: %s.", line.Product))
				continue
			}
			if err != nil {
				return nil, decimal.Zero, apperrors.Internal("failed to load product", err)
			}
			product = p
			loaded[line.Product] = p
			ids = append(ids, p.ID)
		}
		resolved = append(resolved, pending{line: line, product: product})
	}

	linked := map[primitive.ObjectID]*AdSnapshot{}
	if len(ids) > 0 {
		var err error
		if linked, err = linkedAds(ctx, h.ads, ids, h.now()); err != nil {
			return nil, decimal.Zero, apperrors.Internal("failed to load advertisements", err)
		}
	}

	items := make([]models.OrderItem, 0, len(resolved))
	subtotal := decimal.Zero
	type skuStock struct {
		stock int
		name  string
	}
	requested := make(map[primitive.ObjectID]int)
	skus := make(map[primitive.ObjectID]skuStock)
	var skuOrder []primitive.ObjectID

	for _, r := range resolved {
		product, line := r.product, r.line
		item := models.OrderItem{
			Product:  product.ID,
			Name:     product.Name,
			Image:    product.MainImage,
			Price:    pricing.Resolve(product.BasePrice, linked[product.ID].percentage()).Price,
			Quantity: line.Quantity,
		}

		if line.Variant != "" {
			skuID, err := primitive.ObjectIDFromHex(line.Variant)
			if err != nil {
				msgs = append(msgs, fmt.Sprintf("Variant not found: %s.", line.Variant))
				continue
			}
			sku, ok := product.FindSKU(skuID)
			if !ok {
				msgs = append(msgs, fmt.Sprintf("Variant not found: %s.", line.Variant))
				continue
			}
			if _, seen := requested[sku.ID]; !seen {
				skuOrder = append(skuOrder, sku.ID)
				skus[sku.ID] = skuStock{sku.Stock, product.Name.En}
			}
			requested[sku.ID] += line.Quantity
			item.Variant = &sku.ID
			item.Price = sku.Price
		}

		subtotal = subtotal.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
		items = append(items, item)
	}

	for _, id := range skuOrder {
		if s := skus[id]; requested[id] > s.stock {
			msgs = append(msgs, fmt.Sprintf("Insufficient stock for %s.", s.name))
		}
	}

	if err := apperrors.Validations(msgs); err != nil {
		return nil, decimal.Zero, err
	}
	return items, subtotal, nil
}

// takeStock decrements SKU stock for a placed order. The order already
// exists, so failures are logged rather than returned.
func (h *OrderHandler) takeStock(ctx context.Context, order *models.Order) {
	touched := false
	for _, item := range order.Items {
		if item.Variant == nil {
			continue
		}
		touched = true
		if err := h.products.DecrementStock(ctx, item.Product, *item.Variant, item.Quantity); err != nil {
			h.log.Warn("stock not decremented",
				zap.String("order", order.ID.Hex()),
				zap.String("product", item.Product.Hex()),
				zap.String("sku", item.Variant.Hex()),
				zap.Error(err))
		}
	}
	if !touched {
		return
	}
	if err := h.cache.DeleteByPrefix(ctx, productKeyPrefix); err != nil {
		h.log.Warn("cache invalidation failed", zap.Error(err))
	}
}

func validateAddress(a models.ShippingAddress) error {
	var msgs []string
	if strings.TrimSpace(a.Address) == "" {
		msgs = append(msgs, "Address is required.")
	}
	if strings.TrimSpace(a.City) == "" {
		msgs = append(msgs, "City is required.")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		msgs = append(msgs, "Postal code is required.")
	}
	if strings.TrimSpace(a.Country) == "" {
		msgs = append(msgs, "Country is required.")
	}
	return apperrors.Validations(msgs)
}
