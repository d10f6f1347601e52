package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-api/internal/apperrors"
	"storefront-api/internal/cache"
	"storefront-api/internal/models"
	"storefront-api/internal/uploads"
)

const (
	heroOffersKey = "ads:hero"
	imageField    = "image"
	msgAdRequired = "Title (English & Arabic) and image are required."
	entityAdvert  = "Advertisement"
)

type AdvertisementHandler struct {
	store  AdvertisementStore
	images ImageStore
	cache  cache.Cache
	ttl    time.Duration
	log    *zap.Logger
}

func NewAdvertisementHandler(store AdvertisementStore, images ImageStore, c cache.Cache, ttl time.Duration, log *zap.Logger) *AdvertisementHandler {
	return &AdvertisementHandler{
		store:  store,
		images: images,
		cache:  c,
		ttl:    ttl,
		log:    log,
	}
}

// GET /api/advertisements
func (h *AdvertisementHandler) List(c *gin.Context) {
	var f models.AdFilter
	f.Type = c.Query("type")
	if v, ok := c.GetQuery("isActive"); ok {
		active := v == "true"
		f.IsActive = &active
	}

	ads, err := h.store.FindAll(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.log, classify(err, entityAdvert))
		return
	}
	c.JSON(http.StatusOK, ads)
}

// GET /api/advertisements/:id
func (h *AdvertisementHandler) Get(c *gin.Context) {
	ad, err := h.store.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, classify(err, entityAdvert))
		return
	}
	c.JSON(http.StatusOK, ad)
}

// GET /api/advertisements/hero-side-offers
func (h *AdvertisementHandler) HeroOffers(c *gin.Context) {
	ctx := c.Request.Context()

	var offers models.HeroOffers
	if found, err := h.cache.Get(ctx, heroOffersKey, &offers); err == nil && found {
		c.JSON(http.StatusOK, offers)
		return
	} else if err != nil {
		h.log.Warn("hero offers cache read failed", zap.Error(err))
	}

	// Results come back ordered by display order, so the first ad of each
	// type fills its slot.
	ads, err := h.store.FindActiveByTypes(ctx, models.AdTypeSideOffer, models.AdTypeWeeklyOffer)
	if err != nil {
		respondError(c, h.log, apperrors.Internal("Failed to fetch hero side offers", err))
		return
	}
	for i := range ads {
		ad := &ads[i]
		switch {
		case ad.Type == models.AdTypeSideOffer && offers.SideOffer == nil:
			offers.SideOffer = ad
		case ad.Type == models.AdTypeWeeklyOffer && offers.WeeklyOffer == nil:
			offers.WeeklyOffer = ad
		}
	}

	if err := h.cache.Set(ctx, heroOffersKey, offers, h.ttl); err != nil {
		h.log.Warn("hero offers cache write failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, offers)
}

// POST /api/advertisements
func (h *AdvertisementHandler) Create(c *gin.Context) {
	titleEn, _ := formField(c, "title_en")
	titleAr, _ := formField(c, "title_ar")
	file, _ := c.FormFile(imageField)

	// Checked before anything touches the disk.
	if titleEn == "" || titleAr == "" || file == nil {
		respondError(c, h.log, apperrors.Validation(msgAdRequired))
		return
	}

	ad := &models.Advertisement{
		Title:    models.Bilingual{En: titleEn, Ar: titleAr},
		Link:     models.DefaultAdLink,
		Type:     models.AdTypeSlide,
		Currency: models.DefaultAdCurrency,
	}
	if err := applyAdForm(c, ad); err != nil {
		respondError(c, h.log, err)
		return
	}

	var m uploads.Mutation
	defer h.rollback(&m)

	path, err := h.images.Save(file)
	if err != nil {
		respondError(c, h.log, apperrors.Internal("Failed to save image", err))
		return
	}
	m.Undo(func() error { return h.images.Remove(path) })
	ad.Image = path

	if err := h.store.Create(c.Request.Context(), ad); err != nil {
		respondError(c, h.log, writeFailure(err))
		return
	}
	h.commit(&m)
	h.invalidate(c.Request.Context())

	c.JSON(http.StatusCreated, ad)
}

// PUT /api/advertisements/:id
func (h *AdvertisementHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	ad, err := h.store.FindByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.log, classify(err, entityAdvert))
		return
	}

	if v, _ := formField(c, "title_en"); v != "" {
		ad.Title.En = v
	}
	if v, _ := formField(c, "title_ar"); v != "" {
		ad.Title.Ar = v
	}
	if err := applyAdForm(c, ad); err != nil {
		respondError(c, h.log, err)
		return
	}

	var m uploads.Mutation
	defer h.rollback(&m)

	if file, _ := c.FormFile(imageField); file != nil {
		path, err := h.images.Save(file)
		if err != nil {
			respondError(c, h.log, apperrors.Internal("Failed to save image", err))
			return
		}
		m.Undo(func() error { return h.images.Remove(path) })
		if old := ad.Image; old != "" {
			m.AfterCommit(func() error { return h.images.Remove(old) })
		}
		ad.Image = path
	}

	if err := h.store.Replace(ctx, ad); err != nil {
		respondError(c, h.log, writeFailure(err))
		return
	}
	h.commit(&m)
	h.invalidate(ctx)

	c.JSON(http.StatusOK, ad)
}

// DELETE /api/advertisements/:id
func (h *AdvertisementHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	ad, err := h.store.Delete(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.log, classify(err, entityAdvert))
		return
	}
	if ad.Image != "" {
		if err := h.images.Remove(ad.Image); err != nil {
			h.log.Warn("advertisement image not removed", zap.String("image", ad.Image), zap.Error(err))
		}
	}
	h.invalidate(ctx)

	c.JSON(http.StatusOK, SuccessResponse{Message: "Advertisement deleted"})
}

// applyAdForm copies the optional multipart fields onto ad. Fields that
// were not sent keep their current value; dates and prices sent empty
// are cleared.
func applyAdForm(c *gin.Context, ad *models.Advertisement) error {
	var msgs []string

	if v, _ := formField(c, "description_en"); v != "" {
		ad.Description.En = v
	}
	if v, _ := formField(c, "description_ar"); v != "" {
		ad.Description.Ar = v
	}
	if v, ok := formField(c, "link"); ok {
		ad.Link = v
	}
	if v, ok := formField(c, "currency"); ok {
		ad.Currency = v
	}
	if v, _ := formField(c, "type"); v != "" {
		if !models.IsAdType(v) {
			msgs = append(msgs, "`"+v+"` is not a valid advertisement type.")
		} else {
			ad.Type = v
		}
	}
	if v, ok := formField(c, "isActive"); ok {
		ad.IsActive = v == "true"
	}
	if v, ok := formField(c, "order"); ok {
		if v == "" {
			ad.Order = 0
		} else if n, err := strconv.Atoi(v); err != nil {
			msgs = append(msgs, "Order must be a whole number.")
		} else {
			ad.Order = n
		}
	}

	for _, f := range []struct {
		key string
		dst **time.Time
	}{{"startDate", &ad.StartDate}, {"endDate", &ad.EndDate}} {
		v, ok := formField(c, f.key)
		if !ok {
			continue
		}
		t, set, err := parseOptionalTime(v)
		switch {
		case err != nil:
			msgs = append(msgs, "Invalid "+f.key+".")
		case set:
			*f.dst = &t
		default:
			*f.dst = nil
		}
	}
	if ad.StartDate != nil && ad.EndDate != nil && ad.EndDate.Before(*ad.StartDate) {
		msgs = append(msgs, "End date must not be before start date.")
	}

	for _, f := range []struct {
		key string
		dst **float64
	}{{"originalPrice", &ad.OriginalPrice}, {"discountedPrice", &ad.DiscountedPrice}} {
		v, ok := formField(c, f.key)
		if !ok {
			continue
		}
		n, set, err := parseOptionalFloat(v)
		switch {
		case err != nil || (set && n < 0):
			msgs = append(msgs, "Invalid "+f.key+".")
		case set:
			*f.dst = &n
		default:
			*f.dst = nil
		}
	}

	if v, ok := formField(c, "productId"); ok {
		if v == "" {
			ad.ProductID = nil
		} else if id, err := parseObjectID(v); err != nil {
			msgs = append(msgs, "Invalid productId.")
		} else {
			ad.ProductID = &id
		}
	}

	return apperrors.Validations(msgs)
}

// writeFailure reports a rejected advertisement write. Store rejections
// answer 400 with the store's message.
func writeFailure(err error) error {
	classified := classify(err, entityAdvert)
	if apperrors.KindOf(classified) != apperrors.KindInternal {
		return classified
	}
	return apperrors.Validation(err.Error())
}

func (h *AdvertisementHandler) rollback(m *uploads.Mutation) {
	for _, err := range m.Rollback() {
		h.log.Warn("advertisement rollback step failed", zap.Error(err))
	}
}

func (h *AdvertisementHandler) commit(m *uploads.Mutation) {
	for _, err := range m.Commit() {
		h.log.Warn("replaced advertisement image not removed", zap.Error(err))
	}
}

// invalidate drops hero offers and every product view, since product
// views embed the linked advertisement.
func (h *AdvertisementHandler) invalidate(ctx context.Context) {
	for _, prefix := range []string{"ads:", productKeyPrefix} {
		if err := h.cache.DeleteByPrefix(ctx, prefix); err != nil {
			h.log.Warn("cache invalidation failed", zap.String("prefix", prefix), zap.Error(err))
		}
	}
}
