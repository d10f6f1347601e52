package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-api/internal/apperrors"
	"storefront-api/internal/models"
	"storefront-api/internal/repository"
	"storefront-api/internal/services"
)

type DiscountHandler struct {
	store     DiscountStore
	validator *services.DiscountService
	log       *zap.Logger
	now       func() time.Time
}

func NewDiscountHandler(store DiscountStore, validator *services.DiscountService, log *zap.Logger) *DiscountHandler {
	return &DiscountHandler{
		store:     store,
		validator: validator,
		log:       log,
		now:       time.Now,
	}
}

type validateDiscountRequest struct {
	Code        string  `json:"code"`
	TotalAmount float64 `json:"totalAmount"`
}

type ValidateDiscountResponse struct {
	Message        string  `json:"message"`
	DiscountAmount float64 `json:"discountAmount"`
	Code           string  `json:"code"`
}

// discountRequest is the admin create/update body.
type discountRequest struct {
	Code              string    `json:"code"`
	Percentage        FlexFloat `json:"percentage"`
	FixedAmount       FlexFloat `json:"fixedAmount"`
	MinOrderAmount    FlexFloat `json:"minOrderAmount"`
	MaxDiscountAmount FlexFloat `json:"maxDiscountAmount"`
	StartDate         FlexTime  `json:"startDate"`
	EndDate           FlexTime  `json:"endDate"`
	IsActive          FlexBool  `json:"isActive"`
}

// toDiscount normalizes the request and collects every validation failure.
func (r discountRequest) toDiscount() (*models.Discount, error) {
	var msgs []string

	d := &models.Discount{
		Code:              services.NormalizeCode(r.Code),
		Percentage:        r.Percentage.Value,
		FixedAmount:       r.FixedAmount.Value,
		MaxDiscountAmount: r.MaxDiscountAmount.Value,
		IsActive:          bool(r.IsActive),
	}
	if r.MinOrderAmount.Value != nil {
		d.MinOrderAmount = *r.MinOrderAmount.Value
	}

	if d.Code == "" {
		msgs = append(msgs, "Discount code is required.")
	}
	if r.StartDate.Value == nil {
		msgs = append(msgs, "Start date is required.")
	} else {
		d.StartDate = *r.StartDate.Value
	}
	if r.EndDate.Value == nil {
		msgs = append(msgs, "End date is required.")
	} else {
		d.EndDate = *r.EndDate.Value
	}
	if r.StartDate.Value != nil && r.EndDate.Value != nil && d.EndDate.Before(d.StartDate) {
		msgs = append(msgs, "End date must not be before start date.")
	}

	switch {
	case d.Percentage == nil && d.FixedAmount == nil:
		msgs = append(msgs, "Either a percentage or a fixed amount is required.")
	case d.Percentage != nil && d.FixedAmount != nil:
		msgs = append(msgs, "Provide a percentage or a fixed amount, not both.")
	}
	if p := d.Percentage; p != nil && (*p <= 0 || *p > 100) {
		msgs = append(msgs, "Percentage must be greater than 0 and at most 100.")
	}
	if f := d.FixedAmount; f != nil && *f <= 0 {
		msgs = append(msgs, "Fixed amount must be greater than 0.")
	}
	if d.MinOrderAmount < 0 {
		msgs = append(msgs, "Minimum order amount cannot be negative.")
	}
	if m := d.MaxDiscountAmount; m != nil && *m < 0 {
		msgs = append(msgs, "Maximum discount amount cannot be negative.")
	}

	if err := apperrors.Validations(msgs); err != nil {
		return nil, err
	}
	return d, nil
}

// POST /api/discounts/validate
func (h *DiscountHandler) Validate(c *gin.Context) {
	var req validateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperrors.Validation("Invalid request body."))
		return
	}

	applied, err := h.validator.Validate(c.Request.Context(), req.Code, req.TotalAmount)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, ValidateDiscountResponse{
		Message:        "Discount applied successfully!",
		DiscountAmount: applied.Amount,
		Code:           applied.Code,
	})
}

// GET /api/discounts/active
func (h *DiscountHandler) ListActive(c *gin.Context) {
	discounts, err := h.store.FindActive(c.Request.Context(), h.now())
	if err != nil {
		respondError(c, h.log, classify(err, "Discount"))
		return
	}
	c.JSON(http.StatusOK, discounts)
}

// GET /api/discounts
func (h *DiscountHandler) List(c *gin.Context) {
	discounts, err := h.store.FindAll(c.Request.Context())
	if err != nil {
		respondError(c, h.log, classify(err, "Discount"))
		return
	}
	c.JSON(http.StatusOK, discounts)
}

// GET /api/discounts/:id
func (h *DiscountHandler) Get(c *gin.Context) {
	d, err := h.store.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, classify(err, "Discount"))
		return
	}
	c.JSON(http.StatusOK, d)
}

// POST /api/discounts
func (h *DiscountHandler) Create(c *gin.Context) {
	d, err := h.bind(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.store.Create(c.Request.Context(), d); err != nil {
		respondError(c, h.log, h.writeError(err, d.Code))
		return
	}
	c.JSON(http.StatusCreated, d)
}

// PUT /api/discounts/:id
func (h *DiscountHandler) Update(c *gin.Context) {
	d, err := h.bind(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	updated, err := h.store.Replace(c.Request.Context(), c.Param("id"), d)
	if err != nil {
		respondError(c, h.log, h.writeError(err, d.Code))
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DELETE /api/discounts/:id
func (h *DiscountHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, classify(err, "Discount"))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Discount deleted successfully"})
}

func (h *DiscountHandler) bind(c *gin.Context) (*models.Discount, error) {
	var req discountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apperrors.Validation(strings.TrimSpace("Invalid request body. " + err.Error()))
	}
	return req.toDiscount()
}

func (h *DiscountHandler) writeError(err error, code string) error {
	if errors.Is(err, repository.ErrDuplicateKey) {
		return apperrors.Conflict(fmt.Sprintf("Discount code %q already exists.", code))
	}
	return classify(err, "Discount")
}
