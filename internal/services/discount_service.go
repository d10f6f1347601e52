// Package services holds request-independent domain operations used by
// more than one handler.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storefront-api/internal/apperrors"
	"storefront-api/internal/models"
	"storefront-api/internal/pricing"
	"storefront-api/internal/repository"
)

const msgInvalidCode = "Invalid or expired discount code."

// DiscountFinder looks up a discount that is valid at a given instant.
type DiscountFinder interface {
	FindActiveByCode(ctx context.Context, code string, now time.Time) (*models.Discount, error)
}

type DiscountService struct {
	finder DiscountFinder
	now    func() time.Time
}

func NewDiscountService(finder DiscountFinder) *DiscountService {
	return &DiscountService{finder: finder, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (s *DiscountService) WithClock(now func() time.Time) *DiscountService {
	s.now = now
	return s
}

// NormalizeCode trims and uppercases a user-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks code against an order total and returns the amount it
// takes off. It never writes.
func (s *DiscountService) Validate(ctx context.Context, code string, totalAmount float64) (*models.AppliedDiscount, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, apperrors.Validation("Discount code is required.")
	}
	if totalAmount < 0 {
		return nil, apperrors.Validation("Total amount cannot be negative.")
	}

	d, err := s.finder.FindActiveByCode(ctx, code, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound(msgInvalidCode)
	}
	if err != nil {
		return nil, apperrors.Internal("Server Error", err)
	}

	total := decimal.NewFromFloat(totalAmount)
	if total.LessThan(decimal.NewFromFloat(d.MinOrderAmount)) {
		return nil, apperrors.Validation(fmt.Sprintf(
			"Minimum order amount of %s is required to use this code.",
			decimal.NewFromFloat(d.MinOrderAmount).String()))
	}

	amount := pricing.RuleOf(d).Amount(total)
	return &models.AppliedDiscount{Code: d.Code, Amount: amount.InexactFloat64()}, nil
}
