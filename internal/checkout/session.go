// Package checkout drives one shopper's checkout: discount code entry,
// validation against the API, derived totals and order submission.
package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront-api/internal/cart"
	"storefront-api/internal/client"
	"storefront-api/internal/models"
	"storefront-api/internal/pricing"
)

type State int

const (
	Editing State = iota
	ApplyingDiscount
	PlacingOrder
	Succeeded
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case ApplyingDiscount:
		return "applying-discount"
	case PlacingOrder:
		return "placing-order"
	case Succeeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyCode     = errors.New("checkout: discount code is empty")
	ErrSuperseded    = errors.New("checkout: superseded by a newer discount request")
	ErrLoginRequired = errors.New("checkout: login required")
	ErrEmptyCart     = errors.New("checkout: cart is empty")
	ErrOrderInFlight = errors.New("checkout: an order is already being placed")
	ErrOrderPlaced   = errors.New("checkout: order already placed")
)

// API is the part of the storefront API a checkout talks to.
type API interface {
	Authenticated() bool
	ValidateDiscount(ctx context.Context, code string, totalAmount float64) (*client.ValidateDiscountResult, error)
	PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error)
}

var _ API = (*client.Client)(nil)

type Options struct {
	Lang   string
	Notify func(Notification)
	Log    *zap.Logger
}

// Totals are the derived amounts shown in the order summary.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalTotal     decimal.Decimal
}

// Session is safe for concurrent use.
type Session struct {
	api    API
	cart   *cart.Cart
	lang   string
	notify func(Notification)
	log    *zap.Logger

	mu            sync.Mutex
	state         State
	code          string
	applied       *models.AppliedDiscount
	address       models.ShippingAddress
	paymentMethod string
	order         *models.Order

	applySeq    uint64
	cancelApply context.CancelFunc
}

func New(api API, c *cart.Cart, opts Options) *Session {
	s := &Session{
		api:           api,
		cart:          c,
		lang:          models.NormalizeLang(opts.Lang),
		notify:        opts.Notify,
		log:           opts.Log,
		paymentMethod: models.DefaultPaymentMethod,
	}
	if s.notify == nil {
		s.notify = func(Notification) {}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// Applied returns a copy of the applied discount, or nil.
func (s *Session) Applied() *models.AppliedDiscount {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applied == nil {
		return nil
	}
	d := *s.applied
	return &d
}

// Order is the order returned by a successful submission.
func (s *Session) Order() *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order
}

// SetDiscountCode stores the typed code in upper case. The input is locked
// while a discount is applied.
func (s *Session) SetDiscountCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applied != nil {
		return
	}
	s.code = strings.ToUpper(code)
}

func (s *Session) SetShippingAddress(a models.ShippingAddress) {
	s.mu.Lock()
	s.address = a
	s.mu.Unlock()
}

func (s *Session) SetPaymentMethod(m string) {
	s.mu.Lock()
	s.paymentMethod = m
	s.mu.Unlock()
}

// ApplyDiscount validates the current code against the cart subtotal. A
// later call cancels an earlier one still waiting on the API; the earlier
// call then returns ErrSuperseded and leaves the session untouched. Once
// the order is placed the session no longer accepts codes.
func (s *Session) ApplyDiscount(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case PlacingOrder:
		s.mu.Unlock()
		return ErrOrderInFlight
	case Succeeded:
		s.mu.Unlock()
		return ErrOrderPlaced
	}
	code := strings.TrimSpace(s.code)
	if code == "" {
		s.mu.Unlock()
		s.emit(LevelWarning, text(msgEnterCode, s.lang))
		return ErrEmptyCode
	}
	if s.cancelApply != nil {
		s.cancelApply()
	}
	s.applySeq++
	seq := s.applySeq
	actx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancelApply = cancel
	s.state = ApplyingDiscount
	subtotal := s.cart.Subtotal()
	s.mu.Unlock()

	res, err := s.api.ValidateDiscount(actx, code, subtotal.InexactFloat64())

	s.mu.Lock()
	if seq != s.applySeq || s.state != ApplyingDiscount {
		s.mu.Unlock()
		s.log.Debug("discount result discarded", zap.String("code", code))
		return ErrSuperseded
	}
	s.cancelApply = nil
	s.state = Editing
	if err != nil {
		s.mu.Unlock()
		s.emit(LevelError, s.serverMessage(err, msgInvalidDiscount))
		return err
	}
	s.applied = &models.AppliedDiscount{Code: res.Code, Amount: res.DiscountAmount}
	s.mu.Unlock()

	s.emit(LevelSuccess, text(msgDiscountApplied, s.lang))
	return nil
}

// RemoveDiscount drops the applied discount and clears the code input.
func (s *Session) RemoveDiscount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = nil
	s.code = ""
}

// PlaceOrder submits the cart with the applied discount snapshot. Only one
// submission runs at a time and a later call never cancels it. A discount
// request still in flight is abandoned so the order carries the settled
// snapshot.
func (s *Session) PlaceOrder(ctx context.Context) (*models.Order, error) {
	s.mu.Lock()
	if s.state == PlacingOrder {
		s.mu.Unlock()
		return nil, ErrOrderInFlight
	}
	if !s.api.Authenticated() {
		s.mu.Unlock()
		s.emit(LevelInfo, text(msgLoginRequired, s.lang))
		return nil, ErrLoginRequired
	}
	if s.cart.IsEmpty() {
		s.mu.Unlock()
		s.emit(LevelWarning, text(msgCartEmpty, s.lang))
		return nil, ErrEmptyCart
	}
	if s.cancelApply != nil {
		s.cancelApply()
		s.cancelApply = nil
	}
	s.state = PlacingOrder
	req := models.OrderRequest{
		Items:           s.cart.OrderItems(),
		ShippingAddress: s.address,
		PaymentMethod:   s.paymentMethod,
	}
	if s.applied != nil {
		d := *s.applied
		req.Discount = &d
	}
	s.mu.Unlock()

	order, err := s.api.PlaceOrder(ctx, req)

	s.mu.Lock()
	if err != nil {
		s.state = Editing
		s.mu.Unlock()
		s.log.Warn("order placement failed", zap.Error(err))
		s.emit(LevelError, s.serverMessage(err, msgOrderFailed))
		return nil, err
	}
	s.order = order
	s.state = Succeeded
	s.mu.Unlock()

	s.cart.Clear()
	s.emit(LevelSuccess, text(msgOrderPlaced, s.lang))
	return order, nil
}

// Totals derives the summary amounts from the cart and applied discount.
func (s *Session) Totals() Totals {
	subtotal := s.cart.Subtotal()
	amount := decimal.Zero
	if d := s.Applied(); d != nil {
		amount = decimal.NewFromFloat(d.Amount)
	}
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: amount,
		FinalTotal:     pricing.FinalTotal(subtotal, amount),
	}
}

func (s *Session) serverMessage(err error, fallback messageKey) string {
	if msg, ok := client.MessageOf(err); ok {
		return msg
	}
	return text(fallback, s.lang)
}

func (s *Session) emit(level Level, msg string) {
	s.notify(Notification{Level: level, Message: msg})
}
