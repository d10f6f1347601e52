package checkout

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"pgregory.net/rapid"

	"storefront-api/internal/cart"
	"storefront-api/internal/client"
	"storefront-api/internal/models"
)

// fakeAPI answers validate calls from a code table. When block is set the
// first validate or place call waits for release or cancellation.
type fakeAPI struct {
	authed  bool
	amounts map[string]float64

	validateStarted chan struct{}
	placeStarted    chan struct{}
	release         chan struct{}

	mu       sync.Mutex
	blockOne bool
	placed   []models.OrderRequest
	placeErr error
	totals   []float64
}

func (f *fakeAPI) Authenticated() bool { return f.authed }

func (f *fakeAPI) ValidateDiscount(ctx context.Context, code string, total float64) (*client.ValidateDiscountResult, error) {
	f.mu.Lock()
	block := f.blockOne
	f.blockOne = false
	f.totals = append(f.totals, total)
	f.mu.Unlock()

	if block {
		close(f.validateStarted)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.release:
		}
	}
	amount, ok := f.amounts[code]
	if !ok {
		return nil, &client.APIError{Status: http.StatusNotFound, Message: "Invalid or expired discount code."}
	}
	return &client.ValidateDiscountResult{Code: code, DiscountAmount: amount}, nil
}

func (f *fakeAPI) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	if f.placeStarted != nil {
		close(f.placeStarted)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.release:
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	f.placed = append(f.placed, req)
	return &models.Order{ID: primitive.NewObjectID(), Discount: req.Discount, PaymentMethod: req.PaymentMethod}, nil
}

type recorder struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recorder) notify(n Notification) {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
}

func (r *recorder) last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.got) == 0 {
		return Notification{}
	}
	return r.got[len(r.got)-1]
}

func newSession(t *testing.T, api *fakeAPI, lang string) (*Session, *cart.Cart, *recorder) {
	t.Helper()
	c := cart.New()
	c.Add(cart.Item{ProductID: "p1", Quantity: 2, Price: 100})
	rec := &recorder{}
	return New(api, c, Options{Lang: lang, Notify: rec.notify}), c, rec
}

func TestApplyDiscount(t *testing.T) {
	api := &fakeAPI{authed: true, amounts: map[string]float64{"SAVE10": 20}}
	s, _, rec := newSession(t, api, "en")

	require.ErrorIs(t, s.ApplyDiscount(context.Background()), ErrEmptyCode)
	assert.Equal(t, Notification{LevelWarning, "Enter a discount code"}, rec.last())

	s.SetDiscountCode("nope")
	assert.Equal(t, "NOPE", s.Code())
	err := s.ApplyDiscount(context.Background())
	require.Error(t, err)
	assert.Equal(t, Notification{LevelError, "Invalid or expired discount code."}, rec.last())
	assert.Nil(t, s.Applied())
	assert.Equal(t, Editing, s.State())

	s.SetDiscountCode("save10")
	require.NoError(t, s.ApplyDiscount(context.Background()))
	assert.Equal(t, LevelSuccess, rec.last().Level)
	assert.Equal(t, &models.AppliedDiscount{Code: "SAVE10", Amount: 20}, s.Applied())
	assert.Equal(t, 200.0, api.totals[len(api.totals)-1])

	// The input is locked while a discount is applied.
	s.SetDiscountCode("OTHER")
	assert.Equal(t, "SAVE10", s.Code())

	tot := s.Totals()
	assert.Equal(t, "200", tot.Subtotal.String())
	assert.Equal(t, "20", tot.DiscountAmount.String())
	assert.Equal(t, "180", tot.FinalTotal.String())

	s.RemoveDiscount()
	assert.Nil(t, s.Applied())
	assert.Empty(t, s.Code())
	assert.True(t, s.Totals().DiscountAmount.IsZero())
}

func TestApplyDiscount_FailureKeepsApplied(t *testing.T) {
	api := &fakeAPI{authed: true, amounts: map[string]float64{"SAVE10": 20}}
	s, _, _ := newSession(t, api, "en")
	s.SetDiscountCode("SAVE10")
	require.NoError(t, s.ApplyDiscount(context.Background()))

	delete(api.amounts, "SAVE10")
	require.Error(t, s.ApplyDiscount(context.Background()))
	assert.Equal(t, &models.AppliedDiscount{Code: "SAVE10", Amount: 20}, s.Applied())
}

func TestApplyDiscount_FallbackMessageIsLocalized(t *testing.T) {
	api := &fakeAPI{authed: true}
	s, _, rec := newSession(t, api, "ar")
	s.SetDiscountCode("X")

	// Plain errors carry no server message.
	s.api = errValidator{api}
	require.Error(t, s.ApplyDiscount(context.Background()))
	assert.Equal(t, "رمز الخصم غير صالح أو منتهي الصلاحية.", rec.last().Message)
}

type errValidator struct{ *fakeAPI }

func (errValidator) ValidateDiscount(context.Context, string, float64) (*client.ValidateDiscountResult, error) {
	return nil, errors.New("connection refused")
}

func TestApplyDiscount_NewerSupersedesOlder(t *testing.T) {
	api := &fakeAPI{
		authed:          true,
		amounts:         map[string]float64{"OLD": 5, "NEW": 30},
		blockOne:        true,
		validateStarted: make(chan struct{}),
		release:         make(chan struct{}),
	}
	s, _, _ := newSession(t, api, "en")

	s.SetDiscountCode("OLD")
	first := make(chan error, 1)
	go func() { first <- s.ApplyDiscount(context.Background()) }()
	<-api.validateStarted

	s.SetDiscountCode("NEW")
	require.NoError(t, s.ApplyDiscount(context.Background()))

	select {
	case err := <-first:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("stale apply was not cancelled")
	}
	assert.Equal(t, &models.AppliedDiscount{Code: "NEW", Amount: 30}, s.Applied())
	assert.Equal(t, Editing, s.State())
}

func TestPlaceOrder_Guards(t *testing.T) {
	api := &fakeAPI{}
	s, c, rec := newSession(t, api, "en")

	_, err := s.PlaceOrder(context.Background())
	require.ErrorIs(t, err, ErrLoginRequired)
	assert.Equal(t, LevelInfo, rec.last().Level)

	api.authed = true
	c.Clear()
	_, err = s.PlaceOrder(context.Background())
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, LevelWarning, rec.last().Level)
	assert.Empty(t, api.placed)
	assert.Equal(t, Editing, s.State())
}

func TestPlaceOrder_Success(t *testing.T) {
	api := &fakeAPI{authed: true, amounts: map[string]float64{"SAVE10": 20}}
	s, c, rec := newSession(t, api, "en")
	addr := models.ShippingAddress{Address: "1 Nile St", City: "Cairo", PostalCode: "11511", Country: "Egypt"}
	s.SetShippingAddress(addr)
	s.SetDiscountCode("SAVE10")
	require.NoError(t, s.ApplyDiscount(context.Background()))

	order, err := s.PlaceOrder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, order, s.Order())
	assert.Equal(t, Succeeded, s.State())
	assert.True(t, c.IsEmpty())
	assert.Equal(t, LevelSuccess, rec.last().Level)

	require.Len(t, api.placed, 1)
	req := api.placed[0]
	assert.Equal(t, addr, req.ShippingAddress)
	assert.Equal(t, models.DefaultPaymentMethod, req.PaymentMethod)
	assert.Equal(t, []models.OrderLine{{Product: "p1", Quantity: 2}}, req.Items)
	assert.Equal(t, &models.AppliedDiscount{Code: "SAVE10", Amount: 20}, req.Discount)

	s.RemoveDiscount()
	s.SetDiscountCode("SAVE10")
	assert.ErrorIs(t, s.ApplyDiscount(context.Background()), ErrOrderPlaced)
	assert.Equal(t, Succeeded, s.State())
	assert.Nil(t, s.Applied())
}

func TestPlaceOrder_FailureReturnsToEditing(t *testing.T) {
	api := &fakeAPI{authed: true, placeErr: &client.APIError{Status: 400, Message: "Insufficient stock for Phone."}}
	s, c, rec := newSession(t, api, "en")

	_, err := s.PlaceOrder(context.Background())
	require.Error(t, err)
	assert.Equal(t, Editing, s.State())
	assert.False(t, c.IsEmpty())
	assert.Equal(t, Notification{LevelError, "Insufficient stock for Phone."}, rec.last())

	api.placeErr = errors.New("dial tcp: refused")
	_, err = s.PlaceOrder(context.Background())
	require.Error(t, err)
	assert.Equal(t, "There was an error placing your order.", rec.last().Message)
}

func TestPlaceOrder_SingleInFlight(t *testing.T) {
	api := &fakeAPI{
		authed:       true,
		placeStarted: make(chan struct{}),
		release:      make(chan struct{}),
	}
	s, _, _ := newSession(t, api, "en")

	done := make(chan error, 1)
	go func() {
		_, err := s.PlaceOrder(context.Background())
		done <- err
	}()
	<-api.placeStarted

	_, err := s.PlaceOrder(context.Background())
	assert.ErrorIs(t, err, ErrOrderInFlight)
	s.SetDiscountCode("SAVE10")
	assert.ErrorIs(t, s.ApplyDiscount(context.Background()), ErrOrderInFlight)
	assert.Equal(t, PlacingOrder, s.State())

	close(api.release)
	require.NoError(t, <-done)
	assert.Equal(t, Succeeded, s.State())
	assert.Len(t, api.placed, 1)
}

func TestFinalTotalNeverNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := cart.New()
		n := rapid.IntRange(0, 5).Draw(t, "lines")
		for i := 0; i < n; i++ {
			c.Add(cart.Item{
				ProductID: rapid.StringMatching(`p[0-9]`).Draw(t, "product"),
				Quantity:  rapid.IntRange(1, 10).Draw(t, "qty"),
				Price:     float64(rapid.IntRange(0, 100000).Draw(t, "cents")) / 100,
			})
		}
		s := New(&fakeAPI{}, c, Options{})
		s.applied = &models.AppliedDiscount{
			Code:   "X",
			Amount: float64(rapid.IntRange(0, 10000000).Draw(t, "discount")) / 100,
		}

		tot := s.Totals()
		if tot.FinalTotal.IsNegative() {
			t.Fatalf("final total %s is negative", tot.FinalTotal)
		}
		want := tot.Subtotal.Sub(tot.DiscountAmount)
		if want.IsPositive() && !tot.FinalTotal.Equal(want) {
			t.Fatalf("final total %s, want %s", tot.FinalTotal, want)
		}
		if !want.IsPositive() && !tot.FinalTotal.Equal(decimal.Zero) {
			t.Fatalf("final total %s, want 0", tot.FinalTotal)
		}
	})
}

// Runs a session through the real HTTP client against a stub API.
func TestSessionOverHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/discounts/validate", func(c *gin.Context) {
		var body struct {
			Code        string  `json:"code"`
			TotalAmount float64 `json:"totalAmount"`
		}
		_ = c.ShouldBindJSON(&body)
		c.JSON(http.StatusOK, gin.H{"message": "Discount applied successfully!", "code": body.Code, "discountAmount": body.TotalAmount / 10})
	})
	r.POST("/api/orders", func(c *gin.Context) {
		var req models.OrderRequest
		_ = c.ShouldBindJSON(&req)
		c.JSON(http.StatusCreated, models.Order{ID: primitive.NewObjectID(), Discount: req.Discount})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c := cart.New()
	c.Add(cart.Item{ProductID: "p1", Quantity: 3, Price: 100})
	s := New(client.New(srv.URL).WithToken("tok"), c, Options{})

	s.SetDiscountCode("save10")
	require.NoError(t, s.ApplyDiscount(context.Background()))
	assert.Equal(t, "270", s.Totals().FinalTotal.String())

	order, err := s.PlaceOrder(context.Background())
	require.NoError(t, err)
	require.NotNil(t, order.Discount)
	assert.Equal(t, 30.0, order.Discount.Amount)
	assert.True(t, c.IsEmpty())
}
