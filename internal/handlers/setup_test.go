package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront-api/internal/auth"
	"storefront-api/internal/cache"
	"storefront-api/internal/middleware"
	"storefront-api/internal/models"
	"storefront-api/internal/services"
	"storefront-api/internal/uploads"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type env struct {
	router    *gin.Engine
	discounts *memDiscounts
	ads       *memAds
	products  *memProducts
	orders    *memOrders
	images    *uploads.Store
	cache     *cache.Memory

	userID     primitive.ObjectID
	userToken  string
	adminToken string
	otherToken string
}

func newEnv(t *testing.T, seed ...models.Product) *env {
	t.Helper()

	images, err := uploads.NewStore(t.TempDir(), "/uploads/advertisements", "image")
	require.NoError(t, err)

	e := &env{
		discounts: &memDiscounts{},
		ads:       &memAds{},
		products:  newMemProducts(seed...),
		orders:    &memOrders{},
		images:    images,
		cache:     cache.NewMemory(time.Minute, 0),
		userID:    primitive.NewObjectID(),
	}
	t.Cleanup(e.cache.Close)

	v := auth.NewVerifier("test-secret")
	e.userToken = issue(t, v, e.userID.Hex(), nil)
	e.adminToken = issue(t, v, primitive.NewObjectID().Hex(), []string{auth.RoleAdmin})
	e.otherToken = issue(t, v, primitive.NewObjectID().Hex(), nil)

	log := zap.NewNop()
	clock := func() time.Time { return testNow }
	svc := services.NewDiscountService(e.discounts).WithClock(clock)

	dh := NewDiscountHandler(e.discounts, svc, log)
	dh.now = clock
	ah := NewAdvertisementHandler(e.ads, images, e.cache, time.Minute, log)
	ph := NewProductHandler(e.products, e.ads, e.cache, time.Minute, log)
	ph.now = clock
	oh := NewOrderHandler(e.orders, e.products, e.ads, svc, e.cache, log)
	oh.now = clock

	protect := v.Protect(log)
	admin := auth.AdminOnly()

	r := gin.New()
	r.Use(middleware.Language())

	r.POST("/api/discounts/validate", protect, dh.Validate)
	r.GET("/api/discounts/active", dh.ListActive)
	r.GET("/api/discounts", protect, admin, dh.List)
	r.GET("/api/discounts/:id", protect, admin, dh.Get)
	r.POST("/api/discounts", protect, admin, dh.Create)
	r.PUT("/api/discounts/:id", protect, admin, dh.Update)
	r.DELETE("/api/discounts/:id", protect, admin, dh.Delete)

	r.GET("/api/advertisements", ah.List)
	r.GET("/api/advertisements/hero-side-offers", ah.HeroOffers)
	r.GET("/api/advertisements/:id", ah.Get)
	r.POST("/api/advertisements", protect, admin, ah.Create)
	r.PUT("/api/advertisements/:id", protect, admin, ah.Update)
	r.DELETE("/api/advertisements/:id", protect, admin, ah.Delete)

	r.GET("/api/products", ph.ListProducts)
	r.GET("/api/products/:id", ph.GetProduct)
	r.POST("/api/products", protect, admin, ph.CreateProduct)
	r.PATCH("/api/products/:id", protect, admin, ph.UpdateProduct)
	r.DELETE("/api/products/:id", protect, admin, ph.DeleteProduct)
	r.POST("/api/products/:id/reviews", protect, ph.CreateReview)

	r.POST("/api/orders", protect, oh.CreateOrder)
	r.GET("/api/orders/mine", protect, oh.MyOrders)
	r.GET("/api/orders/:id", protect, oh.GetOrder)

	e.router = r
	return e
}

func issue(t *testing.T, v *auth.Verifier, id string, roles []string) string {
	t.Helper()
	tok, err := v.IssueToken(id, "Tester", roles, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *env) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			raw, _ := json.Marshal(b)
			r = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// form sends a multipart request; image is attached when non-nil.
func (e *env) form(method, path string, fields map[string]string, image []byte, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if image != nil {
		fw, _ := mw.CreateFormFile("image", "banner.png")
		_, _ = fw.Write(image)
	}
	_ = mw.Close()

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// files lists what is on disk in the upload directory.
func (e *env) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.images.Dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, en := range entries {
		names = append(names, en.Name())
	}
	return names
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	return decode[ErrorResponse](t, w).Message
}

func ptr(v float64) *float64 { return &v }
