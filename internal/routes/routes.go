package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-api/internal/auth"
	"storefront-api/internal/handlers"
	"storefront-api/internal/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Products       *handlers.ProductHandler
	Discounts      *handlers.DiscountHandler
	Advertisements *handlers.AdvertisementHandler
	Orders         *handlers.OrderHandler
	Health         *handlers.HealthHandler
}

// Options configures the engine around the API routes.
type Options struct {
	CORSOrigins []string
	UploadDir   string // served under /uploads when set
}

// NewRouter builds the engine with logging, recovery, CORS and language
// middleware and registers every route.
func NewRouter(h Handlers, v *auth.Verifier, log *zap.Logger, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.Recovery(log),
		middleware.RequestLogger(log, "/health", "/ready"),
		cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept-Language", middleware.HeaderRequestID},
			ExposeHeaders:    []string{middleware.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.Language(),
	)

	if opts.UploadDir != "" {
		router.Static("/uploads", opts.UploadDir)
	}

	RegisterRoutes(router, h, v, log)
	return router
}

func RegisterRoutes(router *gin.Engine, h Handlers, v *auth.Verifier, log *zap.Logger) {
	protect := v.Protect(log)
	admin := auth.AdminOnly()

	if h.Health != nil {
		router.GET("/health", h.Health.Live)
		router.GET("/ready", h.Health.Ready)
	}

	api := router.Group("/api")

	products := api.Group("/products")
	{
		products.GET("", h.Products.ListProducts)
		products.GET("/:id", h.Products.GetProduct)
		products.POST("", protect, admin, h.Products.CreateProduct)
		products.PATCH("/:id", protect, admin, h.Products.UpdateProduct)
		products.DELETE("/:id", protect, admin, h.Products.DeleteProduct)
		products.POST("/:id/reviews", protect, h.Products.CreateReview)
	}

	discounts := api.Group("/discounts")
	{
		discounts.POST("/validate", protect, h.Discounts.Validate)
		discounts.GET("/active", h.Discounts.ListActive)
		discounts.GET("", protect, admin, h.Discounts.List)
		discounts.GET("/:id", protect, admin, h.Discounts.Get)
		discounts.POST("", protect, admin, h.Discounts.Create)
		discounts.PUT("/:id", protect, admin, h.Discounts.Update)
		discounts.DELETE("/:id", protect, admin, h.Discounts.Delete)
	}

	ads := api.Group("/advertisements")
	{
		ads.GET("", h.Advertisements.List)
		ads.GET("/hero-side-offers", h.Advertisements.HeroOffers)
		ads.GET("/:id", h.Advertisements.Get)
		ads.POST("", protect, admin, h.Advertisements.Create)
		ads.PUT("/:id", protect, admin, h.Advertisements.Update)
		ads.DELETE("/:id", protect, admin, h.Advertisements.Delete)
	}

	orders := api.Group("/orders")
	orders.Use(protect)
	{
		orders.POST("", h.Orders.CreateOrder)
		orders.GET("/mine", h.Orders.MyOrders)
		orders.GET("/:id", h.Orders.GetOrder)
	}
}
