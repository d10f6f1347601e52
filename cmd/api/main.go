package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-api/internal/auth"
	"storefront-api/internal/cache"
	"storefront-api/internal/config"
	"storefront-api/internal/database"
	"storefront-api/internal/handlers"
	"storefront-api/internal/logger"
	"storefront-api/internal/repository"
	"storefront-api/internal/routes"
	"storefront-api/internal/services"
	"storefront-api/internal/uploads"
)

func main() {
	cfg := config.LoadConfig()

	logg, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logg.Sync() //nolint:errcheck

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		logg.Warn("config", zap.String("warning", w))
	}
	if err != nil {
		logg.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logg.Fatal("mongo connection failed", zap.Error(err))
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()

	db := client.Database(cfg.MongoDB)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logg.Fatal("index creation failed", zap.Error(err))
	}

	store := newCache(ctx, cfg, logg)

	images, err := uploads.NewStore(
		filepath.Join(cfg.UploadDir, "advertisements"),
		"/uploads/advertisements",
		"image",
	)
	if err != nil {
		logg.Fatal("upload dir", zap.Error(err))
	}

	products := repository.NewProductRepository(db.Collection(database.ProductsCollection))
	discounts := repository.NewDiscountRepository(db.Collection(database.DiscountsCollection))
	ads := repository.NewAdvertisementRepository(db.Collection(database.AdvertisementsCollection))
	orders := repository.NewOrderRepository(db.Collection(database.OrdersCollection))

	discountService := services.NewDiscountService(discounts)

	router := routes.NewRouter(routes.Handlers{
		Products:       handlers.NewProductHandler(products, ads, store, cfg.CacheTTL, logg),
		Discounts:      handlers.NewDiscountHandler(discounts, discountService, logg),
		Advertisements: handlers.NewAdvertisementHandler(ads, images, store, cfg.CacheTTL, logg),
		Orders:         handlers.NewOrderHandler(orders, products, ads, discountService, store, logg),
		Health: handlers.NewHealthHandler(func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		}),
	}, auth.NewVerifier(cfg.JWTSecret), logg, routes.Options{
		CORSOrigins: cfg.CORSOrigins,
		UploadDir:   cfg.UploadDir,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logg.Info("server running", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logg.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newCache picks Redis when REDIS_URL is set and reachable, the
// in-process cache otherwise.
func newCache(ctx context.Context, cfg *config.Config, logg *zap.Logger) cache.Cache {
	if cfg.RedisURL != "" {
		r, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err == nil {
			logg.Info("using redis cache")
			return r
		}
		logg.Warn("redis unavailable, using in-memory cache", zap.Error(err))
	}
	return cache.NewMemory(cfg.CacheTTL, time.Minute)
}
