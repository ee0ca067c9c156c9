package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/nagoyameshi/config"
	"github.com/yeremiapane/nagoyameshi/database"
	"github.com/yeremiapane/nagoyameshi/router"
	"github.com/yeremiapane/nagoyameshi/services"
	"github.com/yeremiapane/nagoyameshi/utils"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	utils.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	utils.SetLogLevel(cfg.LogLevel)
	gin.SetMode(cfg.Server.GinMode)

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	prepareDatabase(db, cfg)

	tokenStore, closeStore := newTokenStore(cfg.Redis)
	defer closeStore()

	var billing services.BillingProvider = services.DisabledBilling{}
	if cfg.BillingEnabled() {
		billing = services.NewStripeBilling(services.StripeConfig{
			SecretKey: cfg.Billing.StripeSecretKey,
			Timeout:   cfg.Billing.Timeout,
		})
	} else {
		utils.InfoLogger.Warn("STRIPE_SECRET_KEY not set, premium plan sign-up is disabled")
	}

	r := router.SetupRouter(router.Options{
		Config:     cfg,
		DB:         db,
		Tokens:     utils.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		TokenStore: tokenStore,
		Billing:    billing,
		Images:     services.NewLocalImageStorage(cfg.Storage.UploadDir, cfg.Storage.MaxImageKB),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: gzhttp.GzipHandler(r),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		utils.InfoLogger.Println("Shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		utils.ErrorLogger.Fatalf("Server error: %v", err)
	}
	utils.InfoLogger.Println("Server stopped")
}

func prepareDatabase(db *gorm.DB, cfg *config.Config) {
	if err := database.AutoMigrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	if !cfg.Seed.Enabled {
		return
	}
	err := database.Seed(db, database.SeedOptions{
		AdminEmail:    cfg.Seed.AdminEmail,
		AdminPassword: cfg.Seed.AdminPassword,
	})
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to seed database: %v", err)
	}
}

// newTokenStore returns the Redis revocation store when REDIS_ADDR is set,
// otherwise an in-process one.
func newTokenStore(cfg config.RedisConfig) (utils.TokenStore, func()) {
	if cfg.Addr == "" {
		return utils.NewMemoryTokenStore(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to redis at %s: %v", cfg.Addr, err)
	}
	utils.InfoLogger.Printf("Token revocation backed by redis at %s", cfg.Addr)
	return utils.NewRedisTokenStore(client), func() { client.Close() }
}
