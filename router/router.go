package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yeremiapane/nagoyameshi/config"
	"github.com/yeremiapane/nagoyameshi/controllers"
	"github.com/yeremiapane/nagoyameshi/middlewares"
	"github.com/yeremiapane/nagoyameshi/services"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

// Options are the collaborators main wires into the router.
type Options struct {
	Config     *config.Config
	DB         *gorm.DB
	Tokens     *utils.TokenManager
	TokenStore utils.TokenStore
	Billing    services.BillingProvider
	Images     services.ImageStorage
}

func SetupRouter(opts Options) *gin.Engine {
	cfg := opts.Config
	db := opts.DB
	utils.RegisterValidators()

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		utils.ErrorLogger.Printf("Invalid trusted proxies %v: %v", cfg.Server.TrustedProxies, err)
	}

	search := services.NewRestaurantSearchService(db)
	subscriptions := services.NewSubscriptionService(db, opts.Billing, services.Plan{
		Name:    cfg.Billing.PlanName,
		PriceID: cfg.Billing.PriceID,
	})
	dashboard := services.NewDashboardService(db, subscriptions, cfg.Billing.MonthlyFee)
	session := &controllers.Session{
		Tokens:     opts.Tokens,
		Store:      opts.TokenStore,
		CookieName: cfg.Auth.CookieName,
		Secure:     cfg.Auth.CookieSecure,
	}

	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.Metrics())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(cfg.Server.CORSOrigins))
	r.Use(middlewares.Flash())
	r.Use(middlewares.ResolvePrincipal(middlewares.AuthOptions{
		DB:            db,
		Tokens:        opts.Tokens,
		Store:         opts.TokenStore,
		Subscriptions: subscriptions,
		CookieName:    cfg.Auth.CookieName,
	}))

	r.NoRoute(func(c *gin.Context) {
		utils.RespondError(c, http.StatusNotFound, controllers.ErrNotFound)
	})

	// Inisialisasi controller
	homeCtrl := controllers.NewHomeController(db, search)
	restaurantCtrl := controllers.NewRestaurantController(db, search)
	companyCtrl := controllers.NewCompanyController(db)
	termCtrl := controllers.NewTermController(db)
	userCtrl := controllers.NewUserController(db, session)
	reviewCtrl := controllers.NewReviewController(db)
	reservationCtrl := controllers.NewReservationController(db)
	favoriteCtrl := controllers.NewFavoriteController(db)
	subscriptionCtrl := controllers.NewSubscriptionController(subscriptions, cfg.Billing.StripePublishableKey, cfg.Billing.StripeWebhookSecret)
	adminCtrl := controllers.NewAdminController(db, session, dashboard)
	adminRestaurantCtrl := controllers.NewAdminRestaurantController(db, opts.Images)
	categoryCtrl := controllers.NewCategoryController(db)

	authLimiter := middlewares.NewRateLimiter(cfg.Server.AuthRateLimit, cfg.Server.AuthRateBurst)

	// ----------------------------------------------------------------
	//                      INFRASTRUCTURE
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static(cfg.Storage.PublicPath, cfg.Storage.UploadDir)
	r.POST("/stripe/webhook", middlewares.BillingSecurityHeaders(), subscriptionCtrl.Webhook)

	// ----------------------------------------------------------------
	//                      GUEST ONLY
	// ----------------------------------------------------------------
	guest := r.Group("/", middlewares.RedirectIfAuthenticated())
	{
		guest.GET("/login", userCtrl.LoginForm)
		guest.POST("/login", authLimiter.RateLimit(), userCtrl.Login)
		guest.GET("/register", userCtrl.RegisterForm)
		guest.POST("/register", authLimiter.RateLimit(), userCtrl.Register)
	}

	// ----------------------------------------------------------------
	//                      PUBLIC (not for admins)
	// ----------------------------------------------------------------
	public := r.Group("/", middlewares.RedirectIfAdmin())
	{
		public.GET("/", homeCtrl.Index)
		public.GET("/restaurants", restaurantCtrl.Index)
		public.GET("/restaurants/:id", restaurantCtrl.Show)
		public.GET("/company", companyCtrl.Show)
		public.GET("/terms", termCtrl.Show)
	}

	// ----------------------------------------------------------------
	//                      MEMBERS
	// ----------------------------------------------------------------
	member := r.Group("/", middlewares.RequireUser())
	{
		member.POST("/logout", userCtrl.Logout)

		member.GET("/user", userCtrl.Index)
		member.GET("/user/:id/edit", userCtrl.Edit)
		member.PUT("/user/:id", userCtrl.Update)
		member.PATCH("/user/:id", userCtrl.Update)

		member.GET("/restaurants/:id/reviews", reviewCtrl.Index)
	}

	// ----------------------------------------------------------------
	//                      PREMIUM MEMBERS
	// ----------------------------------------------------------------
	premium := r.Group("/", middlewares.RequireSubscribed())
	{
		premium.GET("/restaurants/:id/reviews/create", reviewCtrl.Create)
		premium.POST("/restaurants/:id/reviews", reviewCtrl.Store)
		premium.GET("/restaurants/:id/reviews/:review/edit", reviewCtrl.Edit)
		premium.PUT("/restaurants/:id/reviews/:review", reviewCtrl.Update)
		premium.PATCH("/restaurants/:id/reviews/:review", reviewCtrl.Update)
		premium.DELETE("/restaurants/:id/reviews/:review", reviewCtrl.Destroy)

		premium.GET("/reservations", reservationCtrl.Index)
		premium.GET("/restaurants/:id/reservations/create", reservationCtrl.Create)
		premium.POST("/restaurants/:id/reservations", reservationCtrl.Store)
		premium.DELETE("/reservations/:id", reservationCtrl.Destroy)

		premium.GET("/favorites", favoriteCtrl.Index)
		premium.POST("/favorites/:restaurant_id", favoriteCtrl.Store)
		premium.DELETE("/favorites/:restaurant_id", favoriteCtrl.Destroy)
	}

	// ----------------------------------------------------------------
	//                      SUBSCRIPTION
	// ----------------------------------------------------------------
	signup := r.Group("/subscription", middlewares.RequireNotSubscribed(),
		middlewares.BillingSecurityHeaders(), middlewares.LogBillingRequest())
	{
		signup.GET("/create", subscriptionCtrl.Create)
		signup.POST("", subscriptionCtrl.Store)
	}

	billing := r.Group("/subscription", middlewares.RequireSubscribed(),
		middlewares.BillingSecurityHeaders(), middlewares.LogBillingRequest())
	{
		billing.GET("/edit", subscriptionCtrl.Edit)
		billing.PATCH("", subscriptionCtrl.Update)
		billing.GET("/cancel", subscriptionCtrl.Cancel)
		billing.DELETE("", subscriptionCtrl.Destroy)
	}

	// ----------------------------------------------------------------
	//                      ADMIN
	// ----------------------------------------------------------------
	r.GET("/admin/login", middlewares.RedirectIfAdmin(), adminCtrl.LoginForm)
	r.POST("/admin/login", middlewares.RedirectIfAdmin(), authLimiter.RateLimit(), adminCtrl.Login)

	admin := r.Group("/admin", middlewares.RequireAdmin())
	{
		admin.POST("/logout", adminCtrl.Logout)
		admin.GET("/home", adminCtrl.Home)

		admin.GET("/users", adminCtrl.Users)
		admin.GET("/users/:id", adminCtrl.ShowUser)

		admin.GET("/restaurants", adminRestaurantCtrl.Index)
		admin.GET("/restaurants/create", adminRestaurantCtrl.Create)
		admin.POST("/restaurants", adminRestaurantCtrl.Store)
		admin.GET("/restaurants/:id", adminRestaurantCtrl.Show)
		admin.GET("/restaurants/:id/edit", adminRestaurantCtrl.Edit)
		admin.PUT("/restaurants/:id", adminRestaurantCtrl.Update)
		admin.PATCH("/restaurants/:id", adminRestaurantCtrl.Update)
		admin.DELETE("/restaurants/:id", adminRestaurantCtrl.Destroy)

		admin.GET("/categories", categoryCtrl.Index)
		admin.POST("/categories", categoryCtrl.Store)
		admin.PUT("/categories/:id", categoryCtrl.Update)
		admin.PATCH("/categories/:id", categoryCtrl.Update)
		admin.DELETE("/categories/:id", categoryCtrl.Destroy)

		admin.GET("/company", companyCtrl.Show)
		admin.GET("/company/:id/edit", companyCtrl.Edit)
		admin.PUT("/company/:id", companyCtrl.Update)
		admin.PATCH("/company/:id", companyCtrl.Update)

		admin.GET("/terms", termCtrl.Show)
		admin.GET("/terms/:id/edit", termCtrl.Edit)
		admin.PUT("/terms/:id", termCtrl.Update)
		admin.PATCH("/terms/:id", termCtrl.Update)
	}

	return r
}
