package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"crazypromo/internal/config"
	"crazypromo/internal/database"
	"crazypromo/internal/feeds"
	"crazypromo/internal/handlers"
	"crazypromo/internal/logger"
	"crazypromo/internal/metrics"
	"crazypromo/internal/middleware"
	"crazypromo/internal/models"
	"crazypromo/internal/services"
	"crazypromo/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "crazypromo/internal/docs" // Import swagger docs
)

// @title           CrazyPromo API
// @version         1.0
// @description     CrazyPromo aggregates partner store offers, keeps their price history and tells real deals from inflated discounts.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Pipeline API key.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("failed to close database: %v", err)
		}
	}()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	mappings, err := feeds.LoadMappings(appConfig.FeedMappingsFile)
	if err != nil {
		return fmt.Errorf("failed to load feed mappings: %w", err)
	}

	var reg *metrics.Registry
	if appConfig.MetricsEnabled {
		reg = metrics.NewRegistry()
	}

	validator.Register()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	storeService := services.NewStoreService(db)
	categoryService := services.NewCategoryService(db)
	analysisService := services.NewPriceAnalysisService(db, reg, services.AnalysisOptions{})
	productService := services.NewProductService(db, analysisService, reg)
	promotionService := services.NewPromotionService(db, analysisService)
	fetcher := feeds.NewFetcher(nil, appConfig.FeedFetchTimeout, appConfig.FeedMaxBytes)
	feedService := services.NewFeedService(db, fetcher, mappings, reg)
	comparisonService := services.NewComparisonService(db, appConfig.BestDealsScanLimit)
	clickService := services.NewClickService(db, reg)
	cronService := services.NewCronService(db, promotionService)

	if appConfig.AdminEmail != "" && appConfig.AdminPassword != "" {
		_, created, err := userService.EnsureAdmin(context.Background(), appConfig.AdminEmail, appConfig.AdminPassword)
		if err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
		if created {
			log.Infow("Seeded admin user", "email", appConfig.AdminEmail)
		}
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	storeHandler := handlers.NewStoreHandler(storeService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	productHandler := handlers.NewProductHandler(productService, auditService)
	analysisHandler := handlers.NewAnalysisHandler(analysisService, productService)
	promotionHandler := handlers.NewPromotionHandler(promotionService, analysisService, auditService)
	comparisonHandler := handlers.NewComparisonHandler(comparisonService)
	clickHandler := handlers.NewClickHandler(clickService)
	feedHandler := handlers.NewFeedHandler(feedService, storeService, auditService, appConfig.FeedMaxBytes)
	cronHandler := handlers.NewCronHandler(cronService)

	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	if reg != nil {
		router.Use(middleware.Metrics(reg))
		router.GET("/metrics", gin.WrapH(reg.Handler()))
	}

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Storefront
	v1.GET("/stores", storeHandler.ListStores)
	v1.GET("/stores/:id", storeHandler.GetStore)
	v1.GET("/categories", categoryHandler.ListCategories)
	v1.GET("/categories/:id", categoryHandler.GetCategory)
	v1.GET("/products", productHandler.ListProducts)
	v1.GET("/products/:id", productHandler.GetProduct)
	v1.GET("/products/:id/prices", productHandler.GetPriceHistory)
	v1.GET("/products/:id/stats", analysisHandler.GetPriceStats)
	v1.GET("/products/:id/similar", comparisonHandler.SimilarProducts)
	v1.GET("/promotions", promotionHandler.ListPromotions)
	v1.GET("/promotions/:id", promotionHandler.GetPromotion)
	v1.GET("/compare", comparisonHandler.Compare)
	v1.GET("/deals/best", comparisonHandler.BestDeals)
	v1.POST("/analysis", analysisHandler.AnalyzeDeal)
	v1.POST("/clicks", clickHandler.RecordClick)

	// Auth
	auth := v1.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())
	protected.GET("/profile", authHandler.GetProfile)

	admin := protected.Group("/admin")
	admin.GET("/promotions", promotionHandler.ListAllPromotions)
	admin.POST("/promotions", promotionHandler.CreatePromotion)
	admin.PUT("/promotions/:id", promotionHandler.UpdatePromotion)
	admin.POST("/promotions/:id/deactivate", promotionHandler.DeactivatePromotion)
	admin.POST("/promotions/:id/analyze", promotionHandler.AnalyzePromotion)
	admin.DELETE("/promotions/:id", promotionHandler.DeletePromotion)
	admin.POST("/products", productHandler.CreateProduct)
	admin.PUT("/products/:id", productHandler.UpdateProduct)
	admin.DELETE("/products/:id", productHandler.DeleteProduct)
	admin.POST("/products/:id/prices", productHandler.RecordPrice)
	admin.POST("/categories", categoryHandler.CreateCategory)
	admin.PUT("/categories/:id", categoryHandler.UpdateCategory)
	admin.DELETE("/categories/:id", categoryHandler.DeleteCategory)

	// Store, feed and traffic management is reserved for admins; editors
	// curate the catalogue above.
	owner := admin.Group("/")
	owner.Use(middleware.RequireRole(models.RoleAdmin))
	owner.POST("/stores", storeHandler.CreateStore)
	owner.PUT("/stores/:id", storeHandler.UpdateStore)
	owner.DELETE("/stores/:id", storeHandler.DeleteStore)
	owner.POST("/feeds/import", feedHandler.ImportFeed)
	owner.GET("/clicks/stats", clickHandler.GetClickStats)

	// Feed synchroniser
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(appConfig.PipelineAPIKey))
	pipeline.GET("/feeds/stores", feedHandler.ListFeedStores)
	pipeline.POST("/feeds/:store_id/sync", feedHandler.SyncStore)

	// Scheduler
	cron := v1.Group("/cron")
	cron.Use(middleware.CronAuthMiddleware(appConfig.CronSecret))
	cron.GET("/update-prices", cronHandler.UpdatePrices)

	log.Infof("Starting CrazyPromo backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
