package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"crazypromo/internal/feeds"
	"crazypromo/internal/handlers"
	"crazypromo/internal/logger"
	"crazypromo/internal/metrics"
	"crazypromo/internal/middleware"
	"crazypromo/internal/models"
	"crazypromo/internal/services"
	"crazypromo/internal/testutil"
	"crazypromo/internal/validator"
)

const (
	adminEmail     = "admin@crazypromo.test"
	adminPassword  = "password123"
	editorEmail    = "editor@crazypromo.test"
	editorPassword = "password123"
	pipelineKey    = "test-pipeline-key"
	cronSecret     = "test-cron-secret"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Metrics  *metrics.Registry
	Products services.ProductServicer
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite, with one admin and one editor account.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	reg := metrics.NewRegistry()

	mappings, err := feeds.LoadMappings("")
	if err != nil {
		t.Fatalf("failed to load feed mappings: %v", err)
	}

	// Services
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	storeService := services.NewStoreService(db)
	categoryService := services.NewCategoryService(db)
	analysisService := services.NewPriceAnalysisService(db, reg, services.AnalysisOptions{})
	productService := services.NewProductService(db, analysisService, reg)
	promotionService := services.NewPromotionService(db, analysisService)
	fetcher := feeds.NewFetcher(nil, 5*time.Second, 0)
	feedService := services.NewFeedService(db, fetcher, mappings, reg)
	comparisonService := services.NewComparisonService(db, 0)
	clickService := services.NewClickService(db, reg)
	cronService := services.NewCronService(db, promotionService)

	ctx := context.Background()
	if _, _, err := userService.EnsureAdmin(ctx, adminEmail, adminPassword); err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}
	if _, err := userService.CreateUser(ctx, editorEmail, editorPassword, "Editor", models.RoleEditor); err != nil {
		t.Fatalf("failed to seed editor: %v", err)
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	storeHandler := handlers.NewStoreHandler(storeService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	productHandler := handlers.NewProductHandler(productService, auditService)
	analysisHandler := handlers.NewAnalysisHandler(analysisService, productService)
	promotionHandler := handlers.NewPromotionHandler(promotionService, analysisService, auditService)
	comparisonHandler := handlers.NewComparisonHandler(comparisonService)
	clickHandler := handlers.NewClickHandler(clickService)
	feedHandler := handlers.NewFeedHandler(feedService, storeService, auditService, 0)
	cronHandler := handlers.NewCronHandler(cronService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Metrics(reg))
	router.GET("/metrics", gin.WrapH(reg.Handler()))

	v1 := router.Group("/api/v1")

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

	auth := v1.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

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

	owner := admin.Group("/")
	owner.Use(middleware.RequireRole(models.RoleAdmin))
	owner.POST("/stores", storeHandler.CreateStore)
	owner.PUT("/stores/:id", storeHandler.UpdateStore)
	owner.DELETE("/stores/:id", storeHandler.DeleteStore)
	owner.POST("/feeds/import", feedHandler.ImportFeed)
	owner.GET("/clicks/stats", clickHandler.GetClickStats)

	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(pipelineKey))
	pipeline.GET("/feeds/stores", feedHandler.ListFeedStores)
	pipeline.POST("/feeds/:store_id/sync", feedHandler.SyncStore)

	cron := v1.Group("/cron")
	cron.Use(middleware.CronAuthMiddleware(cronSecret))
	cron.GET("/update-prices", cronHandler.UpdatePrices)

	return &testApp{DB: db, Router: router, Metrics: reg, Products: productService}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// requestWithHeaders makes a request with arbitrary headers.
func (app *testApp) requestWithHeaders(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// errorCode extracts error.code from an error response.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in body: %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

// adminToken logs in as the seeded admin.
func (app *testApp) adminToken(t *testing.T) string {
	t.Helper()
	token, _ := app.loginUser(t, adminEmail, adminPassword)
	return token
}

// createStore creates a store through the admin API and returns its JSON.
func (app *testApp) createStore(t *testing.T, token, body string) map[string]interface{} {
	t.Helper()
	rec := app.request("POST", "/api/v1/admin/stores", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create store failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["store"].(map[string]interface{})
}

// createProduct creates a product through the admin API and returns its JSON.
func (app *testApp) createProduct(t *testing.T, token, body string) map[string]interface{} {
	t.Helper()
	rec := app.request("POST", "/api/v1/admin/products", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["product"].(map[string]interface{})
}

// recordPrice records a historical price point directly through the service.
func (app *testApp) recordPrice(t *testing.T, productID string, price float64, daysAgo int) {
	t.Helper()
	observedAt := time.Now().UTC().Add(-time.Duration(daysAgo) * 24 * time.Hour)
	if _, err := app.Products.RecordPrice(context.Background(), productID, price, models.PriceSourceFeed, observedAt); err != nil {
		t.Fatalf("record price failed: %v", err)
	}
}
