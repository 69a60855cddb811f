package router

import (
	"time"

	"medident/internal/cache"
	"medident/internal/config"
	"medident/internal/handler"
	"medident/internal/infra"
	"medident/internal/ledger"
	"medident/internal/middleware"
	"medident/internal/model"
	"medident/internal/repository"
	"medident/internal/service"
	"medident/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the process-wide resources built by the composition root.
type Deps struct {
	DB         *gorm.DB
	ReportDB   *sqlx.DB
	Redis      *redis.Client
	Ledger     *ledger.Ledger
	Dispatcher *worker.Dispatcher
	MailerCB   *infra.CircuitBreaker
	// Limiter defaults to a Redis-backed limiter when nil.
	Limiter middleware.Limiter
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	limiter := d.Limiter
	if limiter == nil {
		limiter = middleware.NewRedisLimiter(d.Redis)
	}

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimit(limiter, "api", cfg.RateLimitPerMinute, "Too many requests, slow down"))

	// ── Repositories ─────────────────────────────────────────────────────────
	itemRepo := repository.NewItemRepository(d.DB)
	lotRepo := repository.NewLotRepository(d.DB)
	categoryRepo := repository.NewCategoryRepository(d.DB)
	auditRepo := repository.NewAuditLogRepository(d.DB)
	userRepo := repository.NewUserRepository(d.DB)
	qrRepo := repository.NewQRCodeRepository(d.DB)
	reportRepo := repository.NewReportRepository(d.ReportDB)

	// ── Services ─────────────────────────────────────────────────────────────
	itemCache := cache.NewRedisItemCache(d.Redis, time.Duration(cfg.ItemCacheTTLSeconds)*time.Second)

	itemSvc := service.NewItemService(itemRepo, categoryRepo, d.Ledger, itemCache, d.Dispatcher, cfg.ExpiringDaysDefault)
	lotSvc := service.NewLotService(lotRepo, itemRepo, itemCache)
	categorySvc := service.NewCategoryService(categoryRepo)
	auditSvc := service.NewAuditService(auditRepo)
	alertSvc := service.NewAlertService(reportRepo, cfg.ExpiringDaysDefault)
	importSvc := service.NewImportService(itemSvc, itemRepo, categoryRepo, reportRepo)
	qrSvc := service.NewQRService(qrRepo, itemRepo, lotRepo, itemSvc)
	reportSvc := service.NewReportService(reportRepo, alertSvc, cfg.ReportTitle, cfg.ExpiringDaysDefault)
	authSvc := service.NewAuthService(userRepo, cfg, cache.NewRedisResetTokenStore(d.Redis), d.Dispatcher)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(authSvc)
	itemsH := handler.NewItemsHandler(itemSvc, auditSvc, alertSvc)
	lotsH := handler.NewLotsHandler(lotSvc)
	categoriesH := handler.NewCategoriesHandler(categorySvc)
	auditH := handler.NewAuditHandler(auditSvc)
	csvH := handler.NewCSVHandler(importSvc)
	qrH := handler.NewQRHandler(qrSvc)
	reportsH := handler.NewReportsHandler(reportSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	var mailerState handler.CircuitState
	if d.MailerCB != nil {
		mailerState = d.MailerCB
	}
	healthH := handler.NewHealthHandler(d.DB, d.Redis, mailerState, worker.NewDeadLetters(d.Redis))
	r.GET("/health", healthH.Check)

	loginLimit := middleware.RateLimit(limiter, "login", cfg.LoginRateLimitPerMinute, "Too many login attempts, try again later")
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", loginLimit, authH.Login)
		auth.POST("/register", loginLimit, authH.Register)
		auth.POST("/refresh-token", authH.Refresh)
		auth.POST("/forgot-password", loginLimit, authH.ForgotPassword)
		auth.POST("/reset-password", loginLimit, authH.ResetPassword)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleAssistant)
	managers := middleware.RequireRole(model.RoleAdmin, model.RoleManager)
	admins := middleware.RequireRole(model.RoleAdmin)

	v1 := r.Group("/v1", jwtMW)
	{
		v1.GET("/users/profile", anyRole, authH.Profile)
		v1.PUT("/users/profile", anyRole, authH.UpdateProfile)
		users := v1.Group("/users", admins)
		{
			users.POST("", usersH.Create)
			users.GET("", usersH.List)
			users.GET("/:id", usersH.Get)
			users.PUT("/:id", usersH.Update)
			users.DELETE("/:id", usersH.Delete)
		}

		// Static item paths are registered before /:id.
		items := v1.Group("/items")
		{
			items.GET("", anyRole, itemsH.List)
			items.GET("/alerts", anyRole, itemsH.Alerts)
			items.GET("/low-stock", anyRole, itemsH.LowStock)
			items.GET("/expiring", anyRole, itemsH.Expiring)
			items.POST("/import", managers, csvH.Import)
			items.GET("/export", managers, csvH.Export)

			items.POST("", managers, itemsH.Create)
			items.GET("/:id", anyRole, itemsH.Get)
			items.PUT("/:id", managers, itemsH.Update)
			items.DELETE("/:id", admins, itemsH.Delete)
			items.PUT("/:id/quantity", anyRole, itemsH.UpdateQuantity)
			items.GET("/:id/audit-logs", anyRole, itemsH.AuditLogs)

			items.GET("/:id/lots", anyRole, lotsH.List)
			items.POST("/:id/lots", managers, lotsH.Create)
			items.PUT("/:id/lots/:lotId", managers, lotsH.Update)
			items.DELETE("/:id/lots/:lotId", admins, lotsH.Delete)

			items.GET("/:id/qr-codes", anyRole, qrH.ListByItem)
			items.POST("/:id/qr-codes", managers, qrH.Create)
			items.DELETE("/:id/qr-codes/:qrId", managers, qrH.Deactivate)
		}

		v1.GET("/qr/:code", anyRole, qrH.Resolve)
		v1.POST("/qr/:code/scan", anyRole, qrH.Scan)

		v1.GET("/audit-logs", anyRole, auditH.List)

		v1.GET("/categories", anyRole, categoriesH.List)
		v1.POST("/categories", managers, categoriesH.Create)
		v1.PUT("/categories/:id", managers, categoriesH.Update)
		v1.DELETE("/categories/:id", admins, categoriesH.Delete)

		v1.GET("/reports/stock.pdf", managers, reportsH.StockPDF)
	}

	// Swagger UI outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
