package router

import (
	"time"

	"tillpoint/internal/config"
	"tillpoint/internal/handler"
	"tillpoint/internal/infra"
	"tillpoint/internal/middleware"
	"tillpoint/internal/repository"
	"tillpoint/internal/service"
	"tillpoint/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	interimRepo := repository.NewInterimRepository(db)
	dayRepo := repository.NewDayRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)

	// Reopen authorization is external policy; without a configured service
	// the default non-empty-token check applies.
	var authorizer service.ReopenAuthorizer
	if cfg.ApprovalServiceURL != "" {
		authorizer = infra.NewApprovalClient(cfg.ApprovalServiceURL)
	}
	sessionSvc := service.NewSessionService(sessionRepo, interimRepo, locationRepo, rdb, authorizer)
	settlementSvc := service.NewSettlementService(sessionRepo, locationRepo)

	// Worker dispatcher — injected into the day service for report jobs
	dispatcher := worker.NewDispatcher(rdb)
	daySvc := service.NewDayService(dayRepo, locationRepo, settlementSvc, dispatcher)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	sessionsH := handler.NewSessionsHandler(sessionSvc)
	settlementH := handler.NewSettlementHandler(settlementSvc)
	daysH := handler.NewDaysHandler(daySvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, smtpCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: cashier, supervisor, admin — declared per-endpoint
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", middleware.RequireRole("cashier", "supervisor", "admin"), sessionsH.Open)
			sessions.POST("/:id/close", middleware.RequireRole("cashier", "supervisor", "admin"), sessionsH.Close)
			sessions.POST("/:id/reopen", middleware.RequireRole("supervisor", "admin"), sessionsH.Reopen)
			sessions.POST("/:id/movements", middleware.RequireRole("cashier", "supervisor", "admin"), sessionsH.RecordMovement)
			sessions.POST("/:id/interim", middleware.RequireRole("cashier", "supervisor", "admin"), sessionsH.RecordInterim)
			sessions.GET("/:id", middleware.RequireRole("cashier", "supervisor", "admin"), sessionsH.Get)
		}

		v1.GET("/settlement-summary", middleware.RequireRole("supervisor", "admin"), settlementH.Summary)

		days := v1.Group("/days", middleware.RequireRole("supervisor", "admin"))
		{
			days.POST("", daysH.Open)
			days.POST("/:id/close", daysH.Close)
			days.GET("/:id", daysH.Get)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
