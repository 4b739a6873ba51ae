package app

import (
	"database/sql"
	"net/http"
	"time"

	"hris-timekeeper/internal/accounting"
	"hris-timekeeper/internal/attendance"
	"hris-timekeeper/internal/leave"
	"hris-timekeeper/internal/leaveledger"
	"hris-timekeeper/internal/messaging/kafka"
	"hris-timekeeper/internal/middleware"
	"hris-timekeeper/internal/rbac"
	"hris-timekeeper/internal/rbac/infra"
	"hris-timekeeper/internal/shared/config"
	"hris-timekeeper/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	idempotencyTTL = 24 * time.Hour
	// one address may front a whole office behind NAT
	ipLimitFactor = 4
)

func newRBACService(logger *zap.Logger) (rbac.Service, error) {
	enforcer, err := infra.NewEnforcer()
	if err != nil {
		return nil, err
	}
	policies, inherits := rbac.DefaultPolicies()
	return rbac.NewService(enforcer, policies, inherits, logger)
}

func newLedgerService(cfg config.Config, db *sql.DB, gormDB *gorm.DB, rdb *redis.Client, logger *zap.Logger) leaveledger.Service {
	return leaveledger.NewService(
		db,
		leaveledger.NewRepository(gormDB),
		kafka.NewOutboxRepository(db),
		rdb,
		cfg.LeaveDefaults,
		cfg.LedgerTTL,
		logger,
	)
}

func registerModules(
	router *gin.Engine,
	cfg config.Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	logger *zap.Logger,
) error {
	// --- Repositories ---
	attendanceRepo := attendance.NewRepository(gormDB)
	leaveRepo := leave.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	rbacService, err := newRBACService(logger)
	if err != nil {
		return err
	}

	// --- Services ---
	attendanceService := attendance.NewServiceWithOutbox(db, attendanceRepo, outboxRepo, logger)
	ledgerService := newLedgerService(cfg, db, gormDB, rdb, logger)
	leaveService := leave.NewService(db, leaveRepo, logger)
	accountingService := accounting.NewService(attendanceService, ledgerService, leaveService, logger)

	// --- Handlers ---
	attendanceHandler := attendance.NewHandler(attendanceService)
	ledgerHandler := leaveledger.NewHandler(ledgerService)
	leaveHandler := leave.NewHandler(leaveService, logger)
	accountingHandler := accounting.NewHandler(accountingService)
	rbacHandler := rbac.NewHandler(rbacService)

	// --- Middleware ---
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.ContextLogger(logger),
	)
	auth := []gin.HandlerFunc{
		middleware.AuthMiddleware(cfg.JWTSecret),
		middleware.RateLimitByUser(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst),
	}
	var idempotency gin.HandlerFunc
	if rdb != nil {
		idempotency = middleware.Idempotency(rdb, idempotencyTTL)
	}

	router.GET("/healthz", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"}, nil)
	})

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	api.Use(middleware.RateLimitByIP(rate.Limit(cfg.RateLimitPerSecond*ipLimitFactor), cfg.RateLimitBurst*ipLimitFactor))
	{
		attendance.RegisterRoutes(api, attendanceHandler, rbacService, auth...)
		leaveledger.RegisterRoutes(api, ledgerHandler, rbacService, idempotency, auth...)
		leave.RegisterRoutes(api, leaveHandler, rbacService, auth...)
		accounting.RegisterRoutes(api, accountingHandler, rbacService, idempotency, auth...)
		rbac.RegisterRoutes(api, rbacHandler, auth...)
	}

	return nil
}
