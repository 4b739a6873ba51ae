package app

import (
	"database/sql"
	"time"

	"hris-timekeeper/internal/attendance"
	"hris-timekeeper/internal/leave"
	"hris-timekeeper/internal/leaveledger"
	"hris-timekeeper/internal/messaging/kafka"
	"hris-timekeeper/internal/shared/config"
	"hris-timekeeper/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const connectRetries = 5

// App owns the API process' connections and router.
type App struct {
	Router *gin.Engine

	gormDB *gorm.DB
	sqlDB  *sql.DB
	rdb    *redis.Client
}

// BuildApp connects to the stores, migrates the schema and mounts every
// module. Redis is optional: without REDIS_ADDR the ledger cache and
// idempotency middleware are off.
func BuildApp(cfg config.Config, logger *zap.Logger) (*App, error) {
	log := logger.Named("app")

	gormDB, sqlDB, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("database connection established")

	if err := Migrate(gormDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = connection.ConnectRedisWithRetry(cfg.RedisAddr, connectRetries)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		log.Info("redis connection established")
	} else {
		log.Warn("REDIS_ADDR not set, ledger cache and idempotency disabled")
	}

	router := gin.New()
	if err := registerModules(router, cfg, sqlDB, gormDB, rdb, logger); err != nil {
		_ = sqlDB.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}

	return &App{Router: router, gormDB: gormDB, sqlDB: sqlDB, rdb: rdb}, nil
}

func (a *App) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
	}
}

// Migrate creates the attendance, ledger, leave request and outbox tables.
func Migrate(gormDB *gorm.DB) error {
	if err := gormDB.AutoMigrate(
		&attendance.AttendanceRecord{},
		&leaveledger.LeaveLedger{},
		&leave.LeaveRequest{},
	); err != nil {
		return err
	}
	return kafka.MigrateOutbox(gormDB)
}

func openDatabase(cfg config.Config) (*gorm.DB, *sql.DB, error) {
	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database, connectRetries)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return gormDB, sqlDB, nil
}

// openOptionalRedis returns nil when Redis is not configured or not
// reachable. Stale ledger cache entries then expire on their own TTL.
func openOptionalRedis(cfg config.Config, retries int, logger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb, err := connection.ConnectRedisWithRetry(cfg.RedisAddr, retries)
	if err != nil {
		logger.Warn("redis unavailable, ledger cache will not be invalidated", zap.Error(err))
		return nil
	}
	return rdb
}
