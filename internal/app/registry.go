package app

import (
	"database/sql"

	"go-hris-ledger/internal/employeesalary"
	"go-hris-ledger/internal/messaging/kafka"
	"go-hris-ledger/internal/shared/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newCompensationService(cfg Config, db *sql.DB, gormDB *gorm.DB, rdb *redis.Client, logger *zap.Logger) employeesalary.Service {
	repo := employeesalary.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	return employeesalary.NewServiceWithOutbox(db, repo, outboxRepo, rdb, employeesalary.Config{
		PageSize: cfg.SalaryHistoryPageSize,
		CacheTTL: cfg.SalaryHistoryCacheTTL,
	}, logger)
}

func registerModules(
	router *gin.Engine,
	cfg Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	logger *zap.Logger,
) {
	metrics.Init()
	router.Use(metrics.Instrument())
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	compensationService := newCompensationService(cfg, db, gormDB, rdb, logger)
	compensationHandler := employeesalary.NewHandler(compensationService, logger)

	api := router.Group("/api/v1")
	{
		employeesalary.RegisterRoutes(api, compensationHandler, employeesalary.RouteConfig{
			JWTSecret: cfg.JWTSecret,
			Redis:     rdb,
			Logger:    logger,
		})
	}
}
