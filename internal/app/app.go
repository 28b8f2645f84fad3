package app

import (
	"net/http"

	"go-hris-ledger/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BuildApp connects Postgres and Redis and mounts every route on router.
func BuildApp(router *gin.Engine, cfg Config) error {
	logger := zap.L().Named("app.api")

	if err := cfg.RequireJWT(); err != nil {
		return err
	}

	gormDB, err := connection.ConnectGORMWithRetry(cfg.Postgres, 5)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	logger.Info("database connection established")

	redisClient, err := connection.ConnectRedisWithRetry(cfg.RedisAddr, 5)
	if err != nil {
		return err
	}
	logger.Info("redis connection established")

	router.GET("/healthz", func(c *gin.Context) {
		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	registerModules(router, cfg, sqlDB, gormDB, redisClient, zap.L())
	return nil
}
