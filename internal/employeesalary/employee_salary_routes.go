package employeesalary

import (
	"go-hris-ledger/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RouteConfig struct {
	JWTSecret string
	Redis     *redis.Client
	Logger    *zap.Logger
}

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, cfg RouteConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}

	comp := r.Group("/employees/:employee_id/compensation")
	comp.Use(
		middleware.AuthMiddleware(cfg.JWTSecret),
		middleware.ContextLogger(logger),
	)
	{
		comp.GET("",
			middleware.RateLimitByUser(2, 5),
			handler.GetHistory,
		)
		comp.POST("",
			middleware.RateLimitByUser(0.5, 2),
			middleware.Idempotency(cfg.Redis, logger),
			handler.Replace,
		)
	}
}
