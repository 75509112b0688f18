package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"imbridge/pkg/otel"
	"imbridge/pkg/rbac"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnChecker is satisfied by *mq.Publisher.
type ConnChecker interface {
	IsConnected() bool
}

type Deps struct {
	DB         Pinger // db.enabled 为 false 时为 nil
	Publishers []ConnChecker
	Events     http.Handler
	FailedItem *FailedItemHandler // db.enabled 为 false 时为 nil
	JWTSecret  string
	Logger     *zap.Logger
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(deps Deps) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware())

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if deps.DB != nil {
			if err := deps.DB.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
				return
			}
		}

		for _, p := range deps.Publishers {
			if p != nil && !p.IsConnected() {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_not_ready"})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// websocket 推送，鉴权在 handler 内完成
	if deps.Events != nil {
		r.GET("/events", gin.WrapH(deps.Events))
	}

	if deps.FailedItem != nil {
		admin := r.Group("/admin")
		admin.Use(AuthMiddleware(deps.JWTSecret, deps.Logger))
		admin.GET("/failed-items", RequirePermission(rbac.PermissionReadFailedItems), deps.FailedItem.List)
	}

	return &Router{Engine: r}
}
