package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"imbridge/internal/network"
	"imbridge/pkg/rbac"
	"imbridge/pkg/trace"
)

// TraceMiddleware 复用上游传入的 X-Trace-ID，没有则生成，并回写到响应头
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id := c.GetHeader(trace.HeaderName); id != "" {
			ctx = trace.WithContext(ctx, id)
		}
		ctx = trace.Ensure(ctx)

		c.Request = c.Request.WithContext(ctx)
		c.Header(trace.HeaderName, trace.FromContext(ctx))
		c.Next()
	}
}

// AuthMiddleware 校验 bearer JWT，并把 client_id / role 写入 gin context
func AuthMiddleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := network.ParseClientToken(network.ExtractToken(c.Request), secret)
		if err != nil {
			if logger != nil {
				logger.Debug("Rejected admin request", zap.Error(err))
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		c.Set("client_id", client.ID)
		c.Set("role", client.Role)
		c.Next()
	}
}

// RequirePermission 中间件：要求客户端角色具有指定权限
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetString("client_id")
		if clientID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "client not authenticated"})
			c.Abort()
			return
		}

		if err := rbac.CheckPermission(clientID, c.GetString("role"), permission); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Next()
	}
}
