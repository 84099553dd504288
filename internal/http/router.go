package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-auth/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, userH *UserHandler, tokens *service.TokenService) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.POST("/users", userH.Register)

	auth := r.Group("/auth")
	auth.POST("/login", userH.Login)
	auth.POST("/recovery-code", userH.SendRecoveryCode)
	auth.POST("/recover-password", userH.RecoverPassword)

	me := r.Group("/users/me", JWTAuthMiddleware(tokens))
	me.GET("", userH.Me)
	me.PATCH("", userH.UpdateMe)
	me.DELETE("", userH.DeleteMe)
	me.PUT("/password", userH.UpdatePassword)
	me.POST("/activation-code", userH.SendActivationCode)
	me.POST("/activate", userH.Activate)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
