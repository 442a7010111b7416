package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	accountdelivery "fibrodiario-backend/internal/account/delivery"
	devicedelivery "fibrodiario-backend/internal/device/delivery"
	dispatchdelivery "fibrodiario-backend/internal/dispatch/delivery"
	"fibrodiario-backend/pkg/config"
)

// Handler wires the HTTP surface.
type Handler struct {
	engine *gin.Engine
}

func NewHandler(cfg *config.Config, deviceHandler *devicedelivery.DeviceHandler, accountHandler *accountdelivery.AccountHandler, triggerHandler *dispatchdelivery.TriggerHandler, log *zap.Logger) *Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))

	SetupRoutes(engine, cfg, deviceHandler, accountHandler, triggerHandler)
	return &Handler{engine: engine}
}

func (h *Handler) Start(addr string) error {
	return h.engine.Run(addr)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
