package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	accountdelivery "fibrodiario-backend/internal/account/delivery"
	"fibrodiario-backend/internal/auth"
	devicedelivery "fibrodiario-backend/internal/device/delivery"
	dispatchdelivery "fibrodiario-backend/internal/dispatch/delivery"
	"fibrodiario-backend/pkg/config"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config, deviceHandler *devicedelivery.DeviceHandler, accountHandler *accountdelivery.AccountHandler, triggerHandler *dispatchdelivery.TriggerHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Device registration flow (protected)
		devices := api.Group("/devices")
		devices.Use(auth.Middleware(cfg.JWTSecret))
		{
			devices.POST("", deviceHandler.Register)
			devices.POST("/refresh", deviceHandler.Refresh)
			devices.DELETE("/:token", deviceHandler.Unregister)
		}

		// Notification preferences and timezone detection (protected)
		account := api.Group("")
		account.Use(auth.Middleware(cfg.JWTSecret))
		{
			account.GET("/notifications/preferences", accountHandler.GetPreferences)
			account.PUT("/notifications/preferences", accountHandler.UpdatePreferences)
			account.PUT("/account/timezone", accountHandler.UpdateTimezone)
		}

		// Operational trigger (internal key)
		internal := api.Group("/dispatch")
		internal.Use(auth.InternalKeyMiddleware(cfg.InternalAPIKey))
		{
			internal.POST("/trigger", triggerHandler.Trigger)
		}
	}
}
