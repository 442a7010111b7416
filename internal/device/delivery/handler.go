package delivery

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fibrodiario-backend/internal/auth"
	devicedomain "fibrodiario-backend/internal/device/domain"
	"fibrodiario-backend/internal/device/usecase"
)

// DeviceHandler exposes the client-facing device registration flow.
type DeviceHandler struct {
	lifecycle *usecase.LifecycleManager
	log       *zap.Logger
}

func NewDeviceHandler(lifecycle *usecase.LifecycleManager, log *zap.Logger) *DeviceHandler {
	return &DeviceHandler{lifecycle: lifecycle, log: log}
}

type registerRequest struct {
	Token       string                   `json:"token" binding:"required"`
	Platform    string                   `json:"platform"`
	Fingerprint devicedomain.Fingerprint `json:"fingerprint"`
}

// Register handles POST /api/devices. Idempotent: repeating the same token
// acknowledges without creating a duplicate.
func (h *DeviceHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	platform, err := devicedomain.ParsePlatform(req.Platform)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accountID := c.GetString(auth.ContextAccountID)
	if err := h.lifecycle.Register(c.Request.Context(), accountID, req.Token, platform, req.Fingerprint); err != nil {
		h.log.Error("device registration failed", zap.Error(err), zap.String("account_id", accountID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register device"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}

type refreshRequest struct {
	OldToken    string                   `json:"old_token"`
	NewToken    string                   `json:"new_token"`
	Platform    string                   `json:"platform"`
	Fingerprint devicedomain.Fingerprint `json:"fingerprint"`
}

// Refresh handles POST /api/devices/refresh. The replacement token is
// persisted before the old one is removed; a failed refresh never leaves the
// account without its previous token.
func (h *DeviceHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	platform, err := devicedomain.ParsePlatform(req.Platform)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accountID := c.GetString(auth.ContextAccountID)
	result, err := h.lifecycle.Refresh(c.Request.Context(), accountID, req.OldToken, req.NewToken, platform, req.Fingerprint)
	if err != nil {
		if errors.Is(err, usecase.ErrNoReplacementToken) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		h.log.Error("token refresh failed", zap.Error(err), zap.String("account_id", accountID))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to refresh token"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Unregister handles DELETE /api/devices/:token.
func (h *DeviceHandler) Unregister(c *gin.Context) {
	accountID := c.GetString(auth.ContextAccountID)
	if err := h.lifecycle.Unregister(c.Request.Context(), accountID, c.Param("token")); err != nil {
		h.log.Error("device unregister failed", zap.Error(err), zap.String("account_id", accountID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unregister device"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unregistered"})
}
