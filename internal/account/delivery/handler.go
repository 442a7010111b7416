package delivery

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	accountdomain "fibrodiario-backend/internal/account/domain"
	"fibrodiario-backend/internal/account/repository"
	"fibrodiario-backend/internal/auth"
)

// AccountHandler exposes notification preferences and timezone detection.
type AccountHandler struct {
	accounts repository.AccountRepository
	log      *zap.Logger
}

func NewAccountHandler(accounts repository.AccountRepository, log *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, log: log}
}

// preferencesRequest uses pointers so an absent category defaults to enabled
// instead of silently flipping to false. The master switch is also optional:
// absent leaves the stored value unchanged.
type preferencesRequest struct {
	NotificationsEnabled *bool `json:"notifications_enabled"`

	MorningCheckIn     *bool `json:"morning_check_in"`
	EveningCheckIn     *bool `json:"evening_check_in"`
	MedicationReminder *bool `json:"medication_reminder"`
	HealthInsight      *bool `json:"health_insight"`
	EmergencyAlert     *bool `json:"emergency_alert"`
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

// GetPreferences handles GET /api/notifications/preferences.
func (h *AccountHandler) GetPreferences(c *gin.Context) {
	accountID := c.GetString(auth.ContextAccountID)
	account, err := h.accounts.EnsureAccount(c.Request.Context(), accountID)
	if err != nil {
		h.log.Error("load preferences failed", zap.Error(err), zap.String("account_id", accountID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications_enabled": account.NotificationsEnabled,
		"preferences":           account.Preferences,
	})
}

// UpdatePreferences handles PUT /api/notifications/preferences.
func (h *AccountHandler) UpdatePreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accountID := c.GetString(auth.ContextAccountID)
	account, err := h.accounts.EnsureAccount(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
		return
	}

	enabled := boolOr(req.NotificationsEnabled, account.NotificationsEnabled)
	if req.NotificationsEnabled != nil {
		if err := h.accounts.UpdateNotificationsEnabled(c.Request.Context(), accountID, enabled); err != nil {
			h.log.Error("update master switch failed", zap.Error(err), zap.String("account_id", accountID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update preferences"})
			return
		}
	}

	prefs := accountdomain.CategoryPreferences{
		MorningCheckIn:     boolOr(req.MorningCheckIn, true),
		EveningCheckIn:     boolOr(req.EveningCheckIn, true),
		MedicationReminder: boolOr(req.MedicationReminder, true),
		HealthInsight:      boolOr(req.HealthInsight, true),
		EmergencyAlert:     boolOr(req.EmergencyAlert, true),
	}
	if err := h.accounts.UpdatePreferences(c.Request.Context(), accountID, prefs); err != nil {
		h.log.Error("update preferences failed", zap.Error(err), zap.String("account_id", accountID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update preferences"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications_enabled": enabled,
		"preferences":           prefs,
	})
}

type timezoneRequest struct {
	Timezone string `json:"timezone" binding:"required"`
}

// UpdateTimezone handles PUT /api/account/timezone with the client-detected
// IANA zone.
func (h *AccountHandler) UpdateTimezone(c *gin.Context) {
	var req timezoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid IANA timezone"})
		return
	}

	accountID := c.GetString(auth.ContextAccountID)
	if _, err := h.accounts.EnsureAccount(c.Request.Context(), accountID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
		return
	}
	if err := h.accounts.UpdateTimezone(c.Request.Context(), accountID, req.Timezone); err != nil {
		h.log.Error("update timezone failed", zap.Error(err), zap.String("account_id", accountID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update timezone"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"timezone": req.Timezone})
}
