package delivery

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fibrodiario-backend/internal/dispatch"
)

// TriggerHandler exposes the manual dispatch trigger for operators and for
// the report pipeline (health-insight runs) behind the internal key.
type TriggerHandler struct {
	service *dispatch.Service
	log     *zap.Logger
}

func NewTriggerHandler(service *dispatch.Service, log *zap.Logger) *TriggerHandler {
	return &TriggerHandler{service: service, log: log}
}

type triggerRequest struct {
	Category   string `json:"category" binding:"required"`
	TargetHour *int   `json:"target_hour" binding:"required"`
}

// Trigger handles POST /api/dispatch/trigger.
func (h *TriggerHandler) Trigger(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := dispatch.ParseCategory(req.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.service.Run(c.Request.Context(), category, *req.TargetHour, time.Now())
	if err != nil {
		h.log.Error("manual dispatch failed", zap.Error(err), zap.String("category", req.Category))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dispatch run failed"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
