package handlers

import (
	"net/http"

	"sonora/config"
	"sonora/services"
	"sonora/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AppHandler handles application info and update commands
type AppHandler struct {
	updater services.UpdateChecker
	logger  *zap.Logger
}

// NewAppHandler creates a new app handler
func NewAppHandler(updater services.UpdateChecker, logger *zap.Logger) *AppHandler {
	return &AppHandler{
		updater: updater,
		logger:  logger,
	}
}

// GetAppInfo returns the application name and version
func (h *AppHandler) GetAppInfo(c *gin.Context) {
	c.JSON(http.StatusOK, types.AppInfo{
		Name:    config.AppName,
		Version: config.Version,
	})
}

// CheckForUpdates asks the release manifest whether a newer version exists
func (h *AppHandler) CheckForUpdates(c *gin.Context) {
	info, err := h.updater.Check(c.Request.Context())
	if err != nil {
		h.logger.Warn("update check failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, info)
}
