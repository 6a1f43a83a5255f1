package handlers

import (
	"net/http"
	"path/filepath"

	"sonora/services"
	"sonora/types"
	"sonora/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SingleInstanceEvent is emitted to the UI when a second launch is forwarded
const SingleInstanceEvent = "single-instance"

// InstanceHandler receives launches forwarded by a second process
type InstanceHandler struct {
	scope  *services.Scope
	hub    websocket.Hub
	logger *zap.Logger
}

// NewInstanceHandler creates a new instance handler
func NewInstanceHandler(scope *services.Scope, hub websocket.Hub, logger *zap.Logger) *InstanceHandler {
	return &InstanceHandler{
		scope:  scope,
		hub:    hub,
		logger: logger,
	}
}

// Activate allows the forwarded files and notifies the UI
func (h *InstanceHandler) Activate(c *gin.Context) {
	var payload types.InstancePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid activation payload",
			"details": err.Error(),
		})
		return
	}

	allowed := h.Open(payload)
	c.JSON(http.StatusOK, gin.H{
		"allowed": allowed,
	})
}

// Allow scopes the files named in payload.Args without notifying the UI.
// Relative paths resolve against payload.Cwd.
func (h *InstanceHandler) Allow(payload types.InstancePayload) []string {
	files := services.FilesFromArgs(payload.Args)
	for i, f := range files {
		if !filepath.IsAbs(f) && payload.Cwd != "" {
			files[i] = filepath.Join(payload.Cwd, f)
		}
	}
	return h.scope.Allow(files...)
}

// Open scopes the forwarded files and emits the single-instance event
func (h *InstanceHandler) Open(payload types.InstancePayload) []string {
	allowed := h.Allow(payload)
	h.logger.Info("instance activated", zap.Strings("files", allowed), zap.String("cwd", payload.Cwd))

	if h.hub != nil {
		h.hub.Emit(SingleInstanceEvent, payload)
	}
	return allowed
}
