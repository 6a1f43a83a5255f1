package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"sonora/config"
	"sonora/services"
	"sonora/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SettingsHandler handles settings-related endpoints
type SettingsHandler struct {
	path   string
	scope  *services.Scope
	logger *zap.Logger
}

// NewSettingsHandler creates a new settings handler persisting to path
func NewSettingsHandler(path string, scope *services.Scope, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		path:   path,
		scope:  scope,
		logger: logger,
	}
}

// validateLibraryDirs resolves each directory and checks that it exists
func validateLibraryDirs(dirs []string) ([]string, error) {
	resolved := make([]string, 0, len(dirs))
	seen := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s: %w", abs, services.ErrNotDirectory)
		}
		if !seen[abs] {
			seen[abs] = true
			resolved = append(resolved, abs)
		}
	}
	return resolved, nil
}

// GetSettings returns the current settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := config.LoadSettings(h.path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load settings",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettings updates the user settings and the library roots in scope
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var newSettings types.Settings
	if err := c.ShouldBindJSON(&newSettings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid settings format",
			"details": err.Error(),
		})
		return
	}

	dirs, err := validateLibraryDirs(newSettings.LibraryDirs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid library directory",
			"details": err.Error(),
		})
		return
	}
	newSettings.LibraryDirs = dirs

	if err := config.SaveSettings(h.path, &newSettings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save settings",
			"details": err.Error(),
		})
		return
	}

	h.scope.SetRoots(dirs)
	h.logger.Info("settings updated", zap.Strings("libraryDirs", dirs))

	c.JSON(http.StatusOK, gin.H{
		"message":  "Settings updated successfully",
		"settings": newSettings,
	})
}
