package handlers

import (
	"errors"
	"net/http"

	"sonora/services"
	"sonora/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MetadataHandler handles the get_audio_metadata command
type MetadataHandler struct {
	extractor services.MetadataExtractor
	scope     *services.Scope
	logger    *zap.Logger
}

// NewMetadataHandler creates a new metadata handler
func NewMetadataHandler(extractor services.MetadataExtractor, scope *services.Scope, logger *zap.Logger) *MetadataHandler {
	return &MetadataHandler{
		extractor: extractor,
		scope:     scope,
		logger:    logger,
	}
}

// GetAudioMetadata extracts metadata for the file named in the request body
func (h *MetadataHandler) GetAudioMetadata(c *gin.Context) {
	var req types.MetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(services.KindInvalidInput),
			"details": err.Error(),
		})
		return
	}

	metadata, err := h.extractor.Extract(req.FullPath)
	if err != nil {
		status, kind := extractStatus(err)
		h.logger.Info("metadata extraction failed",
			zap.String("path", req.FullPath),
			zap.String("kind", kind),
			zap.Error(err))
		c.JSON(status, gin.H{
			"error":   kind,
			"details": err.Error(),
		})
		return
	}

	// a file the UI has read metadata for may be played
	if h.scope != nil {
		h.scope.Allow(req.FullPath)
	}

	c.JSON(http.StatusOK, metadata)
}

func extractStatus(err error) (int, string) {
	var extractErr *services.ExtractError
	if !errors.As(err, &extractErr) {
		return http.StatusInternalServerError, "internal"
	}

	switch extractErr.Kind {
	case services.KindInvalidInput:
		return http.StatusBadRequest, string(extractErr.Kind)
	case services.KindNotFound:
		return http.StatusNotFound, string(extractErr.Kind)
	default:
		return http.StatusUnprocessableEntity, string(extractErr.Kind)
	}
}
