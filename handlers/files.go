package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"sonora/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileHandler streams scoped audio files to the player
type FileHandler struct {
	scope   *services.Scope
	library *services.LibraryService
	logger  *zap.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(scope *services.Scope, library *services.LibraryService, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		scope:   scope,
		library: library,
		logger:  logger,
	}
}

// StreamFile streams an audio file with support for range requests
func (h *FileHandler) StreamFile(c *gin.Context) {
	requestedPath := c.Query("path")
	if strings.TrimSpace(requestedPath) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "query parameter 'path' is required",
		})
		return
	}

	// Only files the user opened or that lie in a library folder
	if !h.scope.Allows(requestedPath) {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "path not in scope",
			"path":  requestedPath,
		})
		return
	}

	if h.library != nil && !h.library.IsAudioFile(requestedPath) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "file extension not allowed",
			"details": "only library audio files can be streamed",
		})
		return
	}

	fileInfo, err := os.Stat(requestedPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "file not found",
				"path":  requestedPath,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "file access error",
			"details": err.Error(),
		})
		return
	}

	if fileInfo.IsDir() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "path is a directory, not a file",
		})
		return
	}

	file, err := os.Open(requestedPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to open file",
			"details": err.Error(),
		})
		return
	}
	defer file.Close()

	contentType := services.GetContentType(requestedPath)
	c.Header("Content-Type", contentType)
	c.Header("Accept-Ranges", "bytes")
	c.Header("Cache-Control", "private, max-age=3600")

	if rangeHeader := c.GetHeader("Range"); rangeHeader != "" {
		h.handleRangeRequest(c, file, fileInfo.Size(), rangeHeader)
		return
	}

	c.Header("Content-Length", strconv.FormatInt(fileInfo.Size(), 10))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		h.logger.Debug("stream interrupted", zap.String("path", requestedPath), zap.Error(err))
	}
}

// parseRange parses a single "bytes=start-end" range, including the suffix
// form "bytes=-N", against a file of size bytes.
func parseRange(rangeHeader string, size int64) (start, end int64, ok bool) {
	ranges, found := strings.CutPrefix(rangeHeader, "bytes=")
	if !found || strings.Contains(ranges, ",") {
		return 0, 0, false
	}
	first, last, found := strings.Cut(strings.TrimSpace(ranges), "-")
	if !found || size == 0 {
		return 0, 0, false
	}

	if first == "" {
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, false
	}

	end = size - 1
	if last != "" {
		end, err = strconv.ParseInt(last, 10, 64)
		if err != nil || end < start {
			return 0, 0, false
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end, true
}

// handleRangeRequest handles HTTP range requests for efficient seeking
func (h *FileHandler) handleRangeRequest(c *gin.Context, file *os.File, fileSize int64, rangeHeader string) {
	start, end, ok := parseRange(rangeHeader, fileSize)
	if !ok {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to seek file",
		})
		return
	}

	contentLength := end - start + 1
	c.Header("Content-Length", strconv.FormatInt(contentLength, 10))
	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))
	c.Status(http.StatusPartialContent)

	if _, err := io.CopyN(c.Writer, file, contentLength); err != nil {
		h.logger.Debug("range stream interrupted",
			zap.Int64("start", start),
			zap.Int64("end", end),
			zap.Error(err))
	}
}
