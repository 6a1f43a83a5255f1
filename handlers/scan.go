package handlers

import (
	"errors"
	"io/fs"
	"net/http"

	"sonora/services"
	"sonora/types"
	"sonora/websocket"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ScanHandler handles library scan jobs and the WebSocket channels
type ScanHandler struct {
	jobQueue services.JobQueue
	hub      websocket.Hub
	upgrader gorilla.Upgrader
	logger   *zap.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(jq services.JobQueue, hub websocket.Hub, allowedOrigins []string, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{
		jobQueue: jq,
		hub:      hub,
		upgrader: websocket.NewUpgrader(allowedOrigins),
		logger:   logger,
	}
}

// QueueScan queues a scan of a library directory
func (h *ScanHandler) QueueScan(c *gin.Context) {
	var req types.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "directory is required",
			"details": err.Error(),
		})
		return
	}

	job, err := h.jobQueue.AddJob(req.Directory)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, fs.ErrNotExist):
			status = http.StatusNotFound
		case errors.Is(err, services.ErrQueueFull):
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"error":   "failed to queue scan",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Library scan queued successfully",
		"job":     job,
	})
}

// GetAllJobs returns all scan jobs
func (h *ScanHandler) GetAllJobs(c *gin.Context) {
	jobs := h.jobQueue.GetAllJobs()
	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// GetJob returns a specific scan job by ID
func (h *ScanHandler) GetJob(c *gin.Context) {
	job, exists := h.jobQueue.GetJob(c.Param("jobId"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job": job,
	})
}

// CancelJob cancels a scan job
func (h *ScanHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("jobId")
	if _, exists := h.jobQueue.GetJob(jobID); !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return
	}

	if !h.jobQueue.CancelJob(jobID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job cannot be cancelled (already finished)",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "job cancelled successfully",
	})
}

// HandleJobSocket streams progress of one scan job
func (h *ScanHandler) HandleJobSocket(c *gin.Context) {
	jobID := c.Param("jobId")
	if _, exists := h.jobQueue.GetJob(jobID); !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	h.subscribe(c, jobID)
}

// HandleAllSocket streams progress of every job and all application events
func (h *ScanHandler) HandleAllSocket(c *gin.Context) {
	h.subscribe(c, types.TopicAll)
}

// HandleEventSocket streams application events such as single-instance
func (h *ScanHandler) HandleEventSocket(c *gin.Context) {
	h.subscribe(c, types.TopicEvents)
}

func (h *ScanHandler) subscribe(c *gin.Context, topic string) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(h.hub, conn, topic, h.logger)
	h.hub.RegisterClient(client)
	client.StartPumps()
}
