package handlers

import (
	"context"
	"net/http"

	"sonora/services"
	"sonora/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProxyHandler forwards text requests the webview cannot make itself
type ProxyHandler struct {
	fetcher services.TextFetcher
	logger  *zap.Logger
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(fetcher services.TextFetcher, logger *zap.Logger) *ProxyHandler {
	return &ProxyHandler{
		fetcher: fetcher,
		logger:  logger,
	}
}

type fetchFunc func(ctx context.Context, rawURL string, headers map[string]string, params map[string]any) (string, error)

// HTTPGetText handles the http_get_text command
func (h *ProxyHandler) HTTPGetText(c *gin.Context) {
	h.forward(c, h.fetcher.GetText)
}

// HTTPPostText handles the http_post_text command
func (h *ProxyHandler) HTTPPostText(c *gin.Context) {
	h.forward(c, h.fetcher.PostText)
}

func (h *ProxyHandler) forward(c *gin.Context, fetch fetchFunc) {
	var req types.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": err.Error(),
		})
		return
	}

	text, err := fetch(c.Request.Context(), req.URL, req.Header, req.ReqBody)
	if err != nil {
		h.logger.Info("pass-through request failed", zap.String("url", req.URL), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"text": text,
	})
}
