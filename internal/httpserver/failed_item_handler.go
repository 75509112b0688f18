package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"imbridge/internal/model"
	"imbridge/pkg/logger"
)

// FailedItemLister is satisfied by *repository.FailedItemRepository.
type FailedItemLister interface {
	ListRecent(ctx context.Context, batchKind string, limit int) ([]model.FailedItem, error)
}

type FailedItemHandler struct {
	repo   FailedItemLister
	logger *zap.Logger
}

func NewFailedItemHandler(repo FailedItemLister, logger *zap.Logger) *FailedItemHandler {
	return &FailedItemHandler{
		repo:   repo,
		logger: logger,
	}
}

// List 返回最近的失败条目
// GET /admin/failed-items?batch_kind=xxx&limit=100
func (h *FailedItemHandler) List(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "100")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 1000 {
		limit = 100
	}
	batchKind := c.Query("batch_kind")

	items, err := h.repo.ListRecent(c.Request.Context(), batchKind, limit)
	if err != nil {
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed to list failed items",
			zap.String("batch_kind", batchKind),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to list failed items",
			"details": err.Error(),
		})
		return
	}

	if items == nil {
		items = []model.FailedItem{}
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
		"limit": limit,
	})
}
