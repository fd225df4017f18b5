package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/service"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/tasks"
)

// CanvasFlushHandler 处理画布快照落盘任务
type CanvasFlushHandler struct {
	snapshotService *service.SnapshotService
}

// NewCanvasFlushHandler 创建 Handler 实例
func NewCanvasFlushHandler(snapshotService *service.SnapshotService) *CanvasFlushHandler {
	return &CanvasFlushHandler{snapshotService: snapshotService}
}

// ProcessFlushTask 落盘单块画布
func (h *CanvasFlushHandler) ProcessFlushTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.CanvasFlushPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal canvas flush payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.snapshotService.FlushCanvas(ctx, payload.CanvasID); err != nil {
		return fmt.Errorf("failed to flush canvas %d: %w", payload.CanvasID, err)
	}
	return nil
}

// ProcessFlushAllTask 落盘所有脏画布，由周期调度驱动
func (h *CanvasFlushHandler) ProcessFlushAllTask(ctx context.Context, t *asynq.Task) error {
	if err := h.snapshotService.FlushDirty(ctx); err != nil {
		return fmt.Errorf("periodic flush failed: %w", err)
	}
	return nil
}
