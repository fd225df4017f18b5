package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/repository"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/tasks"
)

// HistoryRecordHandler 处理像素历史持久化任务
type HistoryRecordHandler struct {
	historyRepo repository.HistoryRepository
}

// NewHistoryRecordHandler 创建 Handler 实例
func NewHistoryRecordHandler(historyRepo repository.HistoryRepository) *HistoryRecordHandler {
	return &HistoryRecordHandler{historyRepo: historyRepo}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *HistoryRecordHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.HistoryRecordPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal history record payload")
		// 载荷损坏时重试没有意义
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	record := &domain.PixelHistory{
		CanvasID:     payload.CanvasID,
		X:            payload.X,
		Y:            payload.Y,
		UserID:       payload.UserID,
		ModifierName: payload.ModifierName,
		Color:        payload.Color,
		Timestamp:    payload.Timestamp,
	}
	if err := h.historyRepo.Save(ctx, record); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"canvas_id": payload.CanvasID, "x": payload.X, "y": payload.Y,
		}).Error("Failed to save pixel history record")
		return fmt.Errorf("failed to save history record: %w", err)
	}
	return nil
}
