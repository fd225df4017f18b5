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

// ChatPersistHandler 处理聊天消息落库与保留裁剪任务
type ChatPersistHandler struct {
	chatRepo repository.ChatRepository
}

// NewChatPersistHandler 创建 Handler 实例
func NewChatPersistHandler(chatRepo repository.ChatRepository) *ChatPersistHandler {
	return &ChatPersistHandler{chatRepo: chatRepo}
}

// ProcessTask 实现 asynq.Handler 接口。
// 每条消息落库后立即裁剪，数据库永远只保留上限内的消息。
func (h *ChatPersistHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.ChatPersistPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal chat persist payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	message := &domain.ChatMessage{
		PubID:      payload.PubID,
		UserID:     payload.UserID,
		AuthorName: payload.AuthorName,
		Content:    payload.Content,
		Timestamp:  payload.Timestamp,
	}
	if err := h.chatRepo.Save(ctx, message); err != nil {
		logrus.WithError(err).WithField("pub_id", payload.PubID).Error("Failed to save chat message")
		return fmt.Errorf("failed to save chat message: %w", err)
	}

	if err := h.chatRepo.TrimToLimit(ctx, payload.PubID, domain.ChatRetentionLimit); err != nil {
		// 裁剪失败不影响消息本身，下一条消息的裁剪会补上
		logrus.WithError(err).WithField("pub_id", payload.PubID).Warn("Failed to trim chat messages")
	}
	return nil
}
