package repository

import (
	"context"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
)

// ChatRepository 定义了聊天消息的持久化存储操作。
// 每个酒馆只保留最近 domain.ChatRetentionLimit 条消息。
type ChatRepository interface {
	// Save 追加一条聊天消息。
	Save(ctx context.Context, message *domain.ChatMessage) error

	// TrimToLimit 删除酒馆中超出保留上限的旧消息。
	TrimToLimit(ctx context.Context, pubID uint, limit int) error

	// Recent 按时间升序返回酒馆最近的 limit 条消息。
	Recent(ctx context.Context, pubID uint, limit int) ([]domain.ChatMessage, error)

	// DeleteByPub 删除酒馆下的全部消息，用于酒馆级联删除。
	DeleteByPub(ctx context.Context, pubID uint) error
}
