package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
)

// GormChatRepository 是 ChatRepository 接口的 GORM 实现
type GormChatRepository struct {
	db *gorm.DB
}

// NewGormChatRepository 创建 GormChatRepository 实例
func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	if db == nil {
		panic("database connection cannot be nil for GormChatRepository")
	}
	return &GormChatRepository{db: db}
}

// Save 实现追加一条聊天消息
func (r *GormChatRepository) Save(ctx context.Context, message *domain.ChatMessage) error {
	err := r.db.WithContext(ctx).Create(message).Error
	if err != nil {
		return fmt.Errorf("gorm: save chat message (pub %d): %w", message.PubID, err)
	}
	return nil
}

// TrimToLimit 实现删除酒馆中超出保留上限的旧消息。
// 先定位第 limit 新的那条消息作为边界，再删除所有比它更旧的记录。
// MySQL 不允许 DELETE 子查询引用同一张表，因此分两步执行。
func (r *GormChatRepository) TrimToLimit(ctx context.Context, pubID uint, limit int) error {
	var boundary domain.ChatMessage
	err := r.db.WithContext(ctx).
		Where("pub_id = ?", pubID).
		Order("timestamp DESC, id DESC").
		Offset(limit - 1).
		First(&boundary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 消息数尚未超过上限，无需裁剪
			return nil
		}
		return fmt.Errorf("gorm: find trim boundary for pub %d: %w", pubID, err)
	}

	err = r.db.WithContext(ctx).
		Where("pub_id = ? AND id < ?", pubID, boundary.ID).
		Delete(&domain.ChatMessage{}).Error
	if err != nil {
		return fmt.Errorf("gorm: trim chat messages of pub %d: %w", pubID, err)
	}
	return nil
}

// Recent 实现按时间升序返回酒馆最近的 limit 条消息。
// 先按时间倒序取最新的 limit 条，再反转为升序返回。
func (r *GormChatRepository) Recent(ctx context.Context, pubID uint, limit int) ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	err := r.db.WithContext(ctx).
		Where("pub_id = ?", pubID).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: recent chat messages of pub %d: %w", pubID, err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// DeleteByPub 实现按酒馆删除全部消息
func (r *GormChatRepository) DeleteByPub(ctx context.Context, pubID uint) error {
	err := r.db.WithContext(ctx).Where("pub_id = ?", pubID).Delete(&domain.ChatMessage{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete chat messages of pub %d: %w", pubID, err)
	}
	return nil
}
