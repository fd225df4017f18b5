package domain

import "time"

const (
	// ChatMaxContentLen 是单条聊天消息允许的最大字符数。
	ChatMaxContentLen = 250
	// ChatRetentionLimit 是每个酒馆保留的最近消息条数上限。
	// 超出上限时最旧的消息被淘汰。
	ChatRetentionLimit = 100
)

// ChatMessage 表示一条房间内的聊天消息，按时间戳在房间内全序排列。
type ChatMessage struct {
	ID         uint      `gorm:"primaryKey"`
	PubID      uint      `gorm:"index;not null"`
	UserID     uint      `gorm:"not null"`         // 作者用户 ID；访客为 GuestUserID
	AuthorName string    `gorm:"size:64;not null"` // 作者展示名
	Content    string    `gorm:"size:250;not null"`
	Timestamp  time.Time `gorm:"index;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}
