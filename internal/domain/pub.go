package domain

import "time"

// Pub 表示一个可加入的协作房间（"酒馆"）。
// 每个 Pub 恰好拥有一块画布 (1:1)，在创建时一并建立。
type Pub struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:191;not null;index"` // 房间名称
	OwnerID   *uint     `gorm:"index"`                   // 所有者用户 ID；社区酒馆没有所有者 (NULL)
	IsPrivate bool      `gorm:"not null;default:false"`  // 私有房间仅成员可进入
	CanvasID  uint      `gorm:"uniqueIndex;not null"`    // 关联的画布 ID，唯一保证 1:1
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// IsCommunity 判断是否为系统引导时播种的社区酒馆。
func (p *Pub) IsCommunity() bool {
	return p.OwnerID == nil
}

// IsOwnedBy 判断给定用户是否为该酒馆的所有者。
func (p *Pub) IsOwnedBy(userID uint) bool {
	return p.OwnerID != nil && *p.OwnerID == userID
}

// Membership 表示一条 (酒馆, 用户) 成员关系。
// 活跃连接集合由 Hub 维护，这里的持久化记录用于私有酒馆的
// 授权判断在断线重连之后依然成立。加入操作是幂等的。
type Membership struct {
	ID        uint      `gorm:"primaryKey"`
	PubID     uint      `gorm:"uniqueIndex:idx_pub_user;not null"`
	UserID    uint      `gorm:"uniqueIndex:idx_pub_user;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
