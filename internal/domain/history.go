package domain

import "time"

// PixelHistory 表示一条像素修改记录。
// 只追加，从不更新；同一坐标可以存在多条记录，时间戳最大的一条
// 回答"这个像素最后是谁画的"。
type PixelHistory struct {
	ID           uint      `gorm:"primaryKey"`
	CanvasID     uint      `gorm:"index:idx_canvas_cell;not null"` // 与 X/Y 组成联合索引，加速单点查询
	X            int       `gorm:"index:idx_canvas_cell;not null"`
	Y            int       `gorm:"index:idx_canvas_cell;not null"`
	UserID       uint      `gorm:"not null"`          // 修改者用户 ID；访客为 GuestUserID
	ModifierName string    `gorm:"size:64;not null"`  // 修改者展示名，直接冗余存储以便访客也能被记录
	Color        string    `gorm:"size:16;not null"`  // 写入的颜色 (例如 "#FF0000")
	Timestamp    time.Time `gorm:"index;not null"`    // 修改发生的时间
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}
