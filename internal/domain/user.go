// Package domain 定义了应用程序的核心数据结构（数据库模型和值类型）。
package domain

import "time"

// User 表示应用程序中的注册用户。
type User struct {
	ID        uint      `gorm:"primaryKey"`                                   // 用户唯一标识符 (主键)
	Username  string    `gorm:"uniqueIndex:idx_username,length:191;not null"` // 用户名，必须唯一且非空
	Password  string    `gorm:"not null"`                                     // 存储的是 bcrypt 哈希后的密码
	Email     string    `gorm:"uniqueIndex:idx_email,length:191"`             // 用户邮箱，唯一 (可选)
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
