package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
)

// MigrateDB 自动迁移全部表结构。
// 所有模型上的字符串索引列都已通过 size 标签限制长度，
// 避免 MySQL 对 TEXT/BLOB 列建索引时需要显式前缀长度的问题。
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	err := db.AutoMigrate(
		&domain.User{},
		&domain.Canvas{},
		&domain.Pub{},
		&domain.Membership{},
		&domain.PixelHistory{},
		&domain.ChatMessage{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}

	logrus.Info("Database migration completed successfully")
	return nil
}
