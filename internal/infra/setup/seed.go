package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
)

// communityPub 描述一个内置社区酒馆及其画布尺寸。
type communityPub struct {
	name   string
	width  int
	height int
}

// 内置社区酒馆。无主、永远公开、服务启动时补齐。
var communityPubs = []communityPub{
	{"The Guest Pub", 128, 128},
	{"The 8-Bit Bar", 48, 48},
	{"The Doodle Den", 64, 32},
	{"The Canvas Corner", 128, 128},
}

// SeedCommunityPubs 确保所有内置社区酒馆存在。
// 按名称去重，重复启动是幂等的，不会覆盖已有画布内容。
func SeedCommunityPubs(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot seed community pubs with nil DB connection")
	}

	for _, cp := range communityPubs {
		var count int64
		err := db.Model(&domain.Pub{}).
			Where("name = ? AND owner_id IS NULL", cp.name).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check community pub '%s': %w", cp.name, err)
		}
		if count > 0 {
			continue
		}

		// 画布和酒馆在同一事务中创建，避免出现没有画布的酒馆
		err = db.Transaction(func(tx *gorm.DB) error {
			canvas := domain.Canvas{
				Name:   cp.name,
				Width:  cp.width,
				Height: cp.height,
			}
			if err := canvas.SetGrid(domain.NewBlankGrid(cp.width, cp.height)); err != nil {
				return err
			}
			if err := tx.Create(&canvas).Error; err != nil {
				return err
			}
			pub := domain.Pub{
				Name:      cp.name,
				OwnerID:   nil,
				IsPrivate: false,
				CanvasID:  canvas.ID,
			}
			return tx.Create(&pub).Error
		})
		if err != nil {
			return fmt.Errorf("failed to seed community pub '%s': %w", cp.name, err)
		}
		logrus.WithField("pub", cp.name).Info("Community pub created")
	}
	return nil
}
