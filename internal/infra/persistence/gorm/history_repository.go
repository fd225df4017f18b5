package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/repository"
)

// GormHistoryRepository 是 HistoryRepository 接口的 GORM 实现
type GormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository 创建 GormHistoryRepository 实例
func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	if db == nil {
		panic("database connection cannot be nil for GormHistoryRepository")
	}
	return &GormHistoryRepository{db: db}
}

// Save 实现追加一条像素历史记录
func (r *GormHistoryRepository) Save(ctx context.Context, record *domain.PixelHistory) error {
	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil {
		return fmt.Errorf("gorm: save pixel history (canvas %d, %d,%d): %w",
			record.CanvasID, record.X, record.Y, err)
	}
	return nil
}

// LatestAt 实现查询指定单元格最近一次的修改记录。
// 同一时间戳下以更大的自增 ID 为准，保证返回的是最后一条写入。
func (r *GormHistoryRepository) LatestAt(ctx context.Context, canvasID uint, x, y int) (*domain.PixelHistory, error) {
	var record domain.PixelHistory
	err := r.db.WithContext(ctx).
		Where("canvas_id = ? AND x = ? AND y = ?", canvasID, x, y).
		Order("timestamp DESC, id DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: latest history at (canvas %d, %d,%d): %w", canvasID, x, y, err)
	}
	return &record, nil
}

// DeleteByCanvas 实现按画布删除全部历史记录
func (r *GormHistoryRepository) DeleteByCanvas(ctx context.Context, canvasID uint) error {
	err := r.db.WithContext(ctx).Where("canvas_id = ?", canvasID).Delete(&domain.PixelHistory{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete history of canvas %d: %w", canvasID, err)
	}
	return nil
}
