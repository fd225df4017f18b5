package gormpersistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/repository"
)

// GormCanvasRepository 是 CanvasRepository 接口的 GORM 实现
type GormCanvasRepository struct {
	db *gorm.DB
}

// NewGormCanvasRepository 创建 GormCanvasRepository 实例
func NewGormCanvasRepository(db *gorm.DB) *GormCanvasRepository {
	if db == nil {
		panic("database connection cannot be nil for GormCanvasRepository")
	}
	return &GormCanvasRepository{db: db}
}

// FindByID 实现根据画布 ID 查找画布
func (r *GormCanvasRepository) FindByID(ctx context.Context, id uint) (*domain.Canvas, error) {
	var canvas domain.Canvas
	err := r.db.WithContext(ctx).First(&canvas, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCanvasNotFound
		}
		return nil, fmt.Errorf("gorm: find canvas by id %d: %w", id, err)
	}
	return &canvas, nil
}

// FindAll 实现查询全部画布
func (r *GormCanvasRepository) FindAll(ctx context.Context) ([]domain.Canvas, error) {
	var canvases []domain.Canvas
	err := r.db.WithContext(ctx).Order("id asc").Find(&canvases).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find all canvases: %w", err)
	}
	return canvases, nil
}

// Save 实现保存画布信息（创建或更新）
func (r *GormCanvasRepository) Save(ctx context.Context, canvas *domain.Canvas) error {
	err := r.db.WithContext(ctx).Save(canvas).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save canvas (id: %d): %w", canvas.ID, err)
	}
	return nil
}

// SaveGrid 实现仅覆盖写画布的像素数据列。
// 最后一次落盘完整覆盖之前的版本，这正是画布快照需要的最后写入获胜语义。
func (r *GormCanvasRepository) SaveGrid(ctx context.Context, canvasID uint, grid domain.Grid) error {
	data, err := json.Marshal(grid)
	if err != nil {
		return fmt.Errorf("gorm: marshal grid for canvas %d: %w", canvasID, err)
	}
	// MySQL 在值未变化时报告零行受影响，因此不把 RowsAffected == 0 当作未找到
	err = r.db.WithContext(ctx).Model(&domain.Canvas{}).
		Where("id = ?", canvasID).
		Update("data", string(data)).Error
	if err != nil {
		return fmt.Errorf("gorm: save grid for canvas %d: %w", canvasID, err)
	}
	return nil
}

// Delete 实现删除指定画布
func (r *GormCanvasRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Delete(&domain.Canvas{}, id).Error
	if err != nil {
		return fmt.Errorf("gorm: delete canvas %d: %w", id, err)
	}
	return nil
}
