package repository

import (
	"context"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
)

// CanvasRepository 定义了画布持久化记录的存储操作。
// 画布网格以 JSON 文本形式整体落盘，最后写入完整覆盖之前的版本。
type CanvasRepository interface {
	// FindByID 根据画布 ID 查找画布。不存在时返回 ErrNotFound。
	FindByID(ctx context.Context, id uint) (*domain.Canvas, error)

	// FindAll 返回全部画布，用于启动时恢复内存状态。
	FindAll(ctx context.Context) ([]domain.Canvas, error)

	// Save 保存画布信息。已存在则更新，否则创建。
	Save(ctx context.Context, canvas *domain.Canvas) error

	// SaveGrid 仅覆盖写画布的像素数据列，供周期落盘任务使用。
	SaveGrid(ctx context.Context, canvasID uint, grid domain.Grid) error

	// Delete 删除指定画布。
	Delete(ctx context.Context, id uint) error
}

// HistoryRepository 定义了像素修改历史的存储和查询操作。
type HistoryRepository interface {
	// Save 追加一条像素历史记录。
	Save(ctx context.Context, record *domain.PixelHistory) error

	// LatestAt 查询指定单元格最近一次的修改记录。
	// 该单元格从未被修改过时返回 ErrNotFound。
	LatestAt(ctx context.Context, canvasID uint, x, y int) (*domain.PixelHistory, error)

	// DeleteByCanvas 删除画布下的全部历史记录，用于酒馆级联删除。
	DeleteByCanvas(ctx context.Context, canvasID uint) error
}
