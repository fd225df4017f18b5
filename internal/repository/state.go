package repository

import (
	"context"
	"time"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
)

// StateRepository 定义了与实时状态相关的操作，由 Redis 实现。
// 画布镜像记录内存网格之外的每一次单元格写入，用于崩溃恢复：
// 启动时把镜像叠加到数据库快照上，可以补回尚未落盘的编辑。
type StateRepository interface {
	// === Canvas Mirror ===

	// ApplyEditToMirror 把单个单元格写入同步到 Redis 镜像 (HSet "x:y" -> color)。
	ApplyEditToMirror(ctx context.Context, canvasID uint, x, y int, color string) error

	// CanvasMirror 返回画布镜像中的全部单元格，key 为 "x:y"。
	// 镜像为空时返回空 map 和 nil 错误。
	CanvasMirror(ctx context.Context, canvasID uint) (map[string]string, error)

	// ReplaceMirror 用完整网格原子地重建画布镜像，
	// 用于 save_canvas_state 整体覆盖之后对齐镜像。
	ReplaceMirror(ctx context.Context, canvasID uint, grid domain.Grid) error

	// CleanupCanvas 清理画布相关的 Redis key。
	CleanupCanvas(ctx context.Context, canvasID uint) error

	// === Chat Retention ===

	// PushRecentMessage 把一条消息追加到酒馆的近况队列并裁剪到保留上限。
	PushRecentMessage(ctx context.Context, pubID uint, payload []byte, limit int) error

	// RecentMessages 按时间升序返回酒馆近况队列中的消息。
	RecentMessages(ctx context.Context, pubID uint) ([]string, error)

	// CleanupPub 清理酒馆相关的 Redis key。
	CleanupPub(ctx context.Context, pubID uint) error

	// === Rate Limiting ===

	// CheckRateLimit 检查给定 key 的请求频率是否超限，并递增计数。
	// 返回 true 如果超限，false 如果未超限。
	CheckRateLimit(ctx context.Context, key string, limit int, duration time.Duration) (bool, error)
}
