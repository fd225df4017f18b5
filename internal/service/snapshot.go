package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/canvas"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/repository"
)

// SnapshotService 负责画布的落盘与启动恢复。
// 落盘是最后写入获胜的整体覆盖：取内存网格的当前快照写进数据库，
// 不做逐像素合并。恢复时把 Redis 镜像叠加到数据库快照上，
// 补回崩溃前尚未落盘的编辑。
type SnapshotService struct {
	store      *canvas.Store
	canvasRepo repository.CanvasRepository
	pubRepo    repository.PubRepository
	stateRepo  repository.StateRepository
}

// NewSnapshotService 创建 SnapshotService 实例。
func NewSnapshotService(
	store *canvas.Store,
	canvasRepo repository.CanvasRepository,
	pubRepo repository.PubRepository,
	stateRepo repository.StateRepository,
) *SnapshotService {
	if store == nil || canvasRepo == nil || pubRepo == nil || stateRepo == nil {
		panic("all dependencies must be non-nil for SnapshotService")
	}
	return &SnapshotService{
		store:      store,
		canvasRepo: canvasRepo,
		pubRepo:    pubRepo,
		stateRepo:  stateRepo,
	}
}

// FlushCanvas 把一块画布的当前内存状态写进数据库。
// 画布已被卸载（酒馆刚删除）时静默成功。
func (s *SnapshotService) FlushCanvas(ctx context.Context, canvasID uint) error {
	grid, err := s.store.SnapshotAndMarkClean(canvasID)
	if err != nil {
		logrus.WithField("canvas_id", canvasID).Debug("Skipping flush for unloaded canvas")
		return nil
	}
	if err := s.canvasRepo.SaveGrid(ctx, canvasID, grid); err != nil {
		// 返回错误让队列重试；脏标记已清除，但下一次编辑会重新置脏
		return fmt.Errorf("flush canvas %d: %w", canvasID, err)
	}
	logrus.WithField("canvas_id", canvasID).Debug("Canvas flushed to DB")
	return nil
}

// FlushDirty 落盘所有自上次以来被修改过的画布，由周期任务驱动。
// 单块画布的失败不阻止其余画布落盘。
func (s *SnapshotService) FlushDirty(ctx context.Context) error {
	ids := s.store.DirtyIDs()
	if len(ids) == 0 {
		return nil
	}
	var failed int
	for _, id := range ids {
		if err := s.FlushCanvas(ctx, id); err != nil {
			logrus.WithError(err).WithField("canvas_id", id).Error("Failed to flush dirty canvas")
			failed++
		}
	}
	logrus.WithFields(logrus.Fields{"flushed": len(ids) - failed, "failed": failed}).
		Info("Dirty canvas flush completed")
	if failed > 0 {
		return fmt.Errorf("failed to flush %d of %d canvases", failed, len(ids))
	}
	return nil
}

// RestoreAll 在启动时把所有画布装载进内存存储。
// 基础是数据库里的最后一次快照；Redis 镜像里比快照新的单元格
// 会覆盖进网格，这样崩溃丢失的只是 Redis 也没收到的编辑。
func (s *SnapshotService) RestoreAll(ctx context.Context) error {
	pubs, err := s.pubRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("restore: load pubs: %w", err)
	}
	canvasToPub := make(map[uint]uint, len(pubs))
	for _, p := range pubs {
		canvasToPub[p.CanvasID] = p.ID
	}

	canvases, err := s.canvasRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("restore: load canvases: %w", err)
	}

	restored := 0
	for _, cv := range canvases {
		pubID, ok := canvasToPub[cv.ID]
		if !ok {
			logrus.WithField("canvas_id", cv.ID).Warn("Skipping canvas without owning pub")
			continue
		}

		grid, err := cv.ParseGrid()
		if err != nil {
			logrus.WithError(err).WithField("canvas_id", cv.ID).
				Error("Stored grid is corrupt, restoring blank canvas")
			grid = domain.NewBlankGrid(cv.Width, cv.Height)
		}

		s.overlayMirror(ctx, cv.ID, cv.Width, cv.Height, grid)

		if err := s.store.Load(cv.ID, pubID, grid); err != nil {
			logrus.WithError(err).WithField("canvas_id", cv.ID).Error("Failed to load canvas into memory")
			continue
		}
		restored++
	}

	logrus.WithField("canvases", restored).Info("Canvas state restored")
	return nil
}

// overlayMirror 把 Redis 镜像中的单元格覆盖进网格。
func (s *SnapshotService) overlayMirror(ctx context.Context, canvasID uint, width, height int, grid domain.Grid) {
	cells, err := s.stateRepo.CanvasMirror(ctx, canvasID)
	if err != nil {
		logrus.WithError(err).WithField("canvas_id", canvasID).Warn("Failed to read canvas mirror, restoring from DB only")
		return
	}
	for field, color := range cells {
		x, y, ok := parseCellField(field)
		if !ok || x < 0 || y < 0 || x >= width || y >= height {
			continue
		}
		grid[y][x] = color
	}
}

// parseCellField 解析 "x:y" 形式的镜像字段名。
func parseCellField(field string) (x, y int, ok bool) {
	sep := strings.IndexByte(field, ':')
	if sep <= 0 || sep == len(field)-1 {
		return 0, 0, false
	}
	x, errX := strconv.Atoi(field[:sep])
	y, errY := strconv.Atoi(field[sep+1:])
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	return x, y, true
}
