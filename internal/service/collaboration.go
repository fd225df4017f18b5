package service

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/canvas"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/dto"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/repository"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/tasks"
)

// CollaborationService 处理实时画布协作：单像素编辑和全量保存。
// 编辑路径上只做内存写入、Redis 镜像同步和任务入队，
// 数据库持久化全部走后台队列，失败不会反馈给编辑端。
type CollaborationService struct {
	store       *canvas.Store
	stateRepo   repository.StateRepository
	asynqClient *asynq.Client
}

// NewCollaborationService 创建 CollaborationService 实例。
func NewCollaborationService(store *canvas.Store, stateRepo repository.StateRepository, asynqClient *asynq.Client) *CollaborationService {
	if store == nil || stateRepo == nil || asynqClient == nil {
		panic("all dependencies must be non-nil for CollaborationService")
	}
	return &CollaborationService{
		store:       store,
		stateRepo:   stateRepo,
		asynqClient: asynqClient,
	}
}

// PlacePixel 处理一次像素写入。
// 成功时返回要广播给同酒馆其他连接的事件；
// 校验失败返回业务错误，由调用方决定静默丢弃还是回错误帧。
func (s *CollaborationService) PlacePixel(ctx context.Context, identity domain.Identity, pubID, canvasID uint, x, y int, color string) (*dto.PixelPlaced, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"pub_id":    pubID,
		"canvas_id": canvasID,
		"user":      identity.Name,
	})

	if !validColor(color) {
		return nil, ErrInvalidEdit
	}

	// 画布必须已加载且归属于该酒馆，防止跨酒馆写入
	ownerPub, err := s.store.OwnerPub(canvasID)
	if err != nil {
		return nil, ErrInvalidEdit
	}
	if ownerPub != pubID {
		logCtx.Warn("Edit rejected: canvas does not belong to pub")
		return nil, ErrInvalidEdit
	}

	edit, err := s.store.ApplyEdit(canvasID, x, y, color)
	if err != nil {
		if errors.Is(err, canvas.ErrOutOfBounds) || errors.Is(err, canvas.ErrUnknownCanvas) {
			return nil, ErrInvalidEdit
		}
		logCtx.WithError(err).Error("Failed to apply edit")
		return nil, ErrInternalServer
	}
	now := time.Now()

	// Redis 镜像同步失败只记日志，内存编辑已经成功
	if err := s.stateRepo.ApplyEditToMirror(ctx, canvasID, x, y, color); err != nil {
		logCtx.WithError(err).Warn("Failed to sync edit to redis mirror")
	}

	// 历史入队是一次同步的 Redis 往返，放进独立 goroutine，
	// 广播交接不等待它；队列故障也不影响编辑路径
	go s.enqueueHistory(edit, identity, now, logCtx)

	return &dto.PixelPlaced{
		Type:     dto.EventPixelPlaced,
		PubID:    pubID,
		CanvasID: canvasID,
		X:        x,
		Y:        y,
		Color:    color,
		Author:   identity.Name,
	}, nil
}

// SaveCanvasState 用客户端提交的完整网格覆盖画布。
// 网格尺寸必须与画布声明的尺寸一致；成功后入队一次落盘并对齐镜像。
func (s *CollaborationService) SaveCanvasState(ctx context.Context, identity domain.Identity, pubID, canvasID uint, grid domain.Grid) (*dto.CanvasState, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"pub_id":    pubID,
		"canvas_id": canvasID,
		"user":      identity.Name,
	})

	ownerPub, err := s.store.OwnerPub(canvasID)
	if err != nil {
		return nil, ErrInvalidEdit
	}
	if ownerPub != pubID {
		logCtx.Warn("Save rejected: canvas does not belong to pub")
		return nil, ErrInvalidEdit
	}

	width, height, err := s.store.Dimensions(canvasID)
	if err != nil {
		return nil, ErrInvalidEdit
	}
	if !grid.Rectangular(width, height) {
		logCtx.Warn("Save rejected: grid does not match canvas dimensions")
		return nil, ErrInvalidCanvasSize
	}
	for y := range grid {
		for x := range grid[y] {
			if !validColor(grid[y][x]) {
				return nil, ErrInvalidEdit
			}
		}
	}

	if err := s.store.Load(canvasID, pubID, grid.Clone()); err != nil {
		logCtx.WithError(err).Error("Failed to replace canvas grid")
		return nil, ErrInternalServer
	}

	if err := s.stateRepo.ReplaceMirror(ctx, canvasID, grid); err != nil {
		logCtx.WithError(err).Warn("Failed to replace redis mirror")
	}

	payload, err := tasks.NewCanvasFlushTask(canvasID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to build canvas flush payload")
	} else {
		task := asynq.NewTask(tasks.TypeCanvasFlush, payload)
		if _, err := s.asynqClient.EnqueueContext(ctx, task, asynq.Queue("default")); err != nil {
			logCtx.WithError(err).Warn("Failed to enqueue canvas flush")
		}
	}

	logCtx.Info("Canvas state replaced")
	return &dto.CanvasState{
		Type:     dto.EventCanvasState,
		CanvasID: canvasID,
		Width:    width,
		Height:   height,
		Grid:     grid,
	}, nil
}

func (s *CollaborationService) enqueueHistory(edit canvas.AppliedEdit, identity domain.Identity, at time.Time, logCtx *logrus.Entry) {
	payload, err := tasks.NewHistoryRecordTask(tasks.HistoryRecordPayload{
		CanvasID:     edit.CanvasID,
		X:            edit.X,
		Y:            edit.Y,
		Color:        edit.Color,
		UserID:       identity.StorageUserID(),
		ModifierName: identity.Name,
		Timestamp:    at,
	})
	if err != nil {
		logCtx.WithError(err).Error("Failed to build history payload")
		return
	}
	task := asynq.NewTask(tasks.TypeHistoryRecord, payload)
	if _, err := s.asynqClient.Enqueue(task, asynq.Queue("low")); err != nil {
		logCtx.WithError(err).Warn("Failed to enqueue history record")
	}
}

// validColor 校验 "#RRGGBB" 形式的颜色值。
func validColor(color string) bool {
	if len(color) != 7 || color[0] != '#' {
		return false
	}
	for i := 1; i < 7; i++ {
		c := color[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
