package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/dto"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/repository"
)

// HistoryService 回答 "这个像素是谁画的" 查询。
type HistoryService struct {
	historyRepo repository.HistoryRepository
}

// NewHistoryService 创建 HistoryService 实例。
func NewHistoryService(historyRepo repository.HistoryRepository) *HistoryService {
	if historyRepo == nil {
		panic("HistoryRepository cannot be nil for HistoryService")
	}
	return &HistoryService{historyRepo: historyRepo}
}

// Latest 查询指定单元格最近一次的修改记录。
// 从未被修改过的单元格返回哨兵值，而不是错误：
// 查询一个干净的像素是完全正常的交互。
func (s *HistoryService) Latest(ctx context.Context, canvasID uint, x, y int) (*dto.HistoryResponse, error) {
	record, err := s.historyRepo.LatestAt(ctx, canvasID, x, y)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &dto.HistoryResponse{
				Type:         dto.EventHistoryResponse,
				CanvasID:     canvasID,
				X:            x,
				Y:            y,
				ModifierName: dto.HistoryNoModifier,
				Timestamp:    dto.HistoryNeverTime,
			}, nil
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"canvas_id": canvasID, "x": x, "y": y,
		}).Error("Failed to query pixel history")
		return nil, ErrInternalServer
	}

	return &dto.HistoryResponse{
		Type:         dto.EventHistoryResponse,
		CanvasID:     canvasID,
		X:            x,
		Y:            y,
		ModifierName: record.ModifierName,
		Timestamp:    record.Timestamp.Format(time.RFC3339),
	}, nil
}
