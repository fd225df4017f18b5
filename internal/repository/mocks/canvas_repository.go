package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
)

// CanvasRepository 是 repository.CanvasRepository 的 Mock 实现。
type CanvasRepository struct {
	mock.Mock
}

func (m *CanvasRepository) FindByID(ctx context.Context, id uint) (*domain.Canvas, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Canvas), args.Error(1)
}

func (m *CanvasRepository) FindAll(ctx context.Context) ([]domain.Canvas, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Canvas), args.Error(1)
}

func (m *CanvasRepository) Save(ctx context.Context, canvas *domain.Canvas) error {
	args := m.Called(ctx, canvas)
	return args.Error(0)
}

func (m *CanvasRepository) SaveGrid(ctx context.Context, canvasID uint, grid domain.Grid) error {
	args := m.Called(ctx, canvasID, grid)
	return args.Error(0)
}

func (m *CanvasRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// HistoryRepository 是 repository.HistoryRepository 的 Mock 实现。
type HistoryRepository struct {
	mock.Mock
}

func (m *HistoryRepository) Save(ctx context.Context, record *domain.PixelHistory) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *HistoryRepository) LatestAt(ctx context.Context, canvasID uint, x, y int) (*domain.PixelHistory, error) {
	args := m.Called(ctx, canvasID, x, y)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PixelHistory), args.Error(1)
}

func (m *HistoryRepository) DeleteByCanvas(ctx context.Context, canvasID uint) error {
	args := m.Called(ctx, canvasID)
	return args.Error(0)
}
