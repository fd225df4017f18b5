package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
)

// StateRepository 是 repository.StateRepository 的 Mock 实现。
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) ApplyEditToMirror(ctx context.Context, canvasID uint, x, y int, color string) error {
	args := m.Called(ctx, canvasID, x, y, color)
	return args.Error(0)
}

func (m *StateRepository) CanvasMirror(ctx context.Context, canvasID uint) (map[string]string, error) {
	args := m.Called(ctx, canvasID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *StateRepository) ReplaceMirror(ctx context.Context, canvasID uint, grid domain.Grid) error {
	args := m.Called(ctx, canvasID, grid)
	return args.Error(0)
}

func (m *StateRepository) CleanupCanvas(ctx context.Context, canvasID uint) error {
	args := m.Called(ctx, canvasID)
	return args.Error(0)
}

func (m *StateRepository) PushRecentMessage(ctx context.Context, pubID uint, payload []byte, limit int) error {
	args := m.Called(ctx, pubID, payload, limit)
	return args.Error(0)
}

func (m *StateRepository) RecentMessages(ctx context.Context, pubID uint) ([]string, error) {
	args := m.Called(ctx, pubID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *StateRepository) CleanupPub(ctx context.Context, pubID uint) error {
	args := m.Called(ctx, pubID)
	return args.Error(0)
}

func (m *StateRepository) CheckRateLimit(ctx context.Context, key string, limit int, duration time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, duration)
	return args.Bool(0), args.Error(1)
}
