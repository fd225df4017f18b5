package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
)

// ChatRepository 是 repository.ChatRepository 的 Mock 实现。
type ChatRepository struct {
	mock.Mock
}

func (m *ChatRepository) Save(ctx context.Context, message *domain.ChatMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *ChatRepository) TrimToLimit(ctx context.Context, pubID uint, limit int) error {
	args := m.Called(ctx, pubID, limit)
	return args.Error(0)
}

func (m *ChatRepository) Recent(ctx context.Context, pubID uint, limit int) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, pubID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChatMessage), args.Error(1)
}

func (m *ChatRepository) DeleteByPub(ctx context.Context, pubID uint) error {
	args := m.Called(ctx, pubID)
	return args.Error(0)
}
