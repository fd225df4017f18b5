package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/dto"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/repository"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/repository/mocks"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/service"
)

func TestHistoryService_Latest_Found(t *testing.T) {
	// Arrange
	mockHistoryRepo := new(mocks.HistoryRepository)
	historyService := service.NewHistoryService(mockHistoryRepo)

	ctx := context.Background()
	when := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	record := &domain.PixelHistory{
		CanvasID:     3,
		X:            10,
		Y:            12,
		UserID:       7,
		ModifierName: "ada",
		Color:        "#FF0000",
		Timestamp:    when,
	}
	mockHistoryRepo.On("LatestAt", ctx, uint(3), 10, 12).Return(record, nil).Once()

	// Act
	resp, err := historyService.Latest(ctx, 3, 10, 12)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, dto.EventHistoryResponse, resp.Type)
	assert.Equal(t, uint(3), resp.CanvasID)
	assert.Equal(t, 10, resp.X)
	assert.Equal(t, 12, resp.Y)
	assert.Equal(t, "ada", resp.ModifierName)
	assert.Equal(t, when.Format(time.RFC3339), resp.Timestamp)

	mockHistoryRepo.AssertExpectations(t)
}

func TestHistoryService_Latest_NeverModified(t *testing.T) {
	// Arrange: 查询干净像素返回哨兵值而不是错误
	mockHistoryRepo := new(mocks.HistoryRepository)
	historyService := service.NewHistoryService(mockHistoryRepo)

	ctx := context.Background()
	mockHistoryRepo.On("LatestAt", ctx, uint(3), 0, 0).Return(nil, repository.ErrNotFound).Once()

	// Act
	resp, err := historyService.Latest(ctx, 3, 0, 0)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, dto.HistoryNoModifier, resp.ModifierName)
	assert.Equal(t, dto.HistoryNeverTime, resp.Timestamp)

	mockHistoryRepo.AssertExpectations(t)
}

func TestHistoryService_Latest_RepoError(t *testing.T) {
	// Arrange
	mockHistoryRepo := new(mocks.HistoryRepository)
	historyService := service.NewHistoryService(mockHistoryRepo)

	ctx := context.Background()
	mockHistoryRepo.On("LatestAt", ctx, uint(1), 2, 2).Return(nil, assert.AnError).Once()

	// Act
	resp, err := historyService.Latest(ctx, 1, 2, 2)

	// Assert
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, service.ErrInternalServer)

	mockHistoryRepo.AssertExpectations(t)
}
