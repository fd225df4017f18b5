package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/repository/mocks"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/tasks"
)

func chatTask(t *testing.T, payload tasks.ChatPersistPayload) *asynq.Task {
	t.Helper()
	raw, err := tasks.NewChatPersistTask(payload)
	require.NoError(t, err)
	return asynq.NewTask(tasks.TypeChatPersist, raw)
}

func TestChatPersistHandler_SavesThenTrimsToLimit(t *testing.T) {
	// Arrange
	mockChatRepo := new(mocks.ChatRepository)
	handler := NewChatPersistHandler(mockChatRepo)
	ctx := context.Background()
	when := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// 每条消息落库后立即裁剪到保留上限，库里永远不超过 100 条
	mockChatRepo.On("Save", ctx, mock.MatchedBy(func(m *domain.ChatMessage) bool {
		return m.PubID == 3 && m.UserID == 7 && m.AuthorName == "ada" &&
			m.Content == "cheers" && m.Timestamp.Equal(when)
	})).Return(nil).Once()
	mockChatRepo.On("TrimToLimit", ctx, uint(3), domain.ChatRetentionLimit).Return(nil).Once()

	// Act
	err := handler.ProcessTask(ctx, chatTask(t, tasks.ChatPersistPayload{
		PubID: 3, UserID: 7, AuthorName: "ada", Content: "cheers", Timestamp: when,
	}))

	// Assert
	require.NoError(t, err)
	mockChatRepo.AssertExpectations(t)
}

func TestChatPersistHandler_CorruptPayloadSkipsRetry(t *testing.T) {
	mockChatRepo := new(mocks.ChatRepository)
	handler := NewChatPersistHandler(mockChatRepo)

	err := handler.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeChatPersist, []byte("not json")))

	// 坏载荷重试也不会变好，必须直接丢弃
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	mockChatRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestChatPersistHandler_SaveFailureIsRetryable(t *testing.T) {
	mockChatRepo := new(mocks.ChatRepository)
	handler := NewChatPersistHandler(mockChatRepo)
	ctx := context.Background()

	mockChatRepo.On("Save", ctx, mock.AnythingOfType("*domain.ChatMessage")).Return(assert.AnError).Once()

	err := handler.ProcessTask(ctx, chatTask(t, tasks.ChatPersistPayload{PubID: 1, AuthorName: "ada", Content: "hi"}))

	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry), "落库失败应交给队列重试")
	mockChatRepo.AssertNotCalled(t, "TrimToLimit", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatPersistHandler_TrimFailureDoesNotFailTask(t *testing.T) {
	mockChatRepo := new(mocks.ChatRepository)
	handler := NewChatPersistHandler(mockChatRepo)
	ctx := context.Background()

	mockChatRepo.On("Save", ctx, mock.AnythingOfType("*domain.ChatMessage")).Return(nil).Once()
	mockChatRepo.On("TrimToLimit", ctx, uint(1), domain.ChatRetentionLimit).Return(assert.AnError).Once()

	// 裁剪失败只记警告，消息本身已经落库，下一条消息会补上裁剪
	err := handler.ProcessTask(ctx, chatTask(t, tasks.ChatPersistPayload{PubID: 1, AuthorName: "ada", Content: "hi"}))

	assert.NoError(t, err)
	mockChatRepo.AssertExpectations(t)
}
