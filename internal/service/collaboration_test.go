package service_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/canvas"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/dto"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/repository/mocks"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/service"
)

func newCollabService(t *testing.T) (*service.CollaborationService, *canvas.Store, *mocks.StateRepository) {
	t.Helper()
	store := canvas.NewStore()
	stateRepo := new(mocks.StateRepository)
	svc := service.NewCollaborationService(store, stateRepo, newTestAsynqClient())
	return svc, store, stateRepo
}

// --- 测试 PlacePixel 方法 ---

func TestCollaborationService_PlacePixel_Success(t *testing.T) {
	svc, store, stateRepo := newCollabService(t)
	const pubID, canvasID = uint(1), uint(10)
	require.NoError(t, store.Load(canvasID, pubID, domain.NewBlankGrid(4, 4)))
	stateRepo.On("ApplyEditToMirror", mock.Anything, canvasID, 2, 3, "#FF0000").Return(nil).Once()

	event, err := svc.PlacePixel(context.Background(), domain.AuthenticatedIdentity(7, "ada"), pubID, canvasID, 2, 3, "#FF0000")

	require.NoError(t, err)
	assert.Equal(t, dto.EventPixelPlaced, event.Type)
	assert.Equal(t, "ada", event.Author)
	assert.Equal(t, "#FF0000", event.Color)

	grid, err := store.Snapshot(canvasID)
	require.NoError(t, err)
	assert.Equal(t, "#FF0000", grid[3][2])
	stateRepo.AssertExpectations(t)
}

func TestCollaborationService_PlacePixel_Rejections(t *testing.T) {
	svc, store, stateRepo := newCollabService(t)
	require.NoError(t, store.Load(10, 1, domain.NewBlankGrid(4, 4)))
	ctx := context.Background()
	identity := domain.GuestIdentity("Guest")

	cases := []struct {
		name     string
		pubID    uint
		canvasID uint
		x, y     int
		color    string
	}{
		{"非法颜色", 1, 10, 0, 0, "red"},
		{"未加载的画布", 1, 99, 0, 0, "#FF0000"},
		{"画布不属于该酒馆", 2, 10, 0, 0, "#FF0000"},
		{"越界坐标", 1, 10, 4, 0, "#FF0000"},
		{"负坐标", 1, 10, 0, -1, "#FF0000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PlacePixel(ctx, identity, tc.pubID, tc.canvasID, tc.x, tc.y, tc.color)
			assert.ErrorIs(t, err, service.ErrInvalidEdit)
		})
	}
	stateRepo.AssertNotCalled(t, "ApplyEditToMirror",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCollaborationService_PlacePixel_DoesNotWaitForHistoryEnqueue(t *testing.T) {
	// Arrange: 队列后端接受连接但永不应答，历史入队会挂在读超时上
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	go func() {
		for {
			conn, acceptErr := listener.Accept()
			if acceptErr != nil {
				return
			}
			_ = conn // 挂住连接不响应
		}
	}()

	store := canvas.NewStore()
	stateRepo := new(mocks.StateRepository)
	svc := service.NewCollaborationService(store, stateRepo,
		asynq.NewClient(asynq.RedisClientOpt{Addr: listener.Addr().String()}))

	const pubID, canvasID = uint(1), uint(10)
	require.NoError(t, store.Load(canvasID, pubID, domain.NewBlankGrid(4, 4)))
	stateRepo.On("ApplyEditToMirror", mock.Anything, canvasID, 1, 1, "#00FF00").Return(nil).Once()

	// Act: 编辑路径必须立刻返回，广播交接不等待历史入队
	done := make(chan error, 1)
	go func() {
		_, placeErr := svc.PlacePixel(context.Background(), domain.GuestIdentity("Guest"), pubID, canvasID, 1, 1, "#00FF00")
		done <- placeErr
	}()

	select {
	case placeErr := <-done:
		require.NoError(t, placeErr)
	case <-time.After(2 * time.Second):
		t.Fatal("PlacePixel blocked on the history enqueue round-trip")
	}
	stateRepo.AssertExpectations(t)
}

// --- 测试 SaveCanvasState 方法 ---

func TestCollaborationService_SaveCanvasState_Success(t *testing.T) {
	svc, store, stateRepo := newCollabService(t)
	const pubID, canvasID = uint(1), uint(10)
	require.NoError(t, store.Load(canvasID, pubID, domain.NewBlankGrid(2, 2)))

	incoming := domain.Grid{{"#000000", "#111111"}, {"#222222", "#333333"}}
	stateRepo.On("ReplaceMirror", mock.Anything, canvasID, incoming).Return(nil).Once()

	event, err := svc.SaveCanvasState(context.Background(), domain.AuthenticatedIdentity(7, "ada"), pubID, canvasID, incoming)

	require.NoError(t, err)
	assert.Equal(t, dto.EventCanvasState, event.Type)
	assert.Equal(t, 2, event.Width)

	grid, err := store.Snapshot(canvasID)
	require.NoError(t, err)
	assert.Equal(t, "#333333", grid[1][1])
	stateRepo.AssertExpectations(t)
}

func TestCollaborationService_SaveCanvasState_DimensionMismatch(t *testing.T) {
	svc, store, stateRepo := newCollabService(t)
	const pubID, canvasID = uint(1), uint(10)
	require.NoError(t, store.Load(canvasID, pubID, domain.NewBlankGrid(2, 2)))

	// 3x3 网格提交给 2x2 画布
	_, err := svc.SaveCanvasState(context.Background(), domain.GuestIdentity("Guest"), pubID, canvasID, domain.NewBlankGrid(3, 3))

	assert.ErrorIs(t, err, service.ErrInvalidCanvasSize)
	// 原网格未被覆盖
	grid, snapErr := store.Snapshot(canvasID)
	require.NoError(t, snapErr)
	assert.Len(t, grid, 2)
	stateRepo.AssertNotCalled(t, "ReplaceMirror", mock.Anything, mock.Anything, mock.Anything)
}
