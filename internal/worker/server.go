// Package worker 运行 Asynq 后台任务服务器：像素历史持久化、
// 聊天落库与裁剪、画布快照落盘。
package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/repository"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/service"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/tasks"
)

// WorkerServer 封装了 Asynq Worker Server 的启动和关闭逻辑
type WorkerServer struct {
	server          *asynq.Server
	log             *logrus.Entry
	historyRepo     repository.HistoryRepository
	chatRepo        repository.ChatRepository
	snapshotService *service.SnapshotService
}

// NewWorkerServer 创建一个新的 WorkerServer 实例
func NewWorkerServer(
	redisOpt asynq.RedisClientOpt,
	historyRepo repository.HistoryRepository,
	chatRepo repository.ChatRepository,
	snapshotService *service.SnapshotService,
	logger *logrus.Logger,
) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server:          server,
		log:             logEntry,
		historyRepo:     historyRepo,
		chatRepo:        chatRepo,
		snapshotService: snapshotService,
	}
}

// Start 运行 Worker Server。应该在一个单独的 goroutine 中调用。
func (ws *WorkerServer) Start() {
	mux := asynq.NewServeMux()

	historyHandler := NewHistoryRecordHandler(ws.historyRepo)
	mux.HandleFunc(tasks.TypeHistoryRecord, historyHandler.ProcessTask)

	chatHandler := NewChatPersistHandler(ws.chatRepo)
	mux.HandleFunc(tasks.TypeChatPersist, chatHandler.ProcessTask)

	flushHandler := NewCanvasFlushHandler(ws.snapshotService)
	mux.HandleFunc(tasks.TypeCanvasFlush, flushHandler.ProcessFlushTask)
	mux.HandleFunc(tasks.TypeCanvasFlushAll, flushHandler.ProcessFlushAllTask)

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

// Shutdown 优雅地关闭 Worker Server
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
