package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/dto"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/repository"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/tasks"
)

// ChatService 处理酒馆内聊天：发送、保留裁剪和近况回放。
// 每个酒馆持有一把顺序锁：序号分配、Redis 近况入队和本地广播
// 在锁内完成，保证所有观察者看到同一消息顺序。
type ChatService struct {
	chatRepo    repository.ChatRepository
	stateRepo   repository.StateRepository
	asynqClient *asynq.Client

	mu    sync.Mutex
	order map[uint]*sync.Mutex
}

// NewChatService 创建 ChatService 实例。
func NewChatService(chatRepo repository.ChatRepository, stateRepo repository.StateRepository, asynqClient *asynq.Client) *ChatService {
	if chatRepo == nil || stateRepo == nil || asynqClient == nil {
		panic("all dependencies must be non-nil for ChatService")
	}
	return &ChatService{
		chatRepo:    chatRepo,
		stateRepo:   stateRepo,
		asynqClient: asynqClient,
		order:       make(map[uint]*sync.Mutex),
	}
}

// Post 处理一条聊天消息。content 为空或超长时返回 ErrInvalidMessage。
// deliver 在顺序锁内被调用，负责把序列化后的消息交给广播器；
// 这样 Redis 队列顺序与广播顺序必然一致。
func (s *ChatService) Post(ctx context.Context, identity domain.Identity, pubID uint, content string, deliver func(payload []byte)) error {
	logCtx := logrus.WithFields(logrus.Fields{"pub_id": pubID, "user": identity.Name})

	content = strings.TrimSpace(content)
	// 长度上限按字符数计，多字节内容不能被字节数误杀
	if content == "" || utf8.RuneCountInString(content) > domain.ChatMaxContentLen {
		return ErrInvalidMessage
	}

	now := time.Now()
	message := dto.NewMessage{
		Type:      dto.EventNewMessage,
		PubID:     pubID,
		Author:    identity.Name,
		Content:   content,
		Timestamp: now.Format(time.RFC3339),
	}
	payload, err := json.Marshal(message)
	if err != nil {
		logCtx.WithError(err).Error("Failed to marshal chat message")
		return ErrInternalServer
	}

	lock := s.pubLock(pubID)
	lock.Lock()
	if err := s.stateRepo.PushRecentMessage(ctx, pubID, payload, domain.ChatRetentionLimit); err != nil {
		logCtx.WithError(err).Warn("Failed to push message to redis retention queue")
	}
	if deliver != nil {
		deliver(payload)
	}
	lock.Unlock()

	// 数据库持久化与裁剪走后台队列
	taskPayload, err := tasks.NewChatPersistTask(tasks.ChatPersistPayload{
		PubID:      pubID,
		UserID:     identity.StorageUserID(),
		AuthorName: identity.Name,
		Content:    content,
		Timestamp:  now,
	})
	if err != nil {
		logCtx.WithError(err).Error("Failed to build chat persist payload")
		return nil
	}
	task := asynq.NewTask(tasks.TypeChatPersist, taskPayload)
	if _, err := s.asynqClient.Enqueue(task, asynq.Queue("default")); err != nil {
		logCtx.WithError(err).Warn("Failed to enqueue chat persist")
	}
	return nil
}

// Recent 返回酒馆最近的消息（旧到新），供新加入的连接回放。
// 优先读 Redis 近况队列，队列为空或不可用时回落到数据库。
func (s *ChatService) Recent(ctx context.Context, pubID uint) ([]dto.NewMessage, error) {
	logCtx := logrus.WithField("pub_id", pubID)

	raw, err := s.stateRepo.RecentMessages(ctx, pubID)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to read recent messages from redis, falling back to DB")
	} else if len(raw) > 0 {
		messages := make([]dto.NewMessage, 0, len(raw))
		for _, item := range raw {
			var msg dto.NewMessage
			if err := json.Unmarshal([]byte(item), &msg); err != nil {
				logCtx.WithError(err).Warn("Skipping malformed message in retention queue")
				continue
			}
			messages = append(messages, msg)
		}
		return messages, nil
	}

	stored, err := s.chatRepo.Recent(ctx, pubID, domain.ChatRetentionLimit)
	if err != nil {
		logCtx.WithError(err).Error("Failed to read recent messages from DB")
		return nil, ErrInternalServer
	}
	messages := make([]dto.NewMessage, 0, len(stored))
	for _, m := range stored {
		messages = append(messages, dto.NewMessage{
			Type:      dto.EventNewMessage,
			PubID:     m.PubID,
			Author:    m.AuthorName,
			Content:   m.Content,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}
	return messages, nil
}

// pubLock 返回酒馆的顺序锁，按需创建。
func (s *ChatService) pubLock(pubID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.order[pubID]
	if !ok {
		lock = &sync.Mutex{}
		s.order[pubID] = lock
	}
	return lock
}
