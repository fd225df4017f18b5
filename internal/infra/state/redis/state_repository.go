// Package redisstate 提供 StateRepository 接口的 Redis 实现。
package redisstate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
)

// RedisStateRepository 是 StateRepository 接口的 Redis 实现
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateRepository 创建 RedisStateRepository 实例
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "pp:" // 默认前缀 "pp:" (pixel pub)
	}
	return &RedisStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// --- Key Generation Helpers ---

func (r *RedisStateRepository) canvasMirrorKey(canvasID uint) string {
	return fmt.Sprintf("%scanvas:%d:pixels", r.keyPrefix, canvasID)
}

func (r *RedisStateRepository) pubChatKey(pubID uint) string {
	return fmt.Sprintf("%spub:%d:chat", r.keyPrefix, pubID)
}

// --- Canvas Mirror ---

// ApplyEditToMirror 把单个单元格写入同步到 Redis 镜像。
// HSet 保证同一单元格只保留最后写入的颜色。
func (r *RedisStateRepository) ApplyEditToMirror(ctx context.Context, canvasID uint, x, y int, color string) error {
	key := r.canvasMirrorKey(canvasID)
	fieldKey := fmt.Sprintf("%d:%d", x, y)
	if err := r.client.HSet(ctx, key, fieldKey, color).Err(); err != nil {
		return fmt.Errorf("redis: failed to apply edit to mirror for canvas %d (key: %s, field: %s): %w",
			canvasID, key, fieldKey, err)
	}
	return nil
}

// CanvasMirror 返回画布镜像中的全部单元格。
func (r *RedisStateRepository) CanvasMirror(ctx context.Context, canvasID uint) (map[string]string, error) {
	key := r.canvasMirrorKey(canvasID)
	cells, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to get canvas mirror for canvas %d from %s: %w", canvasID, key, err)
	}
	return cells, nil
}

// ReplaceMirror 用完整网格重建画布镜像。
// DEL 和批量 HSet 在同一个事务 Pipeline 中执行，观察者不会看到半新半旧的镜像。
func (r *RedisStateRepository) ReplaceMirror(ctx context.Context, canvasID uint, grid domain.Grid) error {
	key := r.canvasMirrorKey(canvasID)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	fields := make(map[string]interface{}, len(grid)*8)
	for y := range grid {
		for x := range grid[y] {
			if grid[y][x] == domain.BlankColor {
				continue // 空白单元格不占镜像空间
			}
			fields[fmt.Sprintf("%d:%d", x, y)] = grid[y][x]
		}
	}
	if len(fields) > 0 {
		pipe.HSet(ctx, key, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to replace mirror for canvas %d on key %s: %w", canvasID, key, err)
	}
	return nil
}

// CleanupCanvas 清理画布相关的 Redis key。
func (r *RedisStateRepository) CleanupCanvas(ctx context.Context, canvasID uint) error {
	key := r.canvasMirrorKey(canvasID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: failed to cleanup canvas %d (key: %s): %w", canvasID, key, err)
	}
	return nil
}

// --- Chat Retention ---

// PushRecentMessage 把一条消息追加到酒馆的近况队列并裁剪到保留上限。
func (r *RedisStateRepository) PushRecentMessage(ctx context.Context, pubID uint, payload []byte, limit int) error {
	key := r.pubChatKey(pubID)
	pipe := r.client.Pipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-limit), -1) // 保留最近 limit 条
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to push recent message for pub %d on key %s: %w", pubID, key, err)
	}
	return nil
}

// RecentMessages 按时间升序返回酒馆近况队列中的消息。
func (r *RedisStateRepository) RecentMessages(ctx context.Context, pubID uint) ([]string, error) {
	key := r.pubChatKey(pubID)
	messages, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to get recent messages for pub %d from %s: %w", pubID, key, err)
	}
	return messages, nil
}

// CleanupPub 清理酒馆相关的 Redis key。
func (r *RedisStateRepository) CleanupPub(ctx context.Context, pubID uint) error {
	key := r.pubChatKey(pubID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: failed to cleanup pub %d (key: %s): %w", pubID, key, err)
	}
	return nil
}

// --- Rate Limiting ---

// CheckRateLimit 检查给定 key 的请求频率是否超限，并递增计数。
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, duration time.Duration) (bool, error) {
	// 使用 Pipeline 减少网络往返
	pipe := r.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, duration)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: pipeline failed for rate limit check on key %s: %w", key, err)
	}
	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to get incr result for rate limit on key %s: %w", key, err)
	}
	return count > int64(limit), nil
}
