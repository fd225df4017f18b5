// Package tasks 定义异步任务类型和载荷构造函数。
// 所有落盘路径（历史、聊天、画布快照）都走 Asynq 队列，
// 实时路径只负责入队，失败由队列重试兜底。
package tasks

import (
	"encoding/json"
	"time"
)

// 定义任务类型常量
const (
	TypeHistoryRecord  = "history:record"    // 像素历史持久化
	TypeChatPersist    = "chat:persist"      // 聊天消息持久化与裁剪
	TypeCanvasFlush    = "canvas:flush"      // 单块画布快照落盘
	TypeCanvasFlushAll = "canvas:flush_all"  // 周期性落盘所有脏画布
)

// HistoryRecordPayload 定义了像素历史持久化任务的数据结构
type HistoryRecordPayload struct {
	CanvasID     uint      `json:"canvas_id"`
	X            int       `json:"x"`
	Y            int       `json:"y"`
	Color        string    `json:"color"`
	UserID       uint      `json:"user_id"`
	ModifierName string    `json:"modifier_name"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewHistoryRecordTask 创建一个新的像素历史持久化任务载荷
func NewHistoryRecordTask(edit HistoryRecordPayload) ([]byte, error) {
	return json.Marshal(edit)
}

// ChatPersistPayload 定义了聊天消息持久化任务的数据结构
type ChatPersistPayload struct {
	PubID      uint      `json:"pub_id"`
	UserID     uint      `json:"user_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewChatPersistTask 创建一个新的聊天消息持久化任务载荷
func NewChatPersistTask(message ChatPersistPayload) ([]byte, error) {
	return json.Marshal(message)
}

// CanvasFlushPayload 定义了单块画布落盘任务的数据结构。
// 只携带画布 ID，快照在 Worker 端从内存存储取最新版本，
// 这样排队期间的后续编辑也会被同一次落盘覆盖到。
type CanvasFlushPayload struct {
	CanvasID uint `json:"canvas_id"`
}

// NewCanvasFlushTask 创建一个新的画布落盘任务载荷
func NewCanvasFlushTask(canvasID uint) ([]byte, error) {
	return json.Marshal(CanvasFlushPayload{CanvasID: canvasID})
}

// NewCanvasFlushAllTask 创建周期性全量落盘任务载荷。该任务无参数。
func NewCanvasFlushAllTask() ([]byte, error) {
	return json.Marshal(struct{}{})
}
