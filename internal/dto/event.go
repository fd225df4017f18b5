// Package dto 定义了 WebSocket 线上协议的数据结构。
package dto

// 客户端入站事件类型。
const (
	EventJoinPub        = "join_pub"
	EventPlacePixel     = "place_pixel"
	EventRequestHistory = "request_history"
	EventSendMessage    = "send_message"
	EventSaveCanvas     = "save_canvas_state"
)

// 服务端出站事件类型。
const (
	EventPixelPlaced     = "pixel_placed"
	EventNewMessage      = "new_message"
	EventHistoryResponse = "history_response"
	EventCanvasState     = "canvas_state"
	EventChatBacklog     = "chat_backlog"
	EventError           = "error"
)

// 像素从未被修改过时 history_response 返回的哨兵值。
const (
	HistoryNoModifier = "N/A"
	HistoryNeverTime  = "Never modified"
)

// Envelope 表示从客户端 WebSocket 消息解析出的入站事件。
// 所有事件共用一个信封结构，按 Type 取用对应字段。
type Envelope struct {
	Type     string     `json:"type"`
	PubID    uint       `json:"pub_id,omitempty"`
	CanvasID uint       `json:"canvas_id,omitempty"`
	X        int        `json:"x"`
	Y        int        `json:"y"`
	Color    string     `json:"color,omitempty"`
	Content  string     `json:"content,omitempty"`
	Grid     [][]string `json:"grid,omitempty"` // 仅 save_canvas_state 使用：完整行优先网格
}

// PixelPlaced 是 place_pixel 事件的回显，广播给除发送者外的所有成员。
type PixelPlaced struct {
	Type     string `json:"type"`
	PubID    uint   `json:"pub_id"`
	CanvasID uint   `json:"canvas_id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Color    string `json:"color"`
	Author   string `json:"author"`
}

// NewMessage 是聊天消息的广播载荷，发给包括发送者在内的所有成员，
// 以便所有客户端都从权威顺序渲染本地聊天记录。
type NewMessage struct {
	Type      string `json:"type"`
	PubID     uint   `json:"pub_id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// HistoryResponse 是 request_history 的点对点应答，只发给提问的连接。
type HistoryResponse struct {
	Type         string `json:"type"`
	CanvasID     uint   `json:"canvas_id"`
	X            int    `json:"x"`
	Y            int    `json:"y"`
	ModifierName string `json:"modifier_name"`
	Timestamp    string `json:"timestamp"`
}

// CanvasState 携带一块画布的完整快照，发给新加入的客户端，
// 或在 save_canvas_state 覆盖后广播给其他成员。
type CanvasState struct {
	Type     string     `json:"type"`
	CanvasID uint       `json:"canvas_id"`
	Width    int        `json:"width"`
	Height   int        `json:"height"`
	Grid     [][]string `json:"grid"`
}

// ChatBacklog 携带房间最近的聊天记录，发给新加入的客户端。
type ChatBacklog struct {
	Type     string       `json:"type"`
	PubID    uint         `json:"pub_id"`
	Messages []NewMessage `json:"messages"`
}

// ErrorDTO 表示发送给客户端的错误消息。
type ErrorDTO struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
