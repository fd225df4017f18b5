// Package hub 维护酒馆到连接的映射并协调事件分发。
// 成员关系的变更（注册、注销、切换酒馆）在单一事件循环里串行处理，
// 画布与聊天事件本身解析后并发交给 service 层。
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/dto"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/service"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// save_canvas_state 携带完整网格，上限要容纳最大画布的 JSON 体积
	maxMessageSize = 512 * 1024
)

// HubMessage 定义了在 Hub 内部通道传递的消息类型
type HubMessage struct {
	Type    string  // "register", "unregister", "event"
	Client  *Client
	RawData []byte // 仅用于 event (原始 WebSocket 消息)
}

// Hub 维护活跃客户端集合并协调消息处理
type Hub struct {
	messageChan chan HubMessage

	// 客户端集合，按酒馆组织 map[pubID]map[*Client]bool
	pubs   map[uint]map[*Client]bool
	pubsMu sync.RWMutex

	pubService     *service.PubService
	collabService  *service.CollaborationService
	chatService    *service.ChatService
	historyService *service.HistoryService
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub(
	pubService *service.PubService,
	collabService *service.CollaborationService,
	chatService *service.ChatService,
	historyService *service.HistoryService,
) *Hub {
	if pubService == nil || collabService == nil || chatService == nil || historyService == nil {
		panic("all services must be non-nil for Hub")
	}
	return &Hub{
		messageChan:    make(chan HubMessage, 512),
		pubs:           make(map[uint]map[*Client]bool),
		pubService:     pubService,
		collabService:  collabService,
		chatService:    chatService,
		historyService: historyService,
	}
}

// Run 启动 Hub 的主事件处理循环。应在单独的 goroutine 中运行。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.Type {
		case "register":
			h.registerClient(msg.Client)
		case "unregister":
			h.unregisterClient(msg.Client)
		case "event":
			h.dispatchEvent(msg)
		default:
			log.Warnf("Hub: Received unknown message type: %s", msg.Type)
		}
	}
	log.Info("Hub is shutting down...")
}

// QueueMessage 将消息放入 Hub 的处理队列 (非阻塞)。
// 返回 true 如果消息成功入队，false 如果队列已满。
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// registerClient 处理客户端注册逻辑
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	pubID := client.PubID()
	logCtx := logrus.WithFields(logrus.Fields{
		"pub_id": pubID,
		"user":   client.Identity().Name,
	})

	h.pubsMu.Lock()
	if _, ok := h.pubs[pubID]; !ok {
		h.pubs[pubID] = make(map[*Client]bool)
	}
	h.pubs[pubID][client] = true
	h.pubsMu.Unlock()
	logCtx.Info("Client registered to Hub")

	// 异步推送初始状态，不阻塞事件循环
	go h.sendInitialState(client, pubID)
}

// unregisterClient 处理客户端注销逻辑
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	pubID := client.PubID()
	logCtx := logrus.WithFields(logrus.Fields{
		"pub_id": pubID,
		"user":   client.Identity().Name,
	})

	h.pubsMu.Lock()
	h.removeLocked(pubID, client)
	h.pubsMu.Unlock()
	logCtx.Info("Client unregistered from Hub")
}

// removeLocked 把客户端从酒馆移除并关闭其发送通道。调用者必须持有 pubsMu。
func (h *Hub) removeLocked(pubID uint, client *Client) {
	pubClients, ok := h.pubs[pubID]
	if !ok {
		return
	}
	if _, exists := pubClients[client]; !exists {
		return
	}
	delete(pubClients, client)
	client.closeSendOnce()
	if len(pubClients) == 0 {
		delete(h.pubs, pubID)
	}
}

// detachLocked 只把客户端从酒馆的成员集合摘出，不关闭通道。
// 用于 join_pub 切换，连接本身继续存活。
func (h *Hub) detachLocked(pubID uint, client *Client) {
	pubClients, ok := h.pubs[pubID]
	if !ok {
		return
	}
	delete(pubClients, client)
	if len(pubClients) == 0 {
		delete(h.pubs, pubID)
	}
}

// dispatchEvent 解析事件信封并分发。
// join_pub 改变成员关系，必须在事件循环里串行处理；
// 其余事件并发处理，单个连接的故障不影响同酒馆的其他连接。
func (h *Hub) dispatchEvent(msg HubMessage) {
	client := msg.Client
	if client == nil {
		return
	}
	var env dto.Envelope
	if err := json.Unmarshal(msg.RawData, &env); err != nil {
		logrus.WithError(err).WithField("user", client.Identity().Name).
			Warn("Dropping malformed event envelope")
		return
	}

	if env.Type == dto.EventJoinPub {
		h.handleJoinPub(client, env)
		return
	}
	go h.handleEvent(client, env)
}

// handleJoinPub 把连接从当前酒馆切换到目标酒馆。
func (h *Hub) handleJoinPub(client *Client, env dto.Envelope) {
	identity := client.Identity()
	logCtx := logrus.WithFields(logrus.Fields{
		"user":       identity.Name,
		"target_pub": env.PubID,
	})

	ctx := context.Background()
	pub, err := h.pubService.FindPubByID(ctx, env.PubID)
	if err != nil {
		h.sendError(client, "pub not found")
		return
	}
	allowed, err := h.pubService.CanEnter(ctx, identity, pub)
	if err != nil || !allowed {
		// 对私有酒馆不泄露存在性
		h.sendError(client, "pub not found")
		return
	}

	oldPub := client.PubID()
	if oldPub == pub.ID {
		return
	}

	h.pubsMu.Lock()
	h.detachLocked(oldPub, client)
	if _, ok := h.pubs[pub.ID]; !ok {
		h.pubs[pub.ID] = make(map[*Client]bool)
	}
	h.pubs[pub.ID][client] = true
	client.setPubID(pub.ID)
	h.pubsMu.Unlock()

	logCtx.WithField("old_pub", oldPub).Info("Client switched pub")
	go h.sendInitialState(client, pub.ID)
}

// handleEvent 处理画布、聊天和历史事件。
func (h *Hub) handleEvent(client *Client, env dto.Envelope) {
	ctx := context.Background()
	identity := client.Identity()
	pubID := client.PubID()

	// 事件声明的酒馆必须是连接当前所在的酒馆
	if env.PubID != 0 && env.PubID != pubID {
		logrus.WithFields(logrus.Fields{
			"user": identity.Name, "claimed_pub": env.PubID, "actual_pub": pubID,
		}).Warn("Dropping event with mismatched pub id")
		return
	}

	switch env.Type {
	case dto.EventPlacePixel:
		event, err := h.collabService.PlacePixel(ctx, identity, pubID, env.CanvasID, env.X, env.Y, env.Color)
		if err != nil {
			// 校验失败静默丢弃，不打断连接
			if !errors.Is(err, service.ErrInvalidEdit) {
				logrus.WithError(err).Warn("Failed to place pixel")
			}
			return
		}
		payload, err := json.Marshal(event)
		if err != nil {
			logrus.WithError(err).Error("Failed to marshal pixel event")
			return
		}
		h.Broadcast(pubID, payload, client)

	case dto.EventSendMessage:
		err := h.chatService.Post(ctx, identity, pubID, env.Content, func(payload []byte) {
			// 发送者也收到自己的消息，聊天回显与画布编辑不同
			h.Broadcast(pubID, payload, nil)
		})
		if err != nil && !errors.Is(err, service.ErrInvalidMessage) {
			logrus.WithError(err).Warn("Failed to post chat message")
		}

	case dto.EventRequestHistory:
		resp, err := h.historyService.Latest(ctx, env.CanvasID, env.X, env.Y)
		if err != nil {
			h.sendError(client, "history lookup failed")
			return
		}
		payload, err := json.Marshal(resp)
		if err != nil {
			return
		}
		client.trySend(payload)

	case dto.EventSaveCanvas:
		event, err := h.collabService.SaveCanvasState(ctx, identity, pubID, env.CanvasID, env.Grid)
		if err != nil {
			h.sendError(client, "canvas save rejected")
			return
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return
		}
		h.Broadcast(pubID, payload, client)

	default:
		logrus.WithFields(logrus.Fields{"user": identity.Name, "type": env.Type}).
			Debug("Ignoring unknown event type")
	}
}

// sendInitialState 向新加入或切换酒馆的连接推送画布快照和聊天近况。
func (h *Hub) sendInitialState(client *Client, pubID uint) {
	logCtx := logrus.WithFields(logrus.Fields{
		"pub_id": pubID,
		"user":   client.Identity().Name,
	})

	ctx := context.Background()
	pub, cv, grid, err := h.pubService.PubWithGrid(ctx, pubID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load initial canvas state")
		h.sendError(client, "failed to load canvas state")
		return
	}

	state := dto.CanvasState{
		Type:     dto.EventCanvasState,
		CanvasID: pub.CanvasID,
		Width:    cv.Width,
		Height:   cv.Height,
		Grid:     grid,
	}
	if payload, err := json.Marshal(state); err == nil {
		client.trySend(payload)
	} else {
		logCtx.WithError(err).Error("Failed to marshal canvas state")
	}

	messages, err := h.chatService.Recent(ctx, pubID)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to load chat backlog")
		return
	}
	backlog := dto.ChatBacklog{
		Type:     dto.EventChatBacklog,
		PubID:    pubID,
		Messages: messages,
	}
	if payload, err := json.Marshal(backlog); err == nil {
		client.trySend(payload)
	}
}

// Broadcast 将消息发送给指定酒馆的所有客户端，exclude 不为 nil 时排除它。
func (h *Hub) Broadcast(pubID uint, message []byte, exclude *Client) {
	h.pubsMu.RLock()
	pubClients, ok := h.pubs[pubID]
	// 先拷贝接收者列表，避免发送期间持有锁
	clientsToSend := make([]*Client, 0, len(pubClients))
	if ok {
		for client := range pubClients {
			if client != exclude {
				clientsToSend = append(clientsToSend, client)
			}
		}
	}
	h.pubsMu.RUnlock()

	if len(clientsToSend) == 0 {
		return
	}

	for _, client := range clientsToSend {
		// 非阻塞发送，单个慢客户端不能拖住整个酒馆的广播
		if !client.trySend(message) {
			logrus.WithFields(logrus.Fields{
				"pub_id":   pubID,
				"receiver": client.Identity().Name,
			}).Warn("Client send channel full during broadcast, skipping this client")
		}
	}
}

// ClosePub 强制断开某个酒馆的全部连接，用于酒馆被删除时。
func (h *Hub) ClosePub(pubID uint) {
	h.pubsMu.Lock()
	pubClients, ok := h.pubs[pubID]
	var toClose []*Client
	if ok {
		toClose = make([]*Client, 0, len(pubClients))
		for client := range pubClients {
			toClose = append(toClose, client)
		}
		delete(h.pubs, pubID)
	}
	h.pubsMu.Unlock()

	for _, client := range toClose {
		client.closeSendOnce()
		client.CloseConn()
	}
	if len(toClose) > 0 {
		logrus.WithFields(logrus.Fields{"pub_id": pubID, "clients": len(toClose)}).
			Info("Pub closed, clients disconnected")
	}
}

// sendError 向单个客户端回一个错误帧（非阻塞）。
func (h *Hub) sendError(client *Client, message string) {
	payload, err := json.Marshal(dto.ErrorDTO{Type: dto.EventError, Message: message})
	if err != nil {
		return
	}
	client.trySend(payload)
}

// MemberCount 返回酒馆的当前连接数，供测试和监控使用。
func (h *Hub) MemberCount(pubID uint) int {
	h.pubsMu.RLock()
	defer h.pubsMu.RUnlock()
	return len(h.pubs[pubID])
}
