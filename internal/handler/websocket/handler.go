package websocket

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/hub"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/middleware"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/service"
)

// 访客昵称上限，超出部分截断
const maxGuestNameLen = 32

// WebSocketHandler 负责处理 WebSocket 升级请求和客户端注册
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	hub         *hub.Hub
	pubService  *service.PubService
	authService *service.AuthService
}

// NewWebSocketHandler 创建 WebSocketHandler 实例
func NewWebSocketHandler(h *hub.Hub, pubService *service.PubService, authService *service.AuthService) *WebSocketHandler {
	if h == nil || pubService == nil || authService == nil {
		panic("all dependencies must be non-nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 允许所有来源连接 (生产环境应配置具体的允许来源)
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return &WebSocketHandler{
		upgrader:    upgrader,
		hub:         h,
		pubService:  pubService,
		authService: authService,
	}
}

// HandleConnection 处理 WebSocket 连接请求。
// URL 预期格式: /ws/pub/{pubId}，经过 OptionalAuth：
// 带有效 token 的请求以注册用户身份连接，否则按访客处理。
// 所有校验在升级前完成，升级后不再返回 HTTP 错误。
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	// 1. 解析身份：注册用户或访客
	identity, err := h.resolveIdentity(c)
	if err != nil {
		logrus.WithError(err).Warn("WS Handler: Failed to resolve identity")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
		return
	}
	logCtx := logrus.WithField("user", identity.Name)

	// 2. 获取并验证酒馆 ID (从 URL 参数)
	pubIDStr := c.Param("pubId")
	pubIDUint64, err := strconv.ParseUint(pubIDStr, 10, 32)
	if err != nil {
		logCtx.WithError(err).Warnf("WS Handler: Invalid pub ID format: %s", pubIDStr)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pub ID format"})
		return
	}
	pubID := uint(pubIDUint64)
	logCtx = logCtx.WithField("pub_id", pubID)

	// 3. 验证酒馆存在且身份可进入
	pub, err := h.pubService.FindPubByID(c.Request.Context(), pubID)
	if err != nil {
		if errors.Is(err, service.ErrPubNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Pub not found"})
		} else {
			logCtx.WithError(err).Error("WS Handler: Error checking pub existence")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate pub"})
		}
		return
	}
	allowed, err := h.pubService.CanEnter(c.Request.Context(), identity, pub)
	if err != nil {
		logCtx.WithError(err).Error("WS Handler: Error checking pub access")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate pub"})
		return
	}
	if !allowed {
		// 私有酒馆对外表现为不存在
		c.JSON(http.StatusNotFound, gin.H{"error": "Pub not found"})
		return
	}

	// 4. 升级 HTTP 连接到 WebSocket
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时已自动发送 HTTP 错误响应
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}
	logCtx.Info("WS Handler: Connection upgraded to WebSocket")

	// 5. 创建 Client 并注册到 Hub
	client := hub.NewClient(h.hub, conn, identity, pubID)
	registerMsg := hub.HubMessage{Type: "register", Client: client}
	if !h.hub.QueueMessage(registerMsg) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		client.CloseConn()
		return
	}

	// 6. 启动客户端的读写 goroutine
	client.Run()
}

// resolveIdentity 把认证中间件的结果或 guest_name 参数换成连接身份。
func (h *WebSocketHandler) resolveIdentity(c *gin.Context) (domain.Identity, error) {
	if value, exists := c.Get(middleware.ContextUserID); exists {
		userID, ok := value.(uint)
		if !ok {
			return domain.Identity{}, errors.New("user_id in context has unexpected type")
		}
		user, err := h.authService.UserByID(c.Request.Context(), userID)
		if err != nil {
			return domain.Identity{}, err
		}
		return domain.AuthenticatedIdentity(user.ID, user.Username), nil
	}

	name := strings.TrimSpace(c.Query("guest_name"))
	if name == "" {
		name = "Guest"
	}
	if len(name) > maxGuestNameLen {
		name = name[:maxGuestNameLen]
	}
	return domain.GuestIdentity(name), nil
}
