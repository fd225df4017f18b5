package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/dto"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/hub"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/middleware"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/service"
)

// PubHandler 封装了酒馆管理相关的 HTTP 处理逻辑
type PubHandler struct {
	pubService  *service.PubService
	chatService *service.ChatService
	hub         *hub.Hub
}

// NewPubHandler 创建 PubHandler 实例
func NewPubHandler(pubService *service.PubService, chatService *service.ChatService, h *hub.Hub) *PubHandler {
	return &PubHandler{pubService: pubService, chatService: chatService, hub: h}
}

// CreatePubRequest 定义创建酒馆请求的结构体
type CreatePubRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=100"`
	Width     int    `json:"width" binding:"required,min=1,max=256"`
	Height    int    `json:"height" binding:"required,min=1,max=256"`
	IsPrivate bool   `json:"is_private"`
}

// pubResponse 是对外暴露的酒馆视图
type pubResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	CanvasID  uint   `json:"canvas_id"`
	IsPrivate bool   `json:"is_private"`
	Community bool   `json:"community"`
}

// pubDetailResponse 在酒馆视图上附带画布快照和最近聊天记录
type pubDetailResponse struct {
	pubResponse
	Width    int              `json:"width"`
	Height   int              `json:"height"`
	Grid     domain.Grid      `json:"grid"`
	Messages []dto.NewMessage `json:"messages"`
}

// Create 处理创建酒馆请求
func (h *PubHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreatePubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreatePub: Invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	pub, err := h.pubService.CreatePub(c.Request.Context(), userID, req.Name, req.Width, req.Height, req.IsPrivate)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, pubResponse{
		ID:        pub.ID,
		Name:      pub.Name,
		CanvasID:  pub.CanvasID,
		IsPrivate: pub.IsPrivate,
		Community: pub.IsCommunity(),
	})
}

// List 返回所有公开可见的酒馆
func (h *PubHandler) List(c *gin.Context) {
	pubs, err := h.pubService.ListPublic(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	out := make([]pubResponse, 0, len(pubs))
	for _, p := range pubs {
		out = append(out, pubResponse{
			ID:        p.ID,
			Name:      p.Name,
			CanvasID:  p.CanvasID,
			IsPrivate: p.IsPrivate,
			Community: p.IsCommunity(),
		})
	}
	SuccessResponse(c, http.StatusOK, gin.H{"pubs": out})
}

// Get 返回单个酒馆。私有酒馆对外表现为不存在。
func (h *PubHandler) Get(c *gin.Context) {
	pubID, ok := pubIDParam(c)
	if !ok {
		return
	}

	pub, err := h.pubService.FindPubByID(c.Request.Context(), pubID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	if pub.IsPrivate {
		allowed := false
		if value, exists := c.Get(middleware.ContextUserID); exists {
			if uid, isUser := value.(uint); isUser {
				allowed, err = h.pubService.CanEnter(c.Request.Context(), domain.AuthenticatedIdentity(uid, ""), pub)
				if err != nil {
					HandleServiceError(c, err)
					return
				}
			}
		}
		if !allowed {
			// 不泄露私有酒馆的存在性
			ErrorResponse(c, http.StatusNotFound, service.ErrPubNotFound.Error())
			return
		}
	}

	_, cv, grid, err := h.pubService.PubWithGrid(c.Request.Context(), pub.ID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	messages, err := h.chatService.Recent(c.Request.Context(), pub.ID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, pubDetailResponse{
		pubResponse: pubResponse{
			ID:        pub.ID,
			Name:      pub.Name,
			CanvasID:  pub.CanvasID,
			IsPrivate: pub.IsPrivate,
			Community: pub.IsCommunity(),
		},
		Width:    cv.Width,
		Height:   cv.Height,
		Grid:     grid,
		Messages: messages,
	})
}

// Join 把当前用户登记为酒馆成员
func (h *PubHandler) Join(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	pubID, ok := pubIDParam(c)
	if !ok {
		return
	}

	if err := h.pubService.JoinPub(c.Request.Context(), userID, pubID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Joined pub"})
}

// Delete 删除酒馆，先断开其全部活跃连接
func (h *PubHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	pubID, ok := pubIDParam(c)
	if !ok {
		return
	}

	if err := h.pubService.DeletePub(c.Request.Context(), userID, pubID); err != nil {
		HandleServiceError(c, err)
		return
	}
	h.hub.ClosePub(pubID)

	logrus.WithFields(logrus.Fields{"user_id": userID, "pub_id": pubID}).Info("Handler.DeletePub: Pub deleted")
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Pub deleted"})
}

// requireUserID 从上下文取认证中间件写入的 user_id
func requireUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(middleware.ContextUserID)
	if !exists {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return 0, false
	}
	userID, ok := value.(uint)
	if !ok {
		logrus.Errorf("Handler: user_id in context has unexpected type %T", value)
		ErrorResponse(c, http.StatusInternalServerError, "Authentication context error")
		return 0, false
	}
	return userID, true
}

// pubIDParam 解析路径中的酒馆 ID
func pubIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("pubId")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid pub id")
		return 0, false
	}
	return uint(id), true
}
