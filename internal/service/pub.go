package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/canvas"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/repository"
)

// 画布尺寸的允许区间。上限保证一次全量快照（JSON 网格）仍在
// 单条 WebSocket 消息和单个 longtext 列的合理范围内。
const (
	MinCanvasDim = 1
	MaxCanvasDim = 256
)

// PubService 负责酒馆的创建、查询、加入与删除。
type PubService struct {
	pubRepo        repository.PubRepository
	canvasRepo     repository.CanvasRepository
	membershipRepo repository.MembershipRepository
	chatRepo       repository.ChatRepository
	historyRepo    repository.HistoryRepository
	stateRepo      repository.StateRepository
	store          *canvas.Store
}

// NewPubService 创建 PubService 实例。
func NewPubService(
	pubRepo repository.PubRepository,
	canvasRepo repository.CanvasRepository,
	membershipRepo repository.MembershipRepository,
	chatRepo repository.ChatRepository,
	historyRepo repository.HistoryRepository,
	stateRepo repository.StateRepository,
	store *canvas.Store,
) *PubService {
	if pubRepo == nil || canvasRepo == nil || membershipRepo == nil ||
		chatRepo == nil || historyRepo == nil || stateRepo == nil || store == nil {
		panic("all dependencies are required for PubService")
	}
	return &PubService{
		pubRepo:        pubRepo,
		canvasRepo:     canvasRepo,
		membershipRepo: membershipRepo,
		chatRepo:       chatRepo,
		historyRepo:    historyRepo,
		stateRepo:      stateRepo,
		store:          store,
	}
}

// CreatePub 创建一个新酒馆及其空白画布，并把创建者登记为成员。
// 画布先落库拿到 ID，再加载进内存存储，酒馆随后立即可加入。
func (s *PubService) CreatePub(ctx context.Context, ownerID uint, name string, width, height int, isPrivate bool) (*domain.Pub, error) {
	logCtx := logrus.WithFields(logrus.Fields{"owner_id": ownerID, "name": name})

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidEdit
	}
	if width < MinCanvasDim || width > MaxCanvasDim || height < MinCanvasDim || height > MaxCanvasDim {
		return nil, ErrInvalidCanvasSize
	}

	grid := domain.NewBlankGrid(width, height)
	cv := &domain.Canvas{
		Name:   name,
		Width:  width,
		Height: height,
	}
	if err := cv.SetGrid(grid); err != nil {
		logCtx.WithError(err).Error("Failed to serialize blank grid")
		return nil, ErrInternalServer
	}
	if err := s.canvasRepo.Save(ctx, cv); err != nil {
		logCtx.WithError(err).Error("Failed to create canvas for new pub")
		return nil, ErrInternalServer
	}

	pub := &domain.Pub{
		Name:      name,
		OwnerID:   &ownerID,
		IsPrivate: isPrivate,
		CanvasID:  cv.ID,
	}
	if err := s.pubRepo.Save(ctx, pub); err != nil {
		logCtx.WithError(err).Error("Failed to create pub")
		// 酒馆创建失败时回收孤儿画布
		if cleanupErr := s.canvasRepo.Delete(ctx, cv.ID); cleanupErr != nil {
			logCtx.WithError(cleanupErr).Warn("Failed to clean up orphan canvas")
		}
		return nil, ErrInternalServer
	}

	if err := s.membershipRepo.Join(ctx, pub.ID, ownerID); err != nil {
		logCtx.WithError(err).Warn("Failed to register owner membership")
	}

	if err := s.store.Load(cv.ID, pub.ID, grid); err != nil {
		logCtx.WithError(err).Error("Failed to load new canvas into memory")
		return nil, ErrInternalServer
	}

	logCtx.WithFields(logrus.Fields{"pub_id": pub.ID, "canvas_id": cv.ID}).Info("Pub created")
	return pub, nil
}

// DeletePub 删除酒馆及其全部附属数据（画布、历史、聊天、成员关系）。
// 只有酒馆所有者可以删除；社区酒馆没有所有者，不可删除。
func (s *PubService) DeletePub(ctx context.Context, requesterID, pubID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"requester_id": requesterID, "pub_id": pubID})

	pub, err := s.pubRepo.FindByID(ctx, pubID)
	if err != nil {
		if errors.Is(err, repository.ErrPubNotFound) {
			return ErrPubNotFound
		}
		logCtx.WithError(err).Error("Failed to find pub for deletion")
		return ErrInternalServer
	}
	if !pub.IsOwnedBy(requesterID) {
		logCtx.Warn("Delete rejected: requester is not the owner")
		return ErrNotPubOwner
	}

	// 先摘除内存状态，断掉后续编辑，再清理持久化数据
	s.store.Unload(pub.CanvasID)

	if err := s.historyRepo.DeleteByCanvas(ctx, pub.CanvasID); err != nil {
		logCtx.WithError(err).Warn("Failed to delete pixel history")
	}
	if err := s.chatRepo.DeleteByPub(ctx, pubID); err != nil {
		logCtx.WithError(err).Warn("Failed to delete chat messages")
	}
	if err := s.membershipRepo.DeleteByPub(ctx, pubID); err != nil {
		logCtx.WithError(err).Warn("Failed to delete memberships")
	}
	if err := s.stateRepo.CleanupCanvas(ctx, pub.CanvasID); err != nil {
		logCtx.WithError(err).Warn("Failed to cleanup canvas state in redis")
	}
	if err := s.stateRepo.CleanupPub(ctx, pubID); err != nil {
		logCtx.WithError(err).Warn("Failed to cleanup pub state in redis")
	}
	if err := s.canvasRepo.Delete(ctx, pub.CanvasID); err != nil {
		logCtx.WithError(err).Error("Failed to delete canvas")
		return ErrInternalServer
	}
	if err := s.pubRepo.Delete(ctx, pubID); err != nil {
		logCtx.WithError(err).Error("Failed to delete pub")
		return ErrInternalServer
	}

	logCtx.Info("Pub deleted")
	return nil
}

// ListPublic 返回所有公开可见的酒馆。
func (s *PubService) ListPublic(ctx context.Context) ([]domain.Pub, error) {
	pubs, err := s.pubRepo.FindAllPublic(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list public pubs")
		return nil, ErrInternalServer
	}
	return pubs, nil
}

// FindPubByID 按 ID 查询酒馆。
func (s *PubService) FindPubByID(ctx context.Context, pubID uint) (*domain.Pub, error) {
	pub, err := s.pubRepo.FindByID(ctx, pubID)
	if err != nil {
		if errors.Is(err, repository.ErrPubNotFound) {
			return nil, ErrPubNotFound
		}
		logrus.WithError(err).WithField("pub_id", pubID).Error("Failed to find pub")
		return nil, ErrInternalServer
	}
	return pub, nil
}

// JoinPub 把用户登记为酒馆成员。重复加入是幂等的。
// 私有酒馆只能由所有者（已是成员）邀请后加入，这里只允许公开酒馆自助加入。
func (s *PubService) JoinPub(ctx context.Context, userID, pubID uint) error {
	pub, err := s.FindPubByID(ctx, pubID)
	if err != nil {
		return err
	}
	if pub.IsPrivate && !pub.IsOwnedBy(userID) {
		member, memberErr := s.membershipRepo.IsMember(ctx, pubID, userID)
		if memberErr != nil {
			logrus.WithError(memberErr).Error("Failed to check membership during join")
			return ErrInternalServer
		}
		if !member {
			// 对私有酒馆统一返回未找到，不泄露其存在性
			return ErrPubNotFound
		}
	}
	if err := s.membershipRepo.Join(ctx, pubID, userID); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"user_id": userID, "pub_id": pubID}).
			Error("Failed to join pub")
		return ErrInternalServer
	}
	return nil
}

// CanEnter 判断身份能否进入酒馆。公开酒馆对所有人（含访客）开放；
// 私有酒馆只对所有者和成员开放，访客一律拒绝。
func (s *PubService) CanEnter(ctx context.Context, identity domain.Identity, pub *domain.Pub) (bool, error) {
	if !pub.IsPrivate {
		return true, nil
	}
	if identity.Guest {
		return false, nil
	}
	if pub.IsOwnedBy(identity.UserID) {
		return true, nil
	}
	member, err := s.membershipRepo.IsMember(ctx, pub.ID, identity.UserID)
	if err != nil {
		logrus.WithError(err).Error("Failed to check membership")
		return false, ErrInternalServer
	}
	return member, nil
}

// PubWithGrid 返回酒馆、画布元数据和内存中的当前网格快照。
func (s *PubService) PubWithGrid(ctx context.Context, pubID uint) (*domain.Pub, *domain.Canvas, domain.Grid, error) {
	pub, err := s.FindPubByID(ctx, pubID)
	if err != nil {
		return nil, nil, nil, err
	}
	cv, err := s.canvasRepo.FindByID(ctx, pub.CanvasID)
	if err != nil {
		logrus.WithError(err).WithField("canvas_id", pub.CanvasID).Error("Failed to find canvas")
		return nil, nil, nil, ErrInternalServer
	}
	grid, err := s.store.Snapshot(pub.CanvasID)
	if err != nil {
		logrus.WithError(err).WithField("canvas_id", pub.CanvasID).Error("Canvas missing from memory store")
		return nil, nil, nil, ErrInternalServer
	}
	return pub, cv, grid, nil
}
