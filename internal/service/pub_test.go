package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/canvas"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/repository"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/repository/mocks"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/service"
)

// pubTestMocks 聚合 PubService 的全部 Mock 依赖。
type pubTestMocks struct {
	pubRepo        *mocks.PubRepository
	canvasRepo     *mocks.CanvasRepository
	membershipRepo *mocks.MembershipRepository
	chatRepo       *mocks.ChatRepository
	historyRepo    *mocks.HistoryRepository
	stateRepo      *mocks.StateRepository
	store          *canvas.Store
}

func newPubService(t *testing.T) (*service.PubService, *pubTestMocks) {
	t.Helper()
	m := &pubTestMocks{
		pubRepo:        new(mocks.PubRepository),
		canvasRepo:     new(mocks.CanvasRepository),
		membershipRepo: new(mocks.MembershipRepository),
		chatRepo:       new(mocks.ChatRepository),
		historyRepo:    new(mocks.HistoryRepository),
		stateRepo:      new(mocks.StateRepository),
		store:          canvas.NewStore(),
	}
	svc := service.NewPubService(
		m.pubRepo, m.canvasRepo, m.membershipRepo,
		m.chatRepo, m.historyRepo, m.stateRepo, m.store,
	)
	return svc, m
}

// --- 测试 CreatePub 方法 ---

func TestPubService_CreatePub_Success(t *testing.T) {
	svc, m := newPubService(t)
	ctx := context.Background()

	// 画布先落库拿到 ID
	m.canvasRepo.On("Save", ctx, mock.MatchedBy(func(cv *domain.Canvas) bool {
		assert.Equal(t, 16, cv.Width)
		assert.Equal(t, 8, cv.Height)
		assert.NotEmpty(t, cv.Data, "画布数据应已序列化为空白网格")
		return true
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Canvas).ID = 30
	}).Return(nil).Once()

	m.pubRepo.On("Save", ctx, mock.MatchedBy(func(pub *domain.Pub) bool {
		assert.Equal(t, uint(30), pub.CanvasID)
		assert.True(t, pub.IsOwnedBy(7))
		return true
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Pub).ID = 3
	}).Return(nil).Once()

	m.membershipRepo.On("Join", ctx, uint(3), uint(7)).Return(nil).Once()

	pub, err := svc.CreatePub(ctx, 7, "  The Doodle Den  ", 16, 8, false)

	require.NoError(t, err)
	require.NotNil(t, pub)
	assert.Equal(t, "The Doodle Den", pub.Name, "名称首尾空白应被去除")

	// 新画布立即可编辑：已加载进内存并归属新酒馆
	ownerPub, err := m.store.OwnerPub(30)
	require.NoError(t, err)
	assert.Equal(t, uint(3), ownerPub)

	m.canvasRepo.AssertExpectations(t)
	m.pubRepo.AssertExpectations(t)
	m.membershipRepo.AssertExpectations(t)
}

func TestPubService_CreatePub_InvalidSize(t *testing.T) {
	svc, m := newPubService(t)
	ctx := context.Background()

	for _, dims := range [][2]int{{0, 10}, {10, 0}, {257, 10}, {10, 257}, {-1, -1}} {
		_, err := svc.CreatePub(ctx, 7, "bad", dims[0], dims[1], false)
		assert.ErrorIs(t, err, service.ErrInvalidCanvasSize, "dims=%v", dims)
	}
	m.canvasRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestPubService_CreatePub_PubSaveFailureCleansUpCanvas(t *testing.T) {
	svc, m := newPubService(t)
	ctx := context.Background()

	m.canvasRepo.On("Save", ctx, mock.AnythingOfType("*domain.Canvas")).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Canvas).ID = 31 }).
		Return(nil).Once()
	m.pubRepo.On("Save", ctx, mock.AnythingOfType("*domain.Pub")).Return(assert.AnError).Once()
	// 孤儿画布应被回收
	m.canvasRepo.On("Delete", ctx, uint(31)).Return(nil).Once()

	_, err := svc.CreatePub(ctx, 7, "doomed", 8, 8, false)

	assert.ErrorIs(t, err, service.ErrInternalServer)
	m.canvasRepo.AssertExpectations(t)
	m.pubRepo.AssertExpectations(t)
}

// --- 测试 JoinPub 方法 ---

func TestPubService_JoinPub_PrivateNonMemberGetsNotFound(t *testing.T) {
	svc, m := newPubService(t)
	ctx := context.Background()
	ownerID := uint(42)
	privatePub := &domain.Pub{ID: 5, OwnerID: &ownerID, IsPrivate: true, CanvasID: 50}

	m.pubRepo.On("FindByID", ctx, uint(5)).Return(privatePub, nil).Once()
	m.membershipRepo.On("IsMember", ctx, uint(5), uint(7)).Return(false, nil).Once()

	err := svc.JoinPub(ctx, 7, 5)

	// 私有酒馆对非成员表现为不存在
	assert.ErrorIs(t, err, service.ErrPubNotFound)
	m.membershipRepo.AssertNotCalled(t, "Join", mock.Anything, mock.Anything, mock.Anything)
}

func TestPubService_JoinPub_PublicIsIdempotent(t *testing.T) {
	svc, m := newPubService(t)
	ctx := context.Background()
	publicPub := &domain.Pub{ID: 2, CanvasID: 20}

	m.pubRepo.On("FindByID", ctx, uint(2)).Return(publicPub, nil).Twice()
	m.membershipRepo.On("Join", ctx, uint(2), uint(7)).Return(nil).Twice()

	require.NoError(t, svc.JoinPub(ctx, 7, 2))
	require.NoError(t, svc.JoinPub(ctx, 7, 2))
	m.membershipRepo.AssertExpectations(t)
}

// --- 测试 CanEnter 方法 ---

func TestPubService_CanEnter(t *testing.T) {
	ownerID := uint(42)
	publicPub := &domain.Pub{ID: 1, CanvasID: 10}
	privatePub := &domain.Pub{ID: 5, OwnerID: &ownerID, IsPrivate: true, CanvasID: 50}

	cases := []struct {
		name     string
		identity domain.Identity
		pub      *domain.Pub
		member   *bool // 非 nil 时设置 IsMember 预期
		want     bool
	}{
		{"访客进入公开酒馆", domain.GuestIdentity("Guest"), publicPub, nil, true},
		{"用户进入公开酒馆", domain.AuthenticatedIdentity(7, "ada"), publicPub, nil, true},
		{"访客被私有酒馆拒绝", domain.GuestIdentity("Guest"), privatePub, nil, false},
		{"所有者进入私有酒馆", domain.AuthenticatedIdentity(42, "owner"), privatePub, nil, true},
		{"成员进入私有酒馆", domain.AuthenticatedIdentity(7, "ada"), privatePub, boolPtr(true), true},
		{"非成员被私有酒馆拒绝", domain.AuthenticatedIdentity(8, "bob"), privatePub, boolPtr(false), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, m := newPubService(t)
			ctx := context.Background()
			if tc.member != nil {
				m.membershipRepo.On("IsMember", ctx, tc.pub.ID, tc.identity.UserID).
					Return(*tc.member, nil).Once()
			}
			allowed, err := svc.CanEnter(ctx, tc.identity, tc.pub)
			require.NoError(t, err)
			assert.Equal(t, tc.want, allowed)
			m.membershipRepo.AssertExpectations(t)
		})
	}
}

func boolPtr(b bool) *bool { return &b }

// --- 测试 DeletePub 方法 ---

func TestPubService_DeletePub_NotOwner(t *testing.T) {
	svc, m := newPubService(t)
	ctx := context.Background()
	ownerID := uint(42)
	pub := &domain.Pub{ID: 5, OwnerID: &ownerID, CanvasID: 50}

	m.pubRepo.On("FindByID", ctx, uint(5)).Return(pub, nil).Once()

	err := svc.DeletePub(ctx, 7, 5)

	assert.ErrorIs(t, err, service.ErrNotPubOwner)
	m.pubRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestPubService_DeletePub_CommunityPubHasNoOwner(t *testing.T) {
	svc, m := newPubService(t)
	ctx := context.Background()
	community := &domain.Pub{ID: 1, CanvasID: 10} // OwnerID 为 nil

	m.pubRepo.On("FindByID", ctx, uint(1)).Return(community, nil).Once()

	err := svc.DeletePub(ctx, 42, 1)

	assert.ErrorIs(t, err, service.ErrNotPubOwner, "社区酒馆任何人都不能删除")
}

func TestPubService_DeletePub_Success(t *testing.T) {
	svc, m := newPubService(t)
	ctx := context.Background()
	ownerID := uint(7)
	pub := &domain.Pub{ID: 5, OwnerID: &ownerID, CanvasID: 50}
	require.NoError(t, m.store.Load(50, 5, domain.NewBlankGrid(4, 4)))

	m.pubRepo.On("FindByID", ctx, uint(5)).Return(pub, nil).Once()
	m.historyRepo.On("DeleteByCanvas", ctx, uint(50)).Return(nil).Once()
	m.chatRepo.On("DeleteByPub", ctx, uint(5)).Return(nil).Once()
	m.membershipRepo.On("DeleteByPub", ctx, uint(5)).Return(nil).Once()
	m.stateRepo.On("CleanupCanvas", ctx, uint(50)).Return(nil).Once()
	m.stateRepo.On("CleanupPub", ctx, uint(5)).Return(nil).Once()
	m.canvasRepo.On("Delete", ctx, uint(50)).Return(nil).Once()
	m.pubRepo.On("Delete", ctx, uint(5)).Return(nil).Once()

	err := svc.DeletePub(ctx, 7, 5)

	require.NoError(t, err)
	// 内存状态已摘除，后续编辑会被拒绝
	_, storeErr := m.store.OwnerPub(50)
	assert.ErrorIs(t, storeErr, canvas.ErrUnknownCanvas)

	m.pubRepo.AssertExpectations(t)
	m.canvasRepo.AssertExpectations(t)
	m.historyRepo.AssertExpectations(t)
	m.chatRepo.AssertExpectations(t)
	m.membershipRepo.AssertExpectations(t)
	m.stateRepo.AssertExpectations(t)
}

func TestPubService_FindPubByID_NotFound(t *testing.T) {
	svc, m := newPubService(t)
	ctx := context.Background()

	m.pubRepo.On("FindByID", ctx, uint(99)).Return(nil, repository.ErrPubNotFound).Once()

	_, err := svc.FindPubByID(ctx, 99)
	assert.ErrorIs(t, err, service.ErrPubNotFound)
}
