package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
)

// PubRepository 是 repository.PubRepository 的 Mock 实现。
type PubRepository struct {
	mock.Mock
}

func (m *PubRepository) FindByID(ctx context.Context, id uint) (*domain.Pub, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Pub), args.Error(1)
}

func (m *PubRepository) FindAllPublic(ctx context.Context) ([]domain.Pub, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Pub), args.Error(1)
}

func (m *PubRepository) FindAll(ctx context.Context) ([]domain.Pub, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Pub), args.Error(1)
}

func (m *PubRepository) Save(ctx context.Context, pub *domain.Pub) error {
	args := m.Called(ctx, pub)
	return args.Error(0)
}

func (m *PubRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MembershipRepository 是 repository.MembershipRepository 的 Mock 实现。
type MembershipRepository struct {
	mock.Mock
}

func (m *MembershipRepository) Join(ctx context.Context, pubID, userID uint) error {
	args := m.Called(ctx, pubID, userID)
	return args.Error(0)
}

func (m *MembershipRepository) IsMember(ctx context.Context, pubID, userID uint) (bool, error) {
	args := m.Called(ctx, pubID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MembershipRepository) DeleteByPub(ctx context.Context, pubID uint) error {
	args := m.Called(ctx, pubID)
	return args.Error(0)
}
