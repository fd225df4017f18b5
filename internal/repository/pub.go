package repository

import (
	"context"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
)

// PubRepository 定义了酒馆（房间）数据的存储和检索操作。
type PubRepository interface {
	// FindByID 根据酒馆 ID 查找酒馆。不存在时返回 ErrNotFound。
	FindByID(ctx context.Context, id uint) (*domain.Pub, error)

	// FindAllPublic 返回所有公开可见的酒馆（社区酒馆和公开的用户酒馆）。
	FindAllPublic(ctx context.Context) ([]domain.Pub, error)

	// FindAll 返回全部酒馆，用于启动时恢复内存状态。
	FindAll(ctx context.Context) ([]domain.Pub, error)

	// Save 保存酒馆信息。已存在则更新，否则创建。
	Save(ctx context.Context, pub *domain.Pub) error

	// Delete 删除指定酒馆。
	Delete(ctx context.Context, id uint) error
}

// MembershipRepository 定义了私有酒馆成员关系的存储操作。
type MembershipRepository interface {
	// Join 建立成员关系。重复加入是幂等的，不返回错误。
	Join(ctx context.Context, pubID, userID uint) error

	// IsMember 检查用户是否为指定酒馆的成员。
	IsMember(ctx context.Context, pubID, userID uint) (bool, error)

	// DeleteByPub 删除酒馆下的全部成员关系，用于酒馆级联删除。
	DeleteByPub(ctx context.Context, pubID uint) error
}
