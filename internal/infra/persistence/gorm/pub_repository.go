package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hns101/PixelPub-CS50-Final-Project/internal/domain"
	"github.com/hns101/PixelPub-CS50-Final-Project/internal/repository"
)

// GormPubRepository 是 PubRepository 接口的 GORM 实现
type GormPubRepository struct {
	db *gorm.DB
}

// NewGormPubRepository 创建 GormPubRepository 实例
func NewGormPubRepository(db *gorm.DB) *GormPubRepository {
	if db == nil {
		panic("database connection cannot be nil for GormPubRepository")
	}
	return &GormPubRepository{db: db}
}

// FindByID 实现根据酒馆 ID 查找酒馆
func (r *GormPubRepository) FindByID(ctx context.Context, id uint) (*domain.Pub, error) {
	var pub domain.Pub
	err := r.db.WithContext(ctx).First(&pub, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrPubNotFound
		}
		return nil, fmt.Errorf("gorm: find pub by id %d: %w", id, err)
	}
	return &pub, nil
}

// FindAllPublic 实现查询所有公开可见的酒馆
func (r *GormPubRepository) FindAllPublic(ctx context.Context) ([]domain.Pub, error) {
	var pubs []domain.Pub
	err := r.db.WithContext(ctx).Where("is_private = ?", false).Order("id asc").Find(&pubs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find all public pubs: %w", err)
	}
	return pubs, nil
}

// FindAll 实现查询全部酒馆
func (r *GormPubRepository) FindAll(ctx context.Context) ([]domain.Pub, error) {
	var pubs []domain.Pub
	err := r.db.WithContext(ctx).Order("id asc").Find(&pubs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find all pubs: %w", err)
	}
	return pubs, nil
}

// Save 实现保存酒馆信息（创建或更新）
func (r *GormPubRepository) Save(ctx context.Context, pub *domain.Pub) error {
	err := r.db.WithContext(ctx).Save(pub).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save pub (id: %d, name: %s): %w", pub.ID, pub.Name, err)
	}
	return nil
}

// Delete 实现删除指定酒馆
func (r *GormPubRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Delete(&domain.Pub{}, id).Error
	if err != nil {
		return fmt.Errorf("gorm: delete pub %d: %w", id, err)
	}
	return nil
}

// GormMembershipRepository 是 MembershipRepository 接口的 GORM 实现
type GormMembershipRepository struct {
	db *gorm.DB
}

// NewGormMembershipRepository 创建 GormMembershipRepository 实例
func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMembershipRepository")
	}
	return &GormMembershipRepository{db: db}
}

// Join 实现建立成员关系。利用唯一索引 + DO NOTHING 保证幂等。
func (r *GormMembershipRepository) Join(ctx context.Context, pubID, userID uint) error {
	membership := domain.Membership{PubID: pubID, UserID: userID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&membership).Error
	if err != nil {
		return fmt.Errorf("gorm: join pub %d as user %d: %w", pubID, userID, err)
	}
	return nil
}

// IsMember 实现成员关系检查
func (r *GormMembershipRepository) IsMember(ctx context.Context, pubID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Membership{}).
		Where("pub_id = ? AND user_id = ?", pubID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: check membership pub %d user %d: %w", pubID, userID, err)
	}
	return count > 0, nil
}

// DeleteByPub 实现按酒馆删除全部成员关系
func (r *GormMembershipRepository) DeleteByPub(ctx context.Context, pubID uint) error {
	err := r.db.WithContext(ctx).Where("pub_id = ?", pubID).Delete(&domain.Membership{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete memberships of pub %d: %w", pubID, err)
	}
	return nil
}
