package mysql

import (
	"context"
	"errors"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommunityRepository struct {
	DB *gorm.DB
}

func NewCommunityRepository(db *gorm.DB) *CommunityRepository {
	return &CommunityRepository{DB: db}
}

// Create 幂等地让创建者加入（角色=owner）
func (r *CommunityRepository) Create(ctx context.Context, c *model.Community) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		mRepo := &CommunityMemberRepository{DB: tx}
		return mRepo.Join(ctx, &model.CommunityMember{
			CommunityID: c.ID,
			UserID:      c.CreatorID,
			Role:        model.MemberRoleOwner,
		})
	})
}

func (r *CommunityRepository) FindByID(ctx context.Context, id uint64) (*model.Community, error) {
	var community model.Community
	err := r.DB.WithContext(ctx).First(&community, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrCommunityNotFound
	}
	return &community, err
}

func (r *CommunityRepository) List(ctx context.Context, offset, limit int) ([]model.Community, error) {
	var list []model.Community
	err := r.DB.WithContext(ctx).Order("id desc").Offset(offset).Limit(limit).Find(&list).Error
	return list, err
}

type CommunityMemberRepository struct {
	DB *gorm.DB
}

func NewCommunityMemberRepository(db *gorm.DB) *CommunityMemberRepository {
	return &CommunityMemberRepository{DB: db}
}

func (r *CommunityMemberRepository) Join(ctx context.Context, member *model.CommunityMember) error {
	// 幂等插入：若已存在 (community_id, user_id) 则不报错
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(member).Error
}

func (r *CommunityMemberRepository) Leave(ctx context.Context, communityID, userID uint64) error {
	return r.DB.WithContext(ctx).Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&model.CommunityMember{}).Error
}

func (r *CommunityMemberRepository) RoleOf(ctx context.Context, communityID, userID uint64) (int, bool, error) {
	var member model.CommunityMember
	err := r.DB.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return member.Role, true, nil
}

func (r *CommunityMemberRepository) ModeratedCommunityIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.DB.WithContext(ctx).Model(&model.CommunityMember{}).
		Where("user_id = ? AND role >= ?", userID, model.MemberRoleModerator).
		Pluck("community_id", &ids).Error
	return ids, err
}

func (r *CommunityMemberRepository) ListByUser(ctx context.Context, userID uint64) ([]model.CommunityMember, error) {
	var list []model.CommunityMember
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("community_id ASC").
		Find(&list).Error
	return list, err
}

func (r *CommunityMemberRepository) MemberCommunityIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.DB.WithContext(ctx).Model(&model.CommunityMember{}).
		Where("user_id = ?", userID).
		Pluck("community_id", &ids).Error
	return ids, err
}
