package mysql

import (
	"context"
	"errors"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/repository"

	"gorm.io/gorm"
)

type RoomRepository struct {
	DB *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{DB: db}
}

// Create 房间、邀请令牌、发件箱事件一个事务落库
func (r *RoomRepository) Create(ctx context.Context, room *model.Room, invite *model.RoomInvite, event *model.RoomOutbox) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return repository.ErrMeetIDExists
			}
			return err
		}
		if invite != nil {
			if err := tx.Create(invite).Error; err != nil {
				return err
			}
		}
		if event != nil {
			if err := tx.Create(event).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RoomRepository) FindByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	err := r.DB.WithContext(ctx).First(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrRoomNotFound
	}
	return &room, err
}

func (r *RoomRepository) FindByMeetID(ctx context.Context, meetID string) (*model.Room, error) {
	var room model.Room
	err := r.DB.WithContext(ctx).First(&room, "meet_id = ?", meetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrRoomNotFound
	}
	return &room, err
}

func (r *RoomRepository) List(ctx context.Context, f repository.RoomFilter) ([]model.Room, error) {
	q := r.DB.WithContext(ctx).Model(&model.Room{})
	if f.CommunityID != nil {
		q = q.Where("community_id = ?", *f.CommunityID)
	} else {
		q = q.Where("community_id IS NULL")
	}
	if len(f.States) > 0 {
		q = q.Where("state IN ?", f.States)
	}
	if f.CreatorUID != 0 {
		q = q.Where("creator_uid = ?", f.CreatorUID)
	}
	var list []model.Room
	err := q.Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Find(&list).Error
	return list, err
}

// UpdateState 状态机条件更新：WHERE 带当前状态，两个并发 start 只会命中一个
func (r *RoomRepository) UpdateState(ctx context.Context, id string, from, to model.RoomState, actor uint64) (bool, error) {
	updates := map[string]any{"state": to}
	if to == model.RoomLive {
		updates["started_by"] = actor
	}
	res := r.DB.WithContext(ctx).Model(&model.Room{}).
		Where("id = ? AND state = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
