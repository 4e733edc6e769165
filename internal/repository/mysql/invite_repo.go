package mysql

import (
	"context"
	"errors"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoomInviteRepository struct {
	DB *gorm.DB
}

func NewRoomInviteRepository(db *gorm.DB) *RoomInviteRepository {
	return &RoomInviteRepository{DB: db}
}

// Upsert 一房一令牌：已有则原地替换（轮换即吊销旧令牌）
func (r *RoomInviteRepository) Upsert(ctx context.Context, invite *model.RoomInvite) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "issued_at"}),
	}).Create(invite).Error
}

func (r *RoomInviteRepository) FindByRoom(ctx context.Context, roomID string) (*model.RoomInvite, error) {
	var invite model.RoomInvite
	err := r.DB.WithContext(ctx).First(&invite, "room_id = ?", roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrInviteNotFound
	}
	return &invite, err
}

// DeleteByRoom 幂等吊销
func (r *RoomInviteRepository) DeleteByRoom(ctx context.Context, roomID string) error {
	return r.DB.WithContext(ctx).Delete(&model.RoomInvite{}, "room_id = ?", roomID).Error
}
