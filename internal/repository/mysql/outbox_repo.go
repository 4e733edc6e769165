package mysql

import (
	"context"

	"Lee_Meet/internal/model"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{DB: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, ev *model.RoomOutbox) error {
	return r.DB.WithContext(ctx).Create(ev).Error
}

func (r *OutboxRepository) ListPending(ctx context.Context, batchSize int) ([]model.RoomOutbox, error) {
	var list []model.RoomOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = 0").
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// MarkSent 投递成功
func (r *OutboxRepository) MarkSent(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.RoomOutbox{}).Where("id = ?", id).
		Update("status", 1).Error
}

// MarkRetry 投递失败计数
func (r *OutboxRepository) MarkRetry(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.RoomOutbox{}).Where("id = ?", id).
		Updates(map[string]any{"status": 2, "retry": gorm.Expr("retry + 1")}).Error
}
