package mysql

import (
	"context"
	"errors"
	"time"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/pkg"
	"Lee_Meet/internal/repository"

	"gorm.io/gorm"
)

type RoomRequestRepository struct {
	DB *gorm.DB
}

func NewRoomRequestRepository(db *gorm.DB) *RoomRequestRepository {
	return &RoomRequestRepository{DB: db}
}

func (r *RoomRequestRepository) Create(ctx context.Context, req *model.RoomRequest) error {
	return r.DB.WithContext(ctx).Create(req).Error
}

func (r *RoomRequestRepository) FindByID(ctx context.Context, id string) (*model.RoomRequest, error) {
	var req model.RoomRequest
	err := r.DB.WithContext(ctx).First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrRequestNotFound
	}
	return &req, err
}

func scopeQuery(q *gorm.DB, scope repository.RequestScope) *gorm.DB {
	if scope.All {
		return q
	}
	// 版主只看自己社区的申请；平台范围（community_id IS NULL）只有 admin 可见
	if len(scope.CommunityIDs) == 0 {
		return q.Where("1 = 0")
	}
	return q.Where("community_id IN ?", scope.CommunityIDs)
}

func (r *RoomRequestRepository) ListPending(ctx context.Context, scope repository.RequestScope, now time.Time) ([]model.RoomRequest, error) {
	q := r.DB.WithContext(ctx).Model(&model.RoomRequest{}).
		Where("status = ? AND expires_at > ?", model.RequestPending, now)
	q = scopeQuery(q, scope)
	var list []model.RoomRequest
	err := q.Order("created_at ASC").Find(&list).Error
	return list, err
}

func (r *RoomRequestRepository) CountPending(ctx context.Context, scope repository.RequestScope, now time.Time) (int64, error) {
	q := r.DB.WithContext(ctx).Model(&model.RoomRequest{}).
		Where("status = ? AND expires_at > ?", model.RequestPending, now)
	q = scopeQuery(q, scope)
	var count int64
	err := q.Count(&count).Error
	return count, err
}

// resolveGuard 条件置终态；没命中行则区分 NotFound / AlreadyResolved / RequestExpired
func resolveGuard(tx *gorm.DB, id string, to model.RequestStatus, resolvedBy uint64, note string, now time.Time, roomID *string) error {
	updates := map[string]any{
		"status":          to,
		"resolution_note": note,
		"resolved_by":     resolvedBy,
		"resolved_at":     now,
	}
	if roomID != nil {
		updates["room_id"] = *roomID
	}
	res := tx.Model(&model.RoomRequest{}).
		Where("id = ? AND status = ? AND expires_at > ?", id, model.RequestPending, now).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	// 写时二次判定，避免读侧陈旧客户端批过期单
	var cur model.RoomRequest
	if err := tx.First(&cur, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkg.E(pkg.KindNotFound, "request not found")
		}
		return err
	}
	if cur.Status != model.RequestPending {
		return pkg.Ef(pkg.KindAlreadyResolved, "request already %s", cur.Status)
	}
	return pkg.E(pkg.KindRequestExpired, "request expired")
}

// Approve 单事务提交：申请置 approved、建房、发令牌、写发件箱，任一失败整体回滚
func (r *RoomRequestRepository) Approve(ctx context.Context, id string, resolvedBy uint64, note string, now time.Time,
	room *model.Room, invite *model.RoomInvite, event *model.RoomOutbox) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := resolveGuard(tx, id, model.RequestApproved, resolvedBy, note, now, &room.ID); err != nil {
			return err
		}
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

func (r *RoomRequestRepository) Reject(ctx context.Context, id string, resolvedBy uint64, note string, now time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return resolveGuard(tx, id, model.RequestRejected, resolvedBy, note, now, nil)
	})
}

// ExpireDue 后台批量落库：过期 pending 置 expired
func (r *RoomRequestRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.RoomRequest{}).
		Where("status = ? AND expires_at <= ?", model.RequestPending, now).
		Update("status", model.RequestExpired)
	return res.RowsAffected, res.Error
}
