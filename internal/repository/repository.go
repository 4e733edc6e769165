package repository

import (
	"context"
	"errors"
	"time"

	"Lee_Meet/internal/model"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRequestNotFound   = errors.New("request not found")
	ErrInviteNotFound    = errors.New("invite not found")
	ErrMeetIDExists      = errors.New("meet id already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrCommunityNotFound = errors.New("community not found")
)

// RoomFilter 列表过滤条件
type RoomFilter struct {
	CommunityID *uint64 // nil 表示平台范围
	States      []model.RoomState
	CreatorUID  uint64 // 0 表示不过滤
	Offset      int
	Limit       int
}

// RequestScope 审批人可见范围
type RequestScope struct {
	All          bool     // 平台 admin/owner：全部范围
	CommunityIDs []uint64 // 版主：只看这些社区
}

type RoomRepository interface {
	// Create 单事务落房间 + 邀请令牌 + 发件箱事件；private 房不会出现无令牌的中间态
	Create(ctx context.Context, room *model.Room, invite *model.RoomInvite, event *model.RoomOutbox) error
	FindByID(ctx context.Context, id string) (*model.Room, error)
	FindByMeetID(ctx context.Context, meetID string) (*model.Room, error)
	List(ctx context.Context, f RoomFilter) ([]model.Room, error)
	// UpdateState 条件更新：仅当前状态为 from 时改为 to，返回是否命中
	UpdateState(ctx context.Context, id string, from, to model.RoomState, actor uint64) (bool, error)
}

type RoomInviteRepository interface {
	// Upsert 发放或轮换：一房一令牌，原地替换
	Upsert(ctx context.Context, invite *model.RoomInvite) error
	FindByRoom(ctx context.Context, roomID string) (*model.RoomInvite, error)
	// DeleteByRoom 房间终止时吊销，幂等
	DeleteByRoom(ctx context.Context, roomID string) error
}

type RoomRequestRepository interface {
	Create(ctx context.Context, req *model.RoomRequest) error
	FindByID(ctx context.Context, id string) (*model.RoomRequest, error)
	ListPending(ctx context.Context, scope RequestScope, now time.Time) ([]model.RoomRequest, error)
	CountPending(ctx context.Context, scope RequestScope, now time.Time) (int64, error)
	// Approve 单事务：条件置 approved + 建房 + 发令牌 + 写发件箱，部分落库视为错误
	Approve(ctx context.Context, id string, resolvedBy uint64, note string, now time.Time,
		room *model.Room, invite *model.RoomInvite, event *model.RoomOutbox) error
	Reject(ctx context.Context, id string, resolvedBy uint64, note string, now time.Time) error
	// ExpireDue 批量把过期 pending 落为 expired
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type MemberRepository interface {
	Join(ctx context.Context, member *model.CommunityMember) error
	Leave(ctx context.Context, communityID, userID uint64) error
	// RoleOf 返回 (角色, 是否成员)
	RoleOf(ctx context.Context, communityID, userID uint64) (int, bool, error)
	ModeratedCommunityIDs(ctx context.Context, userID uint64) ([]uint64, error)
	MemberCommunityIDs(ctx context.Context, userID uint64) ([]uint64, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.CommunityMember, error)
}

type CommunityRepository interface {
	Create(ctx context.Context, c *model.Community) error
	FindByID(ctx context.Context, id uint64) (*model.Community, error)
	List(ctx context.Context, offset, limit int) ([]model.Community, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint64) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, ev *model.RoomOutbox) error
	ListPending(ctx context.Context, batchSize int) ([]model.RoomOutbox, error)
	MarkSent(ctx context.Context, id uint64) error
	MarkRetry(ctx context.Context, id uint64) error
}

// ReserveResult 占位结果
type ReserveResult int

const (
	ReserveFull ReserveResult = iota // 已满
	ReserveNew                       // 本次新占一席
	ReserveHeld                      // 早已在房，幂等命中
)

// ParticipantStore 房间在场人数，join 占位 / leave 释放
type ParticipantStore interface {
	// Reserve 原子的查-占：集合内已有该用户返回 ReserveHeld，满返回 ReserveFull
	Reserve(ctx context.Context, roomID string, userID uint64, max int) (ReserveResult, error)
	Release(ctx context.Context, roomID string, userID uint64) error
	Clear(ctx context.Context, roomID string) error
	Count(ctx context.Context, roomID string) (int64, error)
}
