package model

import "time"

type RoomState string

const (
	RoomScheduled RoomState = "scheduled"
	RoomLive      RoomState = "live"
	RoomEnded     RoomState = "ended"
	RoomCanceled  RoomState = "canceled"
)

// Terminal 终态判断：ended/canceled 之后不再变化
func (s RoomState) Terminal() bool {
	return s == RoomEnded || s == RoomCanceled
}

type RoomVisibility string

const (
	VisibilityPublic          RoomVisibility = "public"
	VisibilityPrivate         RoomVisibility = "private"
	VisibilityCourseExclusive RoomVisibility = "course_exclusive"
)

func (v RoomVisibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityCourseExclusive:
		return true
	}
	return false
}

// Room 会议房间
// 约束：meet_id 全局唯一；course_exclusive 时 community_id 必填，其余为空
type Room struct {
	ID              string         `gorm:"primaryKey;size:36"`
	MeetID          string         `gorm:"uniqueIndex;size:16;not null"`
	MeetName        string         `gorm:"size:120;not null"`
	Visibility      RoomVisibility `gorm:"size:20;not null;index"`
	CommunityID     *uint64        `gorm:"index"`
	State           RoomState      `gorm:"size:12;not null;default:'scheduled';index"`
	CreatorUID      uint64         `gorm:"not null;index"`
	StartedBy       *uint64        // 触发 scheduled→live 的操作者，重试幂等判定用
	MaxParticipants int            `gorm:"not null;default:8"`
	ScheduledAt     *time.Time
	PasswordHash    string `gorm:"size:255"`
	AllowMic        bool   `gorm:"not null;default:true"`
	AllowVideo      bool   `gorm:"not null;default:true"`
	AllowScreen     bool   `gorm:"not null;default:true"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Room) TableName() string { return "rooms" }

func (r *Room) HasPassword() bool { return r.PasswordHash != "" }

// RoomInvite 私密房间邀请令牌，每个房间至多一条；轮换即原地换 token
type RoomInvite struct {
	RoomID    string `gorm:"primaryKey;size:36"`
	Token     string `gorm:"uniqueIndex;size:80;not null"`
	IssuedAt  time.Time
	UpdatedAt time.Time
}

func (RoomInvite) TableName() string { return "room_invites" }

// RoomOutbox 房间事件事务性发件箱
type RoomOutbox struct {
	ID        uint64 `gorm:"primaryKey"`
	EventType string `gorm:"size:32;not null"` // room.created / room.started / ...
	RoomID    string `gorm:"size:36;not null;index"`
	Payload   string `gorm:"type:json;not null"`
	Status    int8   `gorm:"not null;default:0;comment:'0=pending,1=sent,2=failed'"`
	Retry     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (RoomOutbox) TableName() string { return "room_outbox" }
