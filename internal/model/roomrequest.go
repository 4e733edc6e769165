package model

import "time"

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
	RequestExpired  RequestStatus = "expired"
)

// RoomRequest 无直建权限用户的开房申请
// 生命周期：pending → approved/rejected/expired，单向不可逆
type RoomRequest struct {
	ID             string         `gorm:"primaryKey;size:36"`
	MeetName       string         `gorm:"size:120;not null"`
	Visibility     RoomVisibility `gorm:"size:20;not null"`
	CommunityID    *uint64        `gorm:"index"`
	RequesterUID   uint64         `gorm:"not null;index"`
	Status         RequestStatus  `gorm:"size:12;not null;default:'pending';index"`
	ExpiresAt      time.Time      `gorm:"not null;index"`
	ResolutionNote string         `gorm:"size:255"`
	ResolvedBy     *uint64
	ResolvedAt     *time.Time
	RoomID         *string `gorm:"size:36"` // approve 生成的房间，1:1
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (RoomRequest) TableName() string { return "room_requests" }

// EffectiveStatus 读侧过期判定：pending 但已过 expires_at 的按 expired 上报，不急着改库
func (r *RoomRequest) EffectiveStatus(now time.Time) RequestStatus {
	if r.Status == RequestPending && now.After(r.ExpiresAt) {
		return RequestExpired
	}
	return r.Status
}
