package model

import "time"

// 平台角色
const (
	PlatformUser  = 0
	PlatformAdmin = 1
	PlatformOwner = 2
)

type User struct {
	ID        uint64 `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;size:32;not null"`
	Password  string `gorm:"size:255;not null"`
	Role      int    `gorm:"default:0"` // 0=user, 1=admin, 2=owner
	Email     string `gorm:"uniqueIndex;size:64;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
