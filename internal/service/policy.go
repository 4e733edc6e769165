package service

import (
	"context"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/pkg"
	"Lee_Meet/internal/repository"
)

// Viewer 已认证观察者，中间件注入
type Viewer struct {
	UID  uint64
	Role int // 平台角色
}

func (v Viewer) PlatformAdmin() bool { return v.Role >= model.PlatformAdmin }

// Capability 观察者对某个社区的能力
type Capability struct {
	IsMember    bool
	IsModerator bool // moderator 或 owner
}

// CapabilityOf 查社区成员角色，communityID 为空返回零值
func CapabilityOf(ctx context.Context, members repository.MemberRepository, communityID *uint64, uid uint64) (Capability, error) {
	if communityID == nil {
		return Capability{}, nil
	}
	role, ok, err := members.RoleOf(ctx, *communityID, uid)
	if err != nil {
		return Capability{}, err
	}
	return Capability{
		IsMember:    ok,
		IsModerator: ok && role >= model.MemberRoleModerator,
	}, nil
}

// ValidateVisibility 上下文与可见性匹配：course_exclusive 必须带社区，
// public/private 是平台范围房间，不得带社区
func ValidateVisibility(vis model.RoomVisibility, communityID *uint64) error {
	if !vis.Valid() {
		return pkg.Ef(pkg.KindInvalidParams, "unknown visibility %q", vis)
	}
	if vis == model.VisibilityCourseExclusive {
		if communityID == nil {
			return pkg.E(pkg.KindInvalidVisibility, "course_exclusive room requires a community")
		}
		return nil
	}
	if communityID != nil {
		return pkg.Ef(pkg.KindInvalidVisibility, "%s room cannot target a community", vis)
	}
	return nil
}

// CanCreateDirectly 直建权限判定（§决策表）
//   - public：仅平台 admin/owner
//   - course_exclusive：该社区 moderator/owner，或平台 admin/owner
//   - private：任一上下文里有直建权的人都可以建（moderatesAny 表示至少是一个社区的版主）
func CanCreateDirectly(v Viewer, vis model.RoomVisibility, cap Capability, moderatesAny bool) bool {
	if v.PlatformAdmin() {
		return true
	}
	switch vis {
	case model.VisibilityCourseExclusive:
		return cap.IsModerator
	case model.VisibilityPrivate:
		return moderatesAny
	default:
		return false
	}
}

// CanManage 房间管理权：创建者；course_exclusive 房的社区版主；平台 admin/owner
func CanManage(v Viewer, room *model.Room, cap Capability) bool {
	if v.UID == room.CreatorUID {
		return true
	}
	if v.PlatformAdmin() {
		return true
	}
	return room.Visibility == model.VisibilityCourseExclusive && cap.IsModerator
}
