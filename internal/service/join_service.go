package service

import (
	"context"
	"log"

	"Lee_Meet/internal/model"
	"Lee_Meet/internal/pkg"
	"Lee_Meet/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// JoinService 入房裁决：状态、可见性、凭证、容量四道闸依次过，最后找供应商要 joinUrl
type JoinService struct {
	rooms        repository.RoomRepository
	members      repository.MemberRepository
	invites      *InviteService
	participants repository.ParticipantStore
	provider     MeetingProvider
	outbox       repository.OutboxRepository
}

func NewJoinService(rooms repository.RoomRepository, members repository.MemberRepository,
	invites *InviteService, participants repository.ParticipantStore,
	provider MeetingProvider, outbox repository.OutboxRepository) *JoinService {
	return &JoinService{
		rooms:        rooms,
		members:      members,
		invites:      invites,
		participants: participants,
		provider:     provider,
		outbox:       outbox,
	}
}

type JoinResult struct {
	JoinURL string
	Room    *model.Room
}

func (s *JoinService) load(ctx context.Context, roomID string) (*model.Room, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err == repository.ErrRoomNotFound {
		return nil, pkg.E(pkg.KindNotFound, "room not found")
	}
	return room, err
}

// Join join(caller, roomId, inviteToken?, meetPassword?) → joinUrl
func (s *JoinService) Join(ctx context.Context, v Viewer, roomID, inviteToken, password string) (*JoinResult, error) {
	room, err := s.load(ctx, roomID)
	if err != nil {
		return nil, err
	}

	cap, err := CapabilityOf(ctx, s.members, room.CommunityID, v.UID)
	if err != nil {
		return nil, err
	}
	canManage := CanManage(v, room, cap)

	// scheduled：管理者 join 即 start；其他人等着
	if room.State == model.RoomScheduled {
		if !canManage {
			return nil, pkg.E(pkg.KindRoomNotStarted, "room has not started yet")
		}
		ok, err := s.rooms.UpdateState(ctx, roomID, model.RoomScheduled, model.RoomLive, v.UID)
		if err != nil {
			return nil, err
		}
		if room, err = s.load(ctx, roomID); err != nil {
			return nil, err
		}
		if ok {
			if err := s.outbox.Enqueue(ctx, RoomEvent(EventRoomStarted, room)); err != nil {
				log.Printf("outbox enqueue %s for room %s: %v", EventRoomStarted, room.ID, err)
			}
		}
		// 没抢到 start 的一方按现状继续走普通 join
	}

	if room.State.Terminal() {
		return nil, pkg.Ef(pkg.KindRoomClosed, "room is %s", room.State)
	}

	// 可见性闸
	switch room.Visibility {
	case model.VisibilityPublic:
		// 放行
	case model.VisibilityCourseExclusive:
		if !cap.IsMember && !canManage {
			return nil, pkg.E(pkg.KindNotCommunityMember, "not a member of this community")
		}
	case model.VisibilityPrivate:
		if !canManage {
			if err := s.credentialGuard(ctx, room, inviteToken, password); err != nil {
				return nil, err
			}
		}
	}

	// 容量闸：查-占一步原子完成
	res, err := s.participants.Reserve(ctx, room.ID, v.UID, room.MaxParticipants)
	if err != nil {
		return nil, err
	}
	if res == repository.ReserveFull {
		return nil, pkg.E(pkg.KindRoomFull, "room is at capacity")
	}

	// 占位后复核状态：manager 同时 end 了的话必须吐出席位而不是混进去
	cur, err := s.load(ctx, roomID)
	if err != nil {
		s.rollback(ctx, room.ID, v.UID, res)
		return nil, err
	}
	if cur.State.Terminal() {
		s.rollback(ctx, room.ID, v.UID, res)
		return nil, pkg.Ef(pkg.KindRoomClosed, "room is %s", cur.State)
	}

	url, err := s.provider.JoinURL(ctx, room.MeetID, v.UID)
	if err != nil {
		s.rollback(ctx, room.ID, v.UID, res)
		return nil, err
	}
	return &JoinResult{JoinURL: url, Room: cur}, nil
}

// credentialGuard 私密房两段式凭证：
// 凭证没带 → credential_required 列出缺什么；带了但不对 → 对应的失败种类。
// token 错永远先报 token 错，token 和密码的错误话术一致，不给猜房的人口子。
func (s *JoinService) credentialGuard(ctx context.Context, room *model.Room, inviteToken, password string) error {
	var missing []string
	if inviteToken == "" {
		missing = append(missing, "inviteToken")
	}
	if room.HasPassword() && password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return &pkg.AppError{
			Kind:    pkg.KindCredentialRequired,
			Msg:     "additional credentials required",
			Missing: missing,
		}
	}

	if err := s.invites.Validate(ctx, room.ID, inviteToken); err != nil {
		return err
	}
	if room.HasPassword() {
		if bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(password)) != nil {
			return pkg.E(pkg.KindInvalidPassword, credentialMsg)
		}
	}
	return nil
}

// rollback 只回滚本次新占的席位；早已在房的幂等命中不动
func (s *JoinService) rollback(ctx context.Context, roomID string, uid uint64, res repository.ReserveResult) {
	if res != repository.ReserveNew {
		return
	}
	if err := s.participants.Release(ctx, roomID, uid); err != nil {
		log.Printf("release participant %d in room %s: %v", uid, roomID, err)
	}
}

// Leave 外部挂断信号，幂等接受
func (s *JoinService) Leave(ctx context.Context, v Viewer, roomID string) error {
	if _, err := s.load(ctx, roomID); err != nil {
		return err
	}
	return s.participants.Release(ctx, roomID, v.UID)
}
